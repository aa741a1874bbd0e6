package mover

// State is a step of the move state machine.
type State int

// Happy path: Start through Relocated. Failure path after buffering:
// Recovering, then Recovered or RecoveryFailed.
const (
	Start State = iota
	MetadataFetched
	ContentBuffered
	SizeChecked
	DestChecked
	DestParentResolved
	Relocated
	Recovering
	Recovered
	RecoveryFailed
)

var stateNames = [...]string{
	Start:              "start",
	MetadataFetched:    "metadata_fetched",
	ContentBuffered:    "content_buffered",
	SizeChecked:        "size_checked",
	DestChecked:        "dest_checked",
	DestParentResolved: "dest_parent_resolved",
	Relocated:          "relocated",
	Recovering:         "recovering",
	Recovered:          "recovered",
	RecoveryFailed:     "recovery_failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}

	return stateNames[s]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Relocated || s == Recovered || s == RecoveryFailed
}
