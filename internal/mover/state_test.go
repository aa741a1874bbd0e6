package mover

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "start", Start.String())
	assert.Equal(t, "dest_parent_resolved", DestParentResolved.String())
	assert.Equal(t, "recovery_failed", RecoveryFailed.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.Equal(t, "unknown", State(-1).String())
}

func TestStateTerminal(t *testing.T) {
	for _, s := range []State{Relocated, Recovered, RecoveryFailed} {
		assert.True(t, s.Terminal(), s.String())
	}

	for _, s := range []State{Start, MetadataFetched, ContentBuffered, SizeChecked, DestChecked, DestParentResolved, Recovering} {
		assert.False(t, s.Terminal(), s.String())
	}
}

func TestRequestPaths(t *testing.T) {
	r := Request{SourceFolder: "/F/", FileName: "a.csv", DestFolder: "G/sub"}
	assert.Equal(t, "a.csv", r.DestName())
	assert.Equal(t, "F/a.csv", r.SourcePath())
	assert.Equal(t, "G/sub/a.csv", r.DestPath())

	r.NewName = "b.csv"
	assert.Equal(t, "G/sub/b.csv", r.DestPath())
}
