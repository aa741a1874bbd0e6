package driveops

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wnmlab/sharepoint-go/internal/graph"
	"github.com/wnmlab/sharepoint-go/internal/graph/graphtest"
	"github.com/wnmlab/sharepoint-go/internal/journal"
	"github.com/wnmlab/sharepoint-go/internal/mover"
)

func TestMoveFile_RecordsSuccess(t *testing.T) {
	j := &memJournal{}
	s, fake := newTestSession(t, WithJournal(j))
	id := fake.AddFile("Inbox/cell.swc", []byte("1 1 0 0 0 1 -1\n"))
	fake.AddFolder("Done")

	item, err := s.Move(context.Background(), "Inbox", "cell.swc", "Done", "cell-01.swc")
	require.NoError(t, err)
	assert.Equal(t, id, item.ID)
	assert.True(t, fake.Exists("Done/cell-01.swc"))
	assert.False(t, fake.Exists("Inbox/cell.swc"))

	entries := j.all()
	require.Len(t, entries, 1)
	assert.Equal(t, journal.Entry{
		ID:         "entry",
		Site:       "HORTA",
		SourcePath: "Inbox/cell.swc",
		DestPath:   "Done/cell-01.swc",
		ItemID:     id,
		Size:       int64(len("1 1 0 0 0 1 -1\n")),
		Outcome:    journal.OutcomeMoved,
	}, entries[0])
}

func TestMoveFile_ConflictRecordedAsFailed(t *testing.T) {
	j := &memJournal{}
	s, fake := newTestSession(t, WithJournal(j))
	fake.AddFile("Inbox/a.txt", []byte("new"))
	fake.AddFile("Done/a.txt", []byte("old"))

	_, err := s.MoveFile(context.Background(), mover.Request{SourceFolder: "Inbox", FileName: "a.txt", DestFolder: "Done"})
	require.ErrorIs(t, err, graph.ErrConflict)
	assert.Zero(t, fake.Mutations())

	entries := j.all()
	require.Len(t, entries, 1)
	assert.Equal(t, journal.OutcomeFailed, entries[0].Outcome)
	assert.Equal(t, mover.DestChecked.String(), entries[0].Stage)
	assert.Contains(t, entries[0].Error, "already exists")
}

func TestMoveFile_RestoredRecorded(t *testing.T) {
	j := &memJournal{}
	s, fake := newTestSession(t, WithJournal(j))
	fake.AddFile("Inbox/a.txt", []byte("payload"))
	fake.AddFolder("Done")
	fake.Fail(graphtest.Fault{Method: http.MethodPatch, Status: http.StatusInternalServerError, Times: 1})

	_, err := s.Move(context.Background(), "Inbox", "a.txt", "Done", "")
	require.Error(t, err)

	got, ok := fake.Content("Inbox/a.txt")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), got)

	entries := j.all()
	require.Len(t, entries, 1)
	assert.Equal(t, journal.OutcomeRestored, entries[0].Outcome)
	assert.Equal(t, mover.Relocated.String(), entries[0].Stage)
}

func TestMoveFile_RecoveryFailedRecorded(t *testing.T) {
	j := &memJournal{}
	s, fake := newTestSession(t, WithJournal(j))
	fake.AddFile("Inbox/a.txt", []byte("payload"))
	fake.AddFolder("Done")
	fake.Fail(graphtest.Fault{Method: http.MethodPatch, Status: http.StatusLocked, Times: 1})
	fake.Fail(graphtest.Fault{Method: http.MethodPut, Status: http.StatusInsufficientStorage, Times: 1})

	_, err := s.Move(context.Background(), "Inbox", "a.txt", "Done", "")
	require.ErrorIs(t, err, mover.ErrRecoveryFailed)

	entries := j.all()
	require.Len(t, entries, 1)
	assert.Equal(t, journal.OutcomeRecoveryFailed, entries[0].Outcome)
	assert.True(t, entries[0].NeedsAttention())
	assert.Equal(t, mover.Relocated.String(), entries[0].Stage)
}

func TestMoveFile_JournalFailureDoesNotMaskResult(t *testing.T) {
	j := &memJournal{err: errors.New("database is locked")}
	s, fake := newTestSession(t, WithJournal(j))
	fake.AddFile("Inbox/a.txt", []byte("x"))
	fake.AddFolder("Done")

	item, err := s.Move(context.Background(), "Inbox", "a.txt", "Done", "")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", item.Name)
}

func TestMoveFile_WithoutJournal(t *testing.T) {
	s, fake := newTestSession(t)
	fake.AddFile("Inbox/a.txt", []byte("x"))

	_, err := s.Move(context.Background(), "Inbox", "a.txt", "", "b.txt")
	require.NoError(t, err)
	assert.True(t, fake.Exists("b.txt"))
}

func TestOutcomeOf(t *testing.T) {
	req := mover.Request{SourceFolder: "a", FileName: "f", DestFolder: "b"}

	tests := []struct {
		name string
		err  error
		want journal.Outcome
	}{
		{"success", nil, journal.OutcomeMoved},
		{"plain error", errors.New("boom"), journal.OutcomeFailed},
		{"not restored", &mover.MoveError{Request: req, Stage: mover.DestChecked, Err: graph.ErrConflict}, journal.OutcomeFailed},
		{"restored", &mover.MoveError{Request: req, Stage: mover.Relocated, Err: graph.ErrLocked, Restored: true}, journal.OutcomeRestored},
		{"recovery failed", &mover.RecoveryError{Request: req, Stage: mover.Relocated, Original: graph.ErrLocked, Recovery: graph.ErrServerError}, journal.OutcomeRecoveryFailed},
		{"wrapped recovery failed", fmt.Errorf("moving: %w", &mover.RecoveryError{Request: req, Original: graph.ErrLocked, Recovery: graph.ErrServerError}), journal.OutcomeRecoveryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutcomeOf(tt.err))
		})
	}
}
