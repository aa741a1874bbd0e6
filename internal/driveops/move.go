package driveops

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wnmlab/sharepoint-go/internal/graph"
	"github.com/wnmlab/sharepoint-go/internal/journal"
	"github.com/wnmlab/sharepoint-go/internal/mover"
)

// MoveFile runs a safe move of req.FileName from req.SourceFolder into
// req.DestFolder (renamed to req.NewName when set). When a journal is
// attached the outcome is recorded; a journal failure is logged and never
// masks the move result.
func (s *Session) MoveFile(ctx context.Context, req mover.Request) (*graph.Item, error) {
	item, err := s.Mover.Move(ctx, req)

	if s.journal != nil {
		s.record(ctx, req, item, err)
	}

	return item, err
}

// Move is shorthand for MoveFile with the request fields spelled out.
func (s *Session) Move(ctx context.Context, sourceFolder, fileName, destFolder, newName string) (*graph.Item, error) {
	return s.MoveFile(ctx, mover.Request{
		SourceFolder: sourceFolder,
		FileName:     fileName,
		DestFolder:   destFolder,
		NewName:      newName,
	})
}

func (s *Session) record(ctx context.Context, req mover.Request, item *graph.Item, moveErr error) {
	e := journal.Entry{
		Site:       s.Name,
		SourcePath: req.SourcePath(),
		DestPath:   req.DestPath(),
		Outcome:    OutcomeOf(moveErr),
	}

	if item != nil {
		e.ItemID = item.ID
		e.Size = item.Size
	}

	if moveErr != nil {
		e.Error = moveErr.Error()
		e.Stage = stageOf(moveErr)
	}

	// A failed recovery must be journaled even when the caller has gone away.
	if _, err := s.journal.Record(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Error("recording move in journal failed",
			slog.String("source", e.SourcePath),
			slog.String("dest", e.DestPath),
			slog.String("outcome", string(e.Outcome)),
			slog.String("error", err.Error()),
		)
	}
}

// OutcomeOf classifies the result of a move for the journal.
func OutcomeOf(err error) journal.Outcome {
	if err == nil {
		return journal.OutcomeMoved
	}

	if errors.Is(err, mover.ErrRecoveryFailed) {
		return journal.OutcomeRecoveryFailed
	}

	var me *mover.MoveError
	if errors.As(err, &me) && me.Restored {
		return journal.OutcomeRestored
	}

	return journal.OutcomeFailed
}

func stageOf(err error) string {
	var re *mover.RecoveryError
	if errors.As(err, &re) {
		return re.Stage.String()
	}

	var me *mover.MoveError
	if errors.As(err, &me) {
		return me.Stage.String()
	}

	return ""
}
