// Package mover relocates a remote file between folders without ever leaving
// it silently lost or duplicated. The file's bytes are buffered in memory
// before anything is changed; if the relocation fails, the buffer is uploaded
// back to the source path.
package mover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wnmlab/sharepoint-go/internal/graph"
	"github.com/wnmlab/sharepoint-go/internal/sizeguard"
	"github.com/wnmlab/sharepoint-go/pkg/quickxorhash"
)

// DefaultRecoveryTimeout bounds the restore upload. Recovery runs even when
// the caller's context is already canceled.
const DefaultRecoveryTimeout = 2 * time.Minute

// Gateway is the subset of graph.Client a move needs.
type Gateway interface {
	GetItem(ctx context.Context, folder, name string) (*graph.Item, error)
	GetItemByPath(ctx context.Context, path string) (*graph.Item, error)
	FetchContent(ctx context.Context, item *graph.Item) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
	MoveItem(ctx context.Context, itemID, newParentID, newName string) (*graph.Item, error)
	PutContent(ctx context.Context, folder, name string, data []byte, contentType string,
		behavior graph.ConflictBehavior) (*graph.Item, error)
}

// Limiter computes the buffer ceiling. *sizeguard.Guard implements it.
type Limiter interface {
	MaxSafeBytes(fraction float64) (int64, error)
}

// Invalidator drops a cached credential. *auth.Provider implements it.
type Invalidator interface {
	Invalidate()
}

// Option configures a Mover.
type Option func(*Mover)

// WithFraction sets the share of available memory one move may buffer.
func WithFraction(f float64) Option {
	return func(m *Mover) { m.fraction = f }
}

// WithMaxBuffer caps the buffer at n bytes regardless of available memory.
// Zero means no cap.
func WithMaxBuffer(n int64) Option {
	return func(m *Mover) { m.maxBuffer = n }
}

// WithCredentials lets recovery run on a freshly issued credential.
func WithCredentials(inv Invalidator) Option {
	return func(m *Mover) { m.creds = inv }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mover) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithObserver registers a callback invoked on every state entered.
func WithObserver(fn func(State)) Option {
	return func(m *Mover) { m.observe = fn }
}

// WithRecoveryTimeout overrides DefaultRecoveryTimeout.
func WithRecoveryTimeout(d time.Duration) Option {
	return func(m *Mover) { m.recoveryTimeout = d }
}

// WithoutRestoreVerification skips comparing the restored file's
// QuickXorHash against the backup.
func WithoutRestoreVerification() Option {
	return func(m *Mover) { m.verifyRestore = false }
}

// Mover runs moves. It holds no per-move state and is safe for concurrent
// use; each Move owns its own backup buffer.
type Mover struct {
	gw              Gateway
	limiter         Limiter
	creds           Invalidator
	logger          *slog.Logger
	observe         func(State)
	fraction        float64
	maxBuffer       int64
	recoveryTimeout time.Duration
	verifyRestore   bool
}

// New creates a Mover.
func New(gw Gateway, limiter Limiter, opts ...Option) *Mover {
	m := &Mover{
		gw:              gw,
		limiter:         limiter,
		logger:          slog.Default(),
		fraction:        sizeguard.DefaultFraction,
		recoveryTimeout: DefaultRecoveryTimeout,
		verifyRestore:   true,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// run carries one move attempt.
type run struct {
	m      *Mover
	req    Request
	state  State
	logger *slog.Logger
}

func (r *run) enter(s State) {
	r.state = s

	r.logger.Debug("move state", slog.String("state", s.String()))

	if r.m.observe != nil {
		r.m.observe(s)
	}
}

// fail reports a failure that changed nothing remotely.
func (r *run) fail(target State, err error) error {
	r.logger.Warn("move aborted",
		slog.String("stage", target.String()),
		slog.String("error", err.Error()),
	)

	return &MoveError{Request: r.req, Stage: target, Err: err}
}

// Move relocates req.FileName from req.SourceFolder into req.DestFolder,
// renaming it to req.NewName when set, and returns the moved item.
//
// No remote mutation happens before the relocation call. If resolving the
// destination folder or the relocation itself fails, the buffered bytes are
// uploaded back to the source path; the returned *MoveError then has
// Restored set. If that upload fails too, the error is a *RecoveryError
// matching ErrRecoveryFailed. A relocation that got no HTTP answer is read
// back first; when the read-back fails as well, nothing is uploaded and the
// error is a *RecoveryError.
func (m *Mover) Move(ctx context.Context, req Request) (*graph.Item, error) {
	r := &run{
		m:   m,
		req: req,
		logger: m.logger.With(
			slog.String("source", req.SourcePath()),
			slog.String("dest", req.DestPath()),
		),
	}

	r.enter(Start)

	if err := req.Validate(); err != nil {
		return nil, r.fail(MetadataFetched, err)
	}

	// 1. Source metadata. Nothing to undo yet.
	item, err := m.gw.GetItem(ctx, req.SourceFolder, req.FileName)
	if err != nil {
		return nil, r.fail(MetadataFetched, err)
	}

	if item.IsFolder {
		return nil, r.fail(MetadataFetched, fmt.Errorf("%w: %q is a folder", ErrInvalidRequest, req.SourcePath()))
	}

	r.enter(MetadataFetched)

	limit, err := m.ceiling()
	if err != nil {
		return nil, r.fail(SizeChecked, err)
	}

	// The reported size lets an oversized file be refused before download.
	if item.Size > limit {
		return nil, r.fail(SizeChecked, &TooLargeError{Size: item.Size, Limit: limit})
	}

	// 2. Backup. A failure here leaves no backup to restore from.
	backup, err := m.gw.FetchContent(ctx, item)
	if err != nil {
		return nil, r.fail(ContentBuffered, err)
	}

	r.enter(ContentBuffered)

	// 3. Size gate on what was actually buffered.
	if size := int64(len(backup)); size > limit {
		return nil, r.fail(SizeChecked, &TooLargeError{Size: size, Limit: limit})
	}

	r.enter(SizeChecked)

	// 4. Destination probe. Any answer other than a clean 404 aborts.
	exists, err := m.gw.Exists(ctx, req.DestPath())
	if err != nil {
		return nil, r.fail(DestChecked, fmt.Errorf("probing destination: %w", err))
	}

	if exists {
		return nil, r.fail(DestChecked, fmt.Errorf("destination %q already exists: %w", req.DestPath(), graph.ErrConflict))
	}

	r.enter(DestChecked)

	// 5. Destination parent.
	parent, err := m.gw.GetItemByPath(ctx, req.DestFolder)
	if err == nil && !parent.IsFolder {
		err = fmt.Errorf("%w: %q", ErrNotFolder, req.DestFolder)
	}

	if err != nil {
		return nil, r.recover(ctx, DestParentResolved, backup, err)
	}

	r.enter(DestParentResolved)

	// 6. The single mutating call on the happy path.
	moved, err := m.gw.MoveItem(ctx, item.ID, parent.ID, req.DestName())
	if err != nil {
		var ge *graph.GraphError
		if errors.As(err, &ge) {
			return nil, r.recover(ctx, Relocated, backup, err)
		}

		// No HTTP answer: the server may or may not have committed the move.
		applied, readErr := r.relocationApplied(ctx, item.ID, err)
		if readErr != nil {
			return nil, r.escalate(Relocated, err, readErr)
		}

		if applied == nil {
			return nil, r.recover(ctx, Relocated, backup, err)
		}

		moved = applied
	}

	r.enter(Relocated)

	r.logger.Info("file moved",
		slog.String("item_id", moved.ID),
		slog.Int("bytes", len(backup)),
	)

	return moved, nil
}

// ceiling is the buffer limit for this attempt: the size guard's share of
// available memory, capped by the configured maximum.
func (m *Mover) ceiling() (int64, error) {
	limit, err := m.limiter.MaxSafeBytes(m.fraction)
	if err != nil {
		return 0, fmt.Errorf("computing buffer ceiling: %w", err)
	}

	if m.maxBuffer > 0 && m.maxBuffer < limit {
		limit = m.maxBuffer
	}

	return limit, nil
}

// relocationApplied reads the destination back after a relocation that got
// no HTTP answer (transport failure or cancellation). It returns the moved
// item when the destination holds the same item ID, nil when the destination
// is absent or holds another item, and an error when the read-back itself
// fails and the outcome stays unknown.
func (r *run) relocationApplied(ctx context.Context, itemID string, cause error) (*graph.Item, error) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.m.recoveryTimeout)
	defer cancel()

	at, err := r.m.gw.GetItemByPath(rctx, r.req.DestPath())
	if errors.Is(err, graph.ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading back destination %q: %w", r.req.DestPath(), err)
	}

	if at.ID != itemID {
		return nil, nil
	}

	r.logger.Warn("relocation response lost but move took effect",
		slog.String("item_id", itemID),
		slog.String("error", cause.Error()),
	)

	return at, nil
}

// escalate reports a relocation whose outcome could not be determined. The
// backup is not uploaded: the file may already sit at the destination.
func (r *run) escalate(target State, cause, readErr error) error {
	r.enter(RecoveryFailed)

	r.logger.Error("relocation outcome unknown, manual intervention required",
		slog.String("stage", target.String()),
		slog.String("original_error", cause.Error()),
		slog.String("recovery_error", readErr.Error()),
	)

	return &RecoveryError{Request: r.req, Stage: target, Original: cause, Recovery: readErr}
}

// recover uploads the backup to the source path. The original error is
// always returned; a failed restore is layered on top of it.
func (r *run) recover(ctx context.Context, target State, backup []byte, cause error) error {
	r.logger.Warn("move failed, restoring source from backup",
		slog.String("stage", target.String()),
		slog.String("error", cause.Error()),
	)

	r.enter(Recovering)

	// Recovery must run even if the caller gave up on the move.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.m.recoveryTimeout)
	defer cancel()

	if r.m.creds != nil {
		r.m.creds.Invalidate()
	}

	restored, err := r.m.gw.PutContent(rctx, r.req.SourceFolder, r.req.FileName, backup,
		graph.ContentTypeBinary, graph.ConflictReplace)
	if err == nil {
		err = r.m.checkRestored(restored, backup)
	}

	if err != nil {
		r.enter(RecoveryFailed)

		r.logger.Error("restoring source failed, manual intervention required",
			slog.String("stage", target.String()),
			slog.String("original_error", cause.Error()),
			slog.String("recovery_error", err.Error()),
			slog.Int("backup_bytes", len(backup)),
		)

		return &RecoveryError{Request: r.req, Stage: target, Original: cause, Recovery: err}
	}

	r.enter(Recovered)

	r.logger.Info("source restored after failed move",
		slog.String("item_id", restored.ID),
	)

	return &MoveError{Request: r.req, Stage: target, Err: cause, Restored: true}
}

func (m *Mover) checkRestored(item *graph.Item, backup []byte) error {
	if !m.verifyRestore || item == nil {
		return nil
	}

	if item.Size != int64(len(backup)) {
		return fmt.Errorf("%w: size %d, backup %d bytes", ErrRestoreMismatch, item.Size, len(backup))
	}

	if item.QuickXorHash == "" {
		return nil
	}

	if want := quickxorhash.Base64(backup); item.QuickXorHash != want {
		return fmt.Errorf("%w: quickXorHash %s, backup %s", ErrRestoreMismatch, item.QuickXorHash, want)
	}

	return nil
}
