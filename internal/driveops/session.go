package driveops

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	gosync "sync"

	"github.com/wnmlab/sharepoint-go/internal/config"
	"github.com/wnmlab/sharepoint-go/internal/graph"
	"github.com/wnmlab/sharepoint-go/internal/journal"
	"github.com/wnmlab/sharepoint-go/internal/mover"
	"github.com/wnmlab/sharepoint-go/internal/sizeguard"
)

// Journal records move outcomes. *journal.Store satisfies it.
type Journal interface {
	Record(ctx context.Context, e journal.Entry) (journal.Entry, error)
}

// Session is the typed API over one named site's document library.
type Session struct {
	Name    string
	Site    config.SiteConfig
	Client  *graph.Client
	Mover   *mover.Mover
	journal Journal
	logger  *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithJournal records every MoveFile outcome in j.
func WithJournal(j Journal) SessionOption {
	return func(s *Session) {
		s.journal = j
	}
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession assembles a Session from an already-built client and mover.
func NewSession(name string, client *graph.Client, mv *mover.Mover, opts ...SessionOption) *Session {
	s := &Session{
		Name:   name,
		Client: client,
		Mover:  mv,
		logger: slog.Default(),
	}

	site := client.Site()
	s.Site = config.SiteConfig{SiteID: site.SiteID, DriveID: site.DriveID}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SessionProvider creates Sessions by site name from configuration. All
// sessions share one credential provider so a single token serves every
// site, and sessions are cached per canonical site name.
type SessionProvider struct {
	cfg        *config.Config
	creds      graph.Credentials
	httpClient *http.Client
	logger     *slog.Logger

	// Memory is the available-memory source for move size ceilings.
	// Defaults to sizeguard.SystemMemory(); tests inject a static value.
	Memory sizeguard.MemoryReader

	// Journal, when set, is attached to every session.
	Journal Journal

	mu       gosync.Mutex
	sessions map[string]*Session
}

// NewSessionProvider creates a SessionProvider over cfg.
func NewSessionProvider(
	cfg *config.Config, creds graph.Credentials, httpClient *http.Client, logger *slog.Logger,
) *SessionProvider {
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionProvider{
		cfg:        cfg,
		creds:      creds,
		httpClient: httpClient,
		logger:     logger,
		Memory:     sizeguard.SystemMemory(),
		sessions:   make(map[string]*Session),
	}
}

// Session returns the Session for the named site. Unknown names fail with
// an error matching config.ErrUnknownSite that lists the configured sites.
func (p *SessionProvider) Session(name string) (*Session, error) {
	site, err := p.cfg.Site(name)
	if err != nil {
		return nil, err
	}

	key := strings.ToLower(name)

	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.sessions[key]; ok {
		return s, nil
	}

	s, err := p.build(name, site)
	if err != nil {
		return nil, err
	}

	p.sessions[key] = s

	return s, nil
}

func (p *SessionProvider) build(name string, site config.SiteConfig) (*Session, error) {
	maxBuffer, err := p.cfg.MaxBufferBytes()
	if err != nil {
		return nil, fmt.Errorf("move.max_buffer: %w", err)
	}

	logger := p.logger.With(slog.String("site", name))

	client := graph.NewClient(
		p.cfg.Auth.APIBaseURL,
		graph.Site{SiteID: site.SiteID, DriveID: site.DriveID},
		p.httpClient,
		p.creds,
		logger,
		graph.WithPageSize(p.cfg.Auth.PageSize),
	)

	moverOpts := []mover.Option{
		mover.WithFraction(p.cfg.Move.BufferFraction),
		mover.WithMaxBuffer(maxBuffer),
		mover.WithCredentials(p.creds),
		mover.WithLogger(logger),
	}

	if d := p.cfg.Move.RecoveryTimeoutDuration(); d > 0 {
		moverOpts = append(moverOpts, mover.WithRecoveryTimeout(d))
	}

	if !p.cfg.Move.VerifyRestore {
		moverOpts = append(moverOpts, mover.WithoutRestoreVerification())
	}

	mv := mover.New(client, sizeguard.New(p.Memory, logger), moverOpts...)

	opts := []SessionOption{WithSessionLogger(logger)}
	if p.Journal != nil {
		opts = append(opts, WithJournal(p.Journal))
	}

	s := NewSession(name, client, mv, opts...)
	s.Site = site

	logger.Debug("session created",
		slog.String("site_id", site.SiteID),
		slog.String("drive_id", site.DriveID),
	)

	return s, nil
}
