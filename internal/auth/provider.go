// Package auth supplies app-only bearer credentials for the Graph API using
// the OAuth2 client-credentials grant. A Provider is shared by every client
// in the process: readers of a still-valid token never block each other, and
// concurrent refreshes collapse into one network call.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"github.com/wnmlab/sharepoint-go/internal/tokenfile"
)

const (
	// DefaultAuthority is the Microsoft identity platform host.
	DefaultAuthority = "https://login.microsoftonline.com"

	// DefaultScope requests every application permission granted to the app.
	DefaultScope = "https://graph.microsoft.com/.default"

	// expiryMargin refreshes tokens this long before they actually expire.
	expiryMargin = 60 * time.Second

	// refreshTimeout bounds one token request, whoever started it.
	refreshTimeout = 30 * time.Second

	refreshKey = "token"
)

// ErrMissingCredentials is returned by New when a required field is empty.
var ErrMissingCredentials = errors.New("auth: tenant_id, client_id and client_secret are required")

// Config identifies the app registration.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Scope        string // DefaultScope when empty
	Authority    string // DefaultAuthority when empty
}

// TokenURL is the v2 token endpoint for the tenant.
func (c Config) TokenURL() string {
	authority := c.Authority
	if authority == "" {
		authority = DefaultAuthority
	}

	return strings.TrimRight(authority, "/") + "/" + c.TenantID + "/oauth2/v2.0/token"
}

func (c Config) scope() string {
	if c.Scope == "" {
		return DefaultScope
	}

	return c.Scope
}

// FetchFunc obtains a new token from the identity platform.
type FetchFunc func(ctx context.Context) (*oauth2.Token, error)

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient sets the client used to reach the token endpoint.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// WithLogger sets the provider's logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithFetcher replaces the client-credentials exchange.
func WithFetcher(f FetchFunc) Option {
	return func(p *Provider) { p.fetch = f }
}

// WithCache persists tokens to path between runs.
func WithCache(path string) Option {
	return func(p *Provider) { p.cachePath = path }
}

// Provider hands out bearer headers, refreshing the cached token when it is
// absent or within a minute of expiry. Safe for concurrent use.
type Provider struct {
	fetch      FetchFunc
	httpClient *http.Client
	logger     *slog.Logger
	cachePath  string
	identity   tokenfile.Identity
	now        func() time.Time

	mu        sync.RWMutex
	token     string
	expiry    time.Time // zero means the issuer gave no expiry
	skipCache bool      // set once a token was rejected; the file may hold it

	group singleflight.Group
}

// New creates a Provider for cfg.
func New(cfg Config, opts ...Option) (*Provider, error) {
	if cfg.TenantID == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}

	p := &Provider{
		logger: slog.Default(),
		now:    time.Now,
		identity: tokenfile.Identity{
			TenantID: cfg.TenantID,
			ClientID: cfg.ClientID,
			Scope:    cfg.scope(),
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.fetch == nil {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL(),
			Scopes:       []string{cfg.scope()},
			AuthStyle:    oauth2.AuthStyleInParams,
		}

		p.fetch = func(ctx context.Context) (*oauth2.Token, error) {
			if p.httpClient != nil {
				ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
			}

			return cc.Token(ctx)
		}
	}

	return p, nil
}

// Token returns a valid access token, refreshing it if needed.
func (p *Provider) Token(ctx context.Context) (string, error) {
	if tok, ok := p.cached(); ok {
		return tok, nil
	}

	// Concurrent callers share one refresh. It runs detached from any one
	// caller so a canceled caller cannot fail the others.
	ch := p.group.DoChan(refreshKey, func() (any, error) {
		if tok, ok := p.cached(); ok {
			return tok, nil
		}

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		return p.refresh(rctx)
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("auth: waiting for token: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}

		if res.Shared {
			p.logger.Debug("joined in-flight token refresh")
		}

		return res.Val.(string), nil //nolint:forcetypeassert // refresh only returns strings
	}
}

// Headers returns the headers every authenticated Graph call carries.
func (p *Provider) Headers(ctx context.Context) (map[string]string, error) {
	tok, err := p.Token(ctx)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"Authorization": "Bearer " + tok,
		"Content-Type":  "application/json",
	}, nil
}

// Invalidate drops the cached token so the next call fetches a new one.
// The on-disk cache is bypassed from then on because it may hold the token
// the server just rejected.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.token = ""
	p.expiry = time.Time{}
	p.skipCache = true

	p.logger.Debug("cached token invalidated")
}

// Expiry reports when the cached token expires. It is zero when no token is
// cached or the issuer gave no expiry.
func (p *Provider) Expiry() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.expiry
}

// cached returns the in-memory token when it is still usable. token and
// expiry are read together under the read lock.
func (p *Provider) cached() (string, bool) {
	p.mu.RLock()
	tok, expiry := p.token, p.expiry
	p.mu.RUnlock()

	if tok == "" || !p.fresh(expiry) {
		return "", false
	}

	return tok, true
}

func (p *Provider) fresh(expiry time.Time) bool {
	return expiry.IsZero() || p.now().Add(expiryMargin).Before(expiry)
}

func (p *Provider) refresh(ctx context.Context) (string, error) {
	if tok := p.loadCache(); tok != nil {
		p.store(tok)

		return tok.AccessToken, nil
	}

	p.logger.Debug("requesting access token",
		slog.String("tenant_id", p.identity.TenantID),
		slog.String("client_id", p.identity.ClientID),
	)

	tok, err := p.fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("auth: fetching token: %w", err)
	}

	if tok == nil || tok.AccessToken == "" {
		return "", errors.New("auth: token endpoint returned no access token")
	}

	p.store(tok)
	p.saveCache(tok)

	p.logger.Info("access token refreshed",
		slog.Time("expires_at", tok.Expiry),
	)

	return tok.AccessToken, nil
}

func (p *Provider) store(tok *oauth2.Token) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.token = tok.AccessToken
	p.expiry = tok.Expiry
}

func (p *Provider) loadCache() *oauth2.Token {
	p.mu.RLock()
	skip := p.skipCache
	p.mu.RUnlock()

	if p.cachePath == "" || skip {
		return nil
	}

	tok, err := tokenfile.Load(p.cachePath, p.identity)
	if err != nil {
		p.logger.Warn("ignoring unreadable token cache",
			slog.String("path", p.cachePath),
			slog.String("error", err.Error()),
		)

		return nil
	}

	if tok == nil || tok.AccessToken == "" || !p.fresh(tok.Expiry) {
		return nil
	}

	p.logger.Debug("using cached access token", slog.String("path", p.cachePath))

	return tok
}

func (p *Provider) saveCache(tok *oauth2.Token) {
	if p.cachePath == "" {
		return
	}

	if err := tokenfile.Save(p.cachePath, p.identity, tok); err != nil {
		p.logger.Warn("failed to persist token cache",
			slog.String("path", p.cachePath),
			slog.String("error", err.Error()),
		)
	}
}
