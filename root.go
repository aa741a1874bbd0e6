package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/wnmlab/sharepoint-go/internal/auth"
	"github.com/wnmlab/sharepoint-go/internal/config"
	"github.com/wnmlab/sharepoint-go/internal/driveops"
	"github.com/wnmlab/sharepoint-go/internal/journal"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagSite       string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// httpClientTimeout bounds metadata calls. Content transfers share the
// client, so it is generous.
const httpClientTimeout = 10 * time.Minute

// skipConfigCommands lists commands that work without a resolved config.
var skipConfigCommands = map[string]bool{
	"sharepoint-go":         true,
	"sharepoint-go help":    true,
	"sharepoint-go version": true,
}

// CLIContext carries what PersistentPreRunE resolved to the subcommands.
type CLIContext struct {
	Cfg    *config.Resolved
	Logger *slog.Logger
	Out    io.Writer
	Err    io.Writer
	JSON   bool
	Quiet  bool
}

type cliContextKey struct{}

// cliContextFrom returns the CLIContext installed by the root pre-run.
func cliContextFrom(ctx context.Context) *CLIContext {
	cc, _ := ctx.Value(cliContextKey{}).(*CLIContext)

	return cc
}

// newRootCmd builds the fully assembled root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sharepoint-go",
		Short: "SharePoint document library client",
		Long: "Read, write, transfer and safely move files in SharePoint document libraries\n" +
			"through the Microsoft Graph API.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path := cmd.CommandPath()
			if skipConfigCommands[path] || strings.HasPrefix(path, "sharepoint-go completion") {
				return nil
			}

			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVarP(&flagSite, "site", "s", "", "site name from the [sites] table")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newTreeCmd())
	cmd.AddCommand(newCatCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newMkdirCmd())
	cmd.AddCommand(newMvCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newDrivesCmd())
	cmd.AddCommand(newSitesCmd())
	cmd.AddCommand(newJournalCmd())
	cmd.AddCommand(newAuthCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration and installs the
// CLIContext on the command's context.
func loadConfig(cmd *cobra.Command) error {
	env, err := config.ReadEnvOverrides()
	if err != nil {
		return fmt.Errorf("loading environment: %w", err)
	}

	resolved, err := config.Resolve(env, config.CLIOverrides{
		ConfigPath: flagConfigPath,
		Site:       flagSite,
	})
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cc := &CLIContext{
		Cfg:   resolved,
		Out:   cmd.OutOrStdout(),
		Err:   cmd.ErrOrStderr(),
		JSON:  flagJSON,
		Quiet: flagQuiet,
	}
	cc.Logger = buildLogger(cc.Err, resolved.LogLevel)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// logLevel maps the config level and CLI flags to an slog level. Flags win.
func logLevel(configured string) slog.Level {
	level := slog.LevelWarn

	switch configured {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return level
}

// buildLogger writes colored output through tint when w is a terminal and
// plain logfmt otherwise.
func buildLogger(w io.Writer, configured string) *slog.Logger {
	level := logLevel(configured)

	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return slog.New(tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.Kitchen}))
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// siteName picks the site: --site / SHAREPOINT_GO_SITE, or the only
// configured one.
func (cc *CLIContext) siteName() (string, error) {
	if cc.Cfg.Site != "" {
		return cc.Cfg.Site, nil
	}

	names := cc.Cfg.SiteNames()

	switch len(names) {
	case 0:
		return "", errors.New("no sites configured: add a [sites.NAME] table to the config file")
	case 1:
		return names[0], nil
	default:
		return "", fmt.Errorf("several sites configured, choose one with --site (%v)", names)
	}
}

// credentials builds the client-credentials provider with the on-disk
// token cache.
func (cc *CLIContext) credentials() (*auth.Provider, error) {
	a := cc.Cfg.Auth
	if err := config.ValidateCredentials(&a); err != nil {
		return nil, err
	}

	return auth.New(auth.Config{
		TenantID:     a.TenantID,
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		Scope:        a.Scope,
		Authority:    a.Authority,
	},
		auth.WithHTTPClient(newHTTPClient()),
		auth.WithLogger(cc.Logger),
		auth.WithCache(cc.Cfg.TokenCachePath()),
	)
}

// session opens the selected site. withJournal attaches the move journal;
// the returned closer releases it.
func (cc *CLIContext) session(ctx context.Context, withJournal bool) (*driveops.Session, func(), error) {
	name, err := cc.siteName()
	if err != nil {
		return nil, nil, err
	}

	creds, err := cc.credentials()
	if err != nil {
		return nil, nil, err
	}

	provider := driveops.NewSessionProvider(cc.Cfg.Config, creds, newHTTPClient(), cc.Logger)
	closer := func() {}

	if withJournal && !cc.Cfg.Journal.Disabled {
		store, err := journal.Open(ctx, cc.Cfg.JournalPath(), cc.Logger)
		if err != nil {
			return nil, nil, err
		}

		provider.Journal = store
		closer = func() { store.Close() }
	}

	s, err := provider.Session(name)
	if err != nil {
		closer()
		return nil, nil, err
	}

	return s, closer, nil
}

// exitCodeFor maps an error to the process exit status. An indeterminate
// move gets its own code so scripts can stop and alert.
func exitCodeFor(err error) int {
	if errors.Is(err, errRecoveryFailed) {
		return exitRecoveryFailed
	}

	return 1
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitCodeFor(err))
}
