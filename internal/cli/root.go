// Package cli wires configuration, transports, sinks and the status server
// into the datadesk commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/user/datadesk/internal/config"
	"github.com/user/datadesk/internal/fetcher"
	"github.com/user/datadesk/internal/proxy"
)

// BrowserFactory starts the browser transport for a run.
type BrowserFactory func(ctx context.Context, opts fetcher.BrowserOptions, rt *Runtime) (BrowserTransport, error)

type BrowserTransport interface {
	fetcher.Transport
	Close() error
}

// App carries what the commands share. Tests substitute the file system,
// output and browser.
type App struct {
	Fs         afero.Fs
	Out        io.Writer
	Viper      *viper.Viper
	EnvFile    string
	NewBrowser BrowserFactory
}

func NewApp() *App {
	return &App{
		Fs:         afero.NewOsFs(),
		Out:        os.Stdout,
		Viper:      config.New(),
		EnvFile:    ".env",
		NewBrowser: chromeBrowser,
	}
}

func chromeBrowser(ctx context.Context, opts fetcher.BrowserOptions, rt *Runtime) (BrowserTransport, error) {
	session, err := fetcher.NewBrowserSession(ctx, opts, rt.Logger)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "datadesk",
		Short:         "datadesk collects and tidies datasets for data-journalism pieces.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "json", "log format (json, console)")
	flags.Int("max-attempts", fetcher.DefaultMaxAttempts, "fetch attempts per URL")
	flags.Duration("backoff-unit", fetcher.DefaultBackoffUnit, "base delay between fetch attempts, doubled each time")
	flags.String("status-addr", "", "serve /metrics and /api/status on this address while running")
	bind(app.Viper, flags, map[string]string{
		"LOG_LEVEL":    "log-level",
		"LOG_FORMAT":   "log-format",
		"MAX_ATTEMPTS": "max-attempts",
		"BACKOFF_UNIT": "backoff-unit",
		"STATUS_ADDR":  "status-addr",
	})

	root.AddCommand(newIMDbCommand(app), newPayrollCommand(app), newMergeCommand(app))
	return root
}

// bind maps viper keys to flags. Only flags set on the command line override
// the environment.
func bind(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

// Execute runs the CLI until it finishes or the process is signalled.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand(NewApp()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newProxyManager(cfg *config.Config) *proxy.Manager {
	return proxy.NewManager(cfg.Proxies, cfg.UserAgents)
}
