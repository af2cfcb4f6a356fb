package commands

import (
	"context"
	"fmt"
	"log/slog"

	"feedwarden/internal/components/telemetry"
	"feedwarden/internal/config"
	"feedwarden/internal/counter"
	"feedwarden/internal/kv"
	"feedwarden/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

// state shared by every command, set up in the persistent pre-run.
var (
	cfg     config.Config
	tel     telemetry.API
	storage kv.Store
	closers []func() error
)

var rootCmd = &cobra.Command{
	Use:   "feedwarden",
	Short: "feedwarden hides feed items you have already seen too many times.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		var err error
		cfg, err = config.Read(configPath)
		if err != nil {
			return err
		}
		tel = telemetry.NewSlogAPI(nil)

		if textfile := cfg.Telemetry.Prometheus.Textfile; textfile != "" {
			prom := telemetry.NewPromAPI(tel)
			tel = prom
			closers = append(closers, func() error {
				return prom.WriteTextfile(textfile)
			})
		}

		if cfg.Telemetry.Enabled() {
			t, err := telemetry.Setup(cmd.Context(), "feedwarden", cfg.Telemetry)
			if err != nil {
				return fmt.Errorf("setup telemetry: %w", err)
			}
			telemetry.InstrumentPerfStats(cmd.Context())
			closers = append(closers, func() error {
				return t.Shutdown(context.Background())
			})
		}

		store, closeStore, err := cfg.Storage.Open(cmd.Context())
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		storage = store
		closers = append(closers, closeStore)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				slog.Warn("failed to release resource", "err", err)
			}
		}
		closers = nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultFile, "The configuration file to read (json5 or yaml).")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
}

// openCounters returns the counter store backed by the configured storage.
func openCounters() (*counter.Store, error) {
	opts, err := cfg.Counter(tel)
	if err != nil {
		return nil, err
	}
	return counter.NewStore(storage, opts), nil
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		serviceutil.Fatal("feedwarden failed", err)
	}
}
