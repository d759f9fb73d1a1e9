package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/bcnelson/servicetag-watcher/internal/config"
	"github.com/bcnelson/servicetag-watcher/internal/dashboard"
	"github.com/bcnelson/servicetag-watcher/internal/logging"
	"github.com/bcnelson/servicetag-watcher/internal/service"
)

// app holds the state shared by every command after configuration is loaded.
type app struct {
	cfg    *config.Config
	logger log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		logLevel  string
		logFormat string
		baseline  bool
	)

	rootCmd := &cobra.Command{
		Use:   "servicetag-watcher",
		Short: "Track weekly changes to the Azure Service Tags dataset",
		Long: `servicetag-watcher downloads the Azure Service Tags dataset, compares it with
the previous snapshot, and writes the change logs and summary read by the
dashboard. Old history is swept after every run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Log.Format = logFormat
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logger, err := logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runUpdate(cmd, baseline)
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "logfmt", "log format: logfmt or json")
	rootCmd.Flags().BoolVar(&baseline, "baseline", false, "record a baseline snapshot without detecting changes")

	rootCmd.AddCommand(
		a.newSweepCmd(),
		a.newManifestCmd(),
		a.newServeCmd(),
		a.newPublishCmd(),
	)
	return rootCmd
}

// fail logs err and returns it so cobra exits non-zero.
func (a *app) fail(err error) error {
	if a.logger != nil {
		level.Error(a.logger).Log("msg", "command failed", "err", err)
	} else {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func (a *app) runUpdate(cmd *cobra.Command, baseline bool) error {
	ctx := cmd.Context()

	store, err := openStore(ctx, a.cfg, a.logger)
	if err != nil {
		return a.fail(err)
	}
	defer store.Close()

	recorder, closeRecorder := newRecorder(a.cfg)
	defer closeRecorder()

	publisher, closePublisher, err := newPublisher(ctx, a.cfg, a.logger)
	if err != nil {
		level.Warn(a.logger).Log("msg", "publishing disabled", "err", err)
	}
	defer closePublisher()

	svc := service.NewUpdateService(service.Dependencies{
		Source:    newSource(a.cfg, a.logger),
		Store:     store,
		Writer:    dashboard.NewWriter(a.cfg.Store.DataDir, logging.Component(a.logger, "dashboard")),
		Sweeper:   newSweeper(store, a.cfg, a.logger),
		Recorder:  recorder,
		Publisher: publisher,
		Logger:    a.logger,
	})

	res, err := svc.Run(ctx, service.RunOptions{Baseline: baseline})
	if err != nil {
		return a.fail(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Updated Azure Service Tags data (%s)\n", res.Date)
	fmt.Fprintf(cmd.OutOrStdout(), "Total services: %d\n", res.Summary.TotalServices)
	fmt.Fprintf(cmd.OutOrStdout(), "Total IP ranges: %d\n", res.Summary.TotalIPRanges)
	fmt.Fprintf(cmd.OutOrStdout(), "Changes detected: %d\n", res.Summary.ChangesThisWeek)
	if res.Summary.ChangesThisWeek > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "IP changes: %d\n", res.Summary.IPChanges)
		fmt.Fprintf(cmd.OutOrStdout(), "New services: %d\n", res.Summary.ServiceAdditions)
		fmt.Fprintf(cmd.OutOrStdout(), "Removed services: %d\n", res.Summary.ServiceRemovals)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "No changes detected this week")
	}
	return nil
}

func (a *app) newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete snapshots and change logs older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, a.cfg, a.logger)
			if err != nil {
				return a.fail(err)
			}
			defer store.Close()

			res := newSweeper(store, a.cfg, a.logger).Sweep(ctx, time.Now())
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d snapshots and %d files older than %s\n",
				len(res.DeletedSnapshots), len(res.DeletedFiles), res.Cutoff.Format("2006-01-02"))
			if res.Err != nil {
				return a.fail(res.Err)
			}
			return nil
		},
	}
}

func (a *app) newManifestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manifest",
		Short: "Rebuild changes/manifest.json from the change logs on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := dashboard.NewWriter(a.cfg.Store.DataDir, logging.Component(a.logger, "dashboard"))
			m, err := w.WriteManifest(time.Now())
			if err != nil {
				return a.fail(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Manifest lists %d change logs\n", m.TotalFiles)
			return nil
		},
	}
}

func (a *app) newPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Upload the data directory to the configured GCS bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.PublishEnabled() {
				return a.fail(fmt.Errorf("GCS_BUCKET is not set"))
			}
			ctx := cmd.Context()
			publisher, closePublisher, err := newPublisher(ctx, a.cfg, a.logger)
			if err != nil {
				return a.fail(err)
			}
			defer closePublisher()

			n, err := publisher.Publish(ctx, a.cfg.Store.DataDir)
			if err != nil {
				return a.fail(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d files to gs://%s/%s\n", n, a.cfg.Publish.Bucket, a.cfg.Publish.Prefix)
			return nil
		},
	}
}
