package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alimgiray/devpulse/internal/handlers"
	"github.com/alimgiray/devpulse/internal/models"
	"github.com/alimgiray/devpulse/internal/repositories"
	"github.com/alimgiray/devpulse/internal/services"
	"github.com/alimgiray/devpulse/internal/workers"
	"github.com/alimgiray/devpulse/pkg/config"
	"github.com/alimgiray/devpulse/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// setupLogger applies the configured level, which may come from .env
func setupLogger(cfg *config.Config) {
	logger.InitWithLevel(cfg.Log.Level)
}

// newRootCmd builds the CLI. Flags default to the loaded configuration and
// override it when set. Running without a subcommand performs a refresh.
func newRootCmd(cfg *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "devpulse",
		Short:         "Score developer activity from GitHub and rank developers into tiers",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(cmd.Context(), cfg)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.Storage.DataPath, "data", cfg.Storage.DataPath, "Developer table (.csv, .xlsx or .db)")
	flags.StringVar(&cfg.Storage.SortColumn, "sort", cfg.Storage.SortColumn, "Column the table is sorted by on save")
	flags.StringVar(&cfg.Storage.ScoreSettingsPath, "score-settings", cfg.Storage.ScoreSettingsPath, "YAML file with score weights and caps")
	flags.IntVar(&cfg.Refresh.DaysBack, "days-back", cfg.Refresh.DaysBack, "Size of the contribution window in days")
	flags.BoolVar(&cfg.Refresh.ExcludePrivate, "exclude-private", cfg.Refresh.ExcludePrivate, "Count only public repositories")
	flags.BoolVar(&cfg.Refresh.OnlyOrganizations, "only-orgs", cfg.Refresh.OnlyOrganizations, "Count only repositories owned by the developer's organizations")

	rootCmd.AddCommand(
		newRefreshCmd(cfg),
		newReportCmd(cfg),
		newExportCmd(cfg),
		newServeCmd(cfg),
	)
	return rootCmd
}

func newRefreshCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch metrics for developers not refreshed today and update the table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(cmd.Context(), cfg)
		},
	}
}

func newReportCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print developer scores and tiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			logger.SetOutput(cmd.ErrOrStderr())
			return runReport(cmd.OutOrStdout(), services.NewReportService(store))
		},
	}
}

func newExportCmd(cfg *config.Config) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the tier report to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			if err := services.NewReportService(store).ExportTiers(output); err != nil {
				return err
			}
			logger.WithField("path", output).Info("Exported tier report")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "out", "o", "tiers.xlsx", "Output workbook")
	return cmd
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	var noRefresh bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reporting API and refresh in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg, !noRefresh)
		},
	}
	cmd.Flags().StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "HTTP port")
	cmd.Flags().DurationVar(&cfg.Refresh.Interval, "interval", cfg.Refresh.Interval, "Refresh interval")
	cmd.Flags().BoolVar(&noRefresh, "no-refresh", false, "Serve without the background refresh worker")
	return cmd
}

func openStore(cfg *config.Config) (repositories.DeveloperStore, error) {
	return repositories.NewDeveloperStore(cfg.Storage.DataPath, cfg.Storage.SortColumn)
}

func fetchOptions(cfg *config.Config) models.FetchOptions {
	return models.FetchOptions{
		DaysBack:          cfg.Refresh.DaysBack,
		ExcludePrivate:    cfg.Refresh.ExcludePrivate,
		OnlyOrganizations: cfg.Refresh.OnlyOrganizations,
	}
}

func newRefreshService(cfg *config.Config, store repositories.DeveloperStore) (*services.RefreshService, *services.ScoreSettingsService, error) {
	scoreSettings, err := services.NewScoreSettingsService(cfg.Storage.ScoreSettingsPath)
	if err != nil {
		return nil, nil, err
	}

	source, err := services.NewGitHubMetricsService(cfg.GitHub)
	if err != nil {
		return nil, nil, err
	}

	return services.NewRefreshService(store, source, scoreSettings), scoreSettings, nil
}

func runRefresh(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	refreshService, _, err := newRefreshService(cfg, store)
	if err != nil {
		return err
	}

	_, err = refreshService.Refresh(ctx, time.Now(), fetchOptions(cfg))
	return err
}

func runReport(w io.Writer, reportService *services.ReportService) error {
	developers, err := reportService.GetDevelopersWithScores()
	if err != nil {
		return err
	}
	tiers, err := reportService.GetTiers()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Developer scores:")
	for _, developer := range developers {
		fmt.Fprintf(w, "  %-40s %3d\n", developer.Fullname, developer.Score)
	}

	fmt.Fprintln(w, "\nTiers:")
	for _, name := range models.TierNames {
		fmt.Fprintf(w, "  %s: %s\n", name, strings.Join(tiers.Get(name), ", "))
	}
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, refresh bool) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	gin.SetMode(cfg.Server.Mode)

	var status handlers.RefreshStatus
	workerManager := workers.NewWorkerManager(ctx)
	defer workerManager.StopAll()

	if refresh {
		refreshService, scoreSettings, err := newRefreshService(cfg, store)
		if err != nil {
			return err
		}

		go func() {
			if err := scoreSettings.Watch(ctx); err != nil {
				logger.WithError(err).Warn("Score settings watcher stopped")
			}
		}()

		refreshWorker := workers.NewRefreshWorker("refresh-1", refreshService, cfg.Refresh.Interval, fetchOptions(cfg))
		workerManager.Add(refreshWorker)
		status = refreshWorker
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handlers.NewRouter(services.NewReportService(store), status),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
