package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ocf/boxbackup/internal/backup"
	"github.com/ocf/boxbackup/internal/box"
	"github.com/ocf/boxbackup/internal/config"
	"github.com/ocf/boxbackup/internal/kvstore"
	"github.com/ocf/boxbackup/internal/report"
	"github.com/ocf/boxbackup/internal/secrets"
	"github.com/ocf/boxbackup/internal/tokens"
	"github.com/ocf/boxbackup/internal/transfer"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute a backup run",
		Long: `Run the full backup pipeline: snapshot the archive directory, upload
every file to a date-named Box folder over FTPS, rotate the OAuth refresh
token, grant collaborators viewer access, and print the shared link with
run statistics.`,
		Args: cobra.NoArgs,
		RunE: runBackup,
	}
}

func runBackup(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	logger := buildLogger(cfg)
	ctx := shutdownContext(cmd.Context(), logger)

	client := box.NewClient(cfg.Box.APIBaseURL, cfg.Box.TokenURL, defaultHTTPClient(), logger)

	engine := transfer.NewEngine(cfg.Remote.CurlPath, logger)
	engine.ShowProgress = showProgress()

	runner := backup.NewRunner(cfg, engine, &storeBackedRefresher{
		cfg:       cfg,
		exchanger: client,
		logger:    logger,
	}, client, logger)

	statusf("Backing up %s to %s...\n", cfg.ArchiveDir, cfg.Remote.Host)

	sum, link, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Print(report.Render(sum, link))

	return nil
}

// storeBackedRefresher opens the durable token store only when the
// pipeline actually reaches the refresh step, scoped to that one
// exchange. The store DSN may embed the store password from the secrets
// file, which is not available until the runner has loaded credentials.
type storeBackedRefresher struct {
	cfg       *config.Config
	exchanger tokens.Exchanger
	logger    *slog.Logger
}

func (s *storeBackedRefresher) Refresh(ctx context.Context, creds *secrets.Credentials) (string, error) {
	dsn := kvstore.ExpandDSN(s.cfg.Store.Path, creds.StorePassword)

	store, err := kvstore.Open(ctx, dsn, s.logger)
	if err != nil {
		return "", err
	}
	defer store.Close()

	return tokens.NewManager(store, s.exchanger, s.logger).Refresh(ctx, creds)
}
