// Package backup sequences a complete run: snapshot the archive set, load
// credentials, push the batch over FTPS, rotate the refresh token, publish
// the remote folder, and summarize. Execution is strictly sequential —
// every external call blocks until it completes — and any failure aborts
// the rest of the run with no rollback.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ocf/boxbackup/internal/config"
	"github.com/ocf/boxbackup/internal/report"
	"github.com/ocf/boxbackup/internal/secrets"
	"github.com/ocf/boxbackup/internal/transfer"
)

// ErrNoArchives is returned when the archive directory snapshot is empty.
// An empty backup is a precondition failure, not a trivially-successful run.
var ErrNoArchives = errors.New("backup: no archive files to back up")

// Uploader pushes the archive snapshot to the remote folder.
// *transfer.Engine is the real implementation.
type Uploader interface {
	UploadAll(ctx context.Context, creds *secrets.Credentials, host, folder string, archives []transfer.Archive) error
}

// TokenRefresher trades the durable refresh token for a run-scoped access
// token. *tokens.Manager is the real implementation.
type TokenRefresher interface {
	Refresh(ctx context.Context, creds *secrets.Credentials) (string, error)
}

// Publisher covers the three folder-publication calls.
// *box.Client is the real implementation.
type Publisher interface {
	FindFolder(ctx context.Context, accessToken, name string, pageSize int) (string, error)
	AddCollaboration(ctx context.Context, accessToken, folderID, email string) error
	SetSharedLink(ctx context.Context, accessToken, folderID string) (string, error)
}

// Runner wires the pipeline together. All function fields default to the
// real implementations; tests substitute them.
type Runner struct {
	Config    *config.Config
	Uploader  Uploader
	Refresher TokenRefresher
	Publisher Publisher
	Logger    *slog.Logger

	// listArchives snapshots the archive directory.
	listArchives func(dir string) ([]transfer.Archive, error)
	// loadSecrets reads the static credential file.
	loadSecrets func(path string) (*secrets.Credentials, error)
	// now provides the clock for folder naming and timing.
	now func() time.Time
	// sleep paces consecutive collaboration grants.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a Runner with real filesystem, clock, and sleep wiring.
func NewRunner(cfg *config.Config, up Uploader, ref TokenRefresher, pub Publisher, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		Config:       cfg,
		Uploader:     up,
		Refresher:    ref,
		Publisher:    pub,
		Logger:       logger,
		listArchives: transfer.ListArchives,
		loadSecrets:  secrets.Load,
		now:          time.Now,
		sleep:        sleepCtx,
	}
}

// FolderName derives the remote folder name from the run's calendar date,
// e.g. "ocf-backup-2026-08-30".
func FolderName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s-%s", prefix, t.Format("2006-01-02"))
}

// Run executes the full pipeline and returns the run summary and shared
// link. The archive snapshot and credential load happen before any network
// traffic, so permission and precondition failures never touch the wire.
func (r *Runner) Run(ctx context.Context) (*report.Summary, string, error) {
	runID := uuid.NewString()
	logger := r.Logger.With(slog.String("run_id", runID))

	logger.Info("backup run starting", slog.String("archive_dir", r.Config.ArchiveDir))

	archives, err := r.listArchives(r.Config.ArchiveDir)
	if err != nil {
		return nil, "", err
	}

	if len(archives) == 0 {
		return nil, "", fmt.Errorf("%w: directory %s", ErrNoArchives, r.Config.ArchiveDir)
	}

	creds, err := r.loadSecrets(r.Config.SecretsFile)
	if err != nil {
		return nil, "", err
	}

	start := r.now()
	totalBytes := transfer.TotalBytes(archives)
	folder := FolderName(r.Config.Remote.FolderPrefix, start)

	logger.Info("archive snapshot taken",
		slog.Int("files", len(archives)),
		slog.Int64("bytes", totalBytes),
		slog.String("folder", folder),
	)

	if err := r.Uploader.UploadAll(ctx, creds, r.Config.Remote.Host, folder, archives); err != nil {
		return nil, "", err
	}

	accessToken, err := r.Refresher.Refresh(ctx, creds)
	if err != nil {
		return nil, "", err
	}

	link, err := r.publish(ctx, logger, accessToken, folder)
	if err != nil {
		return nil, "", err
	}

	sum := &report.Summary{
		Files: len(archives),
		Bytes: totalBytes,
		Start: start,
		End:   r.now(),
	}

	logger.Info("backup run complete",
		slog.Int("files", sum.Files),
		slog.Int64("bytes", sum.Bytes),
		slog.Duration("elapsed", sum.Elapsed()),
	)

	return sum, link, nil
}

// publish looks up the dated folder, grants each collaborator viewer
// access in list order, and configures the collaborators-only shared link.
// A fixed pacing delay separates consecutive grants; the grants are not
// deduplicated or batched, so K collaborators means exactly K calls.
func (r *Runner) publish(ctx context.Context, logger *slog.Logger, accessToken, folder string) (string, error) {
	folderID, err := r.Publisher.FindFolder(ctx, accessToken, folder, r.Config.Box.ListPageSize)
	if err != nil {
		return "", err
	}

	pacing := r.Config.GrantPacingDuration()

	for i, email := range r.Config.Publish.Collaborators {
		if i > 0 {
			if err := r.sleep(ctx, pacing); err != nil {
				return "", fmt.Errorf("backup: canceled between grants: %w", err)
			}
		}

		if err := r.Publisher.AddCollaboration(ctx, accessToken, folderID, email); err != nil {
			return "", err
		}
	}

	logger.Info("collaborators granted",
		slog.Int("count", len(r.Config.Publish.Collaborators)),
	)

	return r.Publisher.SetSharedLink(ctx, accessToken, folderID)
}

// sleepCtx waits for the given duration or until the context is canceled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
