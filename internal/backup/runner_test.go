package backup

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocf/boxbackup/internal/config"
	"github.com/ocf/boxbackup/internal/secrets"
	"github.com/ocf/boxbackup/internal/transfer"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.ArchiveDir = "/srv/archives"
	cfg.Publish.Collaborators = []string{"a@example.org", "b@example.org", "c@example.org"}
	cfg.Publish.GrantPacing = "1s"

	return cfg
}

type fakeUploader struct {
	calls  int
	folder string
	bytes  int64
	err    error
}

func (f *fakeUploader) UploadAll(_ context.Context, _ *secrets.Credentials, _, folder string, archives []transfer.Archive) error {
	f.calls++
	f.folder = folder
	f.bytes = transfer.TotalBytes(archives)

	return f.err
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(_ context.Context, _ *secrets.Credentials) (string, error) {
	f.calls++

	if f.err != nil {
		return "", f.err
	}

	return "at-run", nil
}

type fakePublisher struct {
	findCalls  int
	findErr    error
	grants     []string
	grantToken string
	grantErr   error
	linkCalls  int
}

func (f *fakePublisher) FindFolder(_ context.Context, _, _ string, _ int) (string, error) {
	f.findCalls++

	if f.findErr != nil {
		return "", f.findErr
	}

	return "folder-1", nil
}

func (f *fakePublisher) AddCollaboration(_ context.Context, token, _, email string) error {
	f.grants = append(f.grants, email)
	f.grantToken = token

	return f.grantErr
}

func (f *fakePublisher) SetSharedLink(_ context.Context, _, _ string) (string, error) {
	f.linkCalls++

	return "https://app.box.com/s/xyz", nil
}

// testRunner builds a Runner over fakes with an instrumented clock,
// archive lister, and pacing sleep.
func testRunner(cfg *config.Config, up *fakeUploader, ref *fakeRefresher, pub *fakePublisher) (*Runner, *[]time.Duration) {
	r := NewRunner(cfg, up, ref, pub, testLogger())

	r.listArchives = func(string) ([]transfer.Archive, error) {
		return []transfer.Archive{
			{Name: "a.tar.gz", Path: "/srv/archives/a.tar.gz", Size: 100},
			{Name: "b.tar.gz", Path: "/srv/archives/b.tar.gz", Size: 250},
		}, nil
	}
	r.loadSecrets = func(string) (*secrets.Credentials, error) {
		return &secrets.Credentials{TransferEmail: "t@example.org"}, nil
	}
	r.now = func() time.Time {
		return time.Date(2026, time.August, 30, 3, 0, 0, 0, time.UTC)
	}

	sleeps := &[]time.Duration{}
	r.sleep = func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}

	return r, sleeps
}

func TestRunHappyPath(t *testing.T) {
	up := &fakeUploader{}
	ref := &fakeRefresher{}
	pub := &fakePublisher{}
	r, sleeps := testRunner(testConfig(), up, ref, pub)

	sum, link, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "https://app.box.com/s/xyz", link)
	assert.Equal(t, 2, sum.Files)
	assert.Equal(t, int64(350), sum.Bytes)
	assert.Equal(t, int64(350), up.bytes)
	assert.Equal(t, "ocf-backup-2026-08-30", up.folder)

	// K collaborators, exactly K grants in list order, K-1 pacing sleeps.
	assert.Equal(t, []string{"a@example.org", "b@example.org", "c@example.org"}, pub.grants)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, *sleeps)
	assert.Equal(t, "at-run", pub.grantToken)
	assert.Equal(t, 1, pub.linkCalls)
}

func TestRunEmptyArchiveSet(t *testing.T) {
	up := &fakeUploader{}
	ref := &fakeRefresher{}
	pub := &fakePublisher{}
	r, _ := testRunner(testConfig(), up, ref, pub)
	r.listArchives = func(string) ([]transfer.Archive, error) { return nil, nil }

	secretsLoaded := false
	r.loadSecrets = func(string) (*secrets.Credentials, error) {
		secretsLoaded = true
		return &secrets.Credentials{}, nil
	}

	_, _, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoArchives)

	// Fails before credentials, transfer, or any network call.
	assert.False(t, secretsLoaded)
	assert.Zero(t, up.calls)
	assert.Zero(t, ref.calls)
	assert.Zero(t, pub.findCalls)
}

func TestRunPermissionFailure(t *testing.T) {
	up := &fakeUploader{}
	ref := &fakeRefresher{}
	pub := &fakePublisher{}
	r, _ := testRunner(testConfig(), up, ref, pub)
	r.listArchives = func(dir string) ([]transfer.Archive, error) {
		return nil, fs.ErrPermission
	}

	_, _, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrPermission)

	assert.Zero(t, up.calls)
	assert.Zero(t, ref.calls)
	assert.Zero(t, pub.findCalls)
}

func TestRunTransferFailureStopsPipeline(t *testing.T) {
	up := &fakeUploader{err: errors.New("exit status 67")}
	ref := &fakeRefresher{}
	pub := &fakePublisher{}
	r, _ := testRunner(testConfig(), up, ref, pub)

	_, _, err := r.Run(context.Background())
	require.Error(t, err)

	// Token manager and publisher are never invoked after a failed transfer.
	assert.Equal(t, 1, up.calls)
	assert.Zero(t, ref.calls)
	assert.Zero(t, pub.findCalls)
}

func TestRunRefreshFailureStopsPipeline(t *testing.T) {
	up := &fakeUploader{}
	ref := &fakeRefresher{err: errors.New("exchange rejected")}
	pub := &fakePublisher{}
	r, _ := testRunner(testConfig(), up, ref, pub)

	_, _, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, pub.findCalls)
}

func TestRunGrantFailureSkipsSharedLink(t *testing.T) {
	up := &fakeUploader{}
	ref := &fakeRefresher{}
	pub := &fakePublisher{grantErr: errors.New("conflict")}
	r, _ := testRunner(testConfig(), up, ref, pub)

	_, _, err := r.Run(context.Background())
	require.Error(t, err)

	// First grant fails; no rollback, no further grants, no link call.
	assert.Equal(t, []string{"a@example.org"}, pub.grants)
	assert.Zero(t, pub.linkCalls)
}

func TestRunFolderLookupFailureIsFatal(t *testing.T) {
	up := &fakeUploader{}
	ref := &fakeRefresher{}
	pub := &fakePublisher{findErr: errors.New("folder not found")}
	r, _ := testRunner(testConfig(), up, ref, pub)

	_, _, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, pub.grants)
	assert.Zero(t, pub.linkCalls)
}

func TestFolderName(t *testing.T) {
	at := time.Date(2026, time.January, 5, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "ocf-backup-2026-01-05", FolderName("ocf-backup", at))
}

func TestRunSingleCollaboratorNoPacing(t *testing.T) {
	cfg := testConfig()
	cfg.Publish.Collaborators = []string{"only@example.org"}

	up := &fakeUploader{}
	ref := &fakeRefresher{}
	pub := &fakePublisher{}
	r, sleeps := testRunner(cfg, up, ref, pub)

	_, _, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"only@example.org"}, pub.grants)
	assert.Empty(t, *sleeps)
}
