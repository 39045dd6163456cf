package transfer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocf/boxbackup/internal/secrets"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCreds() *secrets.Credentials {
	return &secrets.Credentials{
		TransferEmail:    "backup@example.org",
		TransferPassword: "hunter2",
	}
}

func testArchives() []Archive {
	return []Archive{
		{Name: "a.tar.gz", Path: "/srv/archives/a.tar.gz", Size: 1},
		{Name: "b tar.gz", Path: "/srv/archives/b tar.gz", Size: 2},
	}
}

// captureEngine returns an engine whose subprocess is replaced by a
// recorder. The recorder snapshots the netrc file while it still exists.
func captureEngine(runErr error) (*Engine, *capturedRun) {
	rec := &capturedRun{runErr: runErr}
	e := NewEngine("curl", testLogger())
	e.runCmd = rec.run

	return e, rec
}

type capturedRun struct {
	args         []string
	netrcPath    string
	netrcContent string
	netrcMode    os.FileMode
	runErr       error
}

func (c *capturedRun) run(cmd *exec.Cmd) error {
	c.args = cmd.Args

	for i, arg := range cmd.Args {
		if arg == "--netrc-file" && i+1 < len(cmd.Args) {
			c.netrcPath = cmd.Args[i+1]
		}
	}

	if c.netrcPath != "" {
		if data, err := os.ReadFile(c.netrcPath); err == nil {
			c.netrcContent = string(data)
		}

		if info, err := os.Stat(c.netrcPath); err == nil {
			c.netrcMode = info.Mode().Perm()
		}
	}

	return c.runErr
}

func TestUploadAllBuildsSingleBatchedInvocation(t *testing.T) {
	e, rec := captureEngine(nil)

	err := e.UploadAll(context.Background(), testCreds(), "ftp.box.com", "ocf-backup-2026-08-30", testArchives())
	require.NoError(t, err)

	joined := strings.Join(rec.args, " ")

	assert.Equal(t, "curl", rec.args[0])
	assert.Contains(t, joined, "--ssl-reqd")
	assert.Contains(t, joined, "--ftp-create-dirs")
	assert.Contains(t, joined, "--ftp-skip-pasv-ip")
	assert.Contains(t, joined, "--disable-epsv")

	// One -T pair per archive, same destination folder, names escaped.
	assert.Contains(t, joined, "-T /srv/archives/a.tar.gz ftp://ftp.box.com/ocf-backup-2026-08-30/a.tar.gz")
	assert.Contains(t, joined, "ftp://ftp.box.com/ocf-backup-2026-08-30/b%20tar.gz")
	assert.Equal(t, 2, strings.Count(joined, " -T "))
}

func TestUploadAllCredentialsNeverInArgv(t *testing.T) {
	e, rec := captureEngine(nil)

	require.NoError(t, e.UploadAll(context.Background(), testCreds(), "ftp.box.com", "f", testArchives()))

	joined := strings.Join(rec.args, " ")
	assert.NotContains(t, joined, "hunter2")
	assert.NotContains(t, joined, "backup@example.org")
}

func TestUploadAllNetrcFile(t *testing.T) {
	e, rec := captureEngine(nil)

	require.NoError(t, e.UploadAll(context.Background(), testCreds(), "ftp.box.com", "f", testArchives()))

	require.NotEmpty(t, rec.netrcPath)
	assert.Equal(t, "machine ftp.box.com login backup@example.org password hunter2\n", rec.netrcContent)
	assert.Equal(t, os.FileMode(0o600), rec.netrcMode)

	// Removed after the subprocess exits.
	_, err := os.Stat(rec.netrcPath)
	assert.True(t, os.IsNotExist(err))
}

func TestUploadAllFailureStillRemovesNetrc(t *testing.T) {
	e, rec := captureEngine(errors.New("exit status 67"))

	err := e.UploadAll(context.Background(), testCreds(), "ftp.box.com", "f", testArchives())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "curl upload")

	require.NotEmpty(t, rec.netrcPath)

	_, statErr := os.Stat(rec.netrcPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestUploadAllQuietAddsSilent(t *testing.T) {
	e, rec := captureEngine(nil)
	e.ShowProgress = false

	require.NoError(t, e.UploadAll(context.Background(), testCreds(), "h", "f", testArchives()))
	assert.Contains(t, rec.args, "--silent")

	e2, rec2 := captureEngine(nil)
	e2.ShowProgress = true

	require.NoError(t, e2.UploadAll(context.Background(), testCreds(), "h", "f", testArchives()))
	assert.NotContains(t, rec2.args, "--silent")
}
