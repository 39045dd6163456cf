package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"

	"github.com/ocf/boxbackup/internal/secrets"
)

// netrcPerms restricts the transient credential file to owner read/write.
const netrcPerms = 0o600

// Engine pushes archives to the FTPS endpoint by shelling out to curl.
// One invocation carries every file so the TLS control connection is set
// up once, not per file.
type Engine struct {
	curlPath string
	logger   *slog.Logger

	// ShowProgress forwards curl's progress meter to stderr. The CLI
	// enables it only on a terminal and when not quiet.
	ShowProgress bool

	// runCmd executes the prepared command. Defaults to (*exec.Cmd).Run;
	// tests override it to capture arguments and fake exit codes.
	runCmd func(*exec.Cmd) error
}

// NewEngine creates a transfer engine using the given curl binary.
func NewEngine(curlPath string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		curlPath: curlPath,
		logger:   logger,
		runCmd:   func(cmd *exec.Cmd) error { return cmd.Run() },
	}
}

// UploadAll transfers every archive to ftp://host/folder/ over explicit
// TLS, creating the remote folder if it does not exist. There is no
// partial-success accounting: a non-zero curl exit fails the whole batch
// even if some files made it across.
//
// Credentials travel through a transient 0600 netrc file, never through
// argv (visible in process listings). The file is removed on every exit
// path; cancellation of ctx kills curl and still runs the cleanup.
func (e *Engine) UploadAll(ctx context.Context, creds *secrets.Credentials, host, folder string, archives []Archive) error {
	e.logger.Info("starting transfer",
		slog.String("host", host),
		slog.String("folder", folder),
		slog.Int("files", len(archives)),
	)

	netrcPath, err := writeNetrc(host, creds.TransferEmail, creds.TransferPassword)
	if err != nil {
		return err
	}
	defer os.Remove(netrcPath)

	cmd := exec.CommandContext(ctx, e.curlPath, e.buildArgs(netrcPath, host, folder, archives)...)

	if e.ShowProgress {
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
	}

	if err := e.runCmd(cmd); err != nil {
		return fmt.Errorf("transfer: curl upload to %s/%s failed: %w", host, folder, err)
	}

	e.logger.Info("transfer complete",
		slog.String("folder", folder),
		slog.Int("files", len(archives)),
	)

	return nil
}

// buildArgs assembles the single batched curl invocation: TLS required,
// remote folder auto-created, and the PASV address fix plus EPSV disable
// that keep the data connection working across NAT boundaries.
func (e *Engine) buildArgs(netrcPath, host, folder string, archives []Archive) []string {
	args := []string{
		"--ssl-reqd",
		"--ftp-create-dirs",
		"--ftp-skip-pasv-ip",
		"--disable-epsv",
		"--netrc-file", netrcPath,
		"--show-error",
	}

	if !e.ShowProgress {
		args = append(args, "--silent")
	}

	for i := range archives {
		remote := fmt.Sprintf("ftp://%s/%s/%s",
			host, url.PathEscape(folder), url.PathEscape(archives[i].Name))
		args = append(args, "-T", archives[i].Path, remote)
	}

	return args
}

// writeNetrc creates the transient credential file. Permissions are set
// before any secret is written.
func writeNetrc(host, login, password string) (string, error) {
	f, err := os.CreateTemp("", "boxbackup-netrc-*")
	if err != nil {
		return "", fmt.Errorf("transfer: creating netrc file: %w", err)
	}

	path := f.Name()

	// Remove the file on any failure below.
	success := false
	defer func() {
		if !success {
			f.Close()
			_ = os.Remove(path)
		}
	}()

	if err := f.Chmod(netrcPerms); err != nil {
		return "", fmt.Errorf("transfer: restricting netrc permissions: %w", err)
	}

	if _, err := fmt.Fprintf(f, "machine %s login %s password %s\n", host, login, password); err != nil {
		return "", fmt.Errorf("transfer: writing netrc file: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("transfer: closing netrc file: %w", err)
	}

	success = true

	return path, nil
}
