package config

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"path/filepath"
	"time"
)

// Validation range constants.
const (
	minListPageSize = 1
	maxListPageSize = 1000 // Box caps folder item listings at 1000 entries
	maxGrantPacing  = time.Minute
)

// validLogLevels are the accepted logging.log_level values.
var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validatePaths(cfg)...)
	errs = append(errs, validateRemote(&cfg.Remote)...)
	errs = append(errs, validateBox(&cfg.Box)...)
	errs = append(errs, validatePublish(&cfg.Publish)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

func validatePaths(cfg *Config) []error {
	var errs []error

	if cfg.ArchiveDir == "" {
		errs = append(errs, errors.New("archive_dir: required"))
	} else if !filepath.IsAbs(cfg.ArchiveDir) {
		// Relative paths would resolve differently depending on cwd.
		errs = append(errs, fmt.Errorf("archive_dir: must be absolute, got %q", cfg.ArchiveDir))
	}

	if cfg.SecretsFile == "" {
		errs = append(errs, errors.New("secrets_file: required"))
	}

	if cfg.Store.Path == "" {
		errs = append(errs, errors.New("store.path: required"))
	}

	return errs
}

func validateRemote(rc *RemoteConfig) []error {
	var errs []error

	if rc.Host == "" {
		errs = append(errs, errors.New("remote.host: required"))
	}

	if rc.FolderPrefix == "" {
		errs = append(errs, errors.New("remote.folder_prefix: required"))
	}

	if rc.CurlPath == "" {
		errs = append(errs, errors.New("remote.curl_path: required"))
	}

	return errs
}

func validateBox(bc *BoxConfig) []error {
	var errs []error

	for _, u := range []struct{ key, val string }{
		{"box.token_url", bc.TokenURL},
		{"box.api_base_url", bc.APIBaseURL},
	} {
		parsed, err := url.Parse(u.val)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errs = append(errs, fmt.Errorf("%s: not a valid URL: %q", u.key, u.val))
		}
	}

	if bc.ListPageSize < minListPageSize || bc.ListPageSize > maxListPageSize {
		errs = append(errs, fmt.Errorf("box.list_page_size: must be %d-%d, got %d",
			minListPageSize, maxListPageSize, bc.ListPageSize))
	}

	return errs
}

func validatePublish(pc *PublishConfig) []error {
	var errs []error

	if len(pc.Collaborators) == 0 {
		errs = append(errs, errors.New("publish.collaborators: at least one collaborator required"))
	}

	for _, c := range pc.Collaborators {
		if _, err := mail.ParseAddress(c); err != nil {
			errs = append(errs, fmt.Errorf("publish.collaborators: invalid email %q", c))
		}
	}

	pacing, err := time.ParseDuration(pc.GrantPacing)

	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("publish.grant_pacing: invalid duration %q", pc.GrantPacing))
	case pacing < 0:
		errs = append(errs, fmt.Errorf("publish.grant_pacing: must not be negative, got %q", pc.GrantPacing))
	case pacing > maxGrantPacing:
		errs = append(errs, fmt.Errorf("publish.grant_pacing: must be at most %s, got %q", maxGrantPacing, pc.GrantPacing))
	}

	return errs
}

func validateLogging(lc *LoggingConfig) []error {
	if !validLogLevels[lc.LogLevel] {
		return []error{fmt.Errorf("logging.log_level: must be debug, info, warn, or error, got %q", lc.LogLevel)}
	}

	return nil
}

// GrantPacingDuration returns publish.grant_pacing as a time.Duration.
// Call only after Validate has accepted the config.
func (c *Config) GrantPacingDuration() time.Duration {
	d, err := time.ParseDuration(c.Publish.GrantPacing)
	if err != nil {
		// Validate rejects unparseable values; fall back to the default.
		d, _ = time.ParseDuration(defaultGrantPacing)
	}

	return d
}
