// Package config implements TOML configuration loading and validation for
// boxbackup. Resolution is a three-layer override chain
// (defaults -> config file -> CLI flags); unknown keys in the config file
// are fatal errors with "did you mean?" suggestions.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	// ArchiveDir is the local directory whose regular files are backed up.
	ArchiveDir string `toml:"archive_dir"`
	// SecretsFile is the path to the fixed-key JSON secrets document.
	SecretsFile string `toml:"secrets_file"`

	Store   StoreConfig   `toml:"store"`
	Remote  RemoteConfig  `toml:"remote"`
	Box     BoxConfig     `toml:"box"`
	Publish PublishConfig `toml:"publish"`
	Logging LoggingConfig `toml:"logging"`
}

// StoreConfig locates the durable key-value store that holds the rotating
// refresh token between runs.
type StoreConfig struct {
	// Path is the SQLite DSN. May contain the placeholder ${STORE_PASSWORD},
	// expanded from the secrets file for deployments whose DSN embeds it.
	Path string `toml:"path"`
}

// RemoteConfig describes the FTPS transfer endpoint.
type RemoteConfig struct {
	Host string `toml:"host"`
	// FolderPrefix is joined with the run date to name the remote folder,
	// e.g. "ocf-backup" -> "ocf-backup-2026-08-30".
	FolderPrefix string `toml:"folder_prefix"`
	// CurlPath overrides the curl binary used for the transfer.
	CurlPath string `toml:"curl_path"`
}

// BoxConfig describes the Box OAuth2 and content API endpoints.
type BoxConfig struct {
	TokenURL   string `toml:"token_url"`
	APIBaseURL string `toml:"api_base_url"`
	// ListPageSize bounds the single root-folder listing page used during
	// folder lookup. Box caps this at 1000.
	ListPageSize int `toml:"list_page_size"`
}

// PublishConfig controls collaborator grants on the backup folder.
type PublishConfig struct {
	// Collaborators is the fixed list of identities granted viewer access,
	// in grant order.
	Collaborators []string `toml:"collaborators"`
	// GrantPacing is the fixed delay between consecutive collaboration
	// grants, as a Go duration string. Blunt rate limiting, intentional.
	GrantPacing string `toml:"grant_pacing"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"`
}

// CLIOverrides carries command-line values that take precedence over the
// config file. Only non-zero fields are applied.
type CLIOverrides struct {
	ConfigPath string
	ArchiveDir string
}
