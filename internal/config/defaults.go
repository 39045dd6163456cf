package config

// Default values for configuration options. These are chosen so that a
// config file only needs archive_dir, secrets_file, and the collaborator
// list to produce a working setup.
const (
	defaultConfigPath   = "/etc/boxbackup/boxbackup.toml"
	defaultSecretsFile  = "/etc/boxbackup/secrets.json"
	defaultStorePath    = "/var/lib/boxbackup/state.db"
	defaultRemoteHost   = "ftp.box.com"
	defaultFolderPrefix = "ocf-backup"
	defaultCurlPath     = "curl"
	defaultTokenURL     = "https://api.box.com/oauth2/token" //nolint:gosec // endpoint URL, not a credential
	defaultAPIBaseURL   = "https://api.box.com/2.0"
	defaultListPageSize = 1000
	defaultGrantPacing  = "1s"
	defaultLogLevel     = "info"
)

// DefaultConfig returns a Config populated with all default values.
// Used both as the starting point for TOML decoding (unset fields retain
// defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		SecretsFile: defaultSecretsFile,
		Store: StoreConfig{
			Path: defaultStorePath,
		},
		Remote: RemoteConfig{
			Host:         defaultRemoteHost,
			FolderPrefix: defaultFolderPrefix,
			CurlPath:     defaultCurlPath,
		},
		Box: BoxConfig{
			TokenURL:     defaultTokenURL,
			APIBaseURL:   defaultAPIBaseURL,
			ListPageSize: defaultListPageSize,
		},
		Publish: PublishConfig{
			GrantPacing: defaultGrantPacing,
		},
		Logging: LoggingConfig{
			LogLevel: defaultLogLevel,
		},
	}
}

// DefaultConfigPath returns the path consulted when --config is not given.
func DefaultConfigPath() string {
	return defaultConfigPath
}
