// Package secrets loads the static API credentials for a backup run from a
// local fixed-key JSON document. Credentials are immutable once loaded and
// are never written back; the rotating refresh token lives in the durable
// store, not here.
package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// groupWorldBits are the permission bits that must not be set on the
// secrets file.
const groupWorldBits = 0o077

// Credentials holds every static secret a run needs. Loaded once per run.
// Values must never appear in logs or error messages.
type Credentials struct {
	// TransferEmail and TransferPassword authenticate the FTPS transfer.
	TransferEmail    string `json:"transfer_email"`
	TransferPassword string `json:"transfer_password"`

	// ClientID and ClientSecret identify the OAuth application for the
	// refresh-token exchange.
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`

	// StorePassword authenticates the durable key-value store. Expanded
	// into the store DSN where the deployment requires it.
	StorePassword string `json:"store_password"`
}

// String implements fmt.Stringer with full redaction so an accidental
// %v of Credentials cannot leak secret material.
func (Credentials) String() string {
	return "secrets.Credentials{redacted}"
}

// Load reads and parses the secrets file at path. The file must be a JSON
// object with the fixed keys of Credentials, must exist, must not be
// readable by group or world, and every field must be non-empty.
func Load(path string) (*Credentials, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("secrets: file %s does not exist", path)
	}

	if err != nil {
		return nil, fmt.Errorf("secrets: stat %s: %w", path, err)
	}

	if perm := info.Mode().Perm(); perm&groupWorldBits != 0 {
		return nil, fmt.Errorf("secrets: %s is group or world accessible (mode %04o), refusing to read", path, perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secrets: reading %s: %w", path, err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("secrets: decoding %s: %w", path, err)
	}

	if err := creds.validate(); err != nil {
		return nil, fmt.Errorf("secrets: %s: %w", path, err)
	}

	return &creds, nil
}

// validate checks that every fixed key carries a value. Field names, not
// values, appear in the error.
func (c *Credentials) validate() error {
	var missing []string

	for _, f := range []struct {
		name  string
		value string
	}{
		{"transfer_email", c.TransferEmail},
		{"transfer_password", c.TransferPassword},
		{"client_id", c.ClientID},
		{"client_secret", c.ClientSecret},
		{"store_password", c.StorePassword},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required keys: %v", missing)
	}

	return nil
}
