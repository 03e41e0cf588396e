package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"
)

// maxConfigSize bounds the config file read by LoadConfig.
const maxConfigSize = 1 << 20

// Config is the optional tsh configuration file.
//
//	allowedRoles: [network, fs-read]
//	allowAllRoles: false
//	maxArchiveSize: 1073741824
//	compression: gzip
//	registry:
//	  plainHTTP: false
//	  anonymous: false
type Config struct {
	// AllowedRoles are granted to every archive run, in addition to --allow.
	AllowedRoles []string `json:"allowedRoles,omitempty"`

	// AllowAllRoles grants every role, like --allow-all.
	AllowAllRoles bool `json:"allowAllRoles,omitempty"`

	// MaxArchiveSize bounds the archives tsh reads. Zero keeps the default.
	MaxArchiveSize int64 `json:"maxArchiveSize,omitempty"`

	// Compression is the default payload compression for compile.
	Compression string `json:"compression,omitempty"`

	// Registry holds defaults for push and pull.
	Registry RegistryConfig `json:"registry,omitempty"`
}

// RegistryConfig holds registry transport defaults.
type RegistryConfig struct {
	PlainHTTP bool `json:"plainHTTP,omitempty"`
	Anonymous bool `json:"anonymous,omitempty"`
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/tsh/config.yaml, or the
// platform equivalent.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tsh", "config.yaml"), nil
}

// LoadConfig reads the configuration file at path. An empty path loads the
// default location and treats a missing file as an empty configuration.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		def, err := DefaultConfigPath()
		if err != nil {
			return &Config{}, nil //nolint:nilerr // no config directory means no config
		}
		path = def
	}

	data, err := readConfig(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.MaxArchiveSize < 0 {
		return nil, fmt.Errorf("parse config %s: maxArchiveSize must not be negative", path)
	}
	return &cfg, nil
}

func readConfig(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxConfigSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxConfigSize {
		return nil, fmt.Errorf("%s is larger than %d bytes", path, maxConfigSize)
	}
	return data, nil
}
