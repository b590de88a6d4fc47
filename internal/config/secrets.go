package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DefaultSecretsFile mirrors the hosted platform's secrets location.
const DefaultSecretsFile = ".streamlit/secrets.toml"

// SecretStore is the platform-managed secret tier consulted before the
// environment.
type SecretStore interface {
	Get(key string) (string, bool)
}

// MapSecrets is a SecretStore backed by top-level string entries.
type MapSecrets map[string]string

// Get returns the secret stored under key.
func (m MapSecrets) Get(key string) (string, bool) {
	value, ok := m[key]
	return value, ok
}

// LoadSecretsFile reads a TOML secrets file. A missing file yields an empty
// store; a malformed one is an error.
func LoadSecretsFile(path string) (MapSecrets, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return MapSecrets{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read secrets file %s: %w", path, err)
	}
	return ParseSecrets(data)
}

// ParseSecrets decodes TOML and keeps the top-level string values.
func ParseSecrets(data []byte) (MapSecrets, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse secrets: %w", err)
	}

	secrets := make(MapSecrets, len(raw))
	for key, value := range raw {
		if s, ok := value.(string); ok {
			secrets[key] = s
		}
	}
	return secrets, nil
}
