package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	secretAPIKeys  = "api_keys"
	secretAPIToken = "api_token"
)

// ErrSecretNotFound is returned for a secret that was never stored.
var ErrSecretNotFound = errors.New("secret not found")

func secretsFilePath() string {
	return filepath.Join(defaultDataDir(), "secrets.json")
}

// secretsFile is a flat name -> value JSON file readable only by its owner.
type secretsFile struct {
	path string
}

func newSecretsFile(path string) *secretsFile {
	return &secretsFile{path: path}
}

func (f *secretsFile) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	secrets := map[string]string{}
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	return secrets, nil
}

func (f *secretsFile) Get(name string) (string, error) {
	secrets, err := f.read()
	if err != nil {
		return "", err
	}
	v, ok := secrets[name]
	if !ok {
		return "", ErrSecretNotFound
	}
	return v, nil
}

func (f *secretsFile) Set(name, value string) error {
	secrets, err := f.read()
	if err != nil {
		return err
	}
	secrets[name] = value

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, out, 0o600)
}

// APIToken returns the bearer token guarding the local HTTP API, creating
// and storing a random one on first use.
func APIToken() (string, error) {
	return apiToken(newSecretsFile(secretsFilePath()))
}

func apiToken(f *secretsFile) (string, error) {
	tok, err := f.Get(secretAPIToken)
	if err == nil && tok != "" {
		return tok, nil
	}
	if err != nil && !errors.Is(err, ErrSecretNotFound) {
		return "", err
	}
	tok = uuid.New().String()
	if err := f.Set(secretAPIToken, tok); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return tok, nil
}

// StoreAPIKeys saves a comma-separated credential list in the secrets file.
func StoreAPIKeys(keys string) error {
	return newSecretsFile(secretsFilePath()).Set(secretAPIKeys, keys)
}
