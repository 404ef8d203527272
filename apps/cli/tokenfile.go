package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// tokenFile keeps the CLI's credential between runs. It is a backend.TokenSource.
type tokenFile struct {
	path string
}

func defaultTokenPath() (string, error) {
	if p := os.Getenv("CACE_TOKEN_FILE"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "locating home directory")
	}
	return filepath.Join(home, ".cace", "token"), nil
}

func (f tokenFile) Save(_ context.Context, token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(err, "creating token directory")
	}
	return errors.Wrap(os.WriteFile(f.path, []byte(token), 0o600), "writing token")
}

func (f tokenFile) Read(_ context.Context) (string, bool, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "reading token")
	}
	token := strings.TrimSpace(string(data))
	return token, token != "", nil
}

func (f tokenFile) Clear(_ context.Context) error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing token")
	}
	return nil
}
