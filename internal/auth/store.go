package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// FileStore persists a rotated refresh token with owner-only permissions.
//
// The file holds the current token on its first line and, on the second,
// the configured token the rotation chain started from. A configured token
// that no longer matches that seed means the operator re-authorized, and
// the stored chain is stale.
type FileStore struct {
	path string
	seed string
}

// NewFileStore returns a store at path. seed is recorded alongside every
// saved token.
func NewFileStore(path, seed string) *FileStore {
	return &FileStore{path: path, seed: seed}
}

func (s *FileStore) Path() string {
	return s.path
}

// Save atomically replaces the stored token.
func (s *FileStore) Save(refreshToken string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("auth: create token dir: %w", err)
	}
	data := refreshToken + "\n"
	if s.seed != "" {
		data += s.seed + "\n"
	}
	if err := renameio.WriteFile(s.path, []byte(data), 0o600); err != nil {
		return fmt.Errorf("auth: save refresh token: %w", err)
	}
	return nil
}

// Load returns the stored token and its seed. Both are empty when nothing
// has been stored yet; seed is empty for a file without a second line.
func (s *FileStore) Load() (token, seed string, err error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", nil
		}
		return "", "", fmt.Errorf("auth: read refresh token: %w", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	token = strings.TrimSpace(lines[0])
	if len(lines) > 1 {
		seed = strings.TrimSpace(lines[1])
	}
	return token, seed, nil
}
