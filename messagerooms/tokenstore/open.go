package tokenstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Backend kinds accepted by Open.
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// Open builds a TokenStore for kind. path is ignored for memory; an empty
// path for the other kinds selects a file under the user config directory.
func Open(kind, path string) (*TokenStore, error) {
	switch kind {
	case KindMemory:
		return New(NewMemoryBackend()), nil
	case KindFile, "":
		if path == "" {
			p, err := defaultPath("tokens.yml")
			if err != nil {
				return nil, err
			}
			path = p
		}
		return New(NewFileBackend(expandPath(path))), nil
	case KindSQLite:
		if path == "" {
			p, err := defaultPath("tokens.db")
			if err != nil {
				return nil, err
			}
			path = p
		}
		path = expandPath(path)
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return nil, fmt.Errorf("create token directory: %w", err)
			}
		}
		b, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return New(b), nil
	default:
		return nil, fmt.Errorf("unknown token store %q", kind)
	}
}

func defaultPath(name string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(dir, "roomchat", name), nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
