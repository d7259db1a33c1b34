package cursor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// FileStore keeps one small text file per key under Dir. Each file holds a single
// decimal integer.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.Dir, Sanitize(key)+".txt")
}

func (s *FileStore) Get(_ context.Context, key string, fallback int64) (int64, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return fallback, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cursor file: %w", err)
	}

	text := strings.TrimSpace(string(data))
	value, err := strconv.ParseInt(text, 10, 64)
	if err != nil || value < 0 {
		log.Warn().
			Str("key", key).
			Str("content", text).
			Int64("fallback", fallback).
			Msg("Unreadable cursor file, using fallback")
		return fallback, nil
	}
	return value, nil
}

// Set writes through a temp file and rename so a crash never leaves a truncated cursor.
func (s *FileStore) Set(_ context.Context, key string, value int64) error {
	if value < 0 {
		return ErrNegativeValue
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, Sanitize(key)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cursor file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strconv.FormatInt(value, 10)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cursor file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync cursor file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cursor file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("failed to replace cursor file: %w", err)
	}
	return nil
}
