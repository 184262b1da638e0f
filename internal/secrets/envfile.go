// InstaKPI - Social Media KPI Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/instakpi

package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

// EnvFileStore stores secrets as KEY=value lines of a dotenv file.
//
// Set rewrites the file line by line: the line assigning the key is replaced
// (or a new one appended) and every other line is kept byte for byte,
// comments and quoting included. The result goes to a temporary file that is
// renamed over the original, so readers never see a half-written file.
type EnvFileStore struct {
	path string
	mu   sync.Mutex
}

// NewEnvFileStore returns a store for path (".env" when empty).
func NewEnvFileStore(path string) *EnvFileStore {
	if path == "" {
		path = defaultEnvFile
	}
	return &EnvFileStore{path: path}
}

// Path returns the dotenv file location.
func (s *EnvFileStore) Path() string {
	return s.path
}

func (s *EnvFileStore) read() (map[string]string, error) {
	env, err := godotenv.Read(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return env, nil
}

// Get returns the value of key.
func (s *EnvFileStore) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.read()
	if err != nil {
		return "", err
	}
	v, ok := env[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set replaces the value of key and keeps every other line.
func (s *EnvFileStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	assignment, err := formatAssignment(key, value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	content := replaceAssignment(string(raw), key, assignment)

	mode := fs.FileMode(0o600)
	if info, err := os.Stat(s.path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// replaceAssignment swaps every line assigning key for assignment, keeping
// an "export " prefix and CRLF endings. The assignment is appended when no
// line matches.
func replaceAssignment(content, key, assignment string) string {
	if content == "" {
		return assignment + "\n"
	}

	lines := strings.Split(content, "\n")
	found := false
	for i, line := range lines {
		body := strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimLeft(body, " \t")
		exported := strings.HasPrefix(trimmed, "export ")
		if exported {
			trimmed = strings.TrimLeft(strings.TrimPrefix(trimmed, "export "), " \t")
		}
		name, _, ok := strings.Cut(trimmed, "=")
		if !ok || strings.TrimSpace(name) != key {
			continue
		}

		replaced := assignment
		if exported {
			replaced = "export " + replaced
		}
		if len(body) != len(line) {
			replaced += "\r"
		}
		lines[i] = replaced
		found = true
	}
	if found {
		return strings.Join(lines, "\n")
	}

	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + assignment + "\n"
}

// formatAssignment renders KEY=value so that godotenv reads value back
// unchanged. Plain values are written bare and anything else single-quoted,
// which godotenv takes literally.
func formatAssignment(key, value string) (string, error) {
	if strings.ContainsAny(value, "\n\r'") {
		return "", fmt.Errorf("value for %s cannot be stored in a dotenv file", key)
	}
	if isBareValue(value) {
		return key + "=" + value, nil
	}
	return key + "='" + value + "'", nil
}

func isBareValue(v string) bool {
	if v == "" {
		return false
	}
	for _, r := range v {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("_-.:/+=@,", r):
		default:
			return false
		}
	}
	return true
}
