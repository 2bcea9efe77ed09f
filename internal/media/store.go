// Package media stores the service icons uploaded by administrators.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

var (
	// ErrIconNotFound is returned when the icon file does not exist.
	ErrIconNotFound = errors.New("icon not found")
	// ErrIconTooLarge is returned when an upload exceeds the configured size.
	ErrIconTooLarge = errors.New("icon is too large")
	// ErrUnsupportedType is returned for uploads that are not png, jpeg or svg.
	ErrUnsupportedType = errors.New("icon must be a png, jpg, jpeg or svg image")
	// ErrInvalidName is returned for empty or hidden file names.
	ErrInvalidName = errors.New("invalid icon file name")
)

// allowed maps accepted extensions to the content types they may carry.
var allowed = map[string][]string{ //nolint:gochecknoglobals
	".png":  {"image/png"},
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".svg":  {"image/svg+xml"},
}

// Store keeps icons as plain files in one directory.
type Store struct {
	dir     string
	maxSize int64
}

// NewStore creates the icon directory if needed.
func NewStore(dir string, maxSize int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create icon directory: %w", err)
	}

	return &Store{dir: dir, maxSize: maxSize}, nil
}

// Dir returns the icon directory.
func (s *Store) Dir() string { return s.dir }

// MaxSize returns the upload limit in bytes.
func (s *Store) MaxSize() int64 { return s.maxSize }

// Clean reduces a client supplied file name to its base name.
func Clean(name string) (string, error) {
	name = filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, `\`, "/")))
	if name == "/" || name == "." || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}

	return name, nil
}

// Save stores the upload under its base name, replacing an existing icon of the same name.
// The content is sniffed, the extension alone is not trusted.
func (s *Store) Save(name string, r io.Reader) (string, error) {
	name, err := Clean(name)
	if err != nil {
		return "", err
	}

	types, ok := allowed[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return "", ErrUnsupportedType
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	if int64(len(data)) > s.maxSize {
		return "", ErrIconTooLarge
	}

	mtype := mimetype.Detect(data)
	if !slices.ContainsFunc(types, func(t string) bool { return mtype.Is(t) }) {
		log.Debug().Str("icon", name).Str("detected", mtype.String()).Msg("rejected icon upload")

		return "", ErrUnsupportedType
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = io.Copy(tmp, bytes.NewReader(data)); err != nil {
		_ = tmp.Close()

		return "", fmt.Errorf("failed to write icon: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write icon: %w", err)
	}

	if err = os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("failed to store icon: %w", err)
	}

	return name, nil
}

// List returns the icon file names, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list icons: %w", err)
	}

	names := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}

	slices.Sort(names)

	return names, nil
}

// Delete removes an icon.
func (s *Store) Delete(name string) error {
	name, err := Clean(name)
	if err != nil {
		return ErrIconNotFound
	}

	if err = os.Remove(filepath.Join(s.dir, name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrIconNotFound
		}

		return fmt.Errorf("failed to delete icon: %w", err)
	}

	return nil
}
