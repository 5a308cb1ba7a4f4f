// Package jsonfile stores events and the resource registry as two indented
// JSON documents inside a data directory.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"golang.org/x/crypto/blake2b"

	"github.com/example/resource-calendar/internal/logging"
	"github.com/example/resource-calendar/internal/persistence"
	"github.com/example/resource-calendar/internal/scheduler"
)

// DocumentValidator checks document bytes before they are imported.
type DocumentValidator interface {
	Validate(file string, data []byte) error
}

// Store implements the persistence repositories on top of a directory.
type Store struct {
	dir       string
	logger    *slog.Logger
	validator DocumentValidator
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithValidator enables validation of imported documents.
func WithValidator(v DocumentValidator) Option {
	return func(s *Store) {
		s.validator = v
	}
}

// Open prepares dir, creating it when missing.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	s := &Store{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, persistence.Wrap("create directory", dir, err)
	}
	return s, nil
}

// Dir returns the data directory path.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) log(ctx context.Context) *slog.Logger {
	return logging.Resolve(ctx, s.logger).With("component", "jsonfile", "dir", s.dir)
}

// SaveEvents rewrites the events document.
func (s *Store) SaveEvents(ctx context.Context, events []scheduler.Event) error {
	if err := writeDocument(s.path(persistence.EventsFile), persistence.ToRecords(events)); err != nil {
		return err
	}
	s.log(ctx).DebugContext(ctx, "events saved", "count", len(events))
	return nil
}

// LoadEvents reads the events document. A missing or malformed document yields
// an empty list.
func (s *Store) LoadEvents(ctx context.Context) ([]scheduler.Event, error) {
	var records []persistence.EventRecord
	found, err := s.readDocument(ctx, persistence.EventsFile, &records)
	if err != nil {
		return nil, err
	}
	if !found {
		return []scheduler.Event{}, nil
	}
	events := persistence.FromRecords(records)
	s.log(ctx).DebugContext(ctx, "events loaded", "count", len(events))
	return events, nil
}

// SaveResources rewrites the resources document.
func (s *Store) SaveResources(ctx context.Context, doc persistence.ResourceDocument) error {
	if err := writeDocument(s.path(persistence.ResourcesFile), doc.Clone()); err != nil {
		return err
	}
	s.log(ctx).DebugContext(ctx, "resources saved", "count", len(doc.Registered))
	return nil
}

// LoadResources reads the resources document. A missing or malformed document
// yields an empty registry.
func (s *Store) LoadResources(ctx context.Context) (persistence.ResourceDocument, error) {
	var doc persistence.ResourceDocument
	found, err := s.readDocument(ctx, persistence.ResourcesFile, &doc)
	if err != nil {
		return persistence.ResourceDocument{}, err
	}
	if !found {
		return persistence.ResourceDocument{}.Clone(), nil
	}
	return doc.Clone(), nil
}

// readDocument decodes name into target. found is false when the file is
// absent or could not be decoded.
func (s *Store) readDocument(ctx context.Context, name string, target any) (found bool, err error) {
	path := s.path(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log(ctx).InfoContext(ctx, "document missing, starting empty", "file", name)
		return false, nil
	}
	if err != nil {
		return false, persistence.Wrap("read", path, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		s.log(ctx).WarnContext(ctx, "document corrupt, starting empty", "file", name, "error", err)
		return false, nil
	}
	return true, nil
}

// Export copies the documents that exist into destination and returns the
// names copied. An empty result means there was nothing to export.
func (s *Store) Export(ctx context.Context, destination string) ([]string, error) {
	if err := os.MkdirAll(destination, 0o755); err != nil {
		return nil, persistence.Wrap("create directory", destination, err)
	}
	copied := make([]string, 0, len(persistence.DocumentFiles))
	for _, name := range persistence.DocumentFiles {
		ok, err := copyFile(s.path(name), filepath.Join(destination, name))
		if err != nil {
			return copied, err
		}
		if ok {
			copied = append(copied, name)
		}
	}
	s.log(ctx).InfoContext(ctx, "data exported", "destination", destination, "files", copied)
	return copied, nil
}

// Import validates the documents found in source and copies them over the
// data directory. Nothing is copied when any document is rejected.
func (s *Store) Import(ctx context.Context, source string) ([]string, error) {
	present := make([]string, 0, len(persistence.DocumentFiles))
	for _, name := range persistence.DocumentFiles {
		path := filepath.Join(source, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, persistence.Wrap("read", path, err)
		}
		if s.validator != nil {
			if err := s.validator.Validate(name, data); err != nil {
				return nil, err
			}
		}
		present = append(present, name)
	}

	imported := make([]string, 0, len(present))
	for _, name := range present {
		if _, err := copyFile(filepath.Join(source, name), s.path(name)); err != nil {
			return imported, err
		}
		imported = append(imported, name)
	}
	s.log(ctx).InfoContext(ctx, "data imported", "source", source, "files", imported)
	return imported, nil
}

// Wipe deletes both documents and returns how many existed.
func (s *Store) Wipe(ctx context.Context) (int, error) {
	deleted := 0
	for _, name := range persistence.DocumentFiles {
		err := os.Remove(s.path(name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return deleted, persistence.Wrap("remove", s.path(name), err)
		}
		deleted++
	}
	s.log(ctx).InfoContext(ctx, "data wiped", "deleted", deleted)
	return deleted, nil
}

// Stats lists the regular files of the data directory.
func (s *Store) Stats(ctx context.Context) (persistence.Stats, error) {
	stats := persistence.Stats{Directory: s.dir, Files: []persistence.FileStat{}}
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return stats, nil
	}
	if err != nil {
		return stats, persistence.Wrap("read directory", s.dir, err)
	}
	stats.Exists = true

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return stats, persistence.Wrap("stat", s.path(entry.Name()), err)
		}
		digest, err := fileDigest(s.path(entry.Name()))
		if err != nil {
			return stats, err
		}
		stats.Files = append(stats.Files, persistence.FileStat{
			Name:      entry.Name(),
			SizeBytes: info.Size(),
			SizeKB:    float64(info.Size()) / 1024,
			Size:      humanize.Bytes(uint64(info.Size())),
			Digest:    digest,
			Modified:  info.ModTime().UTC(),
		})
	}
	return stats, nil
}

// EncodeDocument renders v the way documents are stored on disk.
func EncodeDocument(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeDocument replaces path through a temporary sibling file.
func writeDocument(path string, v any) error {
	data, err := EncodeDocument(v)
	if err != nil {
		return persistence.Wrap("encode", path, err)
	}
	return writeAtomic(path, bytes.NewReader(data))
}

func writeAtomic(path string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return persistence.Wrap("create temp file", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		cleanup()
		return persistence.Wrap("write", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return persistence.Wrap("sync", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return persistence.Wrap("close", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return persistence.Wrap("rename", path, err)
	}
	return nil
}

// copyFile copies src to dst keeping the modification time. It reports false
// without error when src does not exist.
func copyFile(src, dst string) (bool, error) {
	in, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, persistence.Wrap("open", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return false, persistence.Wrap("stat", src, err)
	}
	if err := writeAtomic(dst, in); err != nil {
		return false, err
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return true, persistence.Wrap("set times", dst, err)
	}
	return true, nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", persistence.Wrap("open", path, err)
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", persistence.Wrap("read", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
