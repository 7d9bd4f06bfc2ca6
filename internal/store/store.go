// Package store persists pipeline artifacts as flat files, optionally
// mirroring each one to object storage.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// FinalName is the merged batch summary written after a batch run.
const FinalName = "final.json"

// VideoArtifactName is the per-video analysis file name.
func VideoArtifactName(videoID string) string {
	return "youtube_" + videoID + "_enhanced.json"
}

// Mirror receives a copy of every artifact written locally.
type Mirror interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

type Store struct {
	Dir    string
	Mirror Mirror
	Log    *logrus.Entry
}

func New(dir string, mirror Mirror, log *logrus.Entry) *Store {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{Dir: dir, Mirror: mirror, Log: log.WithField("component", "store")}
}

// EnsureDir creates the artifact directory if needed.
func (s *Store) EnsureDir() error {
	return os.MkdirAll(s.Dir, 0o755)
}

// Clean removes every regular file in the artifact directory, creating the
// directory when it does not exist. Subdirectories are left alone.
func (s *Store) Clean() error {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		s.Log.WithField("dir", s.Dir).Info("output directory does not exist, creating it")
		return s.EnsureDir()
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", s.Dir, err)
	}
	var errs []error
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.Dir, e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	s.Log.WithFields(logrus.Fields{"dir": s.Dir, "removed": removed}).Info("output directory cleaned")
	return errors.Join(errs...)
}

// WriteJSON writes v indented by two spaces under name and returns the path.
func (s *Store) WriteJSON(ctx context.Context, name string, v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	return s.WriteBytes(ctx, name, b, "application/json")
}

func (s *Store) WriteText(ctx context.Context, name, text string) (string, error) {
	return s.WriteBytes(ctx, name, []byte(text), "text/plain; charset=utf-8")
}

// WriteBytes writes b under name. A mirror failure is logged, not returned:
// the local file is the artifact of record.
func (s *Store) WriteBytes(ctx context.Context, name string, b []byte, contentType string) (string, error) {
	if err := s.EnsureDir(); err != nil {
		return "", err
	}
	path := filepath.Join(s.Dir, name)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	log := s.Log.WithFields(logrus.Fields{"path": path, "bytes": len(b)})
	log.Info("artifact saved")

	if s.Mirror != nil {
		if err := s.Mirror.Put(ctx, name, b, contentType); err != nil {
			log.WithError(err).Warn("artifact mirror failed")
		}
	}
	return path, nil
}
