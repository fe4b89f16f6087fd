package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultPath is the state file used when none is configured.
const DefaultPath = "image_update_state.json"

// TimeFormat is the layout of ImageState.LastUpdated.
const TimeFormat = time.RFC3339

// ImageState is the last resolution recorded for one configured image.
type ImageState struct {
	BaseTag     string `json:"base_tag"`
	Tag         string `json:"tag"`
	Digest      string `json:"digest"`
	LastUpdated string `json:"last_updated"`
}

// New returns an ImageState stamped with the current time.
func New(baseTag, tag, digest string) ImageState {
	return ImageState{
		BaseTag:     baseTag,
		Tag:         tag,
		Digest:      digest,
		LastUpdated: time.Now().UTC().Format(TimeFormat),
	}
}

func (s ImageState) validate() error {
	switch {
	case s.Tag == "":
		return fmt.Errorf("%w: tag", errMissingField)
	case s.Digest == "":
		return fmt.Errorf("%w: digest", errMissingField)
	}

	return nil
}

// Store reads and writes the state file.
type Store struct {
	path   string
	dryRun bool
}

// NewStore creates a Store for path. With dryRun set, Save only logs.
func NewStore(path string, dryRun bool) *Store {
	if path == "" {
		path = DefaultPath
	}

	return &Store{path: path, dryRun: dryRun}
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// LockPath returns the lock file location: the state file path with its extension
// replaced by ".lock".
func (s *Store) LockPath() string {
	return strings.TrimSuffix(s.path, filepath.Ext(s.path)) + ".lock"
}

// Load reads the state file under the exclusive lock.
//
// A missing or unparsable file yields an empty map. Entries that cannot be decoded,
// carry unknown fields, or lack a tag or digest are skipped with a warning while the
// remaining entries are kept.
func (s *Store) Load() map[string]ImageState {
	states := make(map[string]ImageState)
	clog := logrus.WithField("file", s.path)

	err := s.withLock(func() error {
		data, err := os.ReadFile(s.path)
		if err != nil {
			if os.IsNotExist(err) {
				clog.Debug("No state file found, starting fresh")
			} else {
				clog.WithError(err).Warn("Failed to read state file, starting fresh")
			}

			return nil
		}

		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			clog.WithError(err).Warn("Failed to parse state file, starting fresh")

			return nil
		}

		for image, entry := range raw {
			parsed, err := decodeEntry(entry)
			if err != nil {
				clog.WithError(err).WithField("image", image).Warn("Skipping corrupt state entry")

				continue
			}

			states[image] = parsed
		}

		return nil
	})
	if err != nil {
		clog.WithError(err).Warn("Failed to lock state file, starting fresh")

		return make(map[string]ImageState)
	}

	clog.WithField("entries", len(states)).Debug("Loaded state")

	return states
}

// Save atomically replaces the state file with states under the exclusive lock.
// Nothing is written in dry-run mode.
func (s *Store) Save(states map[string]ImageState) error {
	clog := logrus.WithField("file", s.path)

	if s.dryRun {
		clog.WithField("dry_run", true).Info("Would save state")

		return nil
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %w", errFailedCreateDir, err)
		}
	}

	data, err := encode(states)
	if err != nil {
		return err
	}

	err = s.withLock(func() error {
		tmp := s.path + ".tmp"

		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return fmt.Errorf("%w: %w", errFailedWriteTemp, err)
		}

		if err := os.Rename(tmp, s.path); err != nil {
			_ = os.Remove(tmp)

			return fmt.Errorf("%w: %w", errFailedRename, err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	clog.WithField("entries", len(states)).Debug("Saved state")

	return nil
}

// withLock runs fn while holding an exclusive lock on the sibling lock file, which is
// removed again afterwards.
func (s *Store) withLock(fn func() error) error {
	lockPath := s.LockPath()

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedOpenLock, err)
	}

	defer func() {
		file.Close()
		_ = os.Remove(lockPath)
	}()

	if err := lockFile(file); err != nil {
		return fmt.Errorf("%w: %w", errFailedAcquireLock, err)
	}

	defer func() {
		if err := unlockFile(file); err != nil {
			logrus.WithError(err).WithField("file", lockPath).Debug("Failed to release state lock")
		}
	}()

	return fn()
}

func decodeEntry(raw json.RawMessage) (ImageState, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()

	var entry ImageState
	if err := decoder.Decode(&entry); err != nil {
		return ImageState{}, fmt.Errorf("failed to decode entry: %w", err)
	}

	if err := entry.validate(); err != nil {
		return ImageState{}, err
	}

	return entry, nil
}

// encode renders states indented; encoding/json sorts the image keys.
func encode(states map[string]ImageState) ([]byte, error) {
	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedMarshal, err)
	}

	return append(data, '\n'), nil
}
