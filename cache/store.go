// Package cache keeps finished analyses on disk so a repeat request for the same video
// can skip the transcript and completion calls. It is best effort: callers log errors
// and carry on.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const lockFileName = ".lock"

// Entry is the cached analysis of one video.
type Entry struct {
	Title    string `json:"title"`
	VideoID  string `json:"video_id"`
	Analysis string `json:"analysis"`
}

type taskRecord struct {
	TaskID      string  `json:"task_id"`
	Result      string  `json:"result"`
	CompletedAt float64 `json:"completed_at"`
}

// Store is a directory of JSON files guarded by a single lock file. A Store with an
// empty directory is disabled: lookups miss and writes are dropped.
type Store struct {
	dir string
	now func() time.Time
}

func New(dir string) *Store {
	return &Store{dir: strings.TrimSpace(dir), now: time.Now}
}

func (s *Store) Enabled() bool {
	return s != nil && s.dir != ""
}

// Key is the file stem used for a video's analysis.
func Key(videoID string) string {
	sum := md5.Sum([]byte(videoID))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the cached analysis for videoID, if any.
func (s *Store) Lookup(videoID string) (Entry, bool) {
	var e Entry
	if !s.Enabled() {
		return e, false
	}
	lock := flock.New(filepath.Join(s.dir, lockFileName))
	if err := lock.RLock(); err != nil {
		return e, false
	}
	defer lock.Unlock()

	data, err := os.ReadFile(s.path(Key(videoID)))
	if err != nil {
		return e, false
	}
	if err := json.Unmarshal(data, &e); err != nil || e.Analysis == "" {
		return Entry{}, false
	}
	return e, true
}

// Save writes the analysis for e.VideoID.
func (s *Store) Save(e Entry) error {
	if !s.Enabled() {
		return nil
	}
	if e.VideoID == "" {
		return errors.New("cache save: video id required")
	}
	return s.write(Key(e.VideoID), e)
}

// SaveTaskResult records a completed task's result under its id.
func (s *Store) SaveTaskResult(taskID, result string) error {
	if !s.Enabled() {
		return nil
	}
	if taskID == "" || filepath.Base(taskID) != taskID {
		return fmt.Errorf("cache save: invalid task id %q", taskID)
	}
	return s.write(taskID, taskRecord{
		TaskID:      taskID,
		Result:      result,
		CompletedAt: float64(s.now().UnixNano()) / float64(time.Second),
	})
}

// Prune deletes cached files not modified within maxAge. A non-positive maxAge keeps
// everything.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	if !s.Enabled() || maxAge <= 0 {
		return 0, nil
	}
	lock := flock.New(filepath.Join(s.dir, lockFileName))
	if err := lock.Lock(); err != nil {
		return 0, fmt.Errorf("cache prune: lock: %w", err)
	}
	defer lock.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("cache prune: %w", err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (s *Store) path(stem string) string {
	return filepath.Join(s.dir, stem+".json")
}

// write stores v atomically under stem: temp file, then rename, under the lock.
func (s *Store) write(stem string, v any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("cache save: %w", err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache save: encode: %w", err)
	}

	lock := flock.New(filepath.Join(s.dir, lockFileName))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("cache save: lock: %w", err)
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(s.dir, stem+"-*.tmp")
	if err != nil {
		return fmt.Errorf("cache save: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("cache save: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache save: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(stem)); err != nil {
		return fmt.Errorf("cache save: rename: %w", err)
	}
	return nil
}
