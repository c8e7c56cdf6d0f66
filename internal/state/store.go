// Package state persists the four records that survive between runs: the
// archive of followed handles, the current candidate set, the daily quota
// and the refresh marker. Each record is one JSON (or text) file replaced
// atomically on write. Reads never fail the caller: a missing or corrupt
// record yields its documented default and a warning.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/STRATINT/followbot/internal/models"
)

// File names inside the state directory.
const (
	CandidatesFile = "targets.json"
	ArchiveFile    = "already_followed.json"
	QuotaFile      = "follows_today.json"
	RefreshFile    = "last_follow_refresh.txt"
)

// FileStore is the file-backed state store.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore returns a store rooted at dir, creating it if needed.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

// LoadArchive returns the archive. Default: empty.
func (s *FileStore) LoadArchive() *Archive {
	var handles []string
	if !s.readJSON(ArchiveFile, &handles) {
		return NewArchive(nil)
	}
	return NewArchive(handles)
}

// SaveArchive overwrites the archive record.
func (s *FileStore) SaveArchive(a *Archive) error {
	return s.writeJSON(ArchiveFile, a.Handles())
}

// LoadCandidates returns the candidate set. Default: empty.
func (s *FileStore) LoadCandidates() models.CandidateSet {
	var set models.CandidateSet
	if !s.readJSON(CandidatesFile, &set) {
		return models.CandidateSet{}
	}
	return set
}

// SaveCandidates overwrites the candidate set record.
func (s *FileStore) SaveCandidates(set models.CandidateSet) error {
	if set == nil {
		set = models.CandidateSet{}
	}
	return s.writeJSON(CandidatesFile, set)
}

// LoadQuota returns the stored quota. Default: {today, 0}. No rollover is
// applied here; see scheduler.Controller.
func (s *FileStore) LoadQuota(today string) models.DailyQuota {
	var q models.DailyQuota
	if !s.readJSON(QuotaFile, &q) {
		return models.DailyQuota{Date: today}
	}
	if q.Count < 0 {
		s.logger.Warn("negative follow count on disk, resetting", "file", QuotaFile, "count", q.Count)
		q.Count = 0
	}
	return q
}

// SaveQuota overwrites the quota record.
func (s *FileStore) SaveQuota(q models.DailyQuota) error {
	return s.writeJSON(QuotaFile, q)
}

// LoadRefreshMarker returns the calendar day of the last discovery refresh,
// or false when discovery has never run (or the marker is unreadable).
func (s *FileStore) LoadRefreshMarker() (string, bool) {
	raw, err := os.ReadFile(s.path(RefreshFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", false
	}
	if err != nil {
		s.logger.Warn("failed to read refresh marker", "file", RefreshFile, "error", err)
		return "", false
	}

	day := strings.TrimSpace(string(raw))
	if _, err := time.Parse(models.DayLayout, day); err != nil {
		s.logger.Warn("corrupt refresh marker, treating as never refreshed", "file", RefreshFile, "error", err)
		return "", false
	}
	return day, true
}

// SaveRefreshMarker records day as the last refresh.
func (s *FileStore) SaveRefreshMarker(day string) error {
	return writeAtomic(s.path(RefreshFile), []byte(day))
}

// readJSON decodes name into v. It returns false, after logging, when the
// record is missing or cannot be decoded.
func (s *FileStore) readJSON(name string, v any) bool {
	raw, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return false
	}
	if err != nil {
		s.logger.Warn("failed to read state record, using default", "file", name, "error", err)
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		kept := s.quarantine(name)
		s.logger.Warn("corrupt state record, using default", "file", name, "kept_as", kept, "error", err)
		return false
	}
	return true
}

// quarantine moves a corrupt record aside so the next write cannot destroy
// whatever it still holds. It returns the new name, or "" if the move failed.
func (s *FileStore) quarantine(name string) string {
	kept := name + ".corrupt"
	if err := os.Rename(s.path(name), s.path(kept)); err != nil {
		s.logger.Warn("failed to keep corrupt state record", "file", name, "error", err)
		return ""
	}
	return kept
}

func (s *FileStore) writeJSON(name string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := writeAtomic(s.path(name), raw); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// writeAtomic replaces path with data via a synced temp file and rename, so
// a crash leaves either the old or the new record, never a torn one.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	success = true
	return nil
}
