package wordcloud

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// ErrNotFound signals that no rendered artifact or no date-named group
// directory exists. It is an absence outcome, not a failure.
var ErrNotFound = errors.New("wordcloud not found")

// Group directories named by date sort correctly as text, which is what
// makes lexicographic "latest" resolution valid.
var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// LatestGroup resolves the most recent date-named group directory under
// root: the lexicographically-maximum name matching YYYY-MM-DD.
// Directories with other names are ignored.
func LatestGroup(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read wordcloud root: %w", err)
	}

	var latest string
	for _, entry := range entries {
		if !entry.IsDir() || !datePattern.MatchString(entry.Name()) {
			continue
		}
		if entry.Name() > latest {
			latest = entry.Name()
		}
	}
	if latest == "" {
		return "", ErrNotFound
	}
	return latest, nil
}

// LatestImage resolves the newest rendered file (by modification time)
// inside the group's directory.
func LatestImage(root, group string) (string, error) {
	dir := filepath.Join(root, group)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read group directory: %w", err)
	}

	var (
		latest   string
		latestAt time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestAt) {
			latest = entry.Name()
			latestAt = info.ModTime()
		}
	}
	if latest == "" {
		return "", ErrNotFound
	}
	return filepath.Join(dir, latest), nil
}
