// Package store persists one ranked scan result file per calendar day.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"SmartPick/internal/model"
)

var (
	// ErrNoData is returned when no result file exists for the request.
	ErrNoData = errors.New("no scan result available")
	// ErrInvalidDate is returned for dates not in YYYYMMDD form.
	ErrInvalidDate = errors.New("date must be YYYYMMDD")
)

const (
	filePrefix = "smart_pick_"
	fileSuffix = ".json"
)

var datePattern = regexp.MustCompile(`^\d{8}$`)

// Store reads and writes result files under a single directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir. The directory is created on first save.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the result directory.
func (s *Store) Dir() string { return s.dir }

// Save writes result to the file for its run date and returns the path.
// Later cycles on the same day replace the file.
func (s *Store) Save(result *model.ScanResult) (string, error) {
	if result == nil {
		return "", errors.New("nil scan result")
	}
	path := s.pathFor(result.Timestamp.Format("20060102"))
	if err := WriteJSON(path, result); err != nil {
		return "", fmt.Errorf("save scan result: %w", err)
	}
	return path, nil
}

// LoadLatest returns the newest result file's contents.
func (s *Store) LoadLatest() (*model.ScanResult, error) {
	dates, err := s.ListDates()
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, ErrNoData
	}
	return s.LoadByDate(dates[0])
}

// LoadByDate returns the result saved for the given YYYYMMDD date.
func (s *Store) LoadByDate(date string) (*model.ScanResult, error) {
	if !datePattern.MatchString(date) {
		return nil, ErrInvalidDate
	}
	var result model.ScanResult
	if err := ReadJSON(s.pathFor(date), &result); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("load scan result %s: %w", date, err)
	}
	return &result, nil
}

// ListDates returns the dates that have a result file, newest first.
func (s *Store) ListDates() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list result dir: %w", err)
	}
	var dates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		date := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		if datePattern.MatchString(date) {
			dates = append(dates, date)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

func (s *Store) pathFor(date string) string {
	return filepath.Join(s.dir, filePrefix+date+fileSuffix)
}
