package models

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the layout used for FileRecord.Modified.
const TimestampLayout = "2006-01-02 15:04:05"

// KiB is a file size in kibibytes, rounded to two decimals.
type KiB float64

// SizeToKiB converts a byte count to KiB rounded to two decimals. Exact
// halves round to even, so 128 bytes is 0.12.
func SizeToKiB(size int64) KiB {
	return KiB(math.RoundToEven(float64(size)/1024*100) / 100)
}

// String renders the size with at least one fractional digit, e.g. "10.0".
func (k KiB) String() string {
	s := strconv.FormatFloat(float64(k), 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (k KiB) MarshalJSON() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *KiB) UnmarshalJSON(data []byte) error {
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid size %s: %w", data, err)
	}
	*k = KiB(v)
	return nil
}

// Timestamp is a modification time serialized as "YYYY-MM-DD HH:MM:SS" in local time.
type Timestamp struct {
	time.Time
}

func (t Timestamp) String() string {
	return t.Local().Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	parsed, err := time.ParseInLocation(TimestampLayout, s, time.Local)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// FileRecord is the metadata snapshot of one indexed file
type FileRecord struct {
	Name      string    `json:"name"`
	RelPath   string    `json:"rel_path"`
	AbsPath   string    `json:"abs_path"`
	SizeKiB   KiB       `json:"size_kb"`
	Modified  Timestamp `json:"modified"`
	Extension string    `json:"extension"`
}

// NewFileRecord builds a record for the file at relPath (relative to the scan root).
func NewFileRecord(relPath, absPath string, size int64, modTime time.Time) FileRecord {
	name := filepath.Base(relPath)
	return FileRecord{
		Name:      name,
		RelPath:   relPath,
		AbsPath:   absPath,
		SizeKiB:   SizeToKiB(size),
		Modified:  Timestamp{modTime.Truncate(time.Second)},
		Extension: strings.ToLower(filepath.Ext(name)),
	}
}

// SectionKey identifies one issue directory: period / year / issue.
type SectionKey struct {
	Period string
	Year   string
	Issue  string
}

func (k SectionKey) String() string {
	return k.Period + "/" + k.Year + "/" + k.Issue
}

// KeyFromRelDir returns the section key for a directory path relative to the
// scan root. Directories with fewer than three segments have no key; segments
// past the third are ignored.
func KeyFromRelDir(relDir string) (SectionKey, bool) {
	relDir = filepath.Clean(relDir)
	if relDir == "." || relDir == "" {
		return SectionKey{}, false
	}
	parts := strings.Split(relDir, string(filepath.Separator))
	if len(parts) < 3 {
		return SectionKey{}, false
	}
	return SectionKey{Period: parts[0], Year: parts[1], Issue: parts[2]}, true
}
