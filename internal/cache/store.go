package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"TickerFeed/internal/model"
)

// namespace seeds the name-based UUIDs used as file names, so that the same
// instrument key always maps to the same file.
var namespace = uuid.MustParse("6f1f3b1e-6a59-4d43-9a4e-0c2f4f9d7a11")

// Store persists one fixed-size series blob per (instrument, timeframe).
type Store struct {
	dir string
}

// Open creates the cache directory if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create cache dir: %v", model.ErrPersistence, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file that holds the series for key and tf.
func (s *Store) Path(key string, tf model.Timeframe) string {
	name := uuid.NewSHA1(namespace, []byte(key)).String() + "_" + tf.String() + ".bin"
	return filepath.Join(s.dir, name)
}

// Save writes the series atomically: a temp file renamed over the target.
func (s *Store) Save(key string, tf model.Timeframe, series model.Series) error {
	blob, err := series.MarshalBinary()
	if err != nil {
		return fmt.Errorf("%w: encode: %v", model.ErrPersistence, err)
	}
	path := s.Path(key, tf)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", model.ErrPersistence, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: rename %s: %v", model.ErrPersistence, path, err)
	}
	return nil
}

// Load returns the saved series. Missing, truncated, invalid or otherwise
// inconsistent files are all reported as a miss.
func (s *Store) Load(key string, tf model.Timeframe) (model.Series, bool) {
	series, err := s.read(key, tf)
	if err != nil {
		return model.Series{}, false
	}
	return series, true
}

func (s *Store) read(key string, tf model.Timeframe) (model.Series, error) {
	var series model.Series
	data, err := os.ReadFile(s.Path(key, tf))
	if err != nil {
		return series, fmt.Errorf("%w: %v", model.ErrPersistence, err)
	}
	if err := series.UnmarshalBinary(data); err != nil {
		return model.Series{}, err
	}
	if !series.Consistent() {
		return model.Series{}, fmt.Errorf("%w: inconsistent series", model.ErrPersistence)
	}
	return series, nil
}
