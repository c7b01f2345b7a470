package calibration

import (
	"os"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"
)

// Save writes the table to path in msgpack format. The per-length counts and
// sums are stored rather than the means, so saved tables stay mergeable.
func Save(path string, table *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create calibration file %q", path)
	}
	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(table.stats); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to encode calibration table to %q", path)
	}
	return errors.Wrapf(f.Close(), "failed to close calibration file %q", path)
}

// Load reads a table previously written by Save.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open calibration file %q", path)
	}
	defer func() { _ = f.Close() }()

	dec := msgpack.NewDecoder(f)
	var stats map[int]lengthStats
	if err := dec.Decode(&stats); err != nil {
		return nil, errors.Wrapf(err, "failed to decode calibration table from %q", path)
	}
	if stats == nil {
		stats = make(map[int]lengthStats)
	}
	return &Table{stats: stats}, nil
}
