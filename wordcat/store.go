package wordcat

import (
	"os"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"
)

// Save writes the matrix to path in msgpack format.
func Save(path string, m *Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create matrix file %q", path)
	}
	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(m); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to encode matrix to %q", path)
	}
	return errors.Wrapf(f.Close(), "failed to close matrix file %q", path)
}

// Load reads a matrix previously written by Save.
func Load(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open matrix file %q", path)
	}
	defer func() { _ = f.Close() }()

	dec := msgpack.NewDecoder(f)
	m := &Matrix{}
	if err := dec.Decode(m); err != nil {
		return nil, errors.Wrapf(err, "failed to decode matrix from %q", path)
	}
	return m, nil
}
