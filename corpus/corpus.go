// Package corpus reads reference sentences from line-oriented text files,
// one sentence per line.
package corpus

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// File is a restartable view over a sentence file: every pass reopens the
// file, so the same corpus can feed multiple passes.
type File struct {
	path string
}

// Open checks that path exists and wraps it as a corpus. The file is not
// held open between passes.
func Open(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open corpus %q", path)
	}
	if info.IsDir() {
		return nil, errors.Errorf("corpus %q is a directory, expected a sentence file", path)
	}
	return &File{path: path}, nil
}

// Each calls fn once per non-blank line, in file order. The first error from
// fn stops the pass and is returned unchanged.
func (f *File) Each(fn func(sentence string) error) error {
	file, err := os.Open(f.path)
	if err != nil {
		return errors.Wrapf(err, "failed to reopen corpus %q", f.path)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		sentence := strings.TrimSpace(scanner.Text())
		if sentence == "" {
			continue
		}
		if err := fn(sentence); err != nil {
			return err
		}
	}
	return errors.Wrapf(scanner.Err(), "failed to read corpus %q", f.path)
}

// Count returns the number of non-blank lines. It runs its own pass, so it
// can be called before or after Each.
func (f *File) Count() (int, error) {
	var n int
	err := f.Each(func(string) error {
		n++
		return nil
	})
	return n, err
}
