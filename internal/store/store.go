// Package store persists downloaded bodies without ever clobbering a file
// that already holds different content.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TempSuffix is appended to the target name for the comparison copy.
const TempSuffix = ".tmp"

// Kind tells what Write did.
type Kind int

const (
	// WrittenNew means the target did not exist and was created.
	WrittenNew Kind = iota
	// SkippedIdentical means the target already held the same bytes.
	SkippedIdentical
	// WrittenRenamed means the target held other bytes and the content
	// went to a numbered sibling.
	WrittenRenamed
)

func (k Kind) String() string {
	switch k {
	case WrittenNew:
		return "written"
	case SkippedIdentical:
		return "skipped-identical"
	case WrittenRenamed:
		return "written-renamed"
	default:
		return "unknown"
	}
}

// Outcome is the result of one Write.
type Outcome struct {
	Kind Kind
	// Path is where the content lives now.
	Path string
}

// Message is the line printed for the user.
func (o Outcome) Message() string {
	switch o.Kind {
	case WrittenNew:
		return "File downloaded: " + o.Path
	case SkippedIdentical:
		return fmt.Sprintf("File %s already exists with same content, skipping.", o.Path)
	case WrittenRenamed:
		return "File content differs. Saved as: " + o.Path
	default:
		return o.Path
	}
}

// Write stores content under name.
//
// If name is free the content is written there. Otherwise the content is
// staged in name+TempSuffix and compared byte for byte with the existing
// file: identical content drops the staged copy, different content is
// renamed to the first free name_N sibling. The file at name is never
// modified once it exists.
func Write(name string, content []byte) (Outcome, error) {
	created, err := createNew(name, content)
	if err != nil {
		return Outcome{}, err
	}
	if created {
		return Outcome{Kind: WrittenNew, Path: name}, nil
	}

	tmp := name + TempSuffix
	if err := writeTemp(tmp, content); err != nil {
		return Outcome{}, err
	}
	same, err := SameContent(name, tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return Outcome{}, err
	}
	if same {
		if err := os.Remove(tmp); err != nil {
			return Outcome{}, fmt.Errorf("remove temp file: %w", err)
		}
		return Outcome{Kind: SkippedIdentical, Path: name}, nil
	}
	target := UniqueName(name)
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return Outcome{}, fmt.Errorf("rename temp file: %w", err)
	}
	return Outcome{Kind: WrittenRenamed, Path: target}, nil
}

// writeTemp stages content in tmp. A tmp that cannot be opened is left
// alone; one this call opened is removed again if the write fails.
func writeTemp(tmp string, content []byte) error {
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open temp file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	return nil
}

// createNew writes content to name only if name does not exist yet.
// It reports false, nil when the name is taken.
func createNew(name string, content []byte) (bool, error) {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		_ = os.Remove(name)
		return false, fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return false, fmt.Errorf("close file: %w", err)
	}
	return true, nil
}

// SameContent reads both files in full and compares them.
func SameContent(a, b string) (bool, error) {
	da, err := os.ReadFile(a)
	if err != nil {
		return false, fmt.Errorf("compare: %w", err)
	}
	db, err := os.ReadFile(b)
	if err != nil {
		return false, fmt.Errorf("compare: %w", err)
	}
	return bytes.Equal(da, db), nil
}

// UniqueName returns name if nothing exists there, otherwise the first of
// stem_1.ext, stem_2.ext, ... that is free. The extension is the part
// after the last dot of the base name; dotfiles have none.
func UniqueName(name string) string {
	if !exists(name) {
		return name
	}
	dir, base := filepath.Split(name)
	stem, ext := splitExt(base)
	for i := 1; ; i++ {
		candidate := dir + stem + "_" + strconv.Itoa(i) + ext
		if !exists(candidate) {
			return candidate
		}
	}
}

func splitExt(base string) (string, string) {
	i := strings.LastIndexByte(base, '.')
	if i <= 0 {
		return base, ""
	}
	return base[:i], base[i:]
}

func exists(name string) bool {
	_, err := os.Lstat(name)
	return err == nil
}
