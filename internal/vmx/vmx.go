// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package vmx reads and writes the line oriented key = "value" files
// VMware uses for VM descriptors (.vmx) and their companion snapshot
// metadata (.vmsd).
//
// Keys are case insensitive. Order and comments are preserved when a
// file is read, modified and written back. Characters that cannot
// appear verbatim inside a quoted value are escaped as |XX, XX being
// the hexadecimal byte value, which is how VMware itself escapes them.
package vmx

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/utils/v4"
)

const encodingKey = ".encoding"

type line struct {
	// key is empty for comments and blank lines, which are kept
	// verbatim in raw.
	key   string
	value string
	raw   string
}

// File is an ordered collection of descriptor entries.
type File struct {
	lines []line
	index map[string]int
}

// New returns an empty file carrying the UTF-8 encoding marker.
func New() *File {
	f := &File{index: make(map[string]int)}
	f.Set(encodingKey, "UTF-8")
	return f
}

// Parse reads a descriptor from r.
func Parse(r io.Reader) (*File, error) {
	f := &File{index: make(map[string]int)}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			f.lines = append(f.lines, line{raw: raw})
			continue
		}
		pos := strings.IndexByte(trimmed, '=')
		if pos < 1 {
			return nil, errors.NotValidf("line %d %q", lineNo, raw)
		}
		key := strings.TrimSpace(trimmed[:pos])
		value, err := unquote(strings.TrimSpace(trimmed[pos+1:]))
		if err != nil {
			return nil, errors.Annotatef(err, "line %d", lineNo)
		}
		f.set(key, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	return f, nil
}

// Read parses the descriptor at path.
func Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.NotFoundf("descriptor %q", path)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	f, err := Parse(bytes.NewReader(data))
	return f, errors.Annotatef(err, "parsing %q", path)
}

// Write atomically replaces the file at path with f.
func Write(path string, f *File) error {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return errors.Trace(err)
	}
	return errors.Annotatef(utils.AtomicWriteFile(path, buf.Bytes(), 0644), "writing %q", path)
}

// Get returns the value stored under key.
func (f *File) Get(key string) (string, bool) {
	i, ok := f.index[strings.ToLower(key)]
	if !ok {
		return "", false
	}
	return f.lines[i].value, true
}

// Set stores value under key, replacing any existing value in place.
func (f *File) Set(key, value string) {
	f.set(key, value)
}

func (f *File) set(key, value string) {
	lower := strings.ToLower(key)
	if i, ok := f.index[lower]; ok {
		f.lines[i].value = value
		return
	}
	f.index[lower] = len(f.lines)
	f.lines = append(f.lines, line{key: key, value: value})
}

// Delete removes key if present.
func (f *File) Delete(key string) {
	lower := strings.ToLower(key)
	i, ok := f.index[lower]
	if !ok {
		return
	}
	f.lines = append(f.lines[:i], f.lines[i+1:]...)
	delete(f.index, lower)
	for k, j := range f.index {
		if j > i {
			f.index[k] = j - 1
		}
	}
}

// Keys returns the keys in file order.
func (f *File) Keys() []string {
	var keys []string
	for _, l := range f.lines {
		if l.key != "" {
			keys = append(keys, l.key)
		}
	}
	return keys
}

// WriteTo implements io.WriterTo.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, l := range f.lines {
		var s string
		if l.key == "" {
			s = l.raw + "\n"
		} else {
			s = fmt.Sprintf("%s = %s\n", l.key, quote(l.value))
		}
		n, err := io.WriteString(w, s)
		total += int64(n)
		if err != nil {
			return total, errors.Trace(err)
		}
	}
	return total, nil
}

// GetValue reads a single value from the descriptor at path.
func GetValue(path, key string) (string, error) {
	f, err := Read(path)
	if err != nil {
		return "", errors.Trace(err)
	}
	value, ok := f.Get(key)
	if !ok {
		return "", errors.NotFoundf("key %q in %q", key, path)
	}
	return value, nil
}

// SetValue stores a single value in the descriptor at path, creating
// the file if it does not exist yet.
func SetValue(path, key, value string) error {
	f, err := Read(path)
	if errors.Is(err, errors.NotFound) {
		f = New()
	} else if err != nil {
		return errors.Trace(err)
	}
	f.Set(key, value)
	return Write(path, f)
}

func quote(value string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c == '"' || c == '|' || c == '#' || c < 0x20 {
			fmt.Fprintf(&b, "|%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}

func unquote(value string) (string, error) {
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		value = value[1 : len(value)-1]
	}
	if !strings.Contains(value, "|") {
		return value, nil
	}
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		if value[i] != '|' {
			b.WriteByte(value[i])
			continue
		}
		if i+2 >= len(value) {
			return "", errors.NotValidf("escape sequence in %q", value)
		}
		c, err := strconv.ParseUint(value[i+1:i+3], 16, 8)
		if err != nil {
			return "", errors.NotValidf("escape sequence in %q", value)
		}
		b.WriteByte(byte(c))
		i += 2
	}
	return b.String(), nil
}
