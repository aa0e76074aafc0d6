// Copyright 2023 Chainguard, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tarfs presents the entries of a tar stream as a read-only
// fs.FS, without ever holding the whole archive in memory: each File
// is an io.SectionReader over the caller's io.ReaderAt, positioned at
// the header's recorded offset. This is what lets cmd/targz walk and
// read out of a gsip.Reader (or any other io.ReaderAt) without first
// decompressing the archive to disk.
package tarfs

import (
	"archive/tar"
	"bufio"
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"path"
	"slices"
	"strings"
	"time"
)

// errSymlinkLoop is the sentinel wrapped by SymlinkLoopError.
var errSymlinkLoop = errors.New("tarfs: too many symlink hops")

// SymlinkLoopError reports that resolving Name chased more than
// maxHops symlinks without landing on a regular entry, which almost
// always means a cycle. It satisfies errors.Is(err, ErrSymlinkLoop).
type SymlinkLoopError struct {
	Name string
	Hops int
}

func (e *SymlinkLoopError) Error() string {
	return fmt.Sprintf("tarfs: opening %q: chased %d symlinks without resolving", e.Name, e.Hops)
}

func (e *SymlinkLoopError) Unwrap() error { return errSymlinkLoop }

// ErrSymlinkLoop is the sentinel underlying every SymlinkLoopError.
var ErrSymlinkLoop = errSymlinkLoop

// maxHops bounds how many symlink hops open will chase before giving
// up, the same way ranger.maxRedirects bounds HTTP redirect chasing.
// Linux's own MAXSYMLINKS is 40; this is generously larger so we don't
// second-guess a deep but legitimate chain, while still refusing to
// spin forever on a cycle.
const maxHops = 255

// Entry is one tar header plus the byte offset, within the backing
// io.ReaderAt, where its content begins.
type Entry struct {
	Header tar.Header
	Offset int64

	Filename string
	dir      string
	fi       fs.FileInfo
}

func (e Entry) Name() string { return e.fi.Name() }
func (e Entry) Size() int64  { return e.Header.Size }
func (e Entry) Type() fs.FileMode { return e.fi.Mode().Type() }
func (e Entry) IsDir() bool  { return e.fi.IsDir() }

func (e Entry) Info() (fs.FileInfo, error) { return e.fi, nil }

// File is an open handle onto one Entry's content, or onto a
// directory's listing.
type File struct {
	Entry *Entry

	fsys *FS
	sr   *io.SectionReader

	// cursor tracks progress through ReadDir when it's called
	// repeatedly with a positive n instead of all at once.
	cursor int
}

func (f *File) Stat() (fs.FileInfo, error) { return f.Entry.fi, nil }
func (f *File) Read(p []byte) (int, error) { return f.sr.Read(p) }
func (f *File) ReadAt(p []byte, off int64) (int, error) { return f.sr.ReadAt(p, off) }
func (f *File) Seek(offset int64, whence int) (int64, error) { return f.sr.Seek(offset, whence) }
func (f *File) Close() error { return nil }

func (f *File) ReadDir(n int) ([]fs.DirEntry, error) {
	if n == 0 {
		return nil, nil
	}

	entries, err := f.fsys.ReadDir(f.Entry.Filename)
	if err != nil {
		return nil, err
	}

	if f.cursor >= len(entries) {
		if n < 0 {
			return nil, nil
		}
		return nil, io.EOF
	}

	if n > 0 && len(entries)-f.cursor > n {
		batch := entries[f.cursor : f.cursor+n]
		f.cursor += n
		return batch, nil
	}

	rest := entries[f.cursor:]
	f.cursor = len(entries)
	return rest, nil
}

// FS is a read-only fs.FS backed by a tar stream already scanned by
// New or Decode.
type FS struct {
	ra    io.ReaderAt
	files []*Entry
	index map[string]int
	dirs  map[string][]fs.DirEntry
}

// Readlink returns the link target recorded for name, if name is a
// symlink or hardlink entry.
func (fsys *FS) Readlink(name string) (string, error) {
	e, err := fsys.Entry(name)
	if err != nil {
		return "", err
	}

	switch e.Header.Typeflag {
	case tar.TypeSymlink, tar.TypeLink:
		return e.Header.Linkname, nil
	}

	return "", fmt.Errorf("tarfs: Readlink(%q): not a link", name)
}

// ancestors yields each "/"-delimited prefix of name, innermost last,
// so open can check whether some parent directory is itself a
// symlink that needs resolving first.
func ancestors(name string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for i, c := range name {
			if c == '/' {
				if !yield(name[:i]) {
					return
				}
			}
		}
	}
}

// open resolves name to a concrete (non-symlink) entry, following
// symlinked files, hardlinks, and symlinked parent directories, up to
// maxHops deep.
func (fsys *FS) open(name string, hops int) (fs.File, error) {
	if hops > maxHops {
		return nil, &SymlinkLoopError{Name: name, Hops: maxHops}
	}

	e, err := fsys.Entry(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// name itself isn't an entry; maybe a directory somewhere in
			// its path is a symlink, and name needs rewriting relative to
			// where that symlink actually points.
			for dir := range ancestors(name) {
				parent, err := fsys.Entry(dir)
				if err != nil || parent.Header.Typeflag != tar.TypeSymlink {
					continue
				}

				rest := strings.TrimPrefix(name, dir)
				link := parent.Header.Linkname
				if path.IsAbs(link) {
					return fsys.open(normalize(path.Join(link, rest)), hops+1)
				}
				return fsys.open(path.Join(parent.dir, link, rest), hops+1)
			}
		}
		return nil, err
	}

	switch e.Header.Typeflag {
	case tar.TypeSymlink, tar.TypeLink:
		link := e.Header.Linkname
		if path.IsAbs(link) || e.Header.Typeflag == tar.TypeLink {
			return fsys.open(normalize(link), hops+1)
		}
		return fsys.open(path.Join(e.dir, link), hops+1)
	}

	return &File{
		Entry: e,
		fsys:  fsys,
		sr:    io.NewSectionReader(fsys.ra, e.Offset, e.Header.Size),
	}, nil
}

// Open implements fs.FS.
func (fsys *FS) Open(name string) (fs.File, error) {
	if name == "." {
		return &File{
			Entry: &Entry{
				dir:      ".",
				Filename: ".",
				Header:   tar.Header{Name: "."},
				fi:       rootInfo{},
			},
			fsys: fsys,
			sr:   io.NewSectionReader(bytes.NewReader(nil), 0, 0),
		}, nil
	}

	return fsys.open(name, 0)
}

// rootInfo synthesizes the fs.FileInfo for "." when the tar stream
// itself carries no entry for its own root.
type rootInfo struct{}

func (rootInfo) Name() string       { return "." }
func (rootInfo) Size() int64        { return 0 }
func (rootInfo) Mode() fs.FileMode  { return fs.ModeDir }
func (rootInfo) ModTime() time.Time { return time.Unix(0, 0) }
func (rootInfo) IsDir() bool        { return true }
func (rootInfo) Sys() any           { return nil }

func (fsys *FS) Stat(name string) (fs.FileInfo, error) {
	if i, ok := fsys.index[name]; ok {
		if e := fsys.files[i]; e != nil {
			return e.fi, nil
		}
	}

	// fs.WalkDir always stats "." first to bootstrap the walk; synthesize
	// it if the tar stream never named its own root explicitly.
	if name == "." {
		return rootInfo{}, nil
	}

	return nil, fs.ErrNotExist
}

func (fsys *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	entries, ok := fsys.dirs[name]
	if !ok {
		return []fs.DirEntry{}, nil
	}
	return entries, nil
}

// countingReader wraps a bufio.Reader to track how many bytes have
// been consumed from it, which is how New and Index learn each
// entry's content offset without seeking the underlying stream.
type countingReader struct {
	r *bufio.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}

// New scans a tar stream once, from the beginning of ra, recording
// each entry's header and content offset so later Opens can seek
// straight to it. size bounds how much of ra to scan; a negative size
// means the caller doesn't know where the stream ends, and New reads
// until the tar reader itself reports EOF.
func New(ra io.ReaderAt, size int64) (*FS, error) {
	if size < 0 {
		size = 1<<63 - 1
	}

	cr := &countingReader{r: bufio.NewReaderSize(io.NewSectionReader(ra, 0, size), 1<<20)}
	tr := tar.NewReader(cr)

	fsys := &FS{
		ra:    ra,
		files: []*Entry{},
		index: map[string]int{},
		dirs:  map[string][]fs.DirEntry{},
	}

	perDir := map[string]int{}
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tarfs: scanning tar stream: %w", err)
		}

		name := normalize(hdr.Name)
		dir := path.Dir(name)

		fsys.index[name] = len(fsys.files)
		fsys.files = append(fsys.files, &Entry{
			Header:   *hdr,
			Offset:   cr.n,
			Filename: name,
			dir:      dir,
			fi:       hdr.FileInfo(),
		})
		perDir[dir]++
	}

	for dir, count := range perDir {
		fsys.dirs[dir] = make([]fs.DirEntry, 0, count)
	}
	for _, e := range fsys.files {
		fsys.dirs[e.dir] = append(fsys.dirs[e.dir], e)
	}
	for _, entries := range fsys.dirs {
		slices.SortFunc(entries, func(a, b fs.DirEntry) int {
			return cmp.Compare(a.Name(), b.Name())
		})
	}

	return fsys, nil
}

// Entry returns the scanned header and offset for the exact path
// name, without following symlinks the way Open does.
func (fsys *FS) Entry(name string) (*Entry, error) {
	i, ok := fsys.index[name]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return fsys.files[i], nil
}

// Encode writes the scanned table of contents as JSON, so a later
// process can reconstruct the same FS with Decode without rescanning
// the tar stream.
func (fsys *FS) Encode(w io.Writer) error {
	return json.NewEncoder(w).Encode(&TOC{Entries: fsys.files})
}

// Decode reconstructs an FS from a TOC previously written by Encode,
// paired with an io.ReaderAt over the same tar content.
func Decode(ra io.ReaderAt, r io.Reader) (*FS, error) {
	var toc TOC
	if err := json.NewDecoder(r).Decode(&toc); err != nil {
		return nil, fmt.Errorf("tarfs: decoding table of contents: %w", err)
	}

	fsys := &FS{
		ra:    ra,
		files: toc.Entries,
		index: make(map[string]int, len(toc.Entries)),
	}
	for i, e := range fsys.files {
		e.fi = e.Header.FileInfo()
		fsys.index[e.Filename] = i
	}
	return fsys, nil
}

// TOC is the JSON-serializable form of an FS's scanned entries.
type TOC struct {
	Entries []*Entry
}

// normalize strips the leading "/" or "./" and any trailing "/" from a
// tar header name, matching the path form fs.FS expects.
func normalize(s string) string {
	return strings.TrimPrefix(strings.TrimPrefix(strings.TrimSuffix(s, "/"), "/"), "./")
}

// Index scans a tar stream from r and returns each entry's header and
// content offset, without building a full FS. It's meant for callers
// that already have an offset-aware remote reader (for example, one
// built from gsip plus ranger) but want to compute the offsets from a
// local, fully-decompressed copy first.
func Index(r io.Reader) ([]*Entry, error) {
	cr := &countingReader{r: bufio.NewReaderSize(r, 1<<20)}
	tr := tar.NewReader(cr)

	var entries []*Entry
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("tarfs: indexing tar stream: %w", err)
		}

		name := normalize(hdr.Name)
		entries = append(entries, &Entry{
			Header:   *hdr,
			Offset:   cr.n,
			Filename: name,
			dir:      path.Dir(name),
			fi:       hdr.FileInfo(),
		})
	}

	return entries, nil
}
