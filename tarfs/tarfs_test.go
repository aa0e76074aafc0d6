package tarfs

import (
	"archive/tar"
	"bytes"
	"io/fs"
	"testing"
	"testing/fstest"
)

func TestFS(t *testing.T) {
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)

	dirs := []string{"inflate", "inflate/internal", "gsip", "gsip/internal"}
	for _, d := range dirs {
		if err := tw.WriteHeader(&tar.Header{Name: d, Typeflag: tar.TypeDir}); err != nil {
			t.Fatal(err)
		}
	}

	files := map[string]string{
		"inflate/huffman.go":       "package inflate",
		"inflate/internal/bits.go": "package internal",
		"gsip/gsip.go":             "package gsip",
		"gsip/internal/checkpoint.go": "package internal",
	}
	for name, content := range files {
		if err := tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Size:     int64(len(content)),
		}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}

	fsys, err := New(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}

	if err := fstest.TestFS(fsys,
		"inflate",
		"inflate/internal",
		"inflate/huffman.go",
		"inflate/internal/bits.go",
		"gsip",
		"gsip/internal",
		"gsip/gsip.go",
		"gsip/internal/checkpoint.go"); err != nil {
		t.Fatal(err)
	}
}

func TestSymlinkedDirs(t *testing.T) {
	buf := &bytes.Buffer{}

	tw := tar.NewWriter(buf)

	want := "pretend this is a binary"

	tw.WriteHeader(&tar.Header{
		Name:     "usr",
		Typeflag: tar.TypeDir,
	})
	tw.WriteHeader(&tar.Header{
		Name:     "usr/bin",
		Typeflag: tar.TypeDir,
	})
	tw.WriteHeader(&tar.Header{
		Name:     "usr/bin/binary",
		Typeflag: tar.TypeReg,
		Size:     int64(len(want)),
	})
	tw.Write([]byte(want))
	tw.WriteHeader(&tar.Header{
		Name:     "weird",
		Typeflag: tar.TypeDir,
	})
	tw.WriteHeader(&tar.Header{
		Name:     "weird/linked",
		Typeflag: tar.TypeSymlink,
		Linkname: "/usr/bin",
	})
	tw.WriteHeader(&tar.Header{
		Name:     "weird/absolute",
		Typeflag: tar.TypeDir,
	})
	tw.WriteHeader(&tar.Header{
		Name:     "weird/absolute/binary",
		Typeflag: tar.TypeSymlink,
		Linkname: "/weird/linked/binary",
	})
	tw.WriteHeader(&tar.Header{
		Name:     "weird/relative",
		Typeflag: tar.TypeDir,
	})
	tw.WriteHeader(&tar.Header{
		Name:     "weird/relative/binary",
		Typeflag: tar.TypeSymlink,
		Linkname: "../linked/binary",
	})

	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}

	fsys, err := New(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{
		"weird/linked/binary",
		"weird/absolute/binary",
	} {
		if b, err := fs.ReadFile(fsys, name); err != nil {
			t.Fatalf("ReadFile(%q): %v", name, err)
		} else if string(b) != want {
			t.Fatalf("want %q, got %q", want, b)
		}
	}
}
