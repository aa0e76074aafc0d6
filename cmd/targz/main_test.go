package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"io/fs"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonjohnsonjr/inflate/gsip"
	"github.com/jonjohnsonjr/inflate/ranger"
	"github.com/jonjohnsonjr/inflate/tarfs"
)

// buildTarGz synthesizes a small .tar.gz in memory with a handful of
// files of varying size, so the end-to-end stack below has something
// realistic to chew on without depending on fixtures on disk.
func buildTarGz(rng *rand.Rand) []byte {
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)

	names := []string{"README.md", "cmd/targz/main.go", "a/b/c/d.txt", "big.bin"}
	sizes := []int{128, 4096, 17, 300 * 1024}
	for i, name := range names {
		content := make([]byte, sizes[i])
		for j := range content {
			content[j] = byte(rng.IntN(256))
		}
		if err := tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Size:     int64(len(content)),
			Mode:     0644,
		}); err != nil {
			panic(err)
		}
		if _, err := tw.Write(content); err != nil {
			panic(err)
		}
	}
	if err := tw.Close(); err != nil {
		panic(err)
	}

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	if _, err := gw.Write(tarBuf.Bytes()); err != nil {
		panic(err)
	}
	if err := gw.Close(); err != nil {
		panic(err)
	}
	return gzBuf.Bytes()
}

// TestTargz exercises the full domain stack end to end: a range-read
// HTTP client feeding a seekable gzip reader, mounted as a tar
// filesystem, compared file-by-file against the same tar mounted
// directly from the uncompressed bytes.
func TestTargz(t *testing.T) {
	rng := rand.New(rand.NewPCG(29, 31))
	tarGz := buildTarGz(rng)

	mux := http.NewServeMux()
	mux.HandleFunc("/archive.tar.gz", func(w http.ResponseWriter, req *http.Request) {
		http.ServeContent(w, req, "archive.tar.gz", time.Time{}, bytes.NewReader(tarGz))
	})
	s := httptest.NewServer(mux)
	defer s.Close()

	gzr, err := gzip.NewReader(bytes.NewReader(tarGz))
	if err != nil {
		t.Fatal(err)
	}
	plainTar, err := io.ReadAll(gzr)
	if err != nil {
		t.Fatal(err)
	}

	ra := ranger.New(context.Background(), s.URL+"/archive.tar.gz", s.Client().Transport)

	zr, err := gsip.NewReader(ra, int64(len(plainTar)))
	if err != nil {
		t.Fatal(err)
	}

	hfs, err := tarfs.New(zr, int64(len(plainTar)))
	if err != nil {
		t.Fatal(err)
	}

	ffs, err := tarfs.New(bytes.NewReader(plainTar), int64(len(plainTar)))
	if err != nil {
		t.Fatal(err)
	}

	if err := fs.WalkDir(ffs, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		want, err := ffs.Open(p)
		if err != nil {
			t.Fatal(err)
		}
		got, err := hfs.Open(p)
		if err != nil {
			t.Fatal(err)
		}

		b1, err := io.ReadAll(want)
		if err != nil {
			t.Fatal(err)
		}
		b2, err := io.ReadAll(got)
		if err != nil {
			t.Fatal(err)
		}

		if !bytes.Equal(b1, b2) {
			t.Errorf("mismatched contents: %q", p)
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
}
