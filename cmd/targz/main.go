// Command targz mounts a local .tar.gz file as a read-only filesystem
// without fully decompressing it first: the gzip stream is indexed
// once in the background, and directory listings and file reads are
// served by seeking into that index instead of replaying the whole
// archive for every access.
package main

import (
	"fmt"
	"io/fs"
	"log"
	"os"

	"golang.org/x/exp/mmap"

	"github.com/jonjohnsonjr/inflate/gsip"
	"github.com/jonjohnsonjr/inflate/tarfs"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: targz <path-to-tar.gz>")
	}

	ra, err := mmap.Open(args[0])
	if err != nil {
		return err
	}
	defer ra.Close()

	size := int64(ra.Len())

	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}
	if info.Size() != size {
		return fmt.Errorf("mmap length %d does not match file size %d", size, info.Size())
	}

	zr, err := gsip.NewReader(ra, size)
	if err != nil {
		return err
	}

	// tarfs.New wants the size of the decompressed tar stream, which we
	// don't know until the gzip trailer is reached. Passing a negative
	// size tells it to discover EOF on its own instead.
	fsys, err := tarfs.New(zr, -1)
	if err != nil {
		return err
	}

	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		fmt.Printf("%10d %s\n", info.Size(), p)
		return nil
	})
}
