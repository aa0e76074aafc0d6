// Package gsip implements a seekable reader over a gzip-compressed
// blob, given only an io.ReaderAt and the blob's size. The DEFLATE
// decoder underneath has no notion of seeking — it consumes compressed
// bytes strictly in order — so a ReadAt at an arbitrary offset must
// either replay decoding from the start or resume from a previously
// remembered point in the stream.
//
// Index contains the metadata used by [Reader] to skip around a gzip stream.
// The layout will absolutely change and break you if you depend on it.
package gsip

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jonjohnsonjr/inflate/inflate"
)

// checkpoint is a remembered point in the stream: an Inflater snapshot
// (via Clone), together with the compressed byte offset it had
// consumed and the decompressed byte offset it had produced at the
// time of the snapshot. Resuming from a checkpoint means re-opening the
// underlying blob at checkpoint.in and continuing to feed the cloned
// Inflater from there.
type checkpoint struct {
	in   int64
	out  int64
	snap *inflate.Inflater
}

// Index is the persisted form of a Reader's checkpoints: just the
// offset pairs, not the live decoder snapshots (those can't survive a
// process boundary, since hash.Hash32 and the Inflater's internal
// tables aren't serializable). Decode seeds a fresh Reader with these
// offsets; reads land on the nearest one at or before the requested
// offset and replay forward from there, the same as if no index had
// been loaded at all, just starting closer to the target.
type Index struct {
	Offsets []Offset
}

// Offset is one (compressed, decompressed) byte-offset pair recorded
// during indexing.
type Offset struct {
	In  int64
	Out int64
}

// Reader is a seekable io.ReaderAt over a gzip stream.
type Reader struct {
	ra   io.ReaderAt
	size int64

	mu          sync.Mutex
	checkpoints []checkpoint

	group singleflight.Group

	indexing errgroup.Group
}

// Encode writes the current set of remembered checkpoints as an Index.
// It does not wait for background indexing to finish first; call Wait
// beforehand if a complete index is wanted.
func (r *Reader) Encode(w io.Writer) error {
	r.mu.Lock()
	idx := Index{Offsets: make([]Offset, len(r.checkpoints))}
	for i, c := range r.checkpoints {
		idx.Offsets[i] = Offset{In: c.in, Out: c.out}
	}
	r.mu.Unlock()

	return json.NewEncoder(w).Encode(&idx)
}

// Wait blocks until the background indexing pass started by NewReader
// has finished walking the whole stream, returning any error it hit.
func (r *Reader) Wait() error {
	return r.indexing.Wait()
}

// Decode constructs a Reader seeded with a previously Encode-d Index.
// Each offset becomes a fresh checkpoint: the decoder itself is not
// restored (it can't be), so the first read that lands on one of these
// offsets pays the cost of replaying from that point in the stream
// rather than from byte zero.
func Decode(ra io.ReaderAt, size int64, index io.Reader) (*Reader, error) {
	var idx Index
	if err := json.NewDecoder(index).Decode(&idx); err != nil {
		return nil, err
	}

	r := &Reader{ra: ra, size: size}
	for _, off := range idx.Offsets {
		f, err := inflate.New(inflate.Gzip)
		if err != nil {
			return nil, err
		}
		r.checkpoints = append(r.checkpoints, checkpoint{in: off.In, out: off.Out, snap: f})
	}
	r.seedOrigin()
	r.indexing.Go(func() error { return r.buildIndex() })
	return r, nil
}

// NewReader constructs a Reader and kicks off a background pass that
// walks the entire stream once, recording checkpoints every
// checkpointInterval compressed bytes so that later ReadAt calls can
// resume near their target instead of always replaying from byte zero.
func NewReader(ra io.ReaderAt, size int64) (*Reader, error) {
	r := &Reader{ra: ra, size: size}
	r.seedOrigin()
	r.indexing.Go(func() error { return r.buildIndex() })
	return r, nil
}

// seedOrigin records the trivial checkpoint at the very start of the
// stream, so acquire always has somewhere to fall back to.
func (r *Reader) seedOrigin() {
	f, err := inflate.New(inflate.Gzip)
	if err != nil {
		// inflate.Gzip is always a valid Encoding; New cannot fail for it.
		panic(err)
	}
	r.checkpoints = append(r.checkpoints, checkpoint{in: 0, out: 0, snap: f})
}

// checkpointInterval is how many compressed bytes the background
// indexer lets a session decode before cloning it into a new
// checkpoint.
const checkpointInterval = 1 << 20

// buildIndex decodes the whole stream once from the start, recording a
// checkpoint every checkpointInterval compressed bytes consumed.
func (r *Reader) buildIndex() error {
	sr := io.NewSectionReader(r.ra, 0, r.size)
	src := bufio.NewReaderSize(sr, 1<<20)

	f, err := inflate.New(inflate.Gzip)
	if err != nil {
		return err
	}

	var in int64
	next := int64(checkpointInterval)
	buf := make([]byte, 32*1024)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, derr := f.Decompress(buf[:n]); derr != nil {
				return fmt.Errorf("gsip: indexing: %w", derr)
			}
			in += int64(n)
			if in >= next {
				r.mu.Lock()
				r.checkpoints = append(r.checkpoints, checkpoint{in: in, out: f.Produced(), snap: f.Clone()})
				r.mu.Unlock()
				next += checkpointInterval
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return nil
			}
			return rerr
		}
	}
}

// acquire picks the checkpoint with the greatest out offset not
// exceeding off, clones its snapshot, and returns a decoder plus the
// compressed-byte source positioned to continue feeding it.
func (r *Reader) acquire(off int64) (*inflate.Inflater, *bufio.Reader, error) {
	r.mu.Lock()
	best, ok := r.checkpoints[0], false
	for _, c := range r.checkpoints {
		if c.out > off {
			continue
		}
		if !ok || c.out > best.out {
			best, ok = c, true
		}
	}
	r.mu.Unlock()

	if !ok {
		return nil, nil, fmt.Errorf("gsip: no checkpoint at or before offset %d", off)
	}

	f := best.snap.Clone()
	sr := io.NewSectionReader(r.ra, best.in, r.size-best.in)
	src := bufio.NewReaderSize(sr, 1<<20)
	return f, src, nil
}

// ReadAt implements io.ReaderAt by resuming the nearest prior
// checkpoint, decoding forward, discarding bytes before off, and
// filling p with the bytes starting at off.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	key := fmt.Sprintf("%d:%d", off, len(p))
	v, err, _ := r.group.Do(key, func() (any, error) {
		f, src, err := r.acquire(off)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(p))
		n, ferr := fill(f, src, out, off)
		return out[:n], ferr
	})
	if err != nil {
		return 0, err
	}
	got := v.([]byte)
	n := copy(p, got)
	if n < len(p) {
		// io.ReaderAt convention (see bytes.Reader, os.File): a short
		// read at the end of the underlying data is reported as io.EOF,
		// not io.ErrUnexpectedEOF, so callers like io.SectionReader and
		// archive/tar see a clean end of stream.
		return n, io.EOF
	}
	return n, nil
}

// fill decodes forward from f/src until it has produced bytes starting
// at the absolute decompressed offset target, then fills p with as
// much of that as is available.
func fill(f *inflate.Inflater, src *bufio.Reader, p []byte, target int64) (int, error) {
	var pending []byte
	buf := make([]byte, 32*1024)

	for len(pending) < len(p) {
		n, rerr := src.Read(buf)
		if n > 0 {
			out, derr := f.Decompress(buf[:n])
			if derr != nil {
				return 0, derr
			}
			if len(out) > 0 {
				start := f.Produced() - int64(len(out))
				if f.Produced() > target {
					skip := target - start
					if skip < 0 {
						skip = 0
					}
					if skip < int64(len(out)) {
						pending = append(pending, out[skip:]...)
					}
				}
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			return 0, rerr
		}
	}

	return copy(p, pending), nil
}
