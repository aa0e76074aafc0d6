package inflate

import "hash"

// Encoding selects which container format, if any, wraps the DEFLATE
// bitstream an Inflater decodes.
type Encoding int

const (
	// Raw decodes a bare RFC 1951 DEFLATE stream with no wrapper.
	Raw Encoding = iota
	// Zlib decodes an RFC 1950 zlib stream: a 2-byte header, a DEFLATE
	// stream, and a 4-byte Adler-32 trailer.
	Zlib
	// Gzip decodes an RFC 1952 gzip stream: a variable-length header, a
	// DEFLATE stream, and an 8-byte CRC-32 + size trailer.
	Gzip
)

// Inflater decompresses a DEFLATE, zlib, or gzip stream supplied in
// arbitrarily sized, arbitrarily chunked pieces. Unlike compress/flate's
// Reader, it never reads from or blocks on an io.Reader: every byte it
// needs must be handed to it through Decompress, and every byte it can
// produce from what it's been given so far comes back from that same
// call. The zero value is not usable; construct one with New.
//
// An Inflater is not safe for concurrent use.
type Inflater struct {
	enc  Encoding
	ph   phase
	br   bitReader
	win  window
	susp suspension
	wrap wrapperState

	checksum hash.Hash32 // nil until the wrapper header has been parsed; nil forever for Raw

	emit []byte // bytes produced during the call to Decompress currently in progress

	fatal error // sticky error from a previous call, returned again by any later call
}

// New constructs an Inflater for the given Encoding. enc must be one of
// Raw, Zlib, or Gzip.
func New(enc Encoding) (*Inflater, error) {
	switch enc {
	case Raw, Zlib, Gzip:
	default:
		return nil, ErrInvalidEncoding
	}
	f := &Inflater{enc: enc}
	if enc == Raw {
		f.ph = phaseBlocks
	} else {
		f.ph = phaseHeader
	}
	return f, nil
}

// Produced reports the total number of decompressed bytes this Inflater
// has produced since construction, including bytes compacted out of the
// window. Callers that need to resume decoding from an arbitrary point
// (for example, a seekable reader built on top of an Inflater) use this
// together with Clone to remember where a given snapshot picks up.
func (f *Inflater) Produced() int64 {
	return f.win.total()
}

// Clone returns an independent deep copy of f that can keep decoding on
// its own without affecting f. This is how a caller builds a seekable
// reader on top of an otherwise strictly-forward decoder: periodically
// clone the Inflater, remember how many compressed bytes had been fed
// to it at that point, and later resume decoding from a clone instead
// of the live stream.
//
// The clone's wrapper checksum, if any, is discarded: a checksum begun
// on the original before the clone point cannot be continued correctly
// from the clone alone (hash.Hash32 exposes no way to export or import
// its running state), so a clone that goes on to reach the stream's
// trailer will skip checksum validation rather than fail on bytes it
// never actually saw. Decoding forward from the very start of a stream
// still gets full validation, since nothing is ever cloned there.
func (f *Inflater) Clone() *Inflater {
	clone := *f
	clone.br.pending = append([]byte(nil), f.br.pending...)
	clone.win.buf = append([]byte(nil), f.win.buf...)
	clone.emit = nil
	clone.checksum = nil

	if f.susp.litTree == &f.susp.pre.litTree {
		clone.susp.litTree = &clone.susp.pre.litTree
	}
	if f.susp.distTree == &f.susp.pre.distTree {
		clone.susp.distTree = &clone.susp.pre.distTree
	}
	if f.susp.pre.lens != nil {
		clone.susp.pre.lens = append([]int(nil), f.susp.pre.lens...)
	}

	return &clone
}

// produce appends a single decompressed byte to both the output window
// (for future back-references) and this call's emit buffer, and folds
// it into the running wrapper checksum if one is active. Every byte
// that ever leaves an Inflater, whether a literal or part of a
// back-reference copy, passes through here exactly once, which is what
// keeps the checksum correct regardless of where within a Decompress
// call the wrapper trailer happens to be validated.
func (f *Inflater) produce(b byte) {
	f.win.append(b)
	f.emit = append(f.emit, b)
	if f.checksum != nil {
		f.checksum.Write([]byte{b})
	}
}

// Decompress feeds chunk to the Inflater and returns every decompressed
// byte that chunk allowed it to produce. chunk may be empty, may be any
// length, and need not align with any boundary of the underlying
// compressed format — not a DEFLATE block, not a Huffman code, not even
// a single bit. Feeding the same compressed stream to Decompress one
// byte at a time produces byte-for-byte the same output as feeding it
// in one call.
//
// Once Decompress has returned nil for the stream's final trailer byte
// (or, for Raw, its final DEFLATE byte), the stream is done: any
// further call with a non-empty chunk returns ErrStreamClosed. A
// non-nil error from Decompress is sticky; every later call returns the
// same error.
func (f *Inflater) Decompress(chunk []byte) ([]byte, error) {
	if f.fatal != nil {
		return nil, f.fatal
	}
	if f.ph == phaseDone {
		if len(chunk) > 0 {
			return nil, ErrStreamClosed
		}
		return nil, nil
	}

	f.br.push(chunk)
	f.emit = f.emit[:0]

	err := f.run()
	f.br.compact()
	f.win.compact()

	if err == errNeedMoreInput {
		return f.emit, nil
	}
	if err != nil {
		f.fatal = err
		return f.emit, err
	}
	return f.emit, nil
}

// run advances through header, block-stream, and trailer phases as far
// as buffered input allows, stopping only at errNeedMoreInput or a
// terminal condition.
func (f *Inflater) run() error {
	if f.ph == phaseHeader {
		if err := f.stepHeader(); err != nil {
			return err
		}
		f.ph = phaseBlocks
	}

	if f.ph == phaseBlocks {
		if err := f.stepBlocks(); err != nil {
			return err
		}
		if f.enc == Raw {
			f.ph = phaseDone
			return nil
		}
		f.ph = phaseTrailer
	}

	if f.ph == phaseTrailer {
		if err := f.stepTrailer(); err != nil {
			return err
		}
		f.ph = phaseDone
	}

	return nil
}
