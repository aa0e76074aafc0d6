package inflate

import (
	"encoding/binary"
	"hash"
	"hash/adler32"
	"hash/crc32"
)

// This file has no direct teacher precedent either: the retrieved
// teacher slice strips gzip externally via compress/gzip before ever
// reaching its flate decoder, so there was nothing to port the
// container-format handling from. It's built straight from RFC 1950
// (zlib) and RFC 1952 (gzip), using the same byte-at-a-time-safe
// accumulation style as the rest of the package: every multi-byte field
// is collected into a persistent slice that survives across Decompress
// calls, so a header or trailer split across arbitrarily many one-byte
// chunks still parses correctly.

type gzipStage int

const (
	gzMagic gzipStage = iota
	gzMethod
	gzFlags
	gzMtime
	gzXflOs
	gzExtraLen
	gzExtra
	gzName
	gzComment
	gzHCRC
	gzHeaderDone
)

const (
	gzFlagText    = 1 << 0
	gzFlagHCRC    = 1 << 1
	gzFlagExtra   = 1 << 2
	gzFlagName    = 1 << 3
	gzFlagComment = 1 << 4
)

// wrapperState holds the container-format parsing progress for whichever
// of Zlib or Gzip the Inflater was constructed with. Only the fields
// relevant to the active Encoding are ever touched.
type wrapperState struct {
	// zlib header: 2 bytes, CMF then FLG.
	zlibBuf []byte

	// gzip header.
	gzStage    gzipStage
	gzFlg      byte
	gzScratch  []byte // accumulates bytes of the field currently in progress
	gzExtraLen int
	gzExtraLeft int
	headerCRC  hash.Hash32 // running CRC-32 over header bytes, for FHCRC

	// trailer: zlib wants 4 bytes (Adler-32, big-endian); gzip wants 8
	// (CRC-32 then ISIZE, both little-endian).
	trailerBuf []byte
}

// stepHeader parses as much of the wrapper header as buffered input
// allows. It returns errNeedMoreInput if more bytes are needed.
func (f *Inflater) stepHeader() error {
	switch f.enc {
	case Raw:
		return nil
	case Zlib:
		return f.stepZlibHeader()
	case Gzip:
		return f.stepGzipHeader()
	default:
		return ErrInvalidEncoding
	}
}

func (f *Inflater) stepZlibHeader() error {
	for len(f.wrap.zlibBuf) < 2 {
		b, ok := f.br.nextByte()
		if !ok {
			return errNeedMoreInput
		}
		f.wrap.zlibBuf = append(f.wrap.zlibBuf, b)
	}

	cmf, flg := f.wrap.zlibBuf[0], f.wrap.zlibBuf[1]
	if cmf&0x0f != 8 {
		return ErrUnsupportedMethod
	}
	if cmf>>4 > 7 {
		return ErrBadHeader
	}
	if (uint16(cmf)<<8|uint16(flg))%31 != 0 {
		return ErrBadHeader
	}
	if flg&0x20 != 0 {
		return ErrUnsupported
	}

	f.checksum = adler32.New()
	return nil
}

func (f *Inflater) stepGzipHeader() error {
	if f.wrap.headerCRC == nil {
		f.wrap.headerCRC = crc32.NewIEEE()
	}

	readByte := func() (byte, bool) {
		b, ok := f.br.nextByte()
		if ok {
			f.wrap.headerCRC.Write([]byte{b})
		}
		return b, ok
	}

	for {
		switch f.wrap.gzStage {
		case gzMagic:
			for len(f.wrap.gzScratch) < 2 {
				b, ok := readByte()
				if !ok {
					return errNeedMoreInput
				}
				f.wrap.gzScratch = append(f.wrap.gzScratch, b)
			}
			if f.wrap.gzScratch[0] != 0x1f || f.wrap.gzScratch[1] != 0x8b {
				return ErrBadHeader
			}
			f.wrap.gzScratch = f.wrap.gzScratch[:0]
			f.wrap.gzStage = gzMethod

		case gzMethod:
			b, ok := readByte()
			if !ok {
				return errNeedMoreInput
			}
			if b != 8 {
				return ErrUnsupportedMethod
			}
			f.wrap.gzStage = gzFlags

		case gzFlags:
			b, ok := readByte()
			if !ok {
				return errNeedMoreInput
			}
			f.wrap.gzFlg = b
			f.wrap.gzStage = gzMtime

		case gzMtime:
			for len(f.wrap.gzScratch) < 4 {
				b, ok := readByte()
				if !ok {
					return errNeedMoreInput
				}
				f.wrap.gzScratch = append(f.wrap.gzScratch, b)
			}
			f.wrap.gzScratch = f.wrap.gzScratch[:0]
			f.wrap.gzStage = gzXflOs

		case gzXflOs:
			for len(f.wrap.gzScratch) < 2 {
				b, ok := readByte()
				if !ok {
					return errNeedMoreInput
				}
				f.wrap.gzScratch = append(f.wrap.gzScratch, b)
			}
			f.wrap.gzScratch = f.wrap.gzScratch[:0]
			if f.wrap.gzFlg&gzFlagExtra != 0 {
				f.wrap.gzStage = gzExtraLen
			} else {
				f.wrap.gzStage = gzName
			}

		case gzExtraLen:
			for len(f.wrap.gzScratch) < 2 {
				b, ok := readByte()
				if !ok {
					return errNeedMoreInput
				}
				f.wrap.gzScratch = append(f.wrap.gzScratch, b)
			}
			f.wrap.gzExtraLen = int(binary.LittleEndian.Uint16(f.wrap.gzScratch))
			f.wrap.gzExtraLeft = f.wrap.gzExtraLen
			f.wrap.gzScratch = f.wrap.gzScratch[:0]
			f.wrap.gzStage = gzExtra

		case gzExtra:
			for f.wrap.gzExtraLeft > 0 {
				if _, ok := readByte(); !ok {
					return errNeedMoreInput
				}
				f.wrap.gzExtraLeft--
			}
			if f.wrap.gzFlg&gzFlagName != 0 {
				f.wrap.gzStage = gzName
			} else if f.wrap.gzFlg&gzFlagComment != 0 {
				f.wrap.gzStage = gzComment
			} else {
				f.wrap.gzStage = gzHCRC
			}

		case gzName:
			if f.wrap.gzFlg&gzFlagName != 0 {
				for {
					b, ok := readByte()
					if !ok {
						return errNeedMoreInput
					}
					if b == 0 {
						break
					}
				}
			}
			if f.wrap.gzFlg&gzFlagComment != 0 {
				f.wrap.gzStage = gzComment
			} else {
				f.wrap.gzStage = gzHCRC
			}

		case gzComment:
			for {
				b, ok := readByte()
				if !ok {
					return errNeedMoreInput
				}
				if b == 0 {
					break
				}
			}
			f.wrap.gzStage = gzHCRC

		case gzHCRC:
			if f.wrap.gzFlg&gzFlagHCRC != 0 {
				want := f.wrap.headerCRC.Sum32() & 0xffff
				for len(f.wrap.gzScratch) < 2 {
					b, ok := f.br.nextByte() // not fed into headerCRC: the field excludes itself
					if !ok {
						return errNeedMoreInput
					}
					f.wrap.gzScratch = append(f.wrap.gzScratch, b)
				}
				got := uint32(binary.LittleEndian.Uint16(f.wrap.gzScratch))
				f.wrap.gzScratch = f.wrap.gzScratch[:0]
				if got != want {
					return ErrBadHeader
				}
			}
			f.wrap.gzStage = gzHeaderDone
			f.checksum = crc32.NewIEEE()
			return nil

		case gzHeaderDone:
			return nil
		}
	}
}

// stepTrailer validates the wrapper trailer against the running
// checksum (and, for gzip, the decompressed byte count), per §4.3.
func (f *Inflater) stepTrailer() error {
	switch f.enc {
	case Raw:
		return nil
	case Zlib:
		return f.stepZlibTrailer()
	case Gzip:
		return f.stepGzipTrailer()
	default:
		return ErrInvalidEncoding
	}
}

func (f *Inflater) stepZlibTrailer() error {
	for len(f.wrap.trailerBuf) < 4 {
		b, ok := f.br.nextByte()
		if !ok {
			return errNeedMoreInput
		}
		f.wrap.trailerBuf = append(f.wrap.trailerBuf, b)
	}
	want := binary.BigEndian.Uint32(f.wrap.trailerBuf)
	if f.checksum.Sum32() != want {
		return ErrChecksumMismatch
	}
	return nil
}

func (f *Inflater) stepGzipTrailer() error {
	for len(f.wrap.trailerBuf) < 8 {
		b, ok := f.br.nextByte()
		if !ok {
			return errNeedMoreInput
		}
		f.wrap.trailerBuf = append(f.wrap.trailerBuf, b)
	}
	wantCRC := binary.LittleEndian.Uint32(f.wrap.trailerBuf[0:4])
	wantSize := binary.LittleEndian.Uint32(f.wrap.trailerBuf[4:8])
	if f.checksum.Sum32() != wantCRC {
		return ErrChecksumMismatch
	}
	if uint32(f.win.total()) != wantSize {
		return ErrChecksumMismatch
	}
	return nil
}
