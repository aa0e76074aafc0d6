package inflate

// phase identifies where in the overall stream an Inflater currently is:
// still parsing a wrapper header, in the middle of the DEFLATE block
// stream, validating a wrapper trailer, or done. It is the outermost
// level of the suspension record and is always present, even when a
// finer-grained suspension below it also applies.
type phase int

const (
	phaseHeader phase = iota
	phaseBlocks
	phaseTrailer
	phaseDone
)

// suspensionKind tags which atomic operation within the block stream was
// interrupted. This, together with the stage structs below, is the
// explicit, inspectable alternative to a resumable closure or goroutine:
// a suspended Inflater can always say exactly which field it was
// assembling and how far it had gotten, because that information lives
// in ordinary struct fields rather than on a parked call stack.
//
// suspendNone doubles as "at a block header, nothing pending": reading
// the 3-bit BFINAL+BTYPE field is itself a single atomic readBits(3),
// so there's no partial-header progress worth naming a stage of its
// own — it either completes and moves to one of the stages below, or
// reports errNeedMoreInput having consumed nothing durable yet.
type suspensionKind int

const (
	suspendNone suspensionKind = iota
	suspendStored          // inside a stored (BTYPE=00) block
	suspendDynamicPreamble // reading a dynamic block's HLIT/HDIST/HCLEN + code-length tree + the two literal/distance length vectors
	suspendHuffmanBody     // inside a fixed or dynamic Huffman block's literal/length/distance loop
)

// storedStage records progress through a stored block, whose layout is
// BFINAL/BTYPE header (already consumed), LEN (16 bits), NLEN (16 bits),
// then LEN raw bytes, per §3.2.4.
type storedStage int

const (
	storedReadLen storedStage = iota
	storedReadNlen
	storedCopy
)

// huffStage records progress through the literal/length/distance decode
// loop shared by fixed (BTYPE=01) and dynamic (BTYPE=10) Huffman blocks,
// per §3.2.5 and §3.2.6.
type huffStage int

const (
	huffReadSymbol huffStage = iota // decoding the next literal/length symbol
	huffReadLengthExtra             // reading the extra bits for a length code 257-285
	huffReadDistSymbol              // decoding the distance symbol
	huffReadDistExtra               // reading the extra bits for the distance code
	huffCopyMatch                   // copying a back-reference into the window, possibly across calls
)

// preStage records progress through a dynamic block's preamble, per
// §3.2.7: the three length counts, the code-length code's own 19 lengths
// (3 bits each, in the permuted order of codeLengthOrder), then the
// combined HLIT+257+HDIST+1 literal/distance code lengths, which are
// themselves Huffman-coded using the code-length tree and may repeat via
// symbols 16 (copy previous 3-6 times), 17 (repeat zero 3-10 times), or
// 18 (repeat zero 11-138 times).
type preStage int

const (
	preReadCounts preStage = iota
	preReadCodeLengthLengths
	preReadCodeLengths
)

// dynamicPreamble accumulates the state needed to reconstruct a dynamic
// block's two Huffman trees across however many Decompress calls it
// takes to receive all of HLIT+HDIST+HCLEN+2 entries.
type dynamicPreamble struct {
	stage preStage

	hlit  int // number of literal/length codes - 257
	hdist int // number of distance codes - 1
	hclen int // number of code length codes - 4

	clIdx    int      // next index into codeLengthOrder to fill
	clLens   [19]int  // code-length-code lengths, in symbol order (0..18)
	clTree   huffmanDecoder

	lens     []int // combined literal/length + distance code lengths being filled in, length hlit+257+hdist+1
	lensIdx  int   // next index of lens to fill

	litTree  huffmanDecoder // owns the literal/length tree once built from lens
	distTree huffmanDecoder // owns the distance tree once built from lens

	// repeat tracks an in-progress 16/17/18 repeat symbol that may itself
	// straddle a call boundary between decoding the symbol and reading its
	// extra bits.
	repeatSym   int  // 16, 17, or 18; 0 if not currently expanding a repeat
	repeatExtra uint // number of extra bits still needed for repeatSym
}

// suspension is the complete, explicit record of where within the block
// stream an Inflater paused for lack of input. Exactly one of the stage
// fields is meaningful, selected by kind; the others retain whatever
// they last held and must be ignored. Keeping this as a plain tagged
// struct (rather than a captured continuation) means a suspended
// Inflater's entire resumption point is visible by inspecting its
// fields — there is nothing parked on a goroutine stack to lose.
type suspension struct {
	kind suspensionKind

	final bool // BFINAL bit of the block currently in progress
	btype uint32

	stored storedStage
	left   uint32 // stored block: remaining LEN, or NLEN before comparison
	nlen   uint32

	huff      huffStage
	lengthSym int    // literal/length symbol most recently decoded (257-285) while reading its extra bits
	length    int    // resolved match length
	distSym   int    // distance symbol most recently decoded while reading its extra bits
	distance  int    // resolved match distance
	remaining int    // bytes of the current match still to copy

	// litTree and distTree point at the trees in effect for the block
	// currently being decoded: either the shared fixed trees (BTYPE=01)
	// or freshly built ones owned by pre (BTYPE=10). Pointers, not
	// values, so resuming a suspended block never copies a 2KiB chunk
	// table.
	litTree  *huffmanDecoder
	distTree *huffmanDecoder

	pre dynamicPreamble
}
