package inflate

import "sync"

// codeLengthOrder is the order in which a dynamic block's 19 code-length
// code lengths appear in the stream, per §3.2.7. Index i of the stream
// gives the length of code-length-code codeLengthOrder[i].
var codeLengthOrder = [19]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

// lengthBase and lengthExtraBits give, for length symbols 257-285 (index
// 0-28), the base match length and the number of extra bits that follow
// the symbol to be added to it, per the table in §3.2.5. Symbols 286 and
// 287 never appear in this table; they're rejected before indexing it.
var lengthBase = [29]int{
	3, 4, 5, 6, 7, 8, 9, 10, 11, 13,
	15, 17, 19, 23, 27, 31, 35, 43, 51, 59,
	67, 83, 99, 115, 131, 163, 195, 227, 258,
}

var lengthExtraBits = [29]uint{
	0, 0, 0, 0, 0, 0, 0, 0, 1, 1,
	1, 1, 2, 2, 2, 2, 3, 3, 3, 3,
	4, 4, 4, 4, 5, 5, 5, 5, 0,
}

// distanceBase and distanceExtraBits give, for distance symbols 0-29,
// the base distance and number of extra bits, per §3.2.5. Symbols 30 and
// 31 are reserved and rejected as ErrInvalidDistance before indexing.
var distanceBase = [30]int{
	1, 2, 3, 4, 5, 7, 9, 13, 17, 25,
	33, 49, 65, 97, 129, 193, 257, 385, 513, 769,
	1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577,
}

var distanceExtraBits = [30]uint{
	0, 0, 0, 0, 1, 1, 2, 2, 3, 3,
	4, 4, 5, 5, 6, 6, 7, 7, 8, 8,
	9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
}

var (
	fixedLiteralTree  huffmanDecoder
	fixedDistanceTree huffmanDecoder
	fixedOnce         sync.Once
)

// fixedTrees lazily builds the two fixed Huffman trees of §3.2.6, shared
// by every BTYPE=01 block decoded by the process. The literal/length
// lengths follow the fixed assignment straight out of the RFC: 8 bits
// for symbols 0-143, 9 bits for 144-255, 7 bits for 256-279, 8 bits for
// 280-287. The 30 distance codes are all fixed at 5 bits.
func fixedTrees() (*huffmanDecoder, *huffmanDecoder) {
	fixedOnce.Do(func() {
		var litLengths [288]int
		for i := 0; i < 144; i++ {
			litLengths[i] = 8
		}
		for i := 144; i < 256; i++ {
			litLengths[i] = 9
		}
		for i := 256; i < 280; i++ {
			litLengths[i] = 7
		}
		for i := 280; i < 288; i++ {
			litLengths[i] = 8
		}
		if !fixedLiteralTree.init(litLengths[:]) {
			panic("inflate: fixed literal/length tree is malformed")
		}

		var distLengths [30]int
		for i := range distLengths {
			distLengths[i] = 5
		}
		if !fixedDistanceTree.init(distLengths[:]) {
			panic("inflate: fixed distance tree is malformed")
		}
	})
	return &fixedLiteralTree, &fixedDistanceTree
}
