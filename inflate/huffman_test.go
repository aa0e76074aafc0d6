package inflate

import "testing"

func TestHuffmanDecoderSingleSymbol(t *testing.T) {
	var h huffmanDecoder
	if !h.init([]int{1}) {
		t.Fatal("init([]int{1}) = false, want true")
	}

	var br bitReader
	br.push([]byte{0x00})
	sym, err := decodeSymbol(&br, &h, 0)
	if err != nil {
		t.Fatalf("decodeSymbol: %v", err)
	}
	if sym != 0 {
		t.Fatalf("decodeSymbol = %d, want 0", sym)
	}
}

func TestHuffmanDecoderEmptyTree(t *testing.T) {
	var h huffmanDecoder
	if !h.init([]int{0, 0, 0}) {
		t.Fatal("init on all-zero lengths = false, want true")
	}

	var br bitReader
	br.push([]byte{0xff})
	if _, err := decodeSymbol(&br, &h, 0); err == nil {
		t.Fatal("decodeSymbol on empty tree succeeded, want error")
	}
}

func TestHuffmanDecoderRejectsIncompleteCode(t *testing.T) {
	var h huffmanDecoder
	// Two symbols of length 2 alone can't form a complete code: only 2 of
	// the 4 two-bit sequences would be assigned.
	if h.init([]int{2, 2}) {
		t.Fatal("init on under-subscribed lengths = true, want false")
	}
}

func TestHuffmanDecoderTwoOneBitCodes(t *testing.T) {
	// Two symbols of length 1: codes 0 and 1. Leading zeros still matter
	// here in spirit — a 1-bit code must never be confused with a longer
	// code that happens to share low bits — even though both codes in
	// this particular tree are the same length.
	var h huffmanDecoder
	if !h.init([]int{1, 1}) {
		t.Fatal("init([]int{1, 1}) = false, want true")
	}

	var br bitReader
	// bit0 (read first) = 1 -> symbol 1; bit1 (read second) = 0 -> symbol 0.
	br.push([]byte{0x01})

	got, err := decodeSymbol(&br, &h, 0)
	if err != nil {
		t.Fatalf("decodeSymbol #1: %v", err)
	}
	if got != 1 {
		t.Fatalf("decodeSymbol #1 = %d, want 1", got)
	}

	got, err = decodeSymbol(&br, &h, 0)
	if err != nil {
		t.Fatalf("decodeSymbol #2: %v", err)
	}
	if got != 0 {
		t.Fatalf("decodeSymbol #2 = %d, want 0", got)
	}
}

func TestFixedTrees(t *testing.T) {
	lit, dist := fixedTrees()
	if lit.min == 0 {
		t.Fatal("fixed literal/length tree is empty")
	}
	if dist.min == 0 {
		t.Fatal("fixed distance tree is empty")
	}
}
