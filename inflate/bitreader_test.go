package inflate

import "testing"

func TestBitReaderLSBFirst(t *testing.T) {
	var br bitReader
	br.push([]byte{0x8d})

	v, err := br.readBits(4)
	if err != nil {
		t.Fatalf("readBits(4): %v", err)
	}
	if v != 0xd {
		t.Fatalf("first readBits(4) = %#x, want 0xd", v)
	}

	v, err = br.readBits(4)
	if err != nil {
		t.Fatalf("readBits(4): %v", err)
	}
	if v != 0x8 {
		t.Fatalf("second readBits(4) = %#x, want 0x8", v)
	}
}

func TestBitReaderNeedsMoreInput(t *testing.T) {
	var br bitReader
	if _, err := br.readBits(9); err != errNeedMoreInput {
		t.Fatalf("readBits(9) on empty reader = %v, want errNeedMoreInput", err)
	}

	br.push([]byte{0xff})
	if _, err := br.readBits(9); err != errNeedMoreInput {
		t.Fatalf("readBits(9) on 1 byte = %v, want errNeedMoreInput", err)
	}

	br.push([]byte{0x01})
	v, err := br.readBits(9)
	if err != nil {
		t.Fatalf("readBits(9): %v", err)
	}
	if v != 0x1ff {
		t.Fatalf("readBits(9) = %#x, want 0x1ff", v)
	}
}

func TestBitReaderByteAtATime(t *testing.T) {
	var br bitReader
	want := uint32(0)
	for i := 0; i < 3; i++ {
		br.push([]byte{0xff})
		br.compact()
		want |= 0xff << (8 * i)
	}
	v, err := br.readBits(24)
	if err != nil {
		t.Fatalf("readBits(24): %v", err)
	}
	if v != want {
		t.Fatalf("readBits(24) = %#x, want %#x", v, want)
	}
}

func TestBitReaderAlignAndNextByte(t *testing.T) {
	var br bitReader
	br.push([]byte{0xff, 0xab})

	if _, err := br.readBits(3); err != nil {
		t.Fatalf("readBits(3): %v", err)
	}
	br.align()

	b, ok := br.nextByte()
	if !ok {
		t.Fatalf("nextByte: ok = false")
	}
	if b != 0xab {
		t.Fatalf("nextByte = %#x, want 0xab", b)
	}
}
