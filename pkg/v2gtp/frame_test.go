package v2gtp

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// chunkReader hands out its data in fixed-size chunks and reports
// wouldBlock once the current chunk budget is exhausted.
type chunkReader struct {
	data   []byte
	chunk  int
	budget int
	eof    bool
}

func (r *chunkReader) Read(p []byte) (int, bool, error) {
	if len(r.data) == 0 {
		if r.eof {
			return 0, false, io.EOF
		}
		return 0, true, nil
	}
	if r.budget == 0 {
		return 0, true, nil
	}
	n := min(len(p), len(r.data), r.chunk, r.budget)
	copy(p, r.data[:n])
	r.data = r.data[n:]
	r.budget -= n
	return n, false, nil
}

func encodeFrame(t *testing.T, pt PayloadType, payload []byte) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := WriteFrame(buf, pt, payload); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	return buf.Bytes()
}

func TestWriteFrameHeader(t *testing.T) {
	data := encodeFrame(t, PayloadCommon, []byte{0xAA, 0xBB, 0xCC})

	want := []byte{0x01, 0xFE, 0x80, 0x02, 0x00, 0x00, 0x00, 0x03, 0xAA, 0xBB, 0xCC}
	if !bytes.Equal(data, want) {
		t.Errorf("frame = % X, want % X", data, want)
	}
	if FrameSize(3) != len(want) {
		t.Errorf("FrameSize(3) = %d, want %d", FrameSize(3), len(want))
	}
}

func TestFrameReadComplete(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		chunk   int
	}{
		{"single read", []byte("hello"), 1024},
		{"byte by byte", []byte("hello world"), 1},
		{"header split", bytes.Repeat([]byte{0x42}, 100), 3},
		{"empty payload", []byte{}, 16},
		{"max payload", bytes.Repeat([]byte{0x7F}, DefaultMaxPayloadSize), 4096},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &chunkReader{data: encodeFrame(t, PayloadDC, tt.payload), chunk: tt.chunk, budget: -1}
			r.budget = len(r.data)

			f := NewFrame()
			wouldBlock, err := f.ReadFrom(r)
			if err != nil {
				t.Fatalf("ReadFrom failed: %v", err)
			}
			if wouldBlock {
				t.Fatal("ReadFrom reported wouldBlock with all bytes available")
			}
			if !f.Complete() {
				t.Fatal("frame not complete")
			}
			if f.Header.PayloadType != PayloadDC {
				t.Errorf("payload type = %v, want %v", f.Header.PayloadType, PayloadDC)
			}
			if !bytes.Equal(f.Payload, tt.payload) {
				t.Errorf("payload mismatch: got %d bytes, want %d", len(f.Payload), len(tt.payload))
			}
		})
	}
}

func TestFrameShortBufferNeverCompletes(t *testing.T) {
	full := encodeFrame(t, PayloadCommon, bytes.Repeat([]byte{0x11}, 32))

	for cut := 0; cut < len(full); cut++ {
		r := &chunkReader{data: full, chunk: 5, budget: cut}
		f := NewFrame()

		wouldBlock, err := f.ReadFrom(r)
		if err != nil {
			t.Fatalf("cut=%d: unexpected error %v", cut, err)
		}
		if !wouldBlock {
			t.Fatalf("cut=%d: expected wouldBlock", cut)
		}
		if f.Complete() {
			t.Fatalf("cut=%d: frame complete with %d of %d bytes", cut, cut, len(full))
		}

		// Resolve the deficit: the same frame resumes and completes.
		r.budget = len(full) - cut
		wouldBlock, err = f.ReadFrom(r)
		if err != nil || wouldBlock || !f.Complete() {
			t.Fatalf("cut=%d: resume failed: wouldBlock=%v err=%v complete=%v", cut, wouldBlock, err, f.Complete())
		}
	}
}

func TestFramePayloadTooLarge(t *testing.T) {
	var hdr [HeaderSize]byte
	PutHeader(hdr[:], PayloadCommon, 1025)

	f := NewFrameWithMaxSize(1024)
	_, err := f.ReadFrom(&chunkReader{data: hdr[:], chunk: 64, budget: HeaderSize})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}

	// The frame stays failed until reset.
	_, err = f.ReadFrom(&chunkReader{})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState after failure, got %v", err)
	}
}

func TestFrameInvalidHeader(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
	}{
		{"wrong version", []byte{0x02, 0xFD, 0x80, 0x02, 0, 0, 0, 1}},
		{"wrong inverse", []byte{0x01, 0xFF, 0x80, 0x02, 0, 0, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFrame()
			_, err := f.ReadFrom(&chunkReader{data: tt.header, chunk: 8, budget: 8})
			if !errors.Is(err, ErrInvalidHeader) {
				t.Errorf("expected ErrInvalidHeader, got %v", err)
			}
		})
	}
}

func TestFrameReadAfterComplete(t *testing.T) {
	data := encodeFrame(t, PayloadSAP, []byte{1, 2})
	f := NewFrame()
	if _, err := f.ReadFrom(&chunkReader{data: data, chunk: 64, budget: len(data)}); err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}

	_, err := f.ReadFrom(&chunkReader{})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}

	f.Reset()
	if f.Complete() || f.Payload != nil {
		t.Error("Reset did not empty the frame")
	}
}

func TestFrameConnectionClosedMidFrame(t *testing.T) {
	data := encodeFrame(t, PayloadCommon, []byte("abcdef"))
	r := &chunkReader{data: data[:10], chunk: 64, budget: 10, eof: true}

	f := NewFrame()
	_, err := f.ReadFrom(r)
	if !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestPayloadTypeString(t *testing.T) {
	if PayloadSAP.String() != "SAP" {
		t.Errorf("PayloadSAP.String() = %q", PayloadSAP.String())
	}
	if PayloadType(0x1234).String() != "0x1234" {
		t.Errorf("unknown payload type string = %q", PayloadType(0x1234).String())
	}
}
