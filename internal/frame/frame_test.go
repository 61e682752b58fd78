package frame

import (
	"bytes"
	"testing"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    string
	}{
		{"simple", []byte("STATUS\r\n"), "[UART_COM][START]STATUS\r\n[UART_COM][END]"},
		{"empty", nil, "[UART_COM][START][UART_COM][END]"},
		{"binary", []byte{0x00, 0xFF, 0x7F}, "[UART_COM][START]\x00\xff\x7f[UART_COM][END]"},
	}
	for _, tc := range tests {
		if got := Build(tc.payload); string(got) != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestIndexEnd(t *testing.T) {
	tests := []struct {
		name string
		buf  string
		want int
	}{
		{"atTail", "OK[UART_COM][END]", 2},
		{"atStart", "[UART_COM][END]junk", 0},
		{"absent", "OK so far", -1},
		{"tooShort", "[UART_COM][EN", -1},
		{"firstOfTwo", "[UART_COM][END]x[UART_COM][END]", 0},
	}
	for _, tc := range tests {
		if got := IndexEnd([]byte(tc.buf)); got != tc.want {
			t.Fatalf("%s: IndexEnd = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestDecodeStream_Chunked(t *testing.T) {
	want := [][]byte{
		[]byte("STATUS\r\n"),
		[]byte(""),
		[]byte("SET BAUD 9600"),
		[]byte("binary\x00\xffpayload"),
	}

	// Continuous wire stream with noise between frames.
	stream := []byte("line-noise")
	for _, p := range want {
		stream = append(stream, Build(p)...)
		stream = append(stream, "garbage"...)
	}

	var buf bytes.Buffer
	var got [][]byte

	// Feed in irregular small chunks to stress delimiter alignment & partials.
	chunkSizes := []int{1, 2, 3, 5, 7, 11, 13}
	cs := 0
	for pos := 0; pos < len(stream); {
		n := chunkSizes[cs%len(chunkSizes)]
		cs++
		if pos+n > len(stream) {
			n = len(stream) - pos
		}
		buf.Write(stream[pos : pos+n])
		pos += n
		DecodeStream(&buf, func(p []byte) { got = append(got, p) })
	}

	if len(got) != len(want) {
		t.Fatalf("decoded %d frames, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Fatalf("frame %d mismatch: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestDecodeStream_IncompleteFrameStaysBuffered(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("[UART_COM][START]no end yet")
	called := 0
	DecodeStream(&buf, func([]byte) { called++ })
	if called != 0 {
		t.Fatalf("incomplete frame must not be emitted")
	}
	buf.WriteString("[UART_COM][END]")
	var got []byte
	DecodeStream(&buf, func(p []byte) { called++; got = append([]byte(nil), p...) })
	if called != 1 || string(got) != "no end yet" {
		t.Fatalf("got called=%d payload=%q", called, got)
	}
}

func TestDecodeStream_NoiseOnlyKeepsSplitStartTail(t *testing.T) {
	var buf bytes.Buffer
	// Ends with a partial Start delimiter split across chunks.
	buf.WriteString("noise noise [UART_CO")
	DecodeStream(&buf, func([]byte) { t.Fatal("no frame expected") })

	buf.WriteString("M][START]ping[UART_COM][END]")
	var got []byte
	DecodeStream(&buf, func(p []byte) { got = append([]byte(nil), p...) })
	if string(got) != "ping" {
		t.Fatalf("split start delimiter lost: got %q", got)
	}
}

func TestCompactBuffer(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(make([]byte, 8*1024))
	buf.Next(8 * 1024)
	// 1.5KiB unread riding on the 8KiB backing array recovered above.
	buf.Write(bytes.Repeat([]byte{0xAB}, 1500))
	if !CompactBuffer(&buf) {
		t.Fatal("expected compaction of oversized buffer")
	}
	if buf.Len() != 1500 {
		t.Fatalf("unread bytes lost: %d", buf.Len())
	}
	for _, b := range buf.Bytes() {
		if b != 0xAB {
			t.Fatal("unread bytes corrupted by compaction")
		}
	}
	small := bytes.NewBufferString("tiny")
	if CompactBuffer(small) {
		t.Fatal("small buffers must not be compacted")
	}
}
