package protocol

import (
	"errors"
	"io"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	f := &Frame{
		Type:    FramePatches,
		Flags:   FlagSequenced | FlagFinal,
		Payload: []byte("payload"),
	}

	buf, err := f.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := DecodeFrame(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.Type != FramePatches {
		t.Errorf("expected type Patches, got %s", got.Type)
	}
	if !got.Flags.Has(FlagSequenced) || !got.Flags.Has(FlagFinal) {
		t.Errorf("flags lost in round trip: %08b", got.Flags)
	}
	if string(got.Payload) != "payload" {
		t.Errorf("payload mismatch: %q", got.Payload)
	}
}

func TestFrameErrors(t *testing.T) {
	if _, err := DecodeFrame([]byte{0x01}); !errors.Is(err, ErrFrameTooShort) {
		t.Errorf("truncated header: expected ErrFrameTooShort, got %v", err)
	}

	// Header claims 5 payload bytes, only 2 present.
	if _, err := DecodeFrame([]byte{0x01, 0x00, 0x00, 0x05, 'a', 'b'}); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("short payload: expected ErrLengthMismatch, got %v", err)
	}

	if _, err := DecodeFrame([]byte{0xFF, 0x00, 0x00, 0x00}); !errors.Is(err, ErrInvalidFrameType) {
		t.Errorf("bad type: expected ErrInvalidFrameType, got %v", err)
	}

	big := &Frame{Type: FrameEvent, Payload: make([]byte, MaxPayloadSize+1)}
	if _, err := big.Encode(); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("oversized payload: expected ErrFrameTooLarge, got %v", err)
	}
}

func TestVarintEdgeCases(t *testing.T) {
	e := NewEncoder()
	values := []uint64{0, 1, 0x7F, 0x80, 0x3FFF, 0x4000, 1<<63 - 1, 1 << 63}
	for _, v := range values {
		e.WriteUvarint(v)
	}
	e.WriteSvarint(-1)
	e.WriteSvarint(1 << 40)
	e.WriteSvarint(-(1 << 40))

	d := NewDecoder(e.Bytes())
	for _, want := range values {
		got, err := d.ReadUvarint()
		if err != nil {
			t.Fatalf("read %d: %v", want, err)
		}
		if got != want {
			t.Errorf("uvarint: expected %d, got %d", want, got)
		}
	}
	for _, want := range []int64{-1, 1 << 40, -(1 << 40)} {
		got, err := d.ReadSvarint()
		if err != nil {
			t.Fatalf("read %d: %v", want, err)
		}
		if got != want {
			t.Errorf("svarint: expected %d, got %d", want, got)
		}
	}
	if !d.EOF() {
		t.Errorf("expected EOF, %d bytes remain", d.Remaining())
	}
}

func TestDecoderTruncation(t *testing.T) {
	e := NewEncoder()
	e.WriteString("hello")
	buf := e.Bytes()

	d := NewDecoder(buf[:3])
	if _, err := d.ReadString(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("truncated string: expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestDecoderAllocationLimit(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(MaxAllocation + 1)

	d := NewDecoder(e.Bytes())
	if _, err := d.ReadString(); !errors.Is(err, ErrAllocationTooLarge) {
		t.Errorf("expected ErrAllocationTooLarge, got %v", err)
	}
}

func TestPatchesRoundTrip(t *testing.T) {
	pf := &PatchesFrame{
		Seq: 42,
		Patches: []Patch{
			{Op: PatchSetText, Target: "p3", Value: "count: 7"},
			{Op: PatchSetAttr, Target: "p5", Key: "disabled", Value: "disabled"},
			{Op: PatchRemoveAttr, Target: "p5", Key: "title"},
			{Op: PatchHideNode, Target: "p9"},
			{Op: PatchInsertNode, Target: "p12", ParentID: "p11", Index: 2, Value: "<li data-pid=\"p12\">item</li>"},
			{Op: PatchSetChecked, Target: "p14", Bool: true},
		},
	}

	got, err := DecodePatches(EncodePatches(pf))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.Seq != 42 {
		t.Errorf("seq: expected 42, got %d", got.Seq)
	}
	if len(got.Patches) != len(pf.Patches) {
		t.Fatalf("expected %d patches, got %d", len(pf.Patches), len(got.Patches))
	}
	for i, p := range got.Patches {
		if p != pf.Patches[i] {
			t.Errorf("patch %d mismatch: %+v != %+v", i, p, pf.Patches[i])
		}
	}
}

func TestPatchesUnknownOp(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(1) // seq
	e.WriteUvarint(1) // count
	e.WriteByte(0xEE) // bogus op
	e.WriteString("p1")

	if _, err := DecodePatches(e.Bytes()); err == nil {
		t.Error("expected error for unknown patch op")
	}
}

func TestEventRoundTrip(t *testing.T) {
	ev := &Event{
		Seq:     7,
		Target:  "p4",
		Type:    "input",
		Value:   "hello world",
		Checked: false,
		Key:     "",
	}

	got, err := DecodeEvent(EncodeEvent(ev))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *got != *ev {
		t.Errorf("event mismatch: %+v != %+v", got, ev)
	}
}

func TestHandshakeRoundTrip(t *testing.T) {
	h := &Handshake{Version: ProtocolVersion, SessionID: "3f2a9c"}

	got, err := DecodeHandshake(EncodeHandshake(h))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *got != *h {
		t.Errorf("handshake mismatch: %+v != %+v", got, h)
	}
}

func TestControlRoundTrip(t *testing.T) {
	ct, data, err := DecodeControl(EncodePing(123456))
	if err != nil {
		t.Fatalf("decode ping: %v", err)
	}
	if ct != ControlPing {
		t.Errorf("expected Ping, got %s", ct)
	}
	if pp, ok := data.(*PingPong); !ok || pp.Timestamp != 123456 {
		t.Errorf("ping payload mismatch: %+v", data)
	}

	ct, data, err = DecodeControl(EncodeClose("shutdown"))
	if err != nil {
		t.Fatalf("decode close: %v", err)
	}
	if ct != ControlClose {
		t.Errorf("expected Close, got %s", ct)
	}
	if cm, ok := data.(*CloseMessage); !ok || cm.Reason != "shutdown" {
		t.Errorf("close payload mismatch: %+v", data)
	}
}
