package wire

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"
)

func mustDecode(t *testing.T, b []byte) Entry {
	t.Helper()
	e, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	return e
}

func TestValueRoundTrip(t *testing.T) {
	exp := time.Unix(1700000000, 123456789)
	cases := []struct {
		exp     time.Time
		payload []byte
	}{
		{time.Time{}, nil},
		{exp, []byte(`{"id":1}`)},
		{time.Time{}, []byte{0, 1, 2, 3, 4}},
	}
	for _, tc := range cases {
		e := mustDecode(t, EncodeValue(tc.exp, tc.payload))
		if e.Kind != KindValue {
			t.Fatalf("kind = %d", e.Kind)
		}
		if !e.SoftExpiry.Equal(tc.exp) {
			t.Fatalf("soft expiry: got %v want %v", e.SoftExpiry, tc.exp)
		}
		if !bytes.Equal(e.Payload, tc.payload) {
			t.Fatalf("payload: got %x want %x", e.Payload, tc.payload)
		}
	}
}

func TestExpired(t *testing.T) {
	now := time.Unix(1000, 0)
	if (Entry{}).Expired(now) {
		t.Fatalf("entry without soft expiry must never be expired")
	}
	if !(Entry{SoftExpiry: now}).Expired(now) {
		t.Fatalf("entry at its expiry instant should be expired")
	}
	if (Entry{SoftExpiry: now.Add(time.Second)}).Expired(now) {
		t.Fatalf("future expiry reported expired")
	}
}

func TestMeta(t *testing.T) {
	s, err := DecodeMeta(EncodeMeta(`"etag123"`))
	if err != nil || s != `"etag123"` {
		t.Fatalf("DecodeMeta = %q, %v", s, err)
	}
	if _, err := DecodeMeta(EncodeValue(time.Time{}, []byte("x"))); err == nil {
		t.Fatalf("value envelope accepted as meta")
	}
}

func TestRejectsTrailingBytes(t *testing.T) {
	enc := EncodeValue(time.Time{}, []byte("x"))
	enc = append(enc, 0xDE, 0xAD)
	if _, err := Decode(enc); err == nil {
		t.Fatalf("expected error on trailing bytes")
	}
}

func TestCorruptHeadersAndLengths(t *testing.T) {
	enc := EncodeValue(time.Time{}, []byte("abc"))

	badMagic := append([]byte(nil), enc...)
	badMagic[0] = 'X'
	if _, err := Decode(badMagic); err == nil {
		t.Fatalf("expected error on bad magic")
	}

	badVer := append([]byte(nil), enc...)
	badVer[4] = version + 1
	if _, err := Decode(badVer); err == nil {
		t.Fatalf("expected error on bad version")
	}

	badKind := append([]byte(nil), enc...)
	badKind[5] = 9
	if _, err := Decode(badKind); err == nil {
		t.Fatalf("expected error on bad kind")
	}

	// vlen is at offset 14..17 (4 magic +1 ver +1 kind +8 expiry)
	tooLong := append([]byte(nil), enc...)
	binary.BigEndian.PutUint32(tooLong[14:18], uint32(len("abc")+1))
	if _, err := Decode(tooLong); err == nil {
		t.Fatalf("expected error on vlen beyond buffer")
	}

	if _, err := Decode(enc[:len(enc)-1]); err == nil {
		t.Fatalf("expected error on truncated buffer")
	}
	if _, err := Decode([]byte("not-wire-format")); err == nil {
		t.Fatalf("expected error on foreign bytes")
	}
}
