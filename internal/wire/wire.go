// Package wire frames cache entries with the metadata the client needs to
// reason about them after a provider hands the bytes back.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version   byte = 1
	KindValue byte = 1 // codec-encoded payload.Value
	KindMeta  byte = 2 // raw metadata string (etag, last-modified)

	hdrLen = 4 + 1 + 1 + 8 + 4
)

var (
	ErrCorrupt = errors.New("fetchcache: corrupt entry")
	magic4     = [...]byte{'F', 'C', 'H', 'E'}
)

// Entry is a decoded envelope. Payload aliases the input buffer.
type Entry struct {
	Kind       byte
	SoftExpiry time.Time // zero => no soft expiry; the provider TTL is authoritative
	Payload    []byte
}

// Expired reports whether the entry is past its soft expiry at now.
func (e Entry) Expired(now time.Time) bool {
	return !e.SoftExpiry.IsZero() && !now.Before(e.SoftExpiry)
}

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// magic(4) | ver(1) | kind(1) | softExpiry(i64 be, unix nanos, 0=none) | vlen(u32 be) | payload(vlen)
func encode(kind byte, softExpiry time.Time, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kind)

	var u8 [8]byte
	var u4 [4]byte

	var exp int64
	if !softExpiry.IsZero() {
		exp = softExpiry.UnixNano()
	}
	binary.BigEndian.PutUint64(u8[:], uint64(exp))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

func EncodeValue(softExpiry time.Time, payload []byte) []byte {
	return encode(KindValue, softExpiry, payload)
}

func EncodeMeta(s string) []byte {
	return encode(KindMeta, time.Time{}, []byte(s))
}

// Decode validates the framing strictly: trailing bytes are corruption.
func Decode(b []byte) (Entry, error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version {
		return Entry{}, ErrCorrupt
	}
	kind := b[5]
	if kind != KindValue && kind != KindMeta {
		return Entry{}, ErrCorrupt
	}
	off := 6

	exp := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off {
		return Entry{}, ErrCorrupt
	}

	e := Entry{Kind: kind, Payload: b[off : off+vlen]}
	if exp != 0 {
		e.SoftExpiry = time.Unix(0, exp)
	}
	return e, nil
}

// DecodeMeta decodes an envelope that must carry a metadata string.
func DecodeMeta(b []byte) (string, error) {
	e, err := Decode(b)
	if err != nil {
		return "", err
	}
	if e.Kind != KindMeta {
		return "", ErrCorrupt
	}
	return string(e.Payload), nil
}
