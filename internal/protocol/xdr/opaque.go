// Package xdr holds the small hand-written XDR helpers that sit next to the
// reflection-based go-xdr codec: bounded opaque/string decoding and the
// uint32 primitives used when building messages field by field.
package xdr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// ============================================================================
// XDR Encoding Helpers - Go Values → Wire Format
// ============================================================================

// Padding returns the number of zero bytes needed to align length to a
// 4-byte boundary: (4 - (length % 4)) % 4.
func Padding(length uint32) uint32 {
	return (4 - (length % 4)) % 4
}

// EncodeUint32 writes a big-endian unsigned integer.
func EncodeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// EncodeOpaque writes XDR variable-length opaque data.
//
// Per RFC 4506 Section 4.10:
// Format: [length:uint32][data:length bytes][padding:0-3 bytes]
func EncodeOpaque(buf *bytes.Buffer, data []byte) error {
	length := uint32(len(data))
	EncodeUint32(buf, length)

	if _, err := buf.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}

	for range Padding(length) {
		if err := buf.WriteByte(0); err != nil {
			return fmt.Errorf("write padding: %w", err)
		}
	}

	return nil
}

// EncodeString writes an XDR string (same layout as opaque data).
func EncodeString(buf *bytes.Buffer, s string) error {
	return EncodeOpaque(buf, []byte(s))
}

// ============================================================================
// XDR Decoding Helpers - Wire Format → Go Values
// ============================================================================

// DecodeUint32 reads a big-endian unsigned integer.
func DecodeUint32(reader io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(reader, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// DecodeOpaque reads XDR variable-length opaque data of at most maxLength
// bytes and skips the trailing padding.
//
// The bound is checked before allocating so a corrupt length field in a
// datagram cannot trigger a huge allocation.
func DecodeOpaque(reader io.Reader, maxLength uint32) ([]byte, error) {
	length, err := DecodeUint32(reader)
	if err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}

	if length > maxLength {
		return nil, fmt.Errorf("opaque length %d exceeds maximum %d", length, maxLength)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}

	if padding := Padding(length); padding > 0 {
		if _, err := io.CopyN(io.Discard, reader, int64(padding)); err != nil {
			return nil, fmt.Errorf("skip padding: %w", err)
		}
	}

	return data, nil
}

// DecodeString reads an XDR string of at most maxLength bytes.
func DecodeString(reader io.Reader, maxLength uint32) (string, error) {
	data, err := DecodeOpaque(reader, maxLength)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
