package xdr

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Padding Tests
// ============================================================================

func TestPadding(t *testing.T) {
	cases := map[uint32]uint32{0: 0, 1: 3, 2: 2, 3: 1, 4: 0, 5: 3, 8: 0}
	for length, want := range cases {
		assert.Equal(t, want, Padding(length), "length=%d", length)
	}
}

// ============================================================================
// Opaque Tests
// ============================================================================

func TestEncodeOpaque(t *testing.T) {
	t.Run("PadsToFourBytes", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, EncodeOpaque(&buf, []byte("abcde")))

		assert.Equal(t, 4+5+3, buf.Len())
		assert.Equal(t, uint32(5), binary.BigEndian.Uint32(buf.Bytes()[:4]))
		assert.Equal(t, []byte{0, 0, 0}, buf.Bytes()[9:])
	})

	t.Run("EncodesEmpty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, EncodeOpaque(&buf, nil))
		assert.Equal(t, []byte{0, 0, 0, 0}, buf.Bytes())
	})
}

func TestDecodeOpaque(t *testing.T) {
	t.Run("DecodesAndSkipsPadding", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, EncodeOpaque(&buf, []byte("hello")))
		EncodeUint32(&buf, 42)

		r := bytes.NewReader(buf.Bytes())
		data, err := DecodeOpaque(r, 16)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)

		next, err := DecodeUint32(r)
		require.NoError(t, err)
		assert.Equal(t, uint32(42), next)
	})

	t.Run("RejectsOversizedLength", func(t *testing.T) {
		var buf bytes.Buffer
		EncodeUint32(&buf, 1<<30)

		_, err := DecodeOpaque(bytes.NewReader(buf.Bytes()), 400)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds maximum")
	})

	t.Run("RejectsTruncatedData", func(t *testing.T) {
		var buf bytes.Buffer
		EncodeUint32(&buf, 8)
		buf.WriteString("abc")

		_, err := DecodeOpaque(bytes.NewReader(buf.Bytes()), 400)
		require.Error(t, err)
	})
}

func TestDecodeString(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeString(&buf, "testhost"))

	s, err := DecodeString(bytes.NewReader(buf.Bytes()), 255)
	require.NoError(t, err)
	assert.Equal(t, "testhost", s)
}
