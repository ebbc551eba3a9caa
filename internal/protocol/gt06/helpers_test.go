package gt06

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

const loginHex = "78781101086701007000155880751F41000129470D0A"

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func feedAll(t *testing.T, d *StreamDecoder, chunks ...[]byte) []Frame {
	t.Helper()
	var out []Frame
	for _, c := range chunks {
		frames, err := d.Feed(c)
		require.NoError(t, err)
		out = append(out, frames...)
	}
	return out
}

func decodeHex(t *testing.T, s string) *Record {
	t.Helper()
	frames := feedAll(t, NewStreamDecoder(0, 0), mustHex(t, s))
	require.Len(t, frames, 1)
	return NewDecoder(nil).Decode(frames[0])
}

func decodeBuilt(t *testing.T, raw []byte) *Record {
	t.Helper()
	frames := feedAll(t, NewStreamDecoder(0, 0), raw)
	require.Len(t, frames, 1)
	return NewDecoder(nil).Decode(frames[0])
}
