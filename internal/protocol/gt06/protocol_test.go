package gt06

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Defaults(t *testing.T) {
	tb := DefaultTable
	assert.Equal(t, "LOGIN", tb.Name(ProtoLogin))
	assert.Equal(t, "GPS_LBS_STATUS_A0", tb.Name(ProtoGPSLBSStatusA0))
	assert.Equal(t, UnknownProtocol, tb.Name(0xFF))
	assert.False(t, tb.Known(0xFF))

	for _, code := range []byte{0x01, 0x21, 0x15, 0x16, 0x18, 0x19} {
		assert.True(t, tb.NeedsAck(code), "0x%02X", code)
	}
	for _, code := range []byte{0x02, 0x03, 0x10, 0x13, 0x30, 0xFF} {
		assert.False(t, tb.NeedsAck(code), "0x%02X", code)
	}
}

func TestTable_Overlay(t *testing.T) {
	nt, err := DefaultTable.WithOverlay(Overlay{
		Names: map[int]string{0xFF: "VENDOR_EXT", 0x01: "LOGIN_V2"},
		Ack:   []int{0x13},
	})
	require.NoError(t, err)
	assert.Equal(t, "VENDOR_EXT", nt.Name(0xFF))
	assert.Equal(t, "LOGIN_V2", nt.Name(0x01))
	assert.True(t, nt.NeedsAck(0x13))

	// 默认表不受影响
	assert.Equal(t, UnknownProtocol, DefaultTable.Name(0xFF))
	assert.False(t, DefaultTable.NeedsAck(0x13))
}

func TestTable_OverlayRejectsBadInput(t *testing.T) {
	_, err := DefaultTable.WithOverlay(Overlay{Names: map[int]string{0x100: "X"}})
	assert.Error(t, err)
	_, err = DefaultTable.WithOverlay(Overlay{Names: map[int]string{0x50: ""}})
	assert.Error(t, err)
	_, err = DefaultTable.WithOverlay(Overlay{Ack: []int{-1}})
	assert.Error(t, err)
}

func TestLoadProtocolTable(t *testing.T) {
	tb, err := LoadProtocolTable("")
	require.NoError(t, err)
	assert.Same(t, DefaultTable, tb)

	path := filepath.Join(t.TempDir(), "protocols.yaml")
	require.NoError(t, os.WriteFile(path, []byte("names:\n  0xF1: CUSTOM_F1\nack: [0xF1]\n"), 0o600))
	tb, err = LoadProtocolTable(path)
	require.NoError(t, err)
	assert.Equal(t, "CUSTOM_F1", tb.Name(0xF1))
	assert.True(t, tb.NeedsAck(0xF1))

	r := NewDecoder(tb).Decode(Frame{Raw: BuildFrame(0xF1, []byte{0x01}, 1)})
	assert.Equal(t, "CUSTOM_F1", r.ProtocolName)
	assert.True(t, r.NeedsAck)

	_, err = LoadProtocolTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
