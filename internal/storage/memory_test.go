package storage

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/gt06-gateway/internal/protocol/gt06"
)

func loginRecord(terminal string, at time.Time) *gt06.Record {
	return &gt06.Record{
		ReceivedAt:   at,
		Protocol:     gt06.ProtoLogin,
		ProtocolName: "LOGIN",
		Login:        &gt06.Login{TerminalID: terminal},
	}
}

func TestPeerFromAddr(t *testing.T) {
	p := PeerFromAddr(&net.TCPAddr{IP: net.ParseIP("10.0.0.8"), Port: 5023}, 7)
	assert.Equal(t, Peer{IP: "10.0.0.8", Port: 5023, ConnID: 7}, p)
	assert.Equal(t, "10.0.0.8:5023", p.String())

	assert.Equal(t, Peer{ConnID: 1}, PeerFromAddr(nil, 1))
}

func TestTerminalOf(t *testing.T) {
	rec := loginRecord("0867010070001558", time.Now())
	assert.Equal(t, "0867010070001558", TerminalOf(rec, Peer{TerminalID: "other"}))
	assert.Equal(t, "bound", TerminalOf(&gt06.Record{}, Peer{TerminalID: "bound"}))
	assert.Empty(t, TerminalOf(&gt06.Record{}, Peer{}))
}

func TestMemoryStore_StoreAndSessions(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(0)
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	peer := Peer{IP: "1.2.3.4", Port: 9000, ConnID: 1}

	id1, err := m.Store(ctx, &gt06.Record{ReceivedAt: t0}, peer)
	require.NoError(t, err)
	assert.Empty(t, m.ActiveSessions(), "未登录的记录不建立会话")

	id2, err := m.Store(ctx, loginRecord("T1", t0.Add(time.Second)), peer)
	require.NoError(t, err)
	peer.TerminalID = "T1"
	id3, err := m.Store(ctx, &gt06.Record{ReceivedAt: t0.Add(2 * time.Second)}, peer)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, []int64{id1, id2, id3})

	got, ok := m.Get(id2)
	require.True(t, ok)
	assert.Equal(t, "LOGIN", got.Record.ProtocolName)

	sessions := m.ActiveSessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, int64(2), sessions[0].TotalPackets)
	assert.Equal(t, t0.Add(2*time.Second), sessions[0].LastHeartbeat)

	require.NoError(t, m.CloseSession(ctx, "T1", t0.Add(time.Minute)))
	assert.Empty(t, m.ActiveSessions())
	closed := m.ClosedSessions()
	require.Len(t, closed, 1)
	assert.False(t, closed[0].Active)
	require.NotNil(t, closed[0].End)

	assert.NoError(t, m.CloseSession(ctx, "unknown", time.Now()))
}

func TestMemoryStore_CapacityEvictsOldest(t *testing.T) {
	m := NewMemoryStore(2)
	for i := 0; i < 3; i++ {
		_, err := m.Store(context.Background(), &gt06.Record{}, Peer{})
		require.NoError(t, err)
	}
	recs := m.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, int64(2), recs[0].ID)
	_, ok := m.Get(1)
	assert.False(t, ok)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	m := NewMemoryStore(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = m.Store(context.Background(), &gt06.Record{}, Peer{})
			}
		}()
	}
	wg.Wait()
	assert.Len(t, m.Records(), 400)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryStore(0).Store(ctx, &gt06.Record{}, Peer{})
	assert.ErrorIs(t, err, context.Canceled)
}
