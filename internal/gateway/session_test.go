package gateway

import (
	"context"
	"encoding/hex"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/gt06-gateway/internal/metrics"
	"github.com/taoyao-code/gt06-gateway/internal/protocol/gt06"
	"github.com/taoyao-code/gt06-gateway/internal/session"
	"github.com/taoyao-code/gt06-gateway/internal/storage"
)

const (
	loginHex   = "78781101086701007000155880751F41000129470D0A"
	terminalID = "0867010070001558"
)

type fakeTransport struct {
	mu       sync.Mutex
	writes   [][]byte
	writeErr error
}

func (f *fakeTransport) ID() uint64 { return 7 }

func (f *fakeTransport) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.ParseIP("192.0.2.10"), Port: 40123}
}

func (f *fakeTransport) Write(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, append([]byte(nil), b...))
	return nil
}

func (f *fakeTransport) Writes() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

type failingStore struct {
	calls  int
	closed []string
}

func (f *failingStore) Store(context.Context, *gt06.Record, storage.Peer) (int64, error) {
	f.calls++
	return 0, errors.New("db down")
}

func (f *failingStore) CloseSession(_ context.Context, terminalID string, _ time.Time) error {
	f.closed = append(f.closed, terminalID)
	return nil
}

type recordingPublisher struct {
	ids []int64
}

func (p *recordingPublisher) Publish(_ context.Context, id int64, _ *gt06.Record, _ storage.Peer) error {
	p.ids = append(p.ids, id)
	return nil
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

type fixture struct {
	tr      *fakeTransport
	store   *storage.MemoryStore
	pub     *recordingPublisher
	mgr     *session.Manager
	metrics *metrics.AppMetrics
	sess    *Session
}

func newFixture(t *testing.T, opts gt06.Options) *fixture {
	t.Helper()
	f := &fixture{
		tr:      &fakeTransport{},
		store:   storage.NewMemoryStore(100),
		pub:     &recordingPublisher{},
		mgr:     session.New(time.Minute),
		metrics: metrics.NewAppMetrics(prometheus.NewRegistry()),
	}
	f.sess = NewSession(f.tr, Deps{
		Store:     f.store,
		Publisher: f.pub,
		Sessions:  f.mgr,
		Metrics:   f.metrics,
		Protocol:  opts,
	})
	return f
}

func TestSession_LoginSplitAcrossReads(t *testing.T) {
	f := newFixture(t, gt06.Options{})
	raw := mustHex(t, loginHex)

	require.NoError(t, f.sess.HandleBytes(raw[:3]))
	assert.Empty(t, f.tr.Writes(), "半包不应触发应答")
	require.NoError(t, f.sess.HandleBytes(raw[3:15]))
	require.NoError(t, f.sess.HandleBytes(raw[15:]))

	require.Len(t, f.tr.Writes(), 1)
	assert.Equal(t, mustHex(t, "787805010001D9DC0D0A"), f.tr.Writes()[0])

	assert.Equal(t, terminalID, f.sess.TerminalID())
	conn, ok := f.mgr.GetConn(terminalID)
	require.True(t, ok)
	assert.Same(t, f.sess, conn)
	assert.True(t, f.mgr.IsOnline(terminalID, time.Now()))

	recs := f.store.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "LOGIN", recs[0].Record.ProtocolName)
	assert.Equal(t, terminalID, recs[0].Peer.TerminalID)
	assert.Equal(t, "192.0.2.10", recs[0].Peer.IP)
	assert.Equal(t, []int64{recs[0].ID}, f.pub.ids)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AckTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RecordsTotal.WithLabelValues("LOGIN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.FramesTotal.WithLabelValues("standard")))
}

func TestSession_AcksInFrameOrder(t *testing.T) {
	f := newFixture(t, gt06.Options{})

	var chunk []byte
	chunk = append(chunk, mustHex(t, loginHex)...)
	chunk = append(chunk, gt06.BuildFrame(gt06.ProtoStatusInfo, []byte{0x46, 0x01, 0x90, 0x04, 0x00, 0x01}, 2)...)
	chunk = append(chunk, gt06.BuildFrame(gt06.ProtoAlarmData, []byte{0x01}, 3)...)
	require.NoError(t, f.sess.HandleBytes(chunk))

	writes := f.tr.Writes()
	require.Len(t, writes, 2, "状态包不需要应答")
	assert.Equal(t, gt06.BuildAck(1, gt06.ProtoLogin), writes[0])
	assert.Equal(t, gt06.BuildAck(3, gt06.ProtoAlarmData), writes[1])

	recs := f.store.Records()
	require.Len(t, recs, 3)
	for _, r := range recs {
		assert.Equal(t, terminalID, r.Peer.TerminalID, "登录后的记录归属该终端")
	}
	require.NotNil(t, recs[2].Record.Alarm)
	assert.True(t, recs[2].Record.Alarm.Emergency)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.HeartbeatTotal))

	active := f.store.ActiveSessions()
	require.Len(t, active, 1)
	assert.Equal(t, int64(3), active[0].TotalPackets)
}

func TestSession_RecordsBeforeLoginHaveNoTerminal(t *testing.T) {
	f := newFixture(t, gt06.Options{})
	require.NoError(t, f.sess.HandleBytes(gt06.BuildFrame(gt06.ProtoStatusInfo, []byte{0x00}, 1)))

	recs := f.store.Records()
	require.Len(t, recs, 1)
	assert.Empty(t, recs[0].Peer.TerminalID)
	assert.Empty(t, f.store.ActiveSessions())
	assert.Zero(t, f.mgr.OnlineCount(time.Now()))
}

func TestSession_StorageFailureDoesNotStopProcessing(t *testing.T) {
	st := &failingStore{}
	tr := &fakeTransport{}
	m := metrics.NewAppMetrics(prometheus.NewRegistry())
	pub := &recordingPublisher{}
	s := NewSession(tr, Deps{Store: st, Publisher: pub, Metrics: m})

	require.NoError(t, s.HandleBytes(mustHex(t, loginHex)))
	require.NoError(t, s.HandleBytes(gt06.BuildFrame(gt06.ProtoAlarmData, []byte{0x02}, 2)))

	assert.Equal(t, 2, st.calls)
	assert.Len(t, tr.Writes(), 2, "存储失败不影响应答")
	assert.Empty(t, pub.ids, "存储失败时不发布")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StoreTotal.WithLabelValues("error")))
	assert.Equal(t, StateOpen, s.State())
}

func TestSession_CircuitOpenCounted(t *testing.T) {
	breaker := storage.NewCircuitBreaker(1, time.Minute)
	guard := storage.NewGuard(&failingStore{}, breaker, time.Second)
	m := metrics.NewAppMetrics(prometheus.NewRegistry())
	s := NewSession(&fakeTransport{}, Deps{Store: guard, Metrics: m})

	require.NoError(t, s.HandleBytes(mustHex(t, loginHex)))
	require.NoError(t, s.HandleBytes(mustHex(t, loginHex)))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreTotal.WithLabelValues("circuit_open")))
}

func TestSession_AckWriteFailureEndsSession(t *testing.T) {
	f := newFixture(t, gt06.Options{})
	f.tr.writeErr = errors.New("broken pipe")

	err := f.sess.HandleBytes(mustHex(t, loginHex))
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AckTotal.WithLabelValues("error")))
	assert.Empty(t, f.store.Records(), "应答失败后不再写入存储")
}

func TestSession_BufferOverflow(t *testing.T) {
	f := newFixture(t, gt06.Options{MaxUnframed: 32})

	// 声明长度合法的半包持续累积，超过缓冲上限
	require.NoError(t, f.sess.HandleBytes([]byte{0x78, 0x78, 0x30}))
	err := f.sess.HandleBytes(make([]byte, 40))
	assert.ErrorIs(t, err, gt06.ErrBufferOverflow)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BufferOverflows))
}

func TestSession_ChecksumDropPolicy(t *testing.T) {
	f := newFixture(t, gt06.Options{ChecksumPolicy: gt06.ChecksumDrop})
	raw := mustHex(t, loginHex)
	raw[len(raw)-3] ^= 0xFF

	require.NoError(t, f.sess.HandleBytes(raw))
	assert.Empty(t, f.tr.Writes())
	assert.Empty(t, f.store.Records())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ChecksumTotal.WithLabelValues("mismatch")))
	assert.Equal(t, float64(len(raw)), testutil.ToFloat64(f.metrics.DiscardedBytes.WithLabelValues("checksum")))
}

func TestSession_NoiseIsDiscardedAndCounted(t *testing.T) {
	f := newFixture(t, gt06.Options{})
	chunk := append([]byte{0x01, 0x02, 0x03}, mustHex(t, loginHex)...)

	require.NoError(t, f.sess.HandleBytes(chunk))
	assert.Len(t, f.tr.Writes(), 1)
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.DiscardedBytes.WithLabelValues("noise")))
}

func TestSession_Close(t *testing.T) {
	f := newFixture(t, gt06.Options{})
	require.NoError(t, f.sess.HandleBytes(mustHex(t, loginHex)))
	// 未完成的半包在关闭时丢弃
	require.NoError(t, f.sess.HandleBytes([]byte{0x78, 0x78, 0x0D}))

	f.sess.Close(errors.New("idle timeout"))
	assert.Equal(t, StateClosed, f.sess.State())

	_, ok := f.mgr.GetConn(terminalID)
	assert.False(t, ok)
	p, ok := f.mgr.Presence(terminalID, time.Now())
	require.True(t, ok)
	assert.False(t, p.LastTCPDown.IsZero())

	assert.Empty(t, f.store.ActiveSessions())
	closed := f.store.ClosedSessions()
	require.Len(t, closed, 1)
	assert.Equal(t, terminalID, closed[0].TerminalID)

	// 重复关闭无效果，关闭后不再处理数据
	f.sess.Close(nil)
	assert.Len(t, f.store.ClosedSessions(), 1)
	assert.ErrorIs(t, f.sess.HandleBytes(mustHex(t, loginHex)), ErrSessionClosed)
}

func TestSession_ReloginOnSameConnRebinds(t *testing.T) {
	f := newFixture(t, gt06.Options{})
	require.NoError(t, f.sess.HandleBytes(mustHex(t, loginHex)))

	other := append([]byte{0x01, 0x23, 0x45, 0x67, 0x89, 0x01, 0x23, 0x45}, 0x00, 0x01)
	require.NoError(t, f.sess.HandleBytes(gt06.BuildFrame(gt06.ProtoLogin, other, 2)))

	assert.Equal(t, "0123456789012345", f.sess.TerminalID())
	_, ok := f.mgr.GetConn(terminalID)
	assert.False(t, ok)
	_, ok = f.mgr.GetConn("0123456789012345")
	assert.True(t, ok)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "closing", StateClosing.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", State(9).String())
}
