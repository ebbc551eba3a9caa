package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/gt06-gateway/internal/protocol/gt06"
	"github.com/taoyao-code/gt06-gateway/internal/storage"
)

func gpsRecord() *gt06.Record {
	lat, lon := 22.546, 114.0257
	ts := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	return &gt06.Record{
		Raw:          []byte{0x78, 0x78},
		ReceivedAt:   ts.Add(time.Second),
		Protocol:     gt06.ProtoGPSLBSStatus,
		ProtocolName: "GPS_LBS_STATUS",
		GPS: &gt06.GPSFix{
			Time: &ts, Latitude: &lat, Longitude: &lon,
			Speed: 40, Course: 180, Satellites: 9, Positioned: true, East: true, North: true,
		},
		LBS: &gt06.CellTower{MCC: 460, MNC: 0, LAC: 0x287D, CellID: 0x1FB8},
	}
}

func TestPositionOf(t *testing.T) {
	rec := gpsRecord()

	assert.Nil(t, positionOf(1, rec, storage.Peer{}), "无终端号不缓存")

	peer := storage.Peer{IP: "10.1.1.1", Port: 5000, TerminalID: "0123456789012345"}
	pos := positionOf(7, rec, peer)
	require.NotNil(t, pos)
	assert.Equal(t, "0123456789012345", pos.TerminalID)
	assert.Equal(t, int64(7), pos.PacketID)
	assert.Equal(t, 22.546, pos.Latitude)
	assert.Equal(t, 114.0257, pos.Longitude)
	assert.Equal(t, uint8(9), pos.Satellites)
	assert.Equal(t, "10.1.1.1:5000", pos.Peer)
	require.NotNil(t, pos.Cell)
	assert.Equal(t, uint16(460), pos.Cell.MCC)

	rec.GPS.Latitude = nil
	assert.Nil(t, positionOf(7, rec, peer), "无坐标不缓存")
}

func TestPositionCBOR_KeepsSubSecondTime(t *testing.T) {
	rec := gpsRecord()
	rec.ReceivedAt = time.Date(2024, 3, 1, 8, 0, 1, 123456789, time.UTC)
	pos := positionOf(1, rec, storage.Peer{TerminalID: "T1"})

	data, err := encMode.Marshal(pos)
	require.NoError(t, err)
	var got Position
	require.NoError(t, decMode.Unmarshal(data, &got))
	assert.True(t, pos.ReceivedAt.Equal(got.ReceivedAt))
	assert.Equal(t, pos.Latitude, got.Latitude)
}

// 以下测试需要本地 Redis，不可用时跳过
func testClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("Redis 不可用，跳过: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return &Client{Client: rdb}
}

func TestPositionCache_PublishAndLatest(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	const tid = "0867000000000001"
	stream := "gt06:test:records"
	t.Cleanup(func() { client.Del(context.Background(), positionKeyPrefix+tid, stream) })

	cache := NewPositionCache(client, time.Minute, stream, 100)

	_, err := cache.Latest(ctx, tid)
	assert.ErrorIs(t, err, ErrNoPosition)

	rec := gpsRecord()
	require.NoError(t, cache.Publish(ctx, 42, rec, storage.Peer{IP: "127.0.0.1", Port: 1, TerminalID: tid}))

	pos, err := cache.Latest(ctx, tid)
	require.NoError(t, err)
	assert.Equal(t, int64(42), pos.PacketID)
	assert.Equal(t, *rec.GPS.Latitude, pos.Latitude)

	ttl := client.TTL(ctx, positionKeyPrefix+tid).Val()
	assert.Greater(t, ttl, time.Duration(0))

	entries, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "42", entries[0].Values["id"])
	assert.Equal(t, tid, entries[0].Values["terminal"])

	body, ok := entries[0].Values["record"].(string)
	require.True(t, ok)
	got, err := DecodeStreamRecord([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, rec.ProtocolName, got.ProtocolName)
	require.NotNil(t, got.GPS)
	assert.Equal(t, *rec.GPS.Longitude, *got.GPS.Longitude)
}
