package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"

	"github.com/taoyao-code/gt06-gateway/internal/protocol/gt06"
	"github.com/taoyao-code/gt06-gateway/internal/storage"
)

const positionKeyPrefix = "gt06:pos:"

// ErrNoPosition 终端没有缓存的位置
var ErrNoPosition = errors.New("no cached position")

// Position 终端最新位置快照
type Position struct {
	TerminalID string     `cbor:"tid" json:"terminalId"`
	PacketID   int64      `cbor:"pid" json:"packetId"`
	Protocol   string     `cbor:"proto" json:"protocol"`
	ReceivedAt time.Time  `cbor:"recv" json:"receivedAt"`
	GPSTime    *time.Time `cbor:"gt,omitempty" json:"gpsTime,omitempty"`
	Latitude   float64    `cbor:"lat" json:"latitude"`
	Longitude  float64    `cbor:"lon" json:"longitude"`
	Speed      uint8      `cbor:"spd" json:"speed"`
	Course     uint16     `cbor:"crs" json:"course"`
	Satellites uint8      `cbor:"sat" json:"satellites"`
	Positioned bool       `cbor:"fix" json:"positioned"`
	// 同包基站信息
	Cell *gt06.CellTower `cbor:"cell,omitempty" json:"cell,omitempty"`
	Peer string          `cbor:"peer" json:"peer"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

// positionOf 从记录提取位置快照；无坐标或无终端号时返回 nil
func positionOf(id int64, rec *gt06.Record, peer storage.Peer) *Position {
	tid := storage.TerminalOf(rec, peer)
	if tid == "" || !rec.HasPosition() {
		return nil
	}
	g := rec.GPS
	return &Position{
		TerminalID: tid,
		PacketID:   id,
		Protocol:   rec.ProtocolName,
		ReceivedAt: rec.ReceivedAt,
		GPSTime:    g.Time,
		Latitude:   *g.Latitude,
		Longitude:  *g.Longitude,
		Speed:      g.Speed,
		Course:     g.Course,
		Satellites: g.Satellites,
		Positioned: g.Positioned,
		Cell:       rec.LBS,
		Peer:       peer.String(),
	}
}

// PositionCache 终端最新位置缓存与解码记录流。
// 位置以 CBOR 写入 gt06:pos:{terminalId} 并带过期时间；
// streamKey 非空时每条记录追加到 Redis Stream（近似 MAXLEN 截断）。
type PositionCache struct {
	client       *Client
	ttl          time.Duration
	streamKey    string
	streamMaxLen int64
}

var _ storage.Publisher = (*PositionCache)(nil)

// NewPositionCache 创建位置缓存
func NewPositionCache(client *Client, ttl time.Duration, streamKey string, streamMaxLen int64) *PositionCache {
	return &PositionCache{client: client, ttl: ttl, streamKey: streamKey, streamMaxLen: streamMaxLen}
}

// Publish 刷新位置缓存并追加记录流
func (c *PositionCache) Publish(ctx context.Context, id int64, rec *gt06.Record, peer storage.Peer) error {
	pipe := c.client.Pipeline()
	queued := false

	if pos := positionOf(id, rec, peer); pos != nil {
		data, err := encMode.Marshal(pos)
		if err != nil {
			return fmt.Errorf("encode position: %w", err)
		}
		pipe.Set(ctx, positionKeyPrefix+pos.TerminalID, data, c.ttl)
		queued = true
	}

	if c.streamKey != "" {
		body, err := encMode.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: c.streamKey,
			MaxLen: c.streamMaxLen,
			Approx: true,
			Values: map[string]interface{}{
				"id":       strconv.FormatInt(id, 10),
				"terminal": storage.TerminalOf(rec, peer),
				"protocol": rec.ProtocolName,
				"raw":      rec.RawHex(),
				"record":   body,
			},
		})
		queued = true
	}

	if !queued {
		return nil
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Latest 读取终端最新位置
func (c *PositionCache) Latest(ctx context.Context, terminalID string) (*Position, error) {
	data, err := c.client.Get(ctx, positionKeyPrefix+terminalID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoPosition
	}
	if err != nil {
		return nil, err
	}
	var pos Position
	if err := decMode.Unmarshal(data, &pos); err != nil {
		return nil, fmt.Errorf("decode position: %w", err)
	}
	return &pos, nil
}

// DecodeStreamRecord 解析记录流中 record 字段
func DecodeStreamRecord(data []byte) (*gt06.Record, error) {
	var rec gt06.Record
	if err := decMode.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
