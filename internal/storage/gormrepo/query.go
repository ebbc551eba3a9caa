package gormrepo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/taoyao-code/gt06-gateway/internal/storage/models"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

const (
	defaultLimit = 50
	maxLimit     = 1000
	exportBatch  = 500
)

// Page 分页参数，Page 从 1 开始
type Page struct {
	Page  int
	Limit int
}

// Normalize 填充默认值并限制单页大小
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// Offset 当前页起始偏移
func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// PacketFilter 数据包查询条件，零值字段不参与过滤
type PacketFilter struct {
	TerminalID   string
	ProtocolName string
	Start        *time.Time
	End          *time.Time
}

func (f PacketFilter) apply(q *gorm.DB, table string) *gorm.DB {
	if f.TerminalID != "" {
		q = q.Where(table+".terminal_id = ?", f.TerminalID)
	}
	if f.ProtocolName != "" {
		q = q.Where(table+".protocol_name = ?", f.ProtocolName)
	}
	if f.Start != nil {
		q = q.Where(table+".received_at >= ?", *f.Start)
	}
	if f.End != nil {
		q = q.Where(table+".received_at <= ?", *f.End)
	}
	return q
}

// SessionFilter 设备会话查询条件
type SessionFilter struct {
	TerminalID string
	Status     string
}

// QueryRepo 基于 GORM 的只读查询仓库。
// 写入统一走 pgx Repository，这里不提供任何写方法。
type QueryRepo struct {
	db *gorm.DB
}

// New 返回使用给定 *gorm.DB 的查询仓库
func New(db *gorm.DB) *QueryRepo {
	return &QueryRepo{db: db}
}

// ListPackets 按条件分页查询数据包（不含子表），按接收时间倒序
func (r *QueryRepo) ListPackets(ctx context.Context, f PacketFilter, page Page) ([]models.Packet, int64, error) {
	page = page.Normalize()
	q := f.apply(r.db.WithContext(ctx).Model(&models.Packet{}), "gt06_packets")

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Packet
	err := q.Order("received_at DESC, id DESC").Limit(page.Limit).Offset(page.Offset()).Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// GetPacket 查询单个数据包及其全部子表
func (r *QueryRepo) GetPacket(ctx context.Context, id int64) (*models.Packet, error) {
	var p models.Packet
	err := r.db.WithContext(ctx).
		Preload("GPS").
		Preload("LBS").
		Preload("Status").
		Preload("Alarm").
		Preload("WiFi.AccessPoints").
		First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListGPS 查询带坐标的定位点，按接收时间倒序
func (r *QueryRepo) ListGPS(ctx context.Context, f PacketFilter, limit int) ([]models.GPSPoint, error) {
	limit = Page{Limit: limit}.Normalize().Limit
	q := r.db.WithContext(ctx).
		Table("gt06_gps").
		Select("gt06_gps.*, gt06_packets.terminal_id, gt06_packets.protocol, gt06_packets.received_at").
		Joins("JOIN gt06_packets ON gt06_packets.id = gt06_gps.packet_id").
		Where("gt06_gps.latitude IS NOT NULL AND gt06_gps.longitude IS NOT NULL")
	q = f.apply(q, "gt06_packets")

	var points []models.GPSPoint
	err := q.Order("gt06_packets.received_at DESC").Limit(limit).Scan(&points).Error
	return points, err
}

// LatestGPS 终端最近一次带坐标的定位，不存在时返回 ErrNotFound
func (r *QueryRepo) LatestGPS(ctx context.Context, terminalID string) (*models.GPSPoint, error) {
	points, err := r.ListGPS(ctx, PacketFilter{TerminalID: terminalID}, 1)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, ErrNotFound
	}
	return &points[0], nil
}

// ListDevices 按终端汇总数据包数量与首末上报时间
func (r *QueryRepo) ListDevices(ctx context.Context) ([]models.DeviceSummary, error) {
	var list []models.DeviceSummary
	err := r.db.WithContext(ctx).
		Model(&models.Packet{}).
		Select("terminal_id, COUNT(*) AS packet_count, MIN(received_at) AS first_seen, MAX(received_at) AS last_seen").
		Where("terminal_id IS NOT NULL").
		Group("terminal_id").
		Order("last_seen DESC").
		Scan(&list).Error
	return list, err
}

// ListSessions 分页查询设备会话，按开始时间倒序
func (r *QueryRepo) ListSessions(ctx context.Context, f SessionFilter, page Page) ([]models.DeviceSession, int64, error) {
	page = page.Normalize()
	q := r.db.WithContext(ctx).Model(&models.DeviceSession{})
	if f.TerminalID != "" {
		q = q.Where("terminal_id = ?", f.TerminalID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.DeviceSession
	err := q.Order("session_start DESC").Limit(page.Limit).Offset(page.Offset()).Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ListAlarms 查询报警及同包定位
func (r *QueryRepo) ListAlarms(ctx context.Context, f PacketFilter, limit int) ([]models.AlarmEvent, error) {
	limit = Page{Limit: limit}.Normalize().Limit
	q := r.db.WithContext(ctx).
		Table("gt06_alarms").
		Select("gt06_alarms.*, gt06_packets.terminal_id, gt06_packets.received_at, gt06_gps.latitude, gt06_gps.longitude").
		Joins("JOIN gt06_packets ON gt06_packets.id = gt06_alarms.packet_id").
		Joins("LEFT JOIN gt06_gps ON gt06_gps.packet_id = gt06_alarms.packet_id")
	q = f.apply(q, "gt06_packets")

	var list []models.AlarmEvent
	err := q.Order("gt06_packets.received_at DESC").Limit(limit).Scan(&list).Error
	return list, err
}

// ExportPackets 分批遍历符合条件的数据包（含定位与基站），fn 返回错误即中止
func (r *QueryRepo) ExportPackets(ctx context.Context, f PacketFilter, fn func(*models.Packet) error) error {
	q := f.apply(r.db.WithContext(ctx).Model(&models.Packet{}), "gt06_packets").
		Preload("GPS").
		Preload("LBS")

	var batch []models.Packet
	res := q.FindInBatches(&batch, exportBatch, func(tx *gorm.DB, _ int) error {
		for i := range batch {
			if err := fn(&batch[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return res.Error
}
