package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/gt06-gateway/internal/session"
	"github.com/taoyao-code/gt06-gateway/internal/storage/gormrepo"
	"github.com/taoyao-code/gt06-gateway/internal/storage/models"
	redisstorage "github.com/taoyao-code/gt06-gateway/internal/storage/redis"
)

// QueryStore 只读查询依赖，由 gormrepo.QueryRepo 实现
type QueryStore interface {
	ListPackets(ctx context.Context, f gormrepo.PacketFilter, page gormrepo.Page) ([]models.Packet, int64, error)
	GetPacket(ctx context.Context, id int64) (*models.Packet, error)
	ListGPS(ctx context.Context, f gormrepo.PacketFilter, limit int) ([]models.GPSPoint, error)
	LatestGPS(ctx context.Context, terminalID string) (*models.GPSPoint, error)
	ListDevices(ctx context.Context) ([]models.DeviceSummary, error)
	ListSessions(ctx context.Context, f gormrepo.SessionFilter, page gormrepo.Page) ([]models.DeviceSession, int64, error)
	ListAlarms(ctx context.Context, f gormrepo.PacketFilter, limit int) ([]models.AlarmEvent, error)
	ExportPackets(ctx context.Context, f gormrepo.PacketFilter, fn func(*models.Packet) error) error
}

// PositionSource 最新位置缓存，由 redis.PositionCache 实现
type PositionSource interface {
	Latest(ctx context.Context, terminalID string) (*redisstorage.Position, error)
}

// ReadOnlyHandler 只读API处理器
type ReadOnlyHandler struct {
	repo      QueryStore
	positions PositionSource
	sess      session.SessionManager
	logger    *zap.Logger
	now       func() time.Time
}

// NewReadOnlyHandler 创建只读API处理器；positions 与 sess 可为 nil
func NewReadOnlyHandler(repo QueryStore, positions PositionSource, sess session.SessionManager, logger *zap.Logger) *ReadOnlyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadOnlyHandler{
		repo:      repo,
		positions: positions,
		sess:      sess,
		logger:    logger,
		now:       time.Now,
	}
}

// DeviceView 设备汇总附带在线状态
type DeviceView struct {
	models.DeviceSummary
	Online bool `json:"online"`
}

// ListPackets 分页查询数据包
// @Summary 查询数据包
// @Description 按终端号、协议名、时间范围分页查询原始数据包
// @Tags 数据包
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "页码(默认1)"
// @Param limit query int false "每页数量(默认50,最大1000)"
// @Param terminalId query string false "终端号"
// @Param protocolName query string false "协议名称，如 GPS_LBS_STATUS"
// @Param startDate query string false "开始时间(RFC3339 或 2006-01-02)"
// @Param endDate query string false "结束时间(RFC3339 或 2006-01-02)"
// @Success 200 {object} map[string]interface{} "成功"
// @Failure 400 {object} map[string]interface{} "参数错误"
// @Router /api/packets [get]
func (h *ReadOnlyHandler) ListPackets(c *gin.Context) {
	f, ok := h.packetFilter(c)
	if !ok {
		return
	}
	page := pageOf(c)
	list, total, err := h.repo.ListPackets(c.Request.Context(), f, page)
	if err != nil {
		h.internalError(c, "list packets", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"packets": list,
		"pagination": gin.H{
			"page":    page.Page,
			"limit":   page.Limit,
			"total":   total,
			"hasMore": int64(page.Offset()+len(list)) < total,
		},
	})
}

// GetPacket 查询单个数据包及其解析明细
// @Summary 查询数据包详情
// @Description 返回数据包及 GPS/LBS/状态/报警/WiFi 明细
// @Tags 数据包
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "数据包ID"
// @Success 200 {object} models.Packet "成功"
// @Failure 404 {object} map[string]interface{} "不存在"
// @Router /api/packets/{id} [get]
func (h *ReadOnlyHandler) GetPacket(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid packet id"})
		return
	}
	p, err := h.repo.GetPacket(c.Request.Context(), id)
	if errors.Is(err, gormrepo.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "packet not found"})
		return
	}
	if err != nil {
		h.internalError(c, "get packet", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListGPS 查询定位轨迹
// @Summary 查询定位点
// @Tags 定位
// @Produce json
// @Security ApiKeyAuth
// @Param terminalId query string false "终端号"
// @Param startDate query string false "开始时间"
// @Param endDate query string false "结束时间"
// @Param limit query int false "数量(默认50,最大1000)"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/gps [get]
func (h *ReadOnlyHandler) ListGPS(c *gin.Context) {
	points, ok := h.gpsPoints(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points, "count": len(points)})
}

// GeoJSON 以 GeoJSON FeatureCollection 返回定位轨迹
// @Summary 定位轨迹 GeoJSON
// @Tags 定位
// @Produce json
// @Security ApiKeyAuth
// @Param terminalId query string false "终端号"
// @Param startDate query string false "开始时间"
// @Param endDate query string false "结束时间"
// @Param limit query int false "数量(默认50,最大1000)"
// @Success 200 {object} FeatureCollection "成功"
// @Router /api/gps/geojson [get]
func (h *ReadOnlyHandler) GeoJSON(c *gin.Context) {
	points, ok := h.gpsPoints(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toFeatureCollection(points))
}

// ListDevices 查询设备列表
// @Summary 查询设备列表
// @Description 按终端汇总数据包数量与首末上报时间，附带在线状态
// @Tags 设备
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/devices [get]
func (h *ReadOnlyHandler) ListDevices(c *gin.Context) {
	list, err := h.repo.ListDevices(c.Request.Context())
	if err != nil {
		h.internalError(c, "list devices", err)
		return
	}
	now := h.now()
	out := make([]DeviceView, 0, len(list))
	online := 0
	for _, d := range list {
		v := DeviceView{DeviceSummary: d}
		if h.sess != nil {
			v.Online = h.sess.IsOnline(d.TerminalID, now)
		}
		if v.Online {
			online++
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, gin.H{"devices": out, "total": len(out), "online": online})
}

// LatestPosition 查询终端最新位置
// @Summary 终端最新位置
// @Description 优先读取 Redis 位置缓存，缓存缺失时回退到数据库
// @Tags 设备
// @Produce json
// @Security ApiKeyAuth
// @Param terminalId path string true "终端号"
// @Success 200 {object} map[string]interface{} "成功"
// @Failure 404 {object} map[string]interface{} "无定位数据"
// @Router /api/devices/{terminalId}/latest [get]
func (h *ReadOnlyHandler) LatestPosition(c *gin.Context) {
	tid := c.Param("terminalId")
	ctx := c.Request.Context()
	resp := gin.H{"terminalId": tid}
	if h.sess != nil {
		if p, ok := h.sess.Presence(tid, h.now()); ok {
			resp["presence"] = p
		}
	}

	if h.positions != nil {
		pos, err := h.positions.Latest(ctx, tid)
		switch {
		case err == nil:
			resp["source"] = "cache"
			resp["position"] = pos
			c.JSON(http.StatusOK, resp)
			return
		case !errors.Is(err, redisstorage.ErrNoPosition):
			h.logger.Warn("position cache lookup failed", zap.String("terminal_id", tid), zap.Error(err))
		}
	}

	point, err := h.repo.LatestGPS(ctx, tid)
	if errors.Is(err, gormrepo.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no position for terminal", "terminalId": tid})
		return
	}
	if err != nil {
		h.internalError(c, "latest gps", err)
		return
	}
	resp["source"] = "database"
	resp["position"] = point
	c.JSON(http.StatusOK, resp)
}

// ListSessions 分页查询设备会话
// @Summary 查询设备会话
// @Tags 设备
// @Produce json
// @Security ApiKeyAuth
// @Param terminalId query string false "终端号"
// @Param status query string false "active 或 closed"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/sessions [get]
func (h *ReadOnlyHandler) ListSessions(c *gin.Context) {
	status := c.Query("status")
	if status != "" && status != "active" && status != "closed" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be active or closed"})
		return
	}
	page := pageOf(c)
	f := gormrepo.SessionFilter{TerminalID: c.Query("terminalId"), Status: status}
	list, total, err := h.repo.ListSessions(c.Request.Context(), f, page)
	if err != nil {
		h.internalError(c, "list sessions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sessions": list,
		"pagination": gin.H{"page": page.Page, "limit": page.Limit, "total": total},
	})
}

// ListAlarms 查询报警记录
// @Summary 查询报警
// @Tags 报警
// @Produce json
// @Security ApiKeyAuth
// @Param terminalId query string false "终端号"
// @Param startDate query string false "开始时间"
// @Param endDate query string false "结束时间"
// @Param limit query int false "数量(默认50,最大1000)"
// @Success 200 {object} map[string]interface{} "成功"
// @Router /api/alarms [get]
func (h *ReadOnlyHandler) ListAlarms(c *gin.Context) {
	f, ok := h.packetFilter(c)
	if !ok {
		return
	}
	list, err := h.repo.ListAlarms(c.Request.Context(), f, queryInt(c, "limit", 0))
	if err != nil {
		h.internalError(c, "list alarms", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alarms": list, "count": len(list)})
}

func (h *ReadOnlyHandler) gpsPoints(c *gin.Context) ([]models.GPSPoint, bool) {
	f, ok := h.packetFilter(c)
	if !ok {
		return nil, false
	}
	points, err := h.repo.ListGPS(c.Request.Context(), f, queryInt(c, "limit", 0))
	if err != nil {
		h.internalError(c, "list gps", err)
		return nil, false
	}
	return points, true
}

// packetFilter 解析公共过滤参数，出错时已写入 400 响应
func (h *ReadOnlyHandler) packetFilter(c *gin.Context) (gormrepo.PacketFilter, bool) {
	f := gormrepo.PacketFilter{
		TerminalID:   c.Query("terminalId"),
		ProtocolName: c.Query("protocolName"),
	}
	var err error
	if f.Start, err = parseTime(c.Query("startDate"), false); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid startDate", "details": err.Error()})
		return f, false
	}
	if f.End, err = parseTime(c.Query("endDate"), true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid endDate", "details": err.Error()})
		return f, false
	}
	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endDate is before startDate"})
		return f, false
	}
	return f, true
}

func (h *ReadOnlyHandler) internalError(c *gin.Context, op string, err error) {
	h.logger.Error("api query failed", zap.String("op", op), zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

const dateOnly = "2006-01-02"

// parseTime 接受 RFC3339 或日期；仅日期的结束时间取当天结束
func parseTime(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func pageOf(c *gin.Context) gormrepo.Page {
	return gormrepo.Page{
		Page:  queryInt(c, "page", 1),
		Limit: queryInt(c, "limit", 0),
	}.Normalize()
}

func queryInt(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
