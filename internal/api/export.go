package api

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/taoyao-code/gt06-gateway/internal/storage/gormrepo"
	"github.com/taoyao-code/gt06-gateway/internal/storage/models"
)

var packetCSVHeader = []string{
	"id", "received_at", "terminal_id", "protocol", "protocol_name", "serial_number",
	"length", "is_extended", "latitude", "longitude", "speed", "course", "satellites",
	"mcc", "mnc", "lac", "cell_id", "client_ip", "raw_hex",
}

// Export 导出数据包
// @Summary 导出数据包
// @Description 按条件导出数据包（含定位与基站），gzip=1 时以 gzip 压缩输出
// @Tags 导出
// @Produce json
// @Produce text/csv
// @Security ApiKeyAuth
// @Param format path string true "json 或 csv"
// @Param terminalId query string false "终端号"
// @Param protocolName query string false "协议名称"
// @Param startDate query string false "开始时间"
// @Param endDate query string false "结束时间"
// @Param gzip query bool false "是否压缩"
// @Success 200 {file} file "导出文件"
// @Failure 400 {object} map[string]interface{} "参数错误"
// @Router /api/export/{format} [get]
func (h *ReadOnlyHandler) Export(c *gin.Context) {
	format := c.Param("format")
	if format != "json" && format != "csv" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported export format, use json or csv"})
		return
	}
	f, ok := h.packetFilter(c)
	if !ok {
		return
	}
	compress, _ := strconv.ParseBool(c.DefaultQuery("gzip", "false"))

	filename := "gt06_packets_" + h.now().UTC().Format("20060102T150405Z") + "." + format
	contentType := "application/json"
	if format == "csv" {
		contentType = "text/csv; charset=utf-8"
	}
	if compress {
		filename += ".gz"
		contentType = "application/gzip"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	var w io.Writer = c.Writer
	var zw *gzip.Writer
	if compress {
		zw = gzip.NewWriter(c.Writer)
		w = zw
	}

	var err error
	rows := 0
	if format == "csv" {
		rows, err = h.exportCSV(c, f, w)
	} else {
		rows, err = h.exportJSON(c, f, w)
	}
	if zw != nil {
		if cerr := zw.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		// 响应头已发出，只能记录日志并中止
		h.logger.Error("export failed", zap.String("format", format), zap.Int("rows", rows), zap.Error(err))
		_ = c.Error(err)
		return
	}
	h.logger.Info("export completed", zap.String("format", format), zap.Int("rows", rows), zap.Bool("gzip", compress))
}

func (h *ReadOnlyHandler) exportCSV(c *gin.Context, f gormrepo.PacketFilter, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(packetCSVHeader); err != nil {
		return 0, err
	}
	rows := 0
	err := h.repo.ExportPackets(c.Request.Context(), f, func(p *models.Packet) error {
		rows++
		return cw.Write(packetCSVRow(p))
	})
	cw.Flush()
	if err == nil {
		err = cw.Error()
	}
	return rows, err
}

// exportJSON 流式输出 {"exportedAt":...,"packets":[...]}
func (h *ReadOnlyHandler) exportJSON(c *gin.Context, f gormrepo.PacketFilter, w io.Writer) (int, error) {
	if _, err := fmt.Fprintf(w, `{"exportedAt":%q,"packets":[`, h.now().UTC().Format(time.RFC3339)); err != nil {
		return 0, err
	}
	rows := 0
	err := h.repo.ExportPackets(c.Request.Context(), f, func(p *models.Packet) error {
		if rows > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		rows++
		b, err := json.Marshal(p)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	})
	if err != nil {
		return rows, err
	}
	_, err = fmt.Fprintf(w, `],"count":%d}`, rows)
	return rows, err
}

func packetCSVRow(p *models.Packet) []string {
	row := []string{
		strconv.FormatInt(p.ID, 10),
		p.ReceivedAt.UTC().Format(time.RFC3339Nano),
		deref(p.TerminalID),
		fmt.Sprintf("0x%02X", p.Protocol),
		p.ProtocolName,
		strconv.FormatInt(int64(p.SerialNumber), 10),
		strconv.FormatInt(int64(p.Length), 10),
		strconv.FormatBool(p.IsExtended),
		"", "", "", "", "",
		"", "", "", "",
		deref(p.ClientIP),
		p.RawHex,
	}
	if g := p.GPS; g != nil {
		row[8] = floatOrEmpty(g.Latitude)
		row[9] = floatOrEmpty(g.Longitude)
		row[10] = strconv.Itoa(int(g.Speed))
		row[11] = strconv.Itoa(int(g.Course))
		row[12] = strconv.Itoa(int(g.Satellites))
	}
	if l := p.LBS; l != nil {
		row[13] = strconv.FormatInt(int64(l.MCC), 10)
		row[14] = strconv.FormatInt(int64(l.MNC), 10)
		row[15] = strconv.FormatInt(l.LAC, 10)
		row[16] = strconv.FormatInt(l.CellID, 10)
	}
	return row
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatOrEmpty(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 6, 64)
}
