package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taoyao-code/gt06-gateway/internal/protocol/gt06"
	"github.com/taoyao-code/gt06-gateway/internal/storage"
)

// Repository 基于 pgx 的记录写入实现
type Repository struct {
	Pool *pgxpool.Pool
}

var _ storage.Store = (*Repository)(nil)

// Store 在单个事务中写入数据包及其子表，返回数据包 id
func (r *Repository) Store(ctx context.Context, rec *gt06.Record, peer storage.Peer) (int64, error) {
	var id int64
	err := pgx.BeginFunc(ctx, r.Pool, func(tx pgx.Tx) error {
		var err error
		if id, err = insertPacket(ctx, tx, rec, peer); err != nil {
			return fmt.Errorf("insert packet: %w", err)
		}
		if err := insertChildren(ctx, tx, id, rec); err != nil {
			return err
		}
		if tid := storage.TerminalOf(rec, peer); tid != "" {
			if err := touchSession(ctx, tx, tid, peer, rec.ReceivedAt); err != nil {
				return fmt.Errorf("touch session: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func insertPacket(ctx context.Context, tx pgx.Tx, rec *gt06.Record, peer storage.Peer) (int64, error) {
	const q = `INSERT INTO gt06_packets (
                   raw_hex, received_at, length, protocol, protocol_name, serial_number, checksum,
                   needs_ack, is_extended, terminal_id, device_type, timezone_offset, iccid,
                   extra_hex, extended_hex, data_hex, client_ip, client_port)
               VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
               RETURNING id`
	var deviceType, tz any
	if rec.Login != nil {
		deviceType = optUint16(rec.Login.DeviceType)
		if rec.Login.TimezoneOffset != nil {
			tz = int32(*rec.Login.TimezoneOffset)
		}
	}
	var id int64
	err := tx.QueryRow(ctx, q,
		rec.RawHex(), rec.ReceivedAt, rec.Length, int16(rec.Protocol), rec.ProtocolName,
		int32(rec.SerialNumber), int32(rec.Checksum), rec.NeedsAck, rec.Extended,
		nullString(storage.TerminalOf(rec, peer)), deviceType, tz, nullString(rec.ICCID),
		nullString(rec.ExtraHex), nullString(rec.ExtendedHex), nullString(rec.DataHex),
		nullString(peer.IP), peer.Port,
	).Scan(&id)
	return id, err
}

func insertChildren(ctx context.Context, tx pgx.Tx, packetID int64, rec *gt06.Record) error {
	if g := rec.GPS; g != nil {
		const q = `INSERT INTO gt06_gps (packet_id, gps_time, latitude, longitude, speed, course, satellites,
                       real_time, positioned, east, north)
                   VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
		if _, err := tx.Exec(ctx, q, packetID, g.Time, g.Latitude, g.Longitude, int16(g.Speed), int16(g.Course),
			int16(g.Satellites), g.RealTime, g.Positioned, g.East, g.North); err != nil {
			return fmt.Errorf("insert gps: %w", err)
		}
	}
	if c := rec.LBS; c != nil {
		const q = `INSERT INTO gt06_lbs (packet_id, mcc, mnc, lac, cell_id) VALUES ($1,$2,$3,$4,$5)`
		if _, err := tx.Exec(ctx, q, packetID, int32(c.MCC), int32(c.MNC), int32(c.LAC), int64(c.CellID)); err != nil {
			return fmt.Errorf("insert lbs: %w", err)
		}
	}
	if s := rec.Status; s != nil {
		const q = `INSERT INTO gt06_status (packet_id, oil_electricity, gps_tracking, charging, acc_high, defence,
                       low_battery, gsm_signal, voltage, signal_strength, alarm_language)
                   VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
		var sig any
		if s.SignalStrength != nil {
			sig = int16(*s.SignalStrength)
		}
		if _, err := tx.Exec(ctx, q, packetID, s.OilElectricity, s.GPSTracking, s.Charging, s.ACCHigh, s.Defence,
			s.LowBattery, int16(s.GSMSignal), s.Voltage, sig, optUint16(s.AlarmLanguage)); err != nil {
			return fmt.Errorf("insert status: %w", err)
		}
	}
	if a := rec.Alarm; a != nil {
		const q = `INSERT INTO gt06_alarms (packet_id, emergency, overspeed, low_power, shock, into_area, out_area,
                       long_no_operation, distance)
                   VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
		if _, err := tx.Exec(ctx, q, packetID, a.Emergency, a.Overspeed, a.LowPower, a.Shock, a.IntoArea,
			a.OutArea, a.LongNoOperation, a.Distance); err != nil {
			return fmt.Errorf("insert alarm: %w", err)
		}
	}
	if w := rec.WiFi; w != nil {
		const q = `INSERT INTO gt06_wifi (packet_id, wifi_time, wifi_count) VALUES ($1,$2,$3) RETURNING id`
		var wifiID int64
		if err := tx.QueryRow(ctx, q, packetID, w.Time, w.Count).Scan(&wifiID); err != nil {
			return fmt.Errorf("insert wifi: %w", err)
		}
		if len(w.AccessPoints) > 0 {
			rows := make([][]any, 0, len(w.AccessPoints))
			for _, ap := range w.AccessPoints {
				rows = append(rows, []any{wifiID, ap.MAC, int16(ap.RSSI)})
			}
			if _, err := tx.CopyFrom(ctx, pgx.Identifier{"gt06_wifi_aps"}, []string{"wifi_id", "mac", "rssi"},
				pgx.CopyFromRows(rows)); err != nil {
				return fmt.Errorf("insert wifi access points: %w", err)
			}
		}
	}
	return nil
}

// touchSession 刷新终端活动会话；不存在时新建
func touchSession(ctx context.Context, tx pgx.Tx, terminalID string, peer storage.Peer, at time.Time) error {
	const q = `INSERT INTO gt06_device_sessions (terminal_id, session_start, client_ip, client_port, last_heartbeat, total_packets, status)
               VALUES ($1, $2, $3, $4, $2, 1, 'active')
               ON CONFLICT (terminal_id) WHERE status = 'active'
               DO UPDATE SET last_heartbeat = EXCLUDED.last_heartbeat,
                             client_ip = EXCLUDED.client_ip,
                             client_port = EXCLUDED.client_port,
                             total_packets = gt06_device_sessions.total_packets + 1`
	_, err := tx.Exec(ctx, q, terminalID, at, nullString(peer.IP), peer.Port)
	return err
}

// CloseSession 结束终端的活动会话
func (r *Repository) CloseSession(ctx context.Context, terminalID string, at time.Time) error {
	const q = `UPDATE gt06_device_sessions SET status = 'closed', session_end = $2
               WHERE terminal_id = $1 AND status = 'active'`
	_, err := r.Pool.Exec(ctx, q, terminalID, at)
	return err
}

// CloseStaleSessions 启动时关闭上次进程遗留的活动会话，返回关闭数量
func (r *Repository) CloseStaleSessions(ctx context.Context, at time.Time) (int64, error) {
	const q = `UPDATE gt06_device_sessions SET status = 'closed', session_end = COALESCE(last_heartbeat, $1)
               WHERE status = 'active'`
	tag, err := r.Pool.Exec(ctx, q, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func optUint16(v *uint16) any {
	if v == nil {
		return nil
	}
	return int32(*v)
}
