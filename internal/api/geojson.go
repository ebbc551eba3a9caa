package api

import (
	"time"

	"github.com/taoyao-code/gt06-gateway/internal/storage/models"
)

// FeatureCollection GeoJSON 要素集合
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature GeoJSON 点要素
type Feature struct {
	Type       string          `json:"type"`
	Geometry   Geometry        `json:"geometry"`
	Properties PointProperties `json:"properties"`
}

// Geometry 坐标顺序为 [经度, 纬度]
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// PointProperties 定位点属性
type PointProperties struct {
	PacketID   int64      `json:"packetId"`
	TerminalID string     `json:"terminalId,omitempty"`
	ReceivedAt time.Time  `json:"receivedAt"`
	GPSTime    *time.Time `json:"gpsTime,omitempty"`
	Speed      int16      `json:"speed"`
	Course     int16      `json:"course"`
	Satellites int16      `json:"satellites"`
	Positioned bool       `json:"positioned"`
}

func toFeatureCollection(points []models.GPSPoint) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(points))}
	for _, p := range points {
		if p.Latitude == nil || p.Longitude == nil {
			continue
		}
		props := PointProperties{
			PacketID:   p.PacketID,
			ReceivedAt: p.ReceivedAt,
			GPSTime:    p.GPSTime,
			Speed:      p.Speed,
			Course:     p.Course,
			Satellites: p.Satellites,
			Positioned: p.Positioned,
		}
		if p.TerminalID != nil {
			props.TerminalID = *p.TerminalID
		}
		fc.Features = append(fc.Features, Feature{
			Type:       "Feature",
			Geometry:   Geometry{Type: "Point", Coordinates: [2]float64{*p.Longitude, *p.Latitude}},
			Properties: props,
		})
	}
	return fc
}
