package models

import "time"

// TrafficPoint is one observation of request traffic over an interval.
type TrafficPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Requests  float64   `json:"requests"`
	Bytes     float64   `json:"bytes"`
	Errors    int       `json:"errors"`
}

// LoadSample is what a metrics source reports for a single instant.
type LoadSample struct {
	Timestamp   time.Time `json:"timestamp"`
	Requests    float64   `json:"current_requests"`
	Bytes       float64   `json:"bytes,omitempty"`
	Utilization *float64  `json:"utilization,omitempty"`
	Source      string    `json:"source,omitempty"`
}

func (s *LoadSample) ToPoint() TrafficPoint {
	return TrafficPoint{
		Timestamp: s.Timestamp,
		Requests:  s.Requests,
		Bytes:     s.Bytes,
	}
}

// HistoricalData is a window of resampled traffic points.
type HistoricalData struct {
	Data         []TrafficPoint `json:"data"`
	Interval     string         `json:"interval"`
	StartTime    string         `json:"start_time"`
	EndTime      string         `json:"end_time"`
	TotalRecords int            `json:"total_records"`
}

func NewHistoricalData(points []TrafficPoint, interval string) *HistoricalData {
	h := &HistoricalData{
		Data:         points,
		Interval:     interval,
		TotalRecords: len(points),
	}
	if h.Data == nil {
		h.Data = []TrafficPoint{}
	}
	if len(points) > 0 {
		h.StartTime = points[0].Timestamp.Format(TimestampLayout)
		h.EndTime = points[len(points)-1].Timestamp.Format(TimestampLayout)
	}
	return h
}

// TimestampLayout is the zone-less ISO layout used on the wire.
const TimestampLayout = "2006-01-02T15:04:05"
