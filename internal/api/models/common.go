// Package models provides request and response models for the TrailGrade API.
package models

import (
	"math"
	"strconv"
	"time"
)

// Point represents a planar coordinate in the dataset CRS.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box represents an axis-aligned bounding box in the dataset CRS.
type Box struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// PagedResponseMeta contains pagination metadata.
type PagedResponseMeta struct {
	Limit      int     `json:"limit"`
	NextCursor *string `json:"nextCursor,omitempty"`
}

// HealthStatus represents the health status of a service or subsystem.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Timestamp is a helper type for time.Time with RFC3339 JSON formatting.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler for Timestamp.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	s := string(data[1 : len(data)-1])
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// Distance is a float64 that serializes +Inf as null, since JSON has no
// representation for infinity. Unreachable path lengths use it.
type Distance float64

// MarshalJSON implements json.Marshaler for Distance.
func (d Distance) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(d), 1) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(d), 'f', -1, 64)), nil
}

// UnmarshalJSON implements json.Unmarshaler for Distance.
func (d *Distance) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Distance(math.Inf(1))
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*d = Distance(v)
	return nil
}
