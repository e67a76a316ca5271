// Package warning flags devices whose recent telemetry has been suspiciously
// flat: a sensor reporting the same value for hours is more likely stuck than
// measuring a perfectly stable field.
package warning

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/jrhlh/nonye/internal/database"
)

const recentWindow = 24 // readings inspected per device

// metricPolicy is the flatness tolerance for one metric: the series is
// considered stuck when every value stays within Threshold of the first and
// the window spans at least MinSpan.
type metricPolicy struct {
	WarningType string
	Threshold   float64
	MinSpan     time.Duration
	Value       func(database.SensorReading) float64
}

// Checked in priority order, short-circuiting on the first match.
var policies = []metricPolicy{
	{
		WarningType: database.WarningTemperatureConstant,
		Threshold:   0.5,
		MinSpan:     2 * time.Hour,
		Value:       func(r database.SensorReading) float64 { return r.Temperature },
	},
	{
		WarningType: database.WarningHumidityConstant,
		Threshold:   0.5,
		MinSpan:     2 * time.Hour,
		Value:       func(r database.SensorReading) float64 { return r.Humidity },
	},
	{
		WarningType: database.WarningPHConstant,
		Threshold:   0.2,
		MinSpan:     1 * time.Hour,
		Value:       func(r database.SensorReading) float64 { return r.PH },
	},
}

// seriesConstant reports whether values stays within threshold of its first
// element over a window spanning at least minSpan. Readings may arrive in any
// order; the span is measured between the oldest and newest timestamps.
func seriesConstant(readings []database.SensorReading, value func(database.SensorReading) float64, threshold float64, minSpan time.Duration) (float64, bool) {
	if len(readings) < 2 {
		return 0, false
	}

	oldest, newest := readings[0].Timestamp, readings[0].Timestamp
	for _, r := range readings[1:] {
		if r.Timestamp.Before(oldest) {
			oldest = r.Timestamp
		}
		if r.Timestamp.After(newest) {
			newest = r.Timestamp
		}
	}
	if newest.Sub(oldest) < minSpan {
		return 0, false
	}

	first := value(readings[0])
	for _, r := range readings[1:] {
		diff := value(r) - first
		if diff > threshold || diff < -threshold {
			return 0, false
		}
	}
	return first, true
}

// Detect scans one device's recent readings and returns the first matching
// warning type and the stuck value.
func Detect(readings []database.SensorReading) (string, float64, bool) {
	for _, policy := range policies {
		if value, ok := seriesConstant(readings, policy.Value, policy.Threshold, policy.MinSpan); ok {
			return policy.WarningType, value, true
		}
	}
	return "", 0, false
}

// Update describes one device status transition produced by a scan.
type Update struct {
	DeviceID     uint
	Status       string
	WarningType  string
	WarningValue *float64
	WarningTime  *time.Time
}

// Scanner runs the detector over every device and persists status
// transitions. The scan is synchronous; concurrency is bounded by the
// surrounding request cycle.
type Scanner struct {
	db  *gorm.DB
	now func() time.Time
}

func NewScanner(db *gorm.DB) *Scanner {
	return &Scanner{db: db, now: time.Now}
}

func (s *Scanner) Scan(ctx context.Context) ([]Update, error) {
	var devices []database.Device
	if err := s.db.WithContext(ctx).Find(&devices).Error; err != nil {
		return nil, err
	}

	var updates []Update
	for _, device := range devices {
		// Hard faults are reported through a different path; the stuck-sensor
		// scan leaves them alone.
		if device.Status == database.DeviceFaulty {
			continue
		}

		readings, err := database.RecentReadings(ctx, s.db, device.ID, recentWindow)
		if err != nil {
			return nil, err
		}

		warningType, value, flagged := Detect(readings)
		switch {
		case flagged:
			now := s.now()
			updates = append(updates, Update{
				DeviceID:     device.ID,
				Status:       database.DeviceWarning,
				WarningType:  warningType,
				WarningValue: &value,
				WarningTime:  &now,
			})
		case device.Status == database.DeviceWarning:
			// Readings vary again: restore the device to normal.
			updates = append(updates, Update{DeviceID: device.ID, Status: database.DeviceNormal})
		}
	}

	for _, update := range updates {
		fields := map[string]any{
			"status":        update.Status,
			"warning_type":  sql.NullString{String: update.WarningType, Valid: update.WarningType != ""},
			"warning_value": nullFloat(update.WarningValue),
			"warning_time":  nullTime(update.WarningTime),
		}
		if err := s.db.WithContext(ctx).Model(&database.Device{}).Where("id = ?", update.DeviceID).Updates(fields).Error; err != nil {
			slog.Error("error updating device warning status", "device_id", update.DeviceID, "error", err)
			return nil, err
		}
	}

	return updates, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
