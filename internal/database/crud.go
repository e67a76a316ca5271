package database

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LatestReadings returns the most recent sensor reading for every device that
// has at least one reading.
func LatestReadings(ctx context.Context, db *gorm.DB) (map[uint]SensorReading, error) {
	var readings []SensorReading
	err := db.WithContext(ctx).
		Raw(`SELECT r.* FROM sensor_readings r
		     JOIN (SELECT device_id, MAX(timestamp) AS max_ts FROM sensor_readings GROUP BY device_id) m
		       ON r.device_id = m.device_id AND r.timestamp = m.max_ts`).
		Scan(&readings).Error
	if err != nil {
		return nil, err
	}

	latest := make(map[uint]SensorReading, len(readings))
	for _, r := range readings {
		latest[r.DeviceID] = r
	}
	return latest, nil
}

// RecentReadings returns up to limit readings for a device, newest first.
func RecentReadings(ctx context.Context, db *gorm.DB, deviceID uint, limit int) ([]SensorReading, error) {
	var readings []SensorReading
	err := db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&readings).Error
	if err != nil {
		return nil, err
	}
	return readings, nil
}

func DeviceStatusCounts(ctx context.Context, db *gorm.DB) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := db.WithContext(ctx).
		Model(&Device{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// DailyAverageTemperature averages a device's temperature readings over one
// calendar day. Returns false when the device has no readings that day.
func DailyAverageTemperature(ctx context.Context, db *gorm.DB, deviceID uint, day time.Time) (float64, bool, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	var row struct {
		Avg   float64
		Count int64
	}
	err := db.WithContext(ctx).
		Model(&SensorReading{}).
		Select("AVG(temperature) as avg, COUNT(*) as count").
		Where("device_id = ? AND timestamp >= ? AND timestamp < ?", deviceID, start, end).
		Scan(&row).Error
	if err != nil {
		return 0, false, err
	}
	return row.Avg, row.Count > 0, nil
}

// LogOperation records a personnel audit entry. Failures are logged and
// swallowed so audit writes never fail the request that triggered them.
func LogOperation(ctx context.Context, db *gorm.DB, userID uint, opType, message string, details any) {
	var detailsJSON datatypes.JSON
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			slog.Error("error marshalling operation log details", "error", err)
		} else {
			detailsJSON = datatypes.JSON(b)
		}
	}

	entry := OperationLog{
		UserID:    userID,
		Type:      opType,
		Message:   message,
		Details:   detailsJSON,
		Timestamp: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(&entry).Error; err != nil {
		slog.Error("error saving operation log entry", "user_id", userID, "type", opType, "error", err)
	}
}
