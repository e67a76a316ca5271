package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/jrhlh/nonye/internal/database"
	"github.com/jrhlh/nonye/pkg/api"
)

const timestampLayout = "2006-01-02 15:04:05"

// parseTimestamp accepts the dashboard's "2006-01-02 15:04:05" format and
// falls back to RFC3339.
func parseTimestamp(value string) (time.Time, error) {
	if ts, err := time.Parse(timestampLayout, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}

func toAPIReading(reading database.SensorReading) api.Reading {
	return api.Reading{
		DeviceID:    reading.DeviceID,
		Timestamp:   reading.Timestamp.Format(timestampLayout),
		Temperature: reading.Temperature,
		Humidity:    reading.Humidity,
		PH:          reading.PH,
	}
}

type TelemetryService struct {
	db *gorm.DB
}

func NewTelemetryService(db *gorm.DB) *TelemetryService {
	return &TelemetryService{db: db}
}

func (s *TelemetryService) AddRoutes(r chi.Router) {
	r.Route("/api/weather", func(r chi.Router) {
		r.Get("/data", RestHandler(s.ReadingRange))
		r.Get("/latest", RestHandler(s.LatestReading))
	})
	r.Get("/temperature/daily/average", RestHandler(s.DailyAverage))
	r.Get("/api/devices", RestHandler(s.DeviceNames))
}

func (s *TelemetryService) ReadingRange(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[api.ReadingRangeParams](r)
	if err != nil {
		return nil, err
	}
	if params.StartTime == "" || params.EndTime == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "start_time and end_time parameters are required")
	}

	start, err := parseTimestamp(params.StartTime)
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "invalid start_time '%s'", params.StartTime)
	}
	end, err := parseTimestamp(params.EndTime)
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "invalid end_time '%s'", params.EndTime)
	}

	var readings []database.SensorReading
	err = s.db.WithContext(r.Context()).
		Where("timestamp BETWEEN ? AND ?", start, end).
		Order("device_id, timestamp ASC").
		Find(&readings).Error
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}

	data := make([]api.Reading, len(readings))
	for i, reading := range readings {
		data[i] = toAPIReading(reading)
	}
	return api.ReadingRangeResponse{Success: true, Data: data}, nil
}

type latestReadingParams struct {
	DeviceID uint `schema:"device_id"`
}

func (s *TelemetryService) LatestReading(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[latestReadingParams](r)
	if err != nil {
		return nil, err
	}
	if params.DeviceID == 0 {
		return nil, CodedErrorf(http.StatusBadRequest, "device_id parameter is required")
	}

	var reading database.SensorReading
	err = s.db.WithContext(r.Context()).
		Where("device_id = ?", params.DeviceID).
		Order("timestamp DESC").
		First(&reading).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "no data for device %d", params.DeviceID)
		}
		return nil, CodedError(http.StatusInternalServerError, err)
	}

	return api.LatestReadingResponse{Success: true, Data: toAPIReading(reading)}, nil
}

func (s *TelemetryService) DailyAverage(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[api.DailyAverageParams](r)
	if err != nil {
		return nil, err
	}
	if params.DeviceID == 0 || params.Date == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "deviceId and date parameters are required")
	}

	day, err := time.Parse("2006-01-02", params.Date)
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "invalid date '%s', expected YYYY-MM-DD", params.Date)
	}

	avg, found, err := database.DailyAverageTemperature(r.Context(), s.db, params.DeviceID, day)
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}
	if !found {
		return nil, CodedErrorf(http.StatusNotFound, "no temperature data for device %d on %s", params.DeviceID, params.Date)
	}

	resp := api.DailyAverageResponse{Code: http.StatusOK}
	resp.Data.Temperatures = []float64{avg}
	resp.Data.Dates = []string{params.Date}
	return resp, nil
}

// DeviceNames returns the id-to-name map the chart selectors consume.
func (s *TelemetryService) DeviceNames(r *http.Request) (any, error) {
	var devices []database.Device
	if err := s.db.WithContext(r.Context()).Select("id", "device_name").Find(&devices).Error; err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}

	names := make(map[uint]string, len(devices))
	for _, device := range devices {
		names[device.ID] = device.DeviceName
	}
	return map[string]any{"code": http.StatusOK, "message": "Success", "data": names}, nil
}
