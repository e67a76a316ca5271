package api_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	backend "github.com/jrhlh/nonye/internal/api"
	"github.com/jrhlh/nonye/internal/database"
	"github.com/jrhlh/nonye/pkg/api"
)

func telemetryRouter(db *gorm.DB) *chi.Mux {
	router := chi.NewRouter()
	backend.NewTelemetryService(db).AddRoutes(router)
	return router
}

func seedHourlyReadings(t *testing.T, db *gorm.DB, deviceID uint, start time.Time, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		require.NoError(t, db.Create(&database.SensorReading{
			DeviceID:    deviceID,
			Timestamp:   start.Add(time.Duration(i) * time.Hour),
			Temperature: 20.0 + float64(i),
			Humidity:    55.0,
			PH:          6.5,
		}).Error)
	}
}

func TestReadingRange(t *testing.T) {
	db := createDB(t, &database.Device{DeviceName: "A", DeviceCode: "A-01", Status: database.DeviceNormal})
	router := telemetryRouter(db)

	start := time.Date(2026, time.May, 10, 0, 0, 0, 0, time.UTC)
	seedHourlyReadings(t, db, 1, start, 6)

	query := url.Values{}
	query.Set("start_time", "2026-05-10 01:00:00")
	query.Set("end_time", "2026-05-10 03:00:00")

	rec := doRequest(router, http.MethodGet, "/api/weather/data?"+query.Encode(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	response := decodeBody[api.ReadingRangeResponse](t, rec)
	require.Len(t, response.Data, 3)
	assert.Equal(t, "2026-05-10 01:00:00", response.Data[0].Timestamp)
	assert.Equal(t, "2026-05-10 03:00:00", response.Data[2].Timestamp)
}

func TestReadingRangeValidation(t *testing.T) {
	router := telemetryRouter(createDB(t))

	rec := doRequest(router, http.MethodGet, "/api/weather/data", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	query := url.Values{}
	query.Set("start_time", "yesterday")
	query.Set("end_time", "2026-05-10 03:00:00")
	rec = doRequest(router, http.MethodGet, "/api/weather/data?"+query.Encode(), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLatestReading(t *testing.T) {
	db := createDB(t, &database.Device{DeviceName: "A", DeviceCode: "A-01", Status: database.DeviceNormal})
	router := telemetryRouter(db)

	start := time.Date(2026, time.May, 10, 0, 0, 0, 0, time.UTC)
	seedHourlyReadings(t, db, 1, start, 4)

	rec := doRequest(router, http.MethodGet, "/api/weather/latest?device_id=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	response := decodeBody[api.LatestReadingResponse](t, rec)
	assert.Equal(t, "2026-05-10 03:00:00", response.Data.Timestamp)
	assert.Equal(t, 23.0, response.Data.Temperature)

	rec = doRequest(router, http.MethodGet, "/api/weather/latest?device_id=42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/weather/latest", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDailyAverage(t *testing.T) {
	db := createDB(t, &database.Device{DeviceName: "A", DeviceCode: "A-01", Status: database.DeviceNormal})
	router := telemetryRouter(db)

	day := time.Date(2026, time.May, 10, 10, 0, 0, 0, time.UTC)
	seedHourlyReadings(t, db, 1, day, 3) // 20, 21, 22 -> avg 21
	// A reading on the next day must not leak into the average.
	require.NoError(t, db.Create(&database.SensorReading{DeviceID: 1, Timestamp: day.Add(24 * time.Hour), Temperature: 99}).Error)

	rec := doRequest(router, http.MethodGet, "/temperature/daily/average?deviceId=1&date=2026-05-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	response := decodeBody[api.DailyAverageResponse](t, rec)
	require.Len(t, response.Data.Temperatures, 1)
	assert.InDelta(t, 21.0, response.Data.Temperatures[0], 1e-9)
	assert.Equal(t, []string{"2026-05-10"}, response.Data.Dates)
}

func TestDailyAverageValidation(t *testing.T) {
	router := telemetryRouter(createDB(t))

	rec := doRequest(router, http.MethodGet, "/temperature/daily/average?deviceId=1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, http.MethodGet, "/temperature/daily/average?deviceId=1&date=05-10-2026", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, http.MethodGet, "/temperature/daily/average?deviceId=1&date=2026-05-10", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeviceNames(t *testing.T) {
	db := createDB(t,
		&database.Device{DeviceName: "Greenhouse A", DeviceCode: "GH-A-01", Status: database.DeviceNormal},
		&database.Device{DeviceName: "Field B", DeviceCode: "FB-01", Status: database.DeviceOffline},
	)
	router := telemetryRouter(db)

	rec := doRequest(router, http.MethodGet, "/api/devices", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	type deviceNamesResponse struct {
		Code int               `json:"code"`
		Data map[string]string `json:"data"`
	}
	response := decodeBody[deviceNamesResponse](t, rec)
	assert.Equal(t, http.StatusOK, response.Code)
	require.Len(t, response.Data, 2)

	names := make([]string, 0, len(response.Data))
	for _, name := range response.Data {
		names = append(names, name)
	}
	assert.ElementsMatch(t, []string{"Greenhouse A", "Field B"}, names)
}
