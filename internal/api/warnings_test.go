package api_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	backend "github.com/jrhlh/nonye/internal/api"
	"github.com/jrhlh/nonye/internal/database"
	"github.com/jrhlh/nonye/internal/warning"
	"github.com/jrhlh/nonye/pkg/api"
)

func warningRouter(db *gorm.DB) *chi.Mux {
	router := chi.NewRouter()
	backend.NewWarningService(db, warning.NewScanner(db)).AddRoutes(router)
	return router
}

// seedStuckTemperature writes a flat temperature series spanning three hours
// while the other metrics vary normally.
func seedStuckTemperature(t *testing.T, db *gorm.DB, deviceID uint) {
	t.Helper()
	newest := time.Now().UTC()
	for i := 0; i < 24; i++ {
		require.NoError(t, db.Create(&database.SensorReading{
			DeviceID:    deviceID,
			Timestamp:   newest.Add(-time.Duration(i) * 8 * time.Minute),
			Temperature: 25.0,
			Humidity:    60.0 + float64(i),
			PH:          6.0 + 0.1*float64(i%10),
		}).Error)
	}
}

func TestWarningCheckFlagsDevice(t *testing.T) {
	db := createDB(t, &database.Device{DeviceName: "Greenhouse A", DeviceCode: "GH-A-01", Status: database.DeviceNormal})
	router := warningRouter(db)

	var device database.Device
	require.NoError(t, db.First(&device).Error)
	seedStuckTemperature(t, db, device.ID)

	rec := doRequest(router, http.MethodGet, "/api/warning/check", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	response := decodeBody[api.WarningCheckResponse](t, rec)
	assert.Equal(t, "success", response.Status)
	require.Len(t, response.Data, 1)
	assert.Equal(t, device.ID, response.Data[0].DeviceID)
	assert.Equal(t, database.DeviceWarning, response.Data[0].Status)
	assert.Equal(t, database.WarningTemperatureConstant, response.Data[0].WarningType)
	require.NotNil(t, response.Data[0].WarningValue)
	assert.Equal(t, 25.0, *response.Data[0].WarningValue)
	assert.NotEmpty(t, response.Data[0].WarningTime)
}

func TestWarningList(t *testing.T) {
	db := createDB(t, &database.Device{DeviceName: "Greenhouse A", DeviceCode: "GH-A-01", Status: database.DeviceNormal})
	router := warningRouter(db)

	var device database.Device
	require.NoError(t, db.First(&device).Error)
	seedStuckTemperature(t, db, device.ID)

	rec := doRequest(router, http.MethodGet, "/api/warning/check", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/warning/list", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	response := decodeBody[api.WarningListResponse](t, rec)
	assert.Equal(t, "success", response.Status)
	require.Len(t, response.Data, 1)
	entry := response.Data[0]
	assert.Equal(t, database.DeviceWarning, entry.Status)
	assert.Equal(t, database.WarningTemperatureConstant, entry.WarningType)
	// No operator-entered description: a default is filled in from the type.
	assert.Equal(t, "temperature reading stuck", entry.FaultDescription)
}

func TestWarningListIncludesFaultyDevices(t *testing.T) {
	db := createDB(t,
		&database.Device{DeviceName: "Pump", DeviceCode: "P-01", Status: database.DeviceFaulty, FaultDescription: "pump motor seized"},
		&database.Device{DeviceName: "Healthy", DeviceCode: "H-01", Status: database.DeviceNormal},
	)
	router := warningRouter(db)

	rec := doRequest(router, http.MethodGet, "/api/warning/list", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	response := decodeBody[api.WarningListResponse](t, rec)
	require.Len(t, response.Data, 1)
	assert.Equal(t, "Pump", response.Data[0].DeviceName)
	assert.Equal(t, "pump motor seized", response.Data[0].FaultDescription)
}

func TestWarningResolve(t *testing.T) {
	db := createDB(t, &database.Device{DeviceName: "Greenhouse A", DeviceCode: "GH-A-01", Status: database.DeviceNormal})
	router := warningRouter(db)

	var device database.Device
	require.NoError(t, db.First(&device).Error)
	seedStuckTemperature(t, db, device.ID)

	rec := doRequest(router, http.MethodGet, "/api/warning/check", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodPost, fmt.Sprintf("/api/warning/resolve/%d", device.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resolved database.Device
	require.NoError(t, db.First(&resolved, device.ID).Error)
	assert.Equal(t, database.DeviceNormal, resolved.Status)
	assert.False(t, resolved.WarningType.Valid)
	assert.False(t, resolved.WarningValue.Valid)
	assert.False(t, resolved.WarningTime.Valid)

	rec = doRequest(router, http.MethodGet, "/api/warning/list", nil)
	assert.Empty(t, decodeBody[api.WarningListResponse](t, rec).Data)

	rec = doRequest(router, http.MethodPost, "/api/warning/resolve/99999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
