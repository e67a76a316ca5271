package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/jrhlh/nonye/internal/database"
	"github.com/jrhlh/nonye/pkg/api"
)

var statusColors = map[string]string{
	database.DeviceNormal:  "#4bb118",
	database.DeviceWarning: "#faad14",
	database.DeviceFaulty:  "#f5222d",
	database.DeviceOffline: "#bfbfbf",
}

func validDeviceStatus(status string) bool {
	_, ok := statusColors[status]
	return ok
}

type DeviceService struct {
	db *gorm.DB
}

func NewDeviceService(db *gorm.DB) *DeviceService {
	return &DeviceService{db: db}
}

func (s *DeviceService) AddRoutes(r chi.Router) {
	r.Route("/api/device", func(r chi.Router) {
		r.Get("/list", s.ListDevices)
		r.Post("/", s.CreateDevice)
		r.Put("/{device_id}", RestHandler(s.UpdateDevice))
		r.Delete("/{device_id}", RestHandler(s.DeleteDevice))
	})
	r.Get("/device/status-statistics", s.StatusStatistics)
	r.Get("/device/{device_id}/temperature-humidity-data", RestHandler(s.DeviceReadings))
}

func (s *DeviceService) ListDevices(w http.ResponseWriter, r *http.Request) {
	params, err := ParseRequestQueryParams[api.DeviceListParams](r)
	if err != nil {
		WriteJsonResponseStatus(w, http.StatusBadRequest, map[string]any{"success": false, "message": err.Error()})
		return
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Size < 1 {
		params.Size = 10
	}

	ctx := r.Context()

	var total int64
	if err := s.db.WithContext(ctx).Model(&database.Device{}).Count(&total).Error; err != nil {
		slog.Error("error counting devices", "error", err)
		WriteJsonResponseStatus(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "database error"})
		return
	}

	var devices []database.Device
	err = s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(params.Size).
		Offset((params.Page - 1) * params.Size).
		Find(&devices).Error
	if err != nil {
		slog.Error("error listing devices", "error", err)
		WriteJsonResponseStatus(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "database error"})
		return
	}

	latest, err := database.LatestReadings(ctx, s.db)
	if err != nil {
		slog.Error("error fetching latest readings", "error", err)
		WriteJsonResponseStatus(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "database error"})
		return
	}

	summaries := make([]api.DeviceSummary, len(devices))
	for i, device := range devices {
		summary := api.DeviceSummary{
			ID:               device.ID,
			DeviceName:       device.DeviceName,
			DeviceCode:       device.DeviceCode,
			Status:           device.Status,
			Operator:         device.Operator,
			FaultDescription: device.FaultDescription,
		}
		if reading, ok := latest[device.ID]; ok {
			temperature, humidity := reading.Temperature, reading.Humidity
			summary.Temperature = &temperature
			summary.Humidity = &humidity
		}
		summaries[i] = summary
	}

	WriteJsonResponse(w, api.DeviceListResponse{
		Success:     true,
		Data:        summaries,
		Total:       total,
		CurrentPage: params.Page,
		PageSize:    params.Size,
	})
}

func (s *DeviceService) CreateDevice(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest[api.CreateDeviceRequest](r)
	if err != nil {
		WriteJsonResponseStatus(w, http.StatusBadRequest, map[string]any{"success": false, "message": "unable to parse request body"})
		return
	}

	if req.DeviceName == "" || req.DeviceCode == "" || req.Status == "" {
		WriteJsonResponseStatus(w, http.StatusBadRequest, map[string]any{"success": false, "message": "deviceName, deviceCode and status are required"})
		return
	}
	if !validDeviceStatus(req.Status) {
		WriteJsonResponseStatus(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid status, allowed: normal/warning/faulty/offline"})
		return
	}

	device := database.Device{
		DeviceName:       req.DeviceName,
		DeviceCode:       req.DeviceCode,
		Status:           req.Status,
		Operator:         req.Operator,
		FaultDescription: req.FaultDescription,
	}
	if err := s.db.WithContext(r.Context()).Create(&device).Error; err != nil {
		slog.Error("error creating device", "device_code", req.DeviceCode, "error", err)
		WriteJsonResponseStatus(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "database error"})
		return
	}

	WriteJsonResponse(w, api.CreateDeviceResponse{Success: true, Message: "device created", ID: device.ID})
}

func (s *DeviceService) UpdateDevice(r *http.Request) (any, error) {
	deviceID, err := URLParamUint(r, "device_id")
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.UpdateDeviceRequest](r)
	if err != nil {
		return nil, err
	}
	if req.Status != "" && !validDeviceStatus(req.Status) {
		return nil, CodedErrorf(http.StatusBadRequest, "invalid status, allowed: normal/warning/faulty/offline")
	}

	updates := map[string]any{}
	if req.DeviceName != "" {
		updates["device_name"] = req.DeviceName
	}
	if req.DeviceCode != "" {
		updates["device_code"] = req.DeviceCode
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}
	if req.Operator != "" {
		updates["operator"] = req.Operator
	}
	if req.FaultDescription != "" {
		updates["fault_description"] = req.FaultDescription
	}

	result := s.db.WithContext(r.Context()).Model(&database.Device{}).Where("id = ?", deviceID).Updates(updates)
	if result.Error != nil {
		return nil, CodedError(http.StatusInternalServerError, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, CodedErrorf(http.StatusNotFound, "device %d not found", deviceID)
	}

	return map[string]any{"success": true, "message": "device updated"}, nil
}

func (s *DeviceService) DeleteDevice(r *http.Request) (any, error) {
	deviceID, err := URLParamUint(r, "device_id")
	if err != nil {
		return nil, err
	}

	result := s.db.WithContext(r.Context()).Delete(&database.Device{}, deviceID)
	if result.Error != nil {
		return nil, CodedError(http.StatusInternalServerError, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, CodedErrorf(http.StatusNotFound, "device %d not found", deviceID)
	}

	return map[string]any{"success": true, "message": "device deleted"}, nil
}

func (s *DeviceService) StatusStatistics(w http.ResponseWriter, r *http.Request) {
	counts, err := database.DeviceStatusCounts(r.Context(), s.db)
	if err != nil {
		slog.Error("error counting device statuses", "error", err)
		WriteJsonResponseStatus(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "database error"})
		return
	}

	var total int64
	for _, count := range counts {
		total += count
	}

	slices := make([]api.StatusSlice, 0, len(counts))
	for status, count := range counts {
		color, ok := statusColors[status]
		if !ok {
			color = statusColors[database.DeviceOffline]
		}
		slices = append(slices, api.StatusSlice{
			Status:     status,
			Percentage: float64(count) / float64(total) * 100,
			Color:      color,
		})
	}

	WriteJsonResponse(w, api.StatusStatisticsResponse{Success: true, Data: slices})
}

func (s *DeviceService) DeviceReadings(r *http.Request) (any, error) {
	deviceID, err := URLParamUint(r, "device_id")
	if err != nil {
		return nil, err
	}

	var device database.Device
	if err := s.db.WithContext(r.Context()).First(&device, deviceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "device %d not found", deviceID)
		}
		return nil, CodedError(http.StatusInternalServerError, err)
	}

	var readings []database.SensorReading
	err = s.db.WithContext(r.Context()).
		Where("device_id = ?", deviceID).
		Order("timestamp ASC").
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
