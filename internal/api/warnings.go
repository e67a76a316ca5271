package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/jrhlh/nonye/internal/database"
	"github.com/jrhlh/nonye/internal/warning"
	"github.com/jrhlh/nonye/pkg/api"
)

type WarningService struct {
	db      *gorm.DB
	scanner *warning.Scanner
}

func NewWarningService(db *gorm.DB, scanner *warning.Scanner) *WarningService {
	return &WarningService{db: db, scanner: scanner}
}

func (s *WarningService) AddRoutes(r chi.Router) {
	r.Route("/api/warning", func(r chi.Router) {
		r.Get("/check", RestHandler(s.Check))
		r.Get("/list", RestHandler(s.List))
		r.Post("/resolve/{device_id}", RestHandler(s.Resolve))
	})
}

func (s *WarningService) Check(r *http.Request) (any, error) {
	updates, err := s.scanner.Scan(r.Context())
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}

	data := make([]api.WarningUpdate, len(updates))
	for i, update := range updates {
		converted := api.WarningUpdate{
			DeviceID:     update.DeviceID,
			Status:       update.Status,
			WarningType:  update.WarningType,
			WarningValue: update.WarningValue,
		}
		if update.WarningTime != nil {
			converted.WarningTime = update.WarningTime.Format(timestampLayout)
		}
		data[i] = converted
	}

	return api.WarningCheckResponse{
		Status:  "success",
		Data:    data,
		Message: fmt.Sprintf("updated %d device statuses", len(updates)),
	}, nil
}

// defaultFaultDescription is used when no operator-entered description is
// stored for a flagged device.
func defaultFaultDescription(warningType string) string {
	switch warningType {
	case database.WarningTemperatureConstant:
		return "temperature reading stuck"
	case database.WarningHumidityConstant:
		return "humidity reading stuck"
	case database.WarningPHConstant:
		return "pH reading stuck"
	default:
		return "environmental data anomaly"
	}
}

func (s *WarningService) List(r *http.Request) (any, error) {
	var devices []database.Device
	err := s.db.WithContext(r.Context()).
		Where("status IN ?", []string{database.DeviceWarning, database.DeviceFaulty}).
		Order("warning_time DESC").
		Find(&devices).Error
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}

	data := make([]api.WarningDevice, len(devices))
	for i, device := range devices {
		entry := api.WarningDevice{
			ID:               device.ID,
			DeviceName:       device.DeviceName,
			DeviceCode:       device.DeviceCode,
			Status:           device.Status,
			FaultDescription: device.FaultDescription,
		}
		if device.WarningType.Valid {
			entry.WarningType = device.WarningType.String
		}
		if device.WarningValue.Valid {
			value := device.WarningValue.Float64
			entry.WarningValue = &value
		}
		if device.WarningTime.Valid {
			entry.WarningTime = device.WarningTime.Time.Format(timestampLayout)
		}
		if entry.FaultDescription == "" {
			entry.FaultDescription = defaultFaultDescription(entry.WarningType)
		}
		data[i] = entry
	}

	return api.WarningListResponse{
		Status:  "success",
		Data:    data,
		Message: fmt.Sprintf("found %d devices with warnings", len(data)),
	}, nil
}

func (s *WarningService) Resolve(r *http.Request) (any, error) {
	deviceID, err := URLParamUint(r, "device_id")
	if err != nil {
		return nil, err
	}

	result := s.db.WithContext(r.Context()).
		Model(&database.Device{}).
		Where("id = ?", deviceID).
		Updates(map[string]any{
			"status":        database.DeviceNormal,
			"warning_type":  nil,
			"warning_value": nil,
			"warning_time":  nil,
		})
	if result.Error != nil {
		return nil, CodedError(http.StatusInternalServerError, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, CodedErrorf(http.StatusNotFound, "device %d not found", deviceID)
	}

	return map[string]any{"status": "success", "message": "device warning resolved"}, nil
}
