package api

type DeviceListParams struct {
	Page int `schema:"page"`
	Size int `schema:"size"`
}

type DeviceSummary struct {
	ID               uint    `json:"id"`
	DeviceName       string  `json:"deviceName"`
	DeviceCode       string  `json:"deviceCode"`
	Status           string  `json:"status"`
	Operator         string  `json:"operator"`
	Temperature      *float64 `json:"temperature"`
	Humidity         *float64 `json:"humidity"`
	FaultDescription string  `json:"faultDescription"`
}

type DeviceListResponse struct {
	Success     bool            `json:"success"`
	Data        []DeviceSummary `json:"data"`
	Total       int64           `json:"total"`
	CurrentPage int             `json:"currentPage"`
	PageSize    int             `json:"pageSize"`
}

type CreateDeviceRequest struct {
	DeviceName       string `json:"deviceName"`
	DeviceCode       string `json:"deviceCode"`
	Status           string `json:"status"`
	Operator         string `json:"operator"`
	FaultDescription string `json:"faultDescription"`
}

type CreateDeviceResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      uint   `json:"id"`
}

type UpdateDeviceRequest struct {
	DeviceName       string `json:"deviceName"`
	DeviceCode       string `json:"deviceCode"`
	Status           string `json:"status"`
	Operator         string `json:"operator"`
	FaultDescription string `json:"faultDescription"`
}

type StatusSlice struct {
	Status     string  `json:"status"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

type StatusStatisticsResponse struct {
	Success bool          `json:"success"`
	Data    []StatusSlice `json:"data"`
}

type WarningDevice struct {
	ID               uint     `json:"id"`
	DeviceName       string   `json:"device_name"`
	DeviceCode       string   `json:"device_code"`
	Status           string   `json:"status"`
	WarningType      string   `json:"warning_type,omitempty"`
	WarningValue     *float64 `json:"warning_value,omitempty"`
	WarningTime      string   `json:"warning_time,omitempty"`
	FaultDescription string   `json:"fault_description"`
}

type WarningListResponse struct {
	Status  string          `json:"status"`
	Data    []WarningDevice `json:"data"`
	Message string          `json:"message"`
}

type WarningUpdate struct {
	DeviceID     uint     `json:"device_id"`
	Status       string   `json:"status"`
	WarningType  string   `json:"warning_type,omitempty"`
	WarningValue *float64 `json:"warning_value,omitempty"`
	WarningTime  string   `json:"warning_time,omitempty"`
}

type WarningCheckResponse struct {
	Status  string          `json:"status"`
	Data    []WarningUpdate `json:"data"`
	Message string          `json:"message"`
}
