package api

type ReadingRangeParams struct {
	StartTime string `schema:"start_time"`
	EndTime   string `schema:"end_time"`
}

type Reading struct {
	DeviceID    uint    `json:"device_id"`
	Timestamp   string  `json:"timestamp"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	PH          float64 `json:"ph"`
}

type ReadingRangeResponse struct {
	Success bool      `json:"success"`
	Data    []Reading `json:"data"`
}

type LatestReadingResponse struct {
	Success bool    `json:"success"`
	Data    Reading `json:"data"`
}

type DailyAverageParams struct {
	DeviceID uint   `schema:"deviceId"`
	Date     string `schema:"date"`
}

type DailyAverageResponse struct {
	Code int `json:"code"`
	Data struct {
		Temperatures []float64 `json:"temperatures"`
		Dates        []string  `json:"dates"`
	} `json:"data"`
}
