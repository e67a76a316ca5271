package api

// Payload types for the /aiask endpoints. Responses carry a numeric Code
// mirroring the HTTP status because the dashboard frontend switches on it.

type AskRequest struct {
	Question string `json:"question"`
	UserID   string `json:"user_id"`
}

type AskResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ChatMessage struct {
	Role      string `json:"role"` // "user", "assistant", or "system"
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type HistoryResponse struct {
	Code       int           `json:"code"`
	Message    string        `json:"message"`
	History    []ChatMessage `json:"history"`
	Processing bool          `json:"processing"`
	RequestID  string        `json:"request_id,omitempty"`
}

type ClearHistoryRequest struct {
	UserID string `json:"user_id"`
}

type ClearHistoryResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type ChatStatusResponse struct {
	Code       int     `json:"code"`
	Processing bool    `json:"processing"`
	RequestID  string  `json:"request_id,omitempty"`
	LastActive float64 `json:"last_active"`
}
