package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jrhlh/nonye/internal/chat"
	"github.com/jrhlh/nonye/pkg/api"
)

const anonymousUser = "anonymous"

// ChatService fronts the conversation orchestrator. The ask endpoint replies
// with an immediate acknowledgment; outcomes are observed by polling history
// or status.
type ChatService struct {
	orchestrator *chat.Orchestrator
}

func NewChatService(orchestrator *chat.Orchestrator) *ChatService {
	return &ChatService{orchestrator: orchestrator}
}

func (s *ChatService) AddRoutes(r chi.Router) {
	r.Route("/aiask", func(r chi.Router) {
		r.Post("/ask", s.Ask)
		r.Get("/history", s.GetHistory)
		r.Post("/clear", s.ClearHistory)
		r.Get("/status", s.GetStatus)
	})
}

type chatQueryParams struct {
	UserID string `schema:"user_id"`
}

func (s *ChatService) Ask(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest[api.AskRequest](r)
	if err != nil {
		WriteJsonResponseStatus(w, http.StatusBadRequest, api.AskResponse{
			Code: http.StatusBadRequest, Message: "unable to parse request body",
		})
		return
	}

	if req.Question == "" {
		WriteJsonResponseStatus(w, http.StatusBadRequest, api.AskResponse{
			Code: http.StatusBadRequest, Message: "question must not be empty",
		})
		return
	}
	if req.UserID == "" {
		req.UserID = anonymousUser
	}

	requestID, err := s.orchestrator.Ask(req.UserID, req.Question)
	if err != nil {
		var busy *chat.BusyError
		if errors.As(err, &busy) {
			WriteJsonResponseStatus(w, http.StatusTooManyRequests, api.AskResponse{
				Code:      http.StatusTooManyRequests,
				Message:   "a request is already being processed, try again later",
				RequestID: busy.RequestID,
			})
			return
		}
		WriteJsonResponseStatus(w, http.StatusInternalServerError, api.AskResponse{
			Code: http.StatusInternalServerError, Message: "internal server error",
		})
		return
	}

	WriteJsonResponse(w, api.AskResponse{
		Code:      http.StatusOK,
		Message:   "request accepted, processing",
		RequestID: requestID,
	})
}

func (s *ChatService) GetHistory(w http.ResponseWriter, r *http.Request) {
	params, err := ParseRequestQueryParams[chatQueryParams](r)
	if err != nil || params.UserID == "" {
		WriteJsonResponseStatus(w, http.StatusBadRequest, api.HistoryResponse{
			Code: http.StatusBadRequest, Message: "user_id must not be empty", History: []api.ChatMessage{},
		})
		return
	}

	snapshot := s.orchestrator.Store().Snapshot(params.UserID)

	history := make([]api.ChatMessage, len(snapshot.History))
	for i, msg := range snapshot.History {
		history[i] = api.ChatMessage{
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: msg.Timestamp.Format(time.RFC3339),
		}
	}

	WriteJsonResponse(w, api.HistoryResponse{
		Code:       http.StatusOK,
		Message:    "history fetched",
		History:    history,
		Processing: snapshot.Processing,
		RequestID:  snapshot.RequestID,
	})
}

func (s *ChatService) ClearHistory(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest[api.ClearHistoryRequest](r)
	if err != nil {
		WriteJsonResponseStatus(w, http.StatusBadRequest, api.ClearHistoryResponse{
			Code: http.StatusBadRequest, Message: "unable to parse request body",
		})
		return
	}
	if req.UserID == "" {
		req.UserID = anonymousUser
	}

	s.orchestrator.Store().Clear(req.UserID)

	WriteJsonResponse(w, api.ClearHistoryResponse{Code: http.StatusOK, Message: "conversation history cleared"})
}

func (s *ChatService) GetStatus(w http.ResponseWriter, r *http.Request) {
	params, err := ParseRequestQueryParams[chatQueryParams](r)
	if err != nil || params.UserID == "" {
		WriteJsonResponseStatus(w, http.StatusBadRequest, api.ChatStatusResponse{Code: http.StatusBadRequest})
		return
	}

	snapshot := s.orchestrator.Store().Snapshot(params.UserID)

	WriteJsonResponse(w, api.ChatStatusResponse{
		Code:       http.StatusOK,
		Processing: snapshot.Processing,
		RequestID:  snapshot.RequestID,
		LastActive: float64(snapshot.LastActive.UnixMilli()) / 1000,
	})
}
