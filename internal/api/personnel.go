package api

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/jrhlh/nonye/internal/auth"
	"github.com/jrhlh/nonye/internal/database"
	"github.com/jrhlh/nonye/pkg/api"
)

func validPermission(level string) bool {
	switch level {
	case database.PermissionAdmin, database.PermissionSupervisor, database.PermissionOperator:
		return true
	}
	return false
}

type PersonnelService struct {
	db *gorm.DB
}

func NewPersonnelService(db *gorm.DB) *PersonnelService {
	return &PersonnelService{db: db}
}

func (s *PersonnelService) AddRoutes(r chi.Router) {
	r.Route("/personnel", func(r chi.Router) {
		r.Get("/users", RestHandler(s.ListUsers))
		r.Post("/users", RestHandler(s.CreateUser))
		r.Put("/users/{user_id}", RestHandler(s.UpdateUser))
		r.Delete("/users/{user_id}", RestHandler(s.DeleteUser))
		r.Get("/logs", RestHandler(s.OperationLogs))
	})
}

type listUsersParams struct {
	FilterPermission string `schema:"filter_permission"`
}

func (s *PersonnelService) ListUsers(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[listUsersParams](r)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(r.Context()).
		Model(&database.User{}).
		Order("CASE permission_level WHEN 'Admin' THEN 1 WHEN 'Supervisor' THEN 2 ELSE 3 END, hire_date DESC")

	if params.FilterPermission != "" && params.FilterPermission != "all" {
		if !validPermission(params.FilterPermission) {
			return nil, CodedErrorf(http.StatusBadRequest, "invalid permission filter '%s'", params.FilterPermission)
		}
		query = query.Where("permission_level = ?", params.FilterPermission)
	}

	var users []database.User
	if err := query.Find(&users).Error; err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}

	data := make([]api.PersonnelUser, len(users))
	for i, user := range users {
		data[i] = toPersonnelUser(user)
	}
	return api.PersonnelListResponse{Code: http.StatusOK, Data: data}, nil
}

func toPersonnelUser(user database.User) api.PersonnelUser {
	hireDate := ""
	if user.HireDate.Valid {
		hireDate = user.HireDate.Time.Format("2006-01-02")
	}
	return api.PersonnelUser{
		ID:              user.ID,
		Username:        user.Username,
		Email:           user.Email,
		Phone:           user.Phone,
		PermissionLevel: user.PermissionLevel,
		HireDate:        hireDate,
		Status:          user.Status,
		LinkedDevices:   user.LinkedDevices,
	}
}

func (s *PersonnelService) CreateUser(r *http.Request) (any, error) {
	req, err := ParseRequest[api.CreateUserRequest](r)
	if err != nil {
		return nil, err
	}
	if req.Username == "" || req.Password == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "username and password are required")
	}
	if req.PermissionLevel == "" {
		req.PermissionLevel = database.PermissionOperator
	}
	if !validPermission(req.PermissionLevel) {
		return nil, CodedErrorf(http.StatusBadRequest, "invalid permission level '%s'", req.PermissionLevel)
	}

	var hireDate sql.NullTime
	if req.HireDate != "" {
		parsed, err := time.Parse("2006-01-02", req.HireDate)
		if err != nil {
			return nil, CodedErrorf(http.StatusBadRequest, "invalid hire_date '%s', expected YYYY-MM-DD", req.HireDate)
		}
		hireDate = sql.NullTime{Time: parsed, Valid: true}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}

	createdBy := ""
	actorID := uint(0)
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		createdBy = claims.Username
		actorID = claims.UserID
	}

	user := database.User{
		Username:        req.Username,
		Password:        string(hash),
		PermissionLevel: req.PermissionLevel,
		Email:           req.Email,
		Phone:           req.Phone,
		Status:          database.UserActive,
		HireDate:        hireDate,
		CreatedBy:       createdBy,
	}
	if err := s.db.WithContext(r.Context()).Create(&user).Error; err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "could not create user, username may already exist")
	}

	database.LogOperation(r.Context(), s.db, actorID, "user_created", "created user "+req.Username,
		map[string]any{"user_id": user.ID, "permission_level": req.PermissionLevel})

	return toPersonnelUser(user), nil
}

func (s *PersonnelService) UpdateUser(r *http.Request) (any, error) {
	userID, err := URLParamUint(r, "user_id")
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.UpdateUserRequest](r)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Email != "" {
		updates["email"] = req.Email
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	if req.PermissionLevel != "" {
		if !validPermission(req.PermissionLevel) {
			return nil, CodedErrorf(http.StatusBadRequest, "invalid permission level '%s'", req.PermissionLevel)
		}
		updates["permission_level"] = req.PermissionLevel
	}
	if req.Status != "" {
		if req.Status != database.UserActive && req.Status != database.UserDisabled {
			return nil, CodedErrorf(http.StatusBadRequest, "invalid status '%s'", req.Status)
		}
		updates["status"] = req.Status
	}
	if len(updates) == 0 {
		return nil, CodedErrorf(http.StatusBadRequest, "no fields to update")
	}

	result := s.db.WithContext(r.Context()).Model(&database.User{}).Where("id = ?", userID).Updates(updates)
	if result.Error != nil {
		return nil, CodedError(http.StatusInternalServerError, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, CodedErrorf(http.StatusNotFound, "user %d not found", userID)
	}

	actorID := uint(0)
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		actorID = claims.UserID
	}
	database.LogOperation(r.Context(), s.db, actorID, "user_updated", "updated user", map[string]any{"user_id": userID, "fields": updates})

	return map[string]any{"code": http.StatusOK, "message": "user updated"}, nil
}

func (s *PersonnelService) DeleteUser(r *http.Request) (any, error) {
	userID, err := URLParamUint(r, "user_id")
	if err != nil {
		return nil, err
	}

	var user database.User
	if err := s.db.WithContext(r.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "user %d not found", userID)
		}
		return nil, CodedError(http.StatusInternalServerError, err)
	}
	if user.PermissionLevel == database.PermissionAdmin {
		return nil, CodedErrorf(http.StatusForbidden, "admin accounts cannot be deleted")
	}

	if err := s.db.WithContext(r.Context()).Delete(&database.User{}, userID).Error; err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}

	actorID := uint(0)
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		actorID = claims.UserID
	}
	database.LogOperation(r.Context(), s.db, actorID, "user_deleted", "deleted user "+user.Username, map[string]any{"user_id": userID})

	return map[string]any{"code": http.StatusOK, "message": "user deleted"}, nil
}

func (s *PersonnelService) OperationLogs(r *http.Request) (any, error) {
	var entries []database.OperationLog
	err := s.db.WithContext(r.Context()).
		Order("timestamp DESC").
		Limit(100).
		Find(&entries).Error
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}

	data := make([]api.OperationLogEntry, len(entries))
	for i, entry := range entries {
		data[i] = api.OperationLogEntry{
			ID:        entry.ID,
			UserID:    entry.UserID,
			Type:      entry.Type,
			Message:   entry.Message,
			Details:   entry.Details,
			Timestamp: entry.Timestamp.Format(time.RFC3339),
		}
	}
	return api.OperationLogResponse{Code: http.StatusOK, Data: data}, nil
}
