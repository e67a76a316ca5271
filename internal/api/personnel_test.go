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
	"github.com/jrhlh/nonye/internal/auth"
	"github.com/jrhlh/nonye/internal/database"
	"github.com/jrhlh/nonye/pkg/api"
)

// personnelSetup seeds an admin account and returns a router with the
// personnel routes mounted behind token auth, plus a valid admin token.
func personnelSetup(t *testing.T, extra ...any) (*chi.Mux, *gorm.DB, string) {
	t.Helper()

	admin := &database.User{
		Username:        "admin",
		Password:        hashPassword(t, "adminpass"),
		PermissionLevel: database.PermissionAdmin,
		Status:          database.UserActive,
	}
	db := createDB(t, append([]any{admin}, extra...)...)

	issuer := auth.NewTokenIssuer("testsecret", time.Hour)
	token, err := issuer.Issue(admin.ID, admin.Username, true)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(issuer))
		backend.NewPersonnelService(db).AddRoutes(r)
	})
	return router, db, token
}

func TestPersonnelRequiresAuth(t *testing.T) {
	router, _, _ := personnelSetup(t)

	rec := doRequest(router, http.MethodGet, "/personnel/users", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doAuthedRequest(router, http.MethodGet, "/personnel/users", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateUser(t *testing.T) {
	router, db, token := personnelSetup(t)

	rec := doAuthedRequest(router, http.MethodPost, "/personnel/users", token, api.CreateUserRequest{
		Username:        "carol",
		Password:        "secret99",
		Email:           "carol@example.com",
		PermissionLevel: database.PermissionSupervisor,
		HireDate:        "2026-03-15",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	created := decodeBody[api.PersonnelUser](t, rec)
	assert.Equal(t, "carol", created.Username)
	assert.Equal(t, database.PermissionSupervisor, created.PermissionLevel)
	assert.Equal(t, "2026-03-15", created.HireDate)
	assert.Equal(t, database.UserActive, created.Status)

	var stored database.User
	require.NoError(t, db.Where("username = ?", "carol").First(&stored).Error)
	assert.Equal(t, "admin", stored.CreatedBy)
	assert.NotEqual(t, "secret99", stored.Password)

	rec = doAuthedRequest(router, http.MethodPost, "/personnel/users", token, api.CreateUserRequest{
		Username: "dave", Password: "x", PermissionLevel: "Overlord",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doAuthedRequest(router, http.MethodPost, "/personnel/users", token, api.CreateUserRequest{
		Username: "eve", Password: "x", HireDate: "15/03/2026",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListUsers(t *testing.T) {
	router, _, token := personnelSetup(t,
		&database.User{Username: "op1", Password: "x", PermissionLevel: database.PermissionOperator, Status: database.UserActive},
		&database.User{Username: "sup1", Password: "x", PermissionLevel: database.PermissionSupervisor, Status: database.UserActive},
	)

	rec := doAuthedRequest(router, http.MethodGet, "/personnel/users", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	response := decodeBody[api.PersonnelListResponse](t, rec)
	require.Len(t, response.Data, 3)
	// Admins sort first, then supervisors, then operators.
	assert.Equal(t, "admin", response.Data[0].Username)
	assert.Equal(t, "sup1", response.Data[1].Username)
	assert.Equal(t, "op1", response.Data[2].Username)

	rec = doAuthedRequest(router, http.MethodGet, "/personnel/users?filter_permission=Operator", token, nil)
	response = decodeBody[api.PersonnelListResponse](t, rec)
	require.Len(t, response.Data, 1)
	assert.Equal(t, "op1", response.Data[0].Username)

	rec = doAuthedRequest(router, http.MethodGet, "/personnel/users?filter_permission=Janitor", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateUser(t *testing.T) {
	router, db, token := personnelSetup(t,
		&database.User{Username: "op1", Password: "x", PermissionLevel: database.PermissionOperator, Status: database.UserActive},
	)

	var user database.User
	require.NoError(t, db.Where("username = ?", "op1").First(&user).Error)

	rec := doAuthedRequest(router, http.MethodPut, fmt.Sprintf("/personnel/users/%d", user.ID), token, api.UpdateUserRequest{
		Status: database.UserDisabled, Email: "op1@example.com",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var updated database.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	assert.Equal(t, database.UserDisabled, updated.Status)
	assert.Equal(t, "op1@example.com", updated.Email)

	rec = doAuthedRequest(router, http.MethodPut, fmt.Sprintf("/personnel/users/%d", user.ID), token, api.UpdateUserRequest{Status: "Suspended"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doAuthedRequest(router, http.MethodPut, fmt.Sprintf("/personnel/users/%d", user.ID), token, api.UpdateUserRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doAuthedRequest(router, http.MethodPut, "/personnel/users/99999", token, api.UpdateUserRequest{Email: "x@example.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteUser(t *testing.T) {
	router, db, token := personnelSetup(t,
		&database.User{Username: "op1", Password: "x", PermissionLevel: database.PermissionOperator, Status: database.UserActive},
	)

	var admin, operator database.User
	require.NoError(t, db.Where("username = ?", "admin").First(&admin).Error)
	require.NoError(t, db.Where("username = ?", "op1").First(&operator).Error)

	rec := doAuthedRequest(router, http.MethodDelete, fmt.Sprintf("/personnel/users/%d", admin.ID), token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doAuthedRequest(router, http.MethodDelete, fmt.Sprintf("/personnel/users/%d", operator.ID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doAuthedRequest(router, http.MethodDelete, fmt.Sprintf("/personnel/users/%d", operator.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOperationLogs(t *testing.T) {
	router, db, token := personnelSetup(t)

	rec := doAuthedRequest(router, http.MethodPost, "/personnel/users", token, api.CreateUserRequest{
		Username: "carol", Password: "secret99",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var admin database.User
	require.NoError(t, db.Where("username = ?", "admin").First(&admin).Error)

	rec = doAuthedRequest(router, http.MethodGet, "/personnel/logs", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	response := decodeBody[api.OperationLogResponse](t, rec)
	require.Len(t, response.Data, 1)
	assert.Equal(t, "user_created", response.Data[0].Type)
	assert.Equal(t, admin.ID, response.Data[0].UserID)
	assert.Contains(t, response.Data[0].Message, "carol")
}
