package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/jrhlh/nonye/internal/auth"
	"github.com/jrhlh/nonye/internal/database"
	"github.com/jrhlh/nonye/pkg/api"
)

// MailSender is satisfied by mailer.Sender; tests substitute a recorder.
type MailSender interface {
	SendVerificationCode(receiver, code string) error
}

type AuthService struct {
	db     *gorm.DB
	issuer *auth.TokenIssuer
	codes  *auth.CodeStore
	mail   MailSender

	// SecureCookies should be enabled behind TLS; left off for local
	// development to match the dashboard dev server.
	SecureCookies bool
}

func NewAuthService(db *gorm.DB, issuer *auth.TokenIssuer, codes *auth.CodeStore, mail MailSender) *AuthService {
	return &AuthService{db: db, issuer: issuer, codes: codes, mail: mail}
}

func (s *AuthService) AddRoutes(r chi.Router) {
	r.Post("/auth/login", s.Login)
	r.Post("/register", s.Register)
	r.Post("/captcha/email", s.SendCode)
	r.Post("/captcha/verify", s.VerifyCode)
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest[api.LoginRequest](r)
	if err != nil || req.Username == "" || req.Password == "" {
		WriteJsonResponseStatus(w, http.StatusBadRequest, messageResponse{Message: "username and password are required"})
		return
	}

	var user database.User
	if err := s.db.WithContext(r.Context()).Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Warn("login attempt for unknown user", "username", req.Username)
			WriteJsonResponseStatus(w, http.StatusUnauthorized, messageResponse{Message: "user not found"})
			return
		}
		slog.Error("error querying user for login", "error", err)
		WriteJsonResponseStatus(w, http.StatusInternalServerError, messageResponse{Message: "internal server error"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		slog.Warn("login attempt with wrong password", "username", req.Username)
		WriteJsonResponseStatus(w, http.StatusUnauthorized, messageResponse{Message: "wrong password"})
		return
	}

	if user.Status != database.UserActive {
		WriteJsonResponseStatus(w, http.StatusForbidden, messageResponse{Message: "user is disabled"})
		return
	}

	isAdmin := user.PermissionLevel == database.PermissionAdmin
	token, err := s.issuer.Issue(user.ID, user.Username, isAdmin)
	if err != nil {
		slog.Error("error issuing token", "username", req.Username, "error", err)
		WriteJsonResponseStatus(w, http.StatusInternalServerError, messageResponse{Message: "internal server error"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		MaxAge:   int(s.issuer.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
		Secure:   s.SecureCookies,
		Path:     "/",
	})

	slog.Info("user logged in", "username", user.Username)
	WriteJsonResponse(w, api.LoginResponse{
		Success:  true,
		Message:  "login successful",
		Username: user.Username,
		IsAdmin:  isAdmin,
		UserID:   user.ID,
	})
}

func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest[api.RegisterRequest](r)
	if err != nil || req.Username == "" || req.Password == "" {
		WriteJsonResponseStatus(w, http.StatusBadRequest, messageResponse{Message: "username and password are required"})
		return
	}

	var existing database.User
	err = s.db.WithContext(r.Context()).Where("username = ?", req.Username).First(&existing).Error
	if err == nil {
		WriteJsonResponseStatus(w, http.StatusBadRequest, messageResponse{Message: "username already exists"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		slog.Error("error checking username", "error", err)
		WriteJsonResponseStatus(w, http.StatusInternalServerError, messageResponse{Message: "internal server error"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("error hashing password", "error", err)
		WriteJsonResponseStatus(w, http.StatusInternalServerError, messageResponse{Message: "internal server error"})
		return
	}

	user := database.User{
		Username:        req.Username,
		Password:        string(hash),
		PermissionLevel: database.PermissionOperator,
		Status:          database.UserActive,
	}
	if err := s.db.WithContext(r.Context()).Create(&user).Error; err != nil {
		slog.Error("error creating user", "username", req.Username, "error", err)
		WriteJsonResponseStatus(w, http.StatusInternalServerError, messageResponse{Message: "internal server error"})
		return
	}

	slog.Info("user registered", "username", req.Username)
	WriteJsonResponseStatus(w, http.StatusCreated, messageResponse{Message: "registration successful"})
}

func (s *AuthService) SendCode(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest[api.SendCodeRequest](r)
	if err != nil || req.Email == "" {
		WriteJsonResponseStatus(w, http.StatusBadRequest, messageResponse{Message: "email must not be empty"})
		return
	}

	code := s.codes.Generate(req.Email)

	if err := s.mail.SendVerificationCode(req.Email, code); err != nil {
		slog.Error("error sending verification code", "email", req.Email, "error", err)
		WriteJsonResponseStatus(w, http.StatusInternalServerError, messageResponse{Message: "failed to send verification email"})
		return
	}

	WriteJsonResponse(w, messageResponse{Message: "verification code sent"})
}

func (s *AuthService) VerifyCode(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest[api.VerifyCodeRequest](r)
	if err != nil || req.Email == "" || req.Code == "" {
		WriteJsonResponseStatus(w, http.StatusBadRequest, api.VerifyCodeResponse{Valid: false})
		return
	}

	if !s.codes.Verify(req.Email, req.Code) {
		WriteJsonResponseStatus(w, http.StatusBadRequest, api.VerifyCodeResponse{Valid: false})
		return
	}

	WriteJsonResponse(w, api.VerifyCodeResponse{Valid: true})
}
