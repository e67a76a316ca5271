package api

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	UserID   uint   `json:"user_id"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SendCodeRequest struct {
	Email string `json:"email"`
}

type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type VerifyCodeResponse struct {
	Valid bool `json:"valid"`
}
