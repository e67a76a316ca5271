package api

type PersonnelUser struct {
	ID              uint   `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	PermissionLevel string `json:"permission_level"`
	HireDate        string `json:"hire_date"`
	Status          string `json:"status"`
	LinkedDevices   int    `json:"linked_devices"`
}

type PersonnelListResponse struct {
	Code int             `json:"code"`
	Data []PersonnelUser `json:"data"`
}

type CreateUserRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	PermissionLevel string `json:"permission_level"`
	HireDate        string `json:"hire_date"`
}

type UpdateUserRequest struct {
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	PermissionLevel string `json:"permission_level"`
	Status          string `json:"status"`
}

type OperationLogEntry struct {
	ID        uint   `json:"id"`
	UserID    uint   `json:"user_id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
}

type OperationLogResponse struct {
	Code int                 `json:"code"`
	Data []OperationLogEntry `json:"data"`
}
