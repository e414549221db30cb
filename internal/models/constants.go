package models

// Роли пользователей платформы.
const (
	RoleUser   = "user"
	RoleVendor = "vendor"
	RoleFarmer = "farmer"
	RoleAdmin  = "admin"
)

// RequestStatus константы статусов контактных запросов.
const (
	RequestStatusPending      = "pending"
	RequestStatusAccepted     = "accepted"
	RequestStatusRejected     = "rejected"
	RequestStatusCompleted    = "completed"
	RequestStatusNotCompleted = "not_completed"
	RequestStatusDisputed     = "disputed"
	RequestStatusExpired      = "expired"
)

// ConfirmationStatus константы статусов сверки подтверждений.
const (
	ConfirmationStatusPending      = "pending"
	ConfirmationStatusCompleted    = "completed"
	ConfirmationStatusNotCompleted = "not_completed"
	ConfirmationStatusDisputed     = "disputed"
	ConfirmationStatusExpired      = "expired"
)

// ValidRoles список валидных ролей.
var ValidRoles = map[string]struct{}{
	RoleUser:   {},
	RoleVendor: {},
	RoleFarmer: {},
	RoleAdmin:  {},
}

// ValidRequesterRoles роли, которым разрешено создавать контактные запросы.
var ValidRequesterRoles = map[string]struct{}{
	RoleUser:   {},
	RoleVendor: {},
}

// ValidRequestStatuses список валидных статусов запросов.
var ValidRequestStatuses = map[string]struct{}{
	RequestStatusPending:      {},
	RequestStatusAccepted:     {},
	RequestStatusRejected:     {},
	RequestStatusCompleted:    {},
	RequestStatusNotCompleted: {},
	RequestStatusDisputed:     {},
	RequestStatusExpired:      {},
}

// ValidResolutions допустимые исходы админского разрешения спора.
var ValidResolutions = map[string]struct{}{
	RequestStatusCompleted:    {},
	RequestStatusNotCompleted: {},
}
