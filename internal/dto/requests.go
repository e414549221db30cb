package dto

// RegisterRequest — тело запроса регистрации.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginRequest — тело запроса входа.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest — тело запроса обновления токенов.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateContactRequest — тело создания контактного запроса.
type CreateContactRequest struct {
	ProductID         string  `json:"product_id" binding:"required,uuid"`
	RequestedQuantity float64 `json:"requested_quantity" binding:"required,gt=0"`
}

// ConfirmationRequest — отчёт стороны о результате сделки.
// occurred: состоялась ли сделка (did_buy у покупателя, did_sell у фермера).
type ConfirmationRequest struct {
	Occurred      *bool   `json:"occurred" binding:"required"`
	FinalQuantity float64 `json:"final_quantity"`
	FinalPrice    float64 `json:"final_price"`
	Feedback      *string `json:"feedback"`
}

// ResolveDisputeRequest — решение админа по спору.
type ResolveDisputeRequest struct {
	Resolution string `json:"resolution" binding:"required,oneof=completed not_completed"`
	AdminNote  string `json:"admin_note" binding:"required"`
}
