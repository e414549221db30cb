package models

import (
	"time"

	"github.com/google/uuid"
)

// ContactRequest описывает переговоры покупателя с фермером по конкретному товару.
//
// Жизненный цикл: pending -> {accepted, rejected};
// accepted -> {completed, not_completed, disputed, expired}.
// Обе стороны после принятия независимо отправляют подтверждение сделки;
// поля подтверждений намеренно раздельные, чтобы расхождения всплывали
// как спор, а не затирались.
// Записи никогда не удаляются — история переговоров остаётся в базе.
type ContactRequest struct {
	ID                uuid.UUID `db:"id" json:"id"`
	ProductID         uuid.UUID `db:"product_id" json:"product_id"`
	FarmerID          uuid.UUID `db:"farmer_id" json:"farmer_id"`
	RequesterID       uuid.UUID `db:"requester_id" json:"requester_id"`
	RequesterRole     string    `db:"requester_role" json:"requester_role"`
	RequestedQuantity float64   `db:"requested_quantity" json:"requested_quantity"`

	Status             string `db:"status" json:"status"`
	ConfirmationStatus string `db:"confirmation_status" json:"confirmation_status"`

	RequestedAt time.Time  `db:"requested_at" json:"requested_at"`
	AcceptedAt  *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
	RejectedAt  *time.Time `db:"rejected_at" json:"rejected_at,omitempty"`

	// Подтверждение покупателя.
	FinalQuantity      *float64   `db:"final_quantity" json:"final_quantity,omitempty"`
	FinalPrice         *float64   `db:"final_price" json:"final_price,omitempty"`
	UserFeedback       *string    `db:"user_feedback" json:"user_feedback,omitempty"`
	UserDidBuy         *bool      `db:"user_did_buy" json:"user_did_buy,omitempty"`
	UserConfirmed      bool       `db:"user_confirmed" json:"user_confirmed"`
	UserConfirmationAt *time.Time `db:"user_confirmation_at" json:"user_confirmation_at,omitempty"`

	// Подтверждение фермера.
	FarmerFinalQuantity  *float64   `db:"farmer_final_quantity" json:"farmer_final_quantity,omitempty"`
	FarmerFinalPrice     *float64   `db:"farmer_final_price" json:"farmer_final_price,omitempty"`
	FarmerFeedback       *string    `db:"farmer_feedback" json:"farmer_feedback,omitempty"`
	FarmerDidSell        *bool      `db:"farmer_did_sell" json:"farmer_did_sell,omitempty"`
	FarmerConfirmed      bool       `db:"farmer_confirmed" json:"farmer_confirmed"`
	FarmerConfirmationAt *time.Time `db:"farmer_confirmation_at" json:"farmer_confirmation_at,omitempty"`

	AdminNote *string `db:"admin_note" json:"admin_note,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsTerminal сообщает, достигла ли запись конечного состояния.
func (r *ContactRequest) IsTerminal() bool {
	switch r.Status {
	case RequestStatusPending, RequestStatusAccepted:
		return false
	}
	return true
}

// BothConfirmed сообщает, отправили ли обе стороны подтверждение.
func (r *ContactRequest) BothConfirmed() bool {
	return r.UserConfirmed && r.FarmerConfirmed
}
