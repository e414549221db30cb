package valueobject

import "github.com/farmlink/farmlink-backend/internal/pkg/apperror"

type RequestStatus string

const (
	RequestStatusPending      RequestStatus = "pending"
	RequestStatusAccepted     RequestStatus = "accepted"
	RequestStatusRejected     RequestStatus = "rejected"
	RequestStatusCompleted    RequestStatus = "completed"
	RequestStatusNotCompleted RequestStatus = "not_completed"
	RequestStatusDisputed     RequestStatus = "disputed"
	RequestStatusExpired      RequestStatus = "expired"
)

func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusPending, RequestStatusAccepted, RequestStatusRejected,
		RequestStatusCompleted, RequestStatusNotCompleted, RequestStatusDisputed,
		RequestStatusExpired:
		return true
	}
	return false
}

// IsTerminal: из терминального состояния нет переходов, кроме явного
// админского разрешения спора (disputed -> completed/not_completed).
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestStatusPending, RequestStatusAccepted:
		return false
	}
	return true
}

// CanTransitionTo проверяет допустимость перехода. Статус движется только вперёд.
func (s RequestStatus) CanTransitionTo(newStatus RequestStatus) bool {
	transitions := map[RequestStatus][]RequestStatus{
		RequestStatusPending:  {RequestStatusAccepted, RequestStatusRejected},
		RequestStatusAccepted: {RequestStatusCompleted, RequestStatusNotCompleted, RequestStatusDisputed, RequestStatusExpired},
		// Единственный выход из терминального состояния — решение админа по спору.
		RequestStatusDisputed:     {RequestStatusCompleted, RequestStatusNotCompleted},
		RequestStatusRejected:     {},
		RequestStatusCompleted:    {},
		RequestStatusNotCompleted: {},
		RequestStatusExpired:      {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

func NewRequestStatus(status string) (RequestStatus, error) {
	s := RequestStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус запроса")
	}
	return s, nil
}

type ConfirmationStatus string

const (
	ConfirmationStatusPending      ConfirmationStatus = "pending"
	ConfirmationStatusCompleted    ConfirmationStatus = "completed"
	ConfirmationStatusNotCompleted ConfirmationStatus = "not_completed"
	ConfirmationStatusDisputed     ConfirmationStatus = "disputed"
	ConfirmationStatusExpired      ConfirmationStatus = "expired"
)

func (s ConfirmationStatus) IsValid() bool {
	switch s {
	case ConfirmationStatusPending, ConfirmationStatusCompleted,
		ConfirmationStatusNotCompleted, ConfirmationStatusDisputed,
		ConfirmationStatusExpired:
		return true
	}
	return false
}

func NewConfirmationStatus(status string) (ConfirmationStatus, error) {
	s := ConfirmationStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус сверки")
	}
	return s, nil
}
