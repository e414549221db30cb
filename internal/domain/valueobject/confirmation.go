package valueobject

// Confirmation — отчёт одной стороны о том, состоялась ли сделка и на каких условиях.
// Стороны отправляют подтверждения независимо и не видят отчёт друг друга до отправки.
type Confirmation struct {
	Occurred bool
	Quantity float64
	Price    float64
}

// Outcome — итог сверки двух подтверждений.
type Outcome string

const (
	OutcomeCompleted    Outcome = "completed"
	OutcomeNotCompleted Outcome = "not_completed"
	OutcomeDisputed     Outcome = "disputed"
)

// Reconcile сверяет отчёты покупателя и фермера и возвращает итог сделки.
//
// Сделка считается состоявшейся, только если обе стороны подтвердили покупку
// и сошлись в количестве и цене (строгое равенство, без допуска на округление).
// Если обе стороны сообщили, что сделки не было — not_completed.
// Любое расхождение — спор, который разрешает админ.
func Reconcile(buyer, farmer Confirmation) Outcome {
	switch {
	case buyer.Occurred && farmer.Occurred &&
		buyer.Quantity == farmer.Quantity &&
		buyer.Price == farmer.Price:
		return OutcomeCompleted
	case !buyer.Occurred && !farmer.Occurred:
		return OutcomeNotCompleted
	default:
		return OutcomeDisputed
	}
}

// Status возвращает статус запроса, соответствующий итогу сверки.
func (o Outcome) Status() RequestStatus {
	return RequestStatus(o)
}
