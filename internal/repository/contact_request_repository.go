package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/farmlink/farmlink-backend/internal/models"
)

// Ошибки уровня репозитория.
var (
	ErrContactRequestNotFound = errors.New("contact request not found")
	// ErrDuplicateActiveRequest возвращается, когда частичный уникальный индекс
	// по (requester_id, farmer_id, product_id) отклонил вставку второго активного запроса.
	ErrDuplicateActiveRequest = errors.New("active contact request already exists")
	// ErrTransitionNotApplied возвращается, когда условный UPDATE не затронул ни одной строки:
	// запись уже ушла из ожидаемого состояния.
	ErrTransitionNotApplied = errors.New("contact request state transition not applied")
)

const uniqueViolationCode = "23505"

// ContactRequestRepository отвечает за хранение контактных запросов.
// Все переходы статусов выполняются условными UPDATE'ами: guard входит в WHERE,
// поэтому гонка двух конкурентных вызовов разрешается на уровне одной строки.
type ContactRequestRepository struct {
	db *sqlx.DB
}

// NewContactRequestRepository создаёт новый экземпляр.
func NewContactRequestRepository(db *sqlx.DB) *ContactRequestRepository {
	return &ContactRequestRepository{db: db}
}

// Create вставляет новый запрос в статусе pending.
// Дубликат активного запроса по той же тройке отклоняется базой.
func (r *ContactRequestRepository) Create(ctx context.Context, cr *models.ContactRequest) error {
	query := `
		INSERT INTO contact_requests (product_id, farmer_id, requester_id, requester_role, requested_quantity, status, confirmation_status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, requested_at, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		cr.ProductID, cr.FarmerID, cr.RequesterID, cr.RequesterRole,
		cr.RequestedQuantity, cr.Status, cr.ConfirmationStatus,
	).Scan(&cr.ID, &cr.RequestedAt, &cr.CreatedAt, &cr.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolationCode {
			return ErrDuplicateActiveRequest
		}
		return fmt.Errorf("contact request repository: create %w", err)
	}
	return nil
}

// GetByID возвращает запрос по идентификатору.
func (r *ContactRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ContactRequest, error) {
	var cr models.ContactRequest
	if err := r.db.GetContext(ctx, &cr, `SELECT * FROM contact_requests WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContactRequestNotFound
		}
		return nil, fmt.Errorf("contact request repository: get by id %w", err)
	}
	return &cr, nil
}

// FindActive ищет активный (pending/accepted) запрос покупателя по паре фермер+товар.
func (r *ContactRequestRepository) FindActive(ctx context.Context, requesterID, farmerID, productID uuid.UUID) (*models.ContactRequest, error) {
	var cr models.ContactRequest
	query := `
		SELECT * FROM contact_requests
		WHERE requester_id = $1 AND farmer_id = $2 AND product_id = $3
		  AND status IN ('pending', 'accepted')
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &cr, query, requesterID, farmerID, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContactRequestNotFound
		}
		return nil, fmt.Errorf("contact request repository: find active %w", err)
	}
	return &cr, nil
}

// CountCreatedSince считает запросы, созданные покупателем начиная с указанного момента.
// Используется суточным лимитом создания.
func (r *ContactRequestRepository) CountCreatedSince(ctx context.Context, requesterID uuid.UUID, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM contact_requests WHERE requester_id = $1 AND requested_at >= $2`
	if err := r.db.GetContext(ctx, &count, query, requesterID, since); err != nil {
		return 0, fmt.Errorf("contact request repository: count created since %w", err)
	}
	return count, nil
}

// MarkAccepted переводит pending -> accepted и ставит accepted_at.
func (r *ContactRequestRepository) MarkAccepted(ctx context.Context, id uuid.UUID) (*models.ContactRequest, error) {
	query := `
		UPDATE contact_requests
		SET status = 'accepted', accepted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING *
	`
	return r.applyTransition(ctx, query, id)
}

// MarkRejected переводит pending -> rejected и ставит rejected_at.
func (r *ContactRequestRepository) MarkRejected(ctx context.Context, id uuid.UUID) (*models.ContactRequest, error) {
	query := `
		UPDATE contact_requests
		SET status = 'rejected', rejected_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING *
	`
	return r.applyTransition(ctx, query, id)
}

// SetUserConfirmation записывает подтверждение покупателя.
// Применяется только пока запрос accepted и покупатель ещё не подтверждал:
// повторная отправка и гонка с финализацией отклоняются условием WHERE.
func (r *ContactRequestRepository) SetUserConfirmation(ctx context.Context, id uuid.UUID, quantity, price float64, didBuy bool, feedback *string) (*models.ContactRequest, error) {
	query := `
		UPDATE contact_requests
		SET final_quantity = $2, final_price = $3, user_did_buy = $4, user_feedback = $5,
		    user_confirmed = TRUE, user_confirmation_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'accepted' AND user_confirmed = FALSE
		RETURNING *
	`
	var cr models.ContactRequest
	if err := r.db.QueryRowxContext(ctx, query, id, quantity, price, didBuy, feedback).StructScan(&cr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransitionNotApplied
		}
		return nil, fmt.Errorf("contact request repository: set user confirmation %w", err)
	}
	return &cr, nil
}

// SetFarmerConfirmation записывает подтверждение фермера. Симметрично SetUserConfirmation.
func (r *ContactRequestRepository) SetFarmerConfirmation(ctx context.Context, id uuid.UUID, quantity, price float64, didSell bool, feedback *string) (*models.ContactRequest, error) {
	query := `
		UPDATE contact_requests
		SET farmer_final_quantity = $2, farmer_final_price = $3, farmer_did_sell = $4, farmer_feedback = $5,
		    farmer_confirmed = TRUE, farmer_confirmation_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'accepted' AND farmer_confirmed = FALSE
		RETURNING *
	`
	var cr models.ContactRequest
	if err := r.db.QueryRowxContext(ctx, query, id, quantity, price, didSell, feedback).StructScan(&cr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransitionNotApplied
		}
		return nil, fmt.Errorf("contact request repository: set farmer confirmation %w", err)
	}
	return &cr, nil
}

// Finalize записывает итог сверки в status и confirmation_status.
// Условие WHERE status = 'accepted' исключает двойную финализацию при
// одновременной отправке двух подтверждений.
func (r *ContactRequestRepository) Finalize(ctx context.Context, id uuid.UUID, outcome string) (*models.ContactRequest, error) {
	query := `
		UPDATE contact_requests
		SET status = $2, confirmation_status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'accepted'
		RETURNING *
	`
	var cr models.ContactRequest
	if err := r.db.QueryRowxContext(ctx, query, id, outcome).StructScan(&cr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransitionNotApplied
		}
		return nil, fmt.Errorf("contact request repository: finalize %w", err)
	}
	return &cr, nil
}

// ResolveDispute применяет решение админа к спорному запросу.
func (r *ContactRequestRepository) ResolveDispute(ctx context.Context, id uuid.UUID, resolution string, adminNote string) (*models.ContactRequest, error) {
	query := `
		UPDATE contact_requests
		SET status = $2, confirmation_status = $2, admin_note = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'disputed'
		RETURNING *
	`
	var cr models.ContactRequest
	if err := r.db.QueryRowxContext(ctx, query, id, resolution, adminNote).StructScan(&cr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransitionNotApplied
		}
		return nil, fmt.Errorf("contact request repository: resolve dispute %w", err)
	}
	return &cr, nil
}

// ExpireStale переводит в expired все accepted запросы, принятые раньше cutoff
// и не дошедшие до сверки. Возвращает затронутые записи, чтобы сервис мог
// уведомить стороны. Повторный запуск по тем же данным не находит строк.
func (r *ContactRequestRepository) ExpireStale(ctx context.Context, cutoff time.Time) ([]models.ContactRequest, error) {
	query := `
		UPDATE contact_requests
		SET status = 'expired', confirmation_status = 'expired', updated_at = NOW()
		WHERE status = 'accepted' AND accepted_at < $1
		RETURNING *
	`
	var expired []models.ContactRequest
	if err := r.db.SelectContext(ctx, &expired, query, cutoff); err != nil {
		return nil, fmt.Errorf("contact request repository: expire stale %w", err)
	}
	return expired, nil
}

// ListByRequester возвращает запросы, отправленные пользователем.
func (r *ContactRequestRepository) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.ContactRequest, error) {
	var requests []models.ContactRequest
	query := `SELECT * FROM contact_requests WHERE requester_id = $1 ORDER BY requested_at DESC`
	if err := r.db.SelectContext(ctx, &requests, query, requesterID); err != nil {
		return nil, fmt.Errorf("contact request repository: list by requester %w", err)
	}
	return requests, nil
}

// ListByFarmer возвращает запросы, полученные фермером.
func (r *ContactRequestRepository) ListByFarmer(ctx context.Context, farmerID uuid.UUID) ([]models.ContactRequest, error) {
	var requests []models.ContactRequest
	query := `SELECT * FROM contact_requests WHERE farmer_id = $1 ORDER BY requested_at DESC`
	if err := r.db.SelectContext(ctx, &requests, query, farmerID); err != nil {
		return nil, fmt.Errorf("contact request repository: list by farmer %w", err)
	}
	return requests, nil
}

// ListActiveFarmerIDs возвращает фермеров, к которым у покупателя уже есть
// активный запрос. Фронтенд по этому списку блокирует кнопку контакта.
func (r *ContactRequestRepository) ListActiveFarmerIDs(ctx context.Context, requesterID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := `
		SELECT DISTINCT farmer_id FROM contact_requests
		WHERE requester_id = $1 AND status IN ('pending', 'accepted')
	`
	if err := r.db.SelectContext(ctx, &ids, query, requesterID); err != nil {
		return nil, fmt.Errorf("contact request repository: list active farmer ids %w", err)
	}
	return ids, nil
}

// ListDisputed возвращает все спорные запросы для админской очереди.
func (r *ContactRequestRepository) ListDisputed(ctx context.Context) ([]models.ContactRequest, error) {
	var requests []models.ContactRequest
	query := `SELECT * FROM contact_requests WHERE status = 'disputed' ORDER BY updated_at ASC`
	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, fmt.Errorf("contact request repository: list disputed %w", err)
	}
	return requests, nil
}

func (r *ContactRequestRepository) applyTransition(ctx context.Context, query string, id uuid.UUID) (*models.ContactRequest, error) {
	var cr models.ContactRequest
	if err := r.db.QueryRowxContext(ctx, query, id).StructScan(&cr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransitionNotApplied
		}
		return nil, fmt.Errorf("contact request repository: apply transition %w", err)
	}
	return &cr, nil
}
