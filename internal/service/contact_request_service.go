package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/farmlink/farmlink-backend/internal/domain/valueobject"
	"github.com/farmlink/farmlink-backend/internal/logger"
	"github.com/farmlink/farmlink-backend/internal/models"
	"github.com/farmlink/farmlink-backend/internal/pkg/apperror"
	"github.com/farmlink/farmlink-backend/internal/repository"
	"github.com/farmlink/farmlink-backend/internal/validation"
)

// События жизненного цикла, отправляемые диспетчеру уведомлений.
const (
	EventRequestCreated   = "contact_request.created"
	EventRequestAccepted  = "contact_request.accepted"
	EventRequestRejected  = "contact_request.rejected"
	EventRequestConfirmed = "contact_request.confirmed"
	EventRequestResolved  = "contact_request.resolved"
	EventRequestExpired   = "contact_request.expired"
)

// DuplicateRequestError возвращается при попытке создать второй активный запрос
// по той же тройке покупатель+фермер+товар. Несёт id существующего запроса,
// чтобы клиент мог перейти к нему вместо создания нового.
type DuplicateRequestError struct {
	ExistingID uuid.UUID
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("активный запрос уже существует: %s", e.ExistingID)
}

// ContactRequestRepository описывает взаимодействие сервиса с хранилищем запросов.
type ContactRequestRepository interface {
	Create(ctx context.Context, cr *models.ContactRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ContactRequest, error)
	FindActive(ctx context.Context, requesterID, farmerID, productID uuid.UUID) (*models.ContactRequest, error)
	CountCreatedSince(ctx context.Context, requesterID uuid.UUID, since time.Time) (int, error)
	MarkAccepted(ctx context.Context, id uuid.UUID) (*models.ContactRequest, error)
	MarkRejected(ctx context.Context, id uuid.UUID) (*models.ContactRequest, error)
	SetUserConfirmation(ctx context.Context, id uuid.UUID, quantity, price float64, didBuy bool, feedback *string) (*models.ContactRequest, error)
	SetFarmerConfirmation(ctx context.Context, id uuid.UUID, quantity, price float64, didSell bool, feedback *string) (*models.ContactRequest, error)
	Finalize(ctx context.Context, id uuid.UUID, outcome string) (*models.ContactRequest, error)
	ResolveDispute(ctx context.Context, id uuid.UUID, resolution string, adminNote string) (*models.ContactRequest, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.ContactRequest, error)
	ListByFarmer(ctx context.Context, farmerID uuid.UUID) ([]models.ContactRequest, error)
	ListActiveFarmerIDs(ctx context.Context, requesterID uuid.UUID) ([]uuid.UUID, error)
	ListDisputed(ctx context.Context) ([]models.ContactRequest, error)
}

// ProductCatalog — узкий контракт каталога: ядру нужна только связь товар -> фермер.
type ProductCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Notifier доставляет события сторонам. Ошибки доставки не считаются ошибками ядра.
type Notifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data interface{}) error
}

// ContactRequestService реализует протокол переговоров покупателя с фермером.
type ContactRequestService struct {
	repo       ContactRequestRepository
	products   ProductCatalog
	notifier   Notifier
	dailyLimit int
	now        func() time.Time
}

// NewContactRequestService создаёт сервис контактных запросов.
func NewContactRequestService(repo ContactRequestRepository, products ProductCatalog, dailyLimit int) *ContactRequestService {
	return &ContactRequestService{
		repo:       repo,
		products:   products,
		dailyLimit: dailyLimit,
		now:        time.Now,
	}
}

// SetNotifier устанавливает диспетчер уведомлений.
func (s *ContactRequestService) SetNotifier(n Notifier) {
	s.notifier = n
}

// CreateRequestInput описывает входные данные создания запроса.
type CreateRequestInput struct {
	RequesterID       uuid.UUID
	RequesterRole     string
	ProductID         uuid.UUID
	RequestedQuantity float64
}

// CreateRequest создаёт запрос в статусе pending.
//
// Порядок guard'ов: валидация входа, существование товара, запрет запроса
// к самому себе, суточный лимит, отсутствие активного дубликата. Любое
// нарушение отклоняется до записи в базу; гонку двух одновременных созданий
// закрывает частичный уникальный индекс.
func (s *ContactRequestService) CreateRequest(ctx context.Context, in CreateRequestInput) (*models.ContactRequest, error) {
	if _, ok := models.ValidRequesterRoles[in.RequesterRole]; !ok {
		return nil, apperror.New(apperror.ErrCodeForbidden, "создавать запросы могут только покупатели и вендоры")
	}
	if err := validation.ValidateQuantity("запрошенное количество", in.RequestedQuantity); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	product, err := s.products.GetByID(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, apperror.ErrProductNotFound
		}
		return nil, err
	}

	if product.FarmerID == in.RequesterID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "нельзя отправить запрос на собственный товар")
	}

	count, err := s.repo.CountCreatedSince(ctx, in.RequesterID, s.now().Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	if count >= s.dailyLimit {
		return nil, apperror.New(apperror.ErrCodeRateLimited, "превышен суточный лимит контактных запросов")
	}

	if existing, err := s.repo.FindActive(ctx, in.RequesterID, product.FarmerID, in.ProductID); err == nil {
		return nil, &DuplicateRequestError{ExistingID: existing.ID}
	} else if !errors.Is(err, repository.ErrContactRequestNotFound) {
		return nil, err
	}

	cr := &models.ContactRequest{
		ProductID:          in.ProductID,
		FarmerID:           product.FarmerID,
		RequesterID:        in.RequesterID,
		RequesterRole:      in.RequesterRole,
		RequestedQuantity:  in.RequestedQuantity,
		Status:             models.RequestStatusPending,
		ConfirmationStatus: models.ConfirmationStatusPending,
	}

	if err := s.repo.Create(ctx, cr); err != nil {
		if errors.Is(err, repository.ErrDuplicateActiveRequest) {
			// Параллельное создание успело раньше: возвращаем id победителя.
			if existing, findErr := s.repo.FindActive(ctx, in.RequesterID, product.FarmerID, in.ProductID); findErr == nil {
				return nil, &DuplicateRequestError{ExistingID: existing.ID}
			}
			return nil, apperror.New(apperror.ErrCodeDuplicate, "активный запрос уже существует")
		}
		return nil, err
	}

	s.notify(cr.FarmerID, EventRequestCreated, cr)
	return cr, nil
}

// AcceptRequest переводит запрос pending -> accepted. Доступно только фермеру запроса.
func (s *ContactRequestService) AcceptRequest(ctx context.Context, requestID, callerID uuid.UUID) (*models.ContactRequest, error) {
	cr, err := s.getForFarmerTransition(ctx, requestID, callerID, valueobject.RequestStatusAccepted)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.MarkAccepted(ctx, cr.ID)
	if err != nil {
		if errors.Is(err, repository.ErrTransitionNotApplied) {
			return nil, apperror.New(apperror.ErrCodeConflict, "запрос уже обработан")
		}
		return nil, err
	}

	s.notify(updated.RequesterID, EventRequestAccepted, updated)
	return updated, nil
}

// RejectRequest переводит запрос pending -> rejected. Доступно только фермеру запроса.
func (s *ContactRequestService) RejectRequest(ctx context.Context, requestID, callerID uuid.UUID) (*models.ContactRequest, error) {
	cr, err := s.getForFarmerTransition(ctx, requestID, callerID, valueobject.RequestStatusRejected)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.MarkRejected(ctx, cr.ID)
	if err != nil {
		if errors.Is(err, repository.ErrTransitionNotApplied) {
			return nil, apperror.New(apperror.ErrCodeConflict, "запрос уже обработан")
		}
		return nil, err
	}

	s.notify(updated.RequesterID, EventRequestRejected, updated)
	return updated, nil
}

// ConfirmationInput описывает отчёт стороны о результате сделки.
type ConfirmationInput struct {
	Occurred      bool // didBuy для покупателя, didSell для фермера
	FinalQuantity float64
	FinalPrice    float64
	Feedback      *string
}

// ConfirmationResult — итог отправки подтверждения.
type ConfirmationResult struct {
	Request *models.ContactRequest `json:"request"`
	// Outcome пустой, пока вторая сторона не отправила своё подтверждение.
	Outcome string `json:"outcome,omitempty"`
}

// SubmitUserConfirmation принимает подтверждение покупателя.
func (s *ContactRequestService) SubmitUserConfirmation(ctx context.Context, requestID, callerID uuid.UUID, in ConfirmationInput) (*ConfirmationResult, error) {
	if err := s.validateConfirmation(in); err != nil {
		return nil, err
	}

	cr, err := s.getByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if cr.RequesterID != callerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "подтверждение может отправить только автор запроса")
	}
	if err := s.checkConfirmable(cr, cr.UserConfirmed); err != nil {
		return nil, err
	}

	updated, err := s.repo.SetUserConfirmation(ctx, requestID, in.FinalQuantity, in.FinalPrice, in.Occurred, in.Feedback)
	if err != nil {
		if errors.Is(err, repository.ErrTransitionNotApplied) {
			return nil, apperror.New(apperror.ErrCodeConflict, "подтверждение уже отправлено или запрос закрыт")
		}
		return nil, err
	}

	return s.afterConfirmation(ctx, updated, updated.FarmerID)
}

// SubmitFarmerConfirmation принимает подтверждение фермера.
func (s *ContactRequestService) SubmitFarmerConfirmation(ctx context.Context, requestID, callerID uuid.UUID, in ConfirmationInput) (*ConfirmationResult, error) {
	if err := s.validateConfirmation(in); err != nil {
		return nil, err
	}

	cr, err := s.getByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if cr.FarmerID != callerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "подтверждение может отправить только фермер запроса")
	}
	if err := s.checkConfirmable(cr, cr.FarmerConfirmed); err != nil {
		return nil, err
	}

	updated, err := s.repo.SetFarmerConfirmation(ctx, requestID, in.FinalQuantity, in.FinalPrice, in.Occurred, in.Feedback)
	if err != nil {
		if errors.Is(err, repository.ErrTransitionNotApplied) {
			return nil, apperror.New(apperror.ErrCodeConflict, "подтверждение уже отправлено или запрос закрыт")
		}
		return nil, err
	}

	return s.afterConfirmation(ctx, updated, updated.RequesterID)
}

// afterConfirmation сверяет подтверждения, если обе стороны отчитались,
// и финализирует запись. Порядок отправки на итог не влияет.
func (s *ContactRequestService) afterConfirmation(ctx context.Context, cr *models.ContactRequest, counterpartyID uuid.UUID) (*ConfirmationResult, error) {
	if !cr.BothConfirmed() {
		s.notify(counterpartyID, EventRequestConfirmed, cr)
		return &ConfirmationResult{Request: cr}, nil
	}

	outcome := valueobject.Reconcile(
		valueobject.Confirmation{
			Occurred: cr.UserDidBuy != nil && *cr.UserDidBuy,
			Quantity: deref(cr.FinalQuantity),
			Price:    deref(cr.FinalPrice),
		},
		valueobject.Confirmation{
			Occurred: cr.FarmerDidSell != nil && *cr.FarmerDidSell,
			Quantity: deref(cr.FarmerFinalQuantity),
			Price:    deref(cr.FarmerFinalPrice),
		},
	)

	final, err := s.repo.Finalize(ctx, cr.ID, string(outcome.Status()))
	if err != nil {
		if errors.Is(err, repository.ErrTransitionNotApplied) {
			// Конкурентное подтверждение уже финализировало запись; сверка
			// детерминирована, поэтому итог совпадает. Перечитываем запись.
			final, err = s.getByID(ctx, cr.ID)
			if err != nil {
				return nil, err
			}
			return &ConfirmationResult{Request: final, Outcome: final.Status}, nil
		}
		return nil, err
	}

	s.notify(final.RequesterID, EventRequestConfirmed, final)
	s.notify(final.FarmerID, EventRequestConfirmed, final)
	return &ConfirmationResult{Request: final, Outcome: final.Status}, nil
}

// MyRequests — запросы пользователя, сгруппированные по роли в переговорах.
type MyRequests struct {
	Sent             []models.ContactRequest `json:"sent"`
	Received         []models.ContactRequest `json:"received"`
	PendingFarmerIDs []uuid.UUID             `json:"pending_farmer_ids"`
}

// ListMyRequests возвращает отправленные и полученные запросы пользователя
// и список фермеров с уже активным запросом.
func (s *ContactRequestService) ListMyRequests(ctx context.Context, userID uuid.UUID) (*MyRequests, error) {
	sent, err := s.repo.ListByRequester(ctx, userID)
	if err != nil {
		return nil, err
	}
	received, err := s.repo.ListByFarmer(ctx, userID)
	if err != nil {
		return nil, err
	}
	farmerIDs, err := s.repo.ListActiveFarmerIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sent == nil {
		sent = []models.ContactRequest{}
	}
	if received == nil {
		received = []models.ContactRequest{}
	}
	if farmerIDs == nil {
		farmerIDs = []uuid.UUID{}
	}
	return &MyRequests{Sent: sent, Received: received, PendingFarmerIDs: farmerIDs}, nil
}

// ListDisputes возвращает спорные запросы. Только для админа.
func (s *ContactRequestService) ListDisputes(ctx context.Context, callerRole string) ([]models.ContactRequest, error) {
	if callerRole != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	return s.repo.ListDisputed(ctx)
}

// ResolveDisputeInput описывает решение админа по спору.
type ResolveDisputeInput struct {
	Resolution string
	AdminNote  string
}

// ResolveDispute применяет решение админа: disputed -> completed/not_completed.
func (s *ContactRequestService) ResolveDispute(ctx context.Context, requestID uuid.UUID, callerRole string, in ResolveDisputeInput) (*models.ContactRequest, error) {
	if callerRole != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	if _, ok := models.ValidResolutions[in.Resolution]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "итог спора должен быть completed или not_completed")
	}
	if err := validation.ValidateLength("заметка админа", in.AdminNote, 0, validation.MaxAdminNoteLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	cr, err := s.getByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if cr.Status != models.RequestStatusDisputed {
		return nil, apperror.New(apperror.ErrCodeConflict, "разрешить можно только спорный запрос")
	}

	updated, err := s.repo.ResolveDispute(ctx, requestID, in.Resolution, in.AdminNote)
	if err != nil {
		if errors.Is(err, repository.ErrTransitionNotApplied) {
			return nil, apperror.New(apperror.ErrCodeConflict, "спор уже разрешён")
		}
		return nil, err
	}

	s.notify(updated.RequesterID, EventRequestResolved, updated)
	s.notify(updated.FarmerID, EventRequestResolved, updated)
	return updated, nil
}

// GetRequest возвращает запрос участнику переговоров или админу.
func (s *ContactRequestService) GetRequest(ctx context.Context, requestID, callerID uuid.UUID, callerRole string) (*models.ContactRequest, error) {
	cr, err := s.getByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if callerID != cr.RequesterID && callerID != cr.FarmerID && callerRole != models.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	return cr, nil
}

func (s *ContactRequestService) getForFarmerTransition(ctx context.Context, requestID, callerID uuid.UUID, target valueobject.RequestStatus) (*models.ContactRequest, error) {
	cr, err := s.getByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if cr.FarmerID != callerID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "действие доступно только фермеру запроса")
	}
	if !valueobject.RequestStatus(cr.Status).CanTransitionTo(target) {
		return nil, apperror.New(apperror.ErrCodeConflict, "запрос уже обработан")
	}
	return cr, nil
}

func (s *ContactRequestService) getByID(ctx context.Context, requestID uuid.UUID) (*models.ContactRequest, error) {
	cr, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrContactRequestNotFound) {
			return nil, apperror.ErrRequestNotFound
		}
		return nil, err
	}
	return cr, nil
}

func (s *ContactRequestService) validateConfirmation(in ConfirmationInput) error {
	if in.Occurred {
		if err := validation.ValidateQuantity("итоговое количество", in.FinalQuantity); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
		if err := validation.ValidatePrice("итоговая цена", in.FinalPrice); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}
	if in.Feedback != nil {
		if err := validation.ValidateLength("отзыв", *in.Feedback, 0, validation.MaxFeedbackLength); err != nil {
			return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}
	return nil
}

func (s *ContactRequestService) checkConfirmable(cr *models.ContactRequest, alreadyConfirmed bool) error {
	if cr.Status != models.RequestStatusAccepted {
		return apperror.New(apperror.ErrCodeConflict, "подтверждение возможно только после принятия запроса")
	}
	if alreadyConfirmed {
		return apperror.New(apperror.ErrCodeConflict, "подтверждение уже отправлено")
	}
	return nil
}

// notify отправляет событие стороне. Сбой доставки только логируется.
func (s *ContactRequestService) notify(userID uuid.UUID, event string, data interface{}) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BroadcastToUser(userID, event, data); err != nil && logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"user_id": userID,
			"event":   event,
		}).Warnf("не удалось доставить уведомление: %v", err)
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
