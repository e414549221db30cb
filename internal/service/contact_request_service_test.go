package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmlink/farmlink-backend/internal/models"
	"github.com/farmlink/farmlink-backend/internal/pkg/apperror"
	"github.com/farmlink/farmlink-backend/internal/repository"
)

// mockContactRepo — in-memory реализация ContactRequestRepository.
// Условные переходы повторяют семантику условных UPDATE'ов в Postgres:
// guard проверяется атомарно под мьютексом.
type mockContactRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.ContactRequest
}

func newMockContactRepo() *mockContactRepo {
	return &mockContactRepo{requests: make(map[uuid.UUID]*models.ContactRequest)}
}

func (m *mockContactRepo) Create(ctx context.Context, cr *models.ContactRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.requests {
		if existing.RequesterID == cr.RequesterID &&
			existing.FarmerID == cr.FarmerID &&
			existing.ProductID == cr.ProductID &&
			(existing.Status == models.RequestStatusPending || existing.Status == models.RequestStatusAccepted) {
			return repository.ErrDuplicateActiveRequest
		}
	}

	cr.ID = uuid.New()
	now := time.Now()
	cr.RequestedAt = now
	cr.CreatedAt = now
	cr.UpdatedAt = now
	m.requests[cr.ID] = cr
	return nil
}

func (m *mockContactRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ContactRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cr, ok := m.requests[id]; ok {
		clone := *cr
		return &clone, nil
	}
	return nil, repository.ErrContactRequestNotFound
}

func (m *mockContactRepo) FindActive(ctx context.Context, requesterID, farmerID, productID uuid.UUID) (*models.ContactRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cr := range m.requests {
		if cr.RequesterID == requesterID && cr.FarmerID == farmerID && cr.ProductID == productID &&
			(cr.Status == models.RequestStatusPending || cr.Status == models.RequestStatusAccepted) {
			clone := *cr
			return &clone, nil
		}
	}
	return nil, repository.ErrContactRequestNotFound
}

func (m *mockContactRepo) CountCreatedSince(ctx context.Context, requesterID uuid.UUID, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, cr := range m.requests {
		if cr.RequesterID == requesterID && !cr.RequestedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *mockContactRepo) MarkAccepted(ctx context.Context, id uuid.UUID) (*models.ContactRequest, error) {
	return m.transition(id, func(cr *models.ContactRequest) bool {
		if cr.Status != models.RequestStatusPending {
			return false
		}
		now := time.Now()
		cr.Status = models.RequestStatusAccepted
		cr.AcceptedAt = &now
		return true
	})
}

func (m *mockContactRepo) MarkRejected(ctx context.Context, id uuid.UUID) (*models.ContactRequest, error) {
	return m.transition(id, func(cr *models.ContactRequest) bool {
		if cr.Status != models.RequestStatusPending {
			return false
		}
		now := time.Now()
		cr.Status = models.RequestStatusRejected
		cr.RejectedAt = &now
		return true
	})
}

func (m *mockContactRepo) SetUserConfirmation(ctx context.Context, id uuid.UUID, quantity, price float64, didBuy bool, feedback *string) (*models.ContactRequest, error) {
	return m.transition(id, func(cr *models.ContactRequest) bool {
		if cr.Status != models.RequestStatusAccepted || cr.UserConfirmed {
			return false
		}
		now := time.Now()
		cr.FinalQuantity = &quantity
		cr.FinalPrice = &price
		cr.UserDidBuy = &didBuy
		cr.UserFeedback = feedback
		cr.UserConfirmed = true
		cr.UserConfirmationAt = &now
		return true
	})
}

func (m *mockContactRepo) SetFarmerConfirmation(ctx context.Context, id uuid.UUID, quantity, price float64, didSell bool, feedback *string) (*models.ContactRequest, error) {
	return m.transition(id, func(cr *models.ContactRequest) bool {
		if cr.Status != models.RequestStatusAccepted || cr.FarmerConfirmed {
			return false
		}
		now := time.Now()
		cr.FarmerFinalQuantity = &quantity
		cr.FarmerFinalPrice = &price
		cr.FarmerDidSell = &didSell
		cr.FarmerFeedback = feedback
		cr.FarmerConfirmed = true
		cr.FarmerConfirmationAt = &now
		return true
	})
}

func (m *mockContactRepo) Finalize(ctx context.Context, id uuid.UUID, outcome string) (*models.ContactRequest, error) {
	return m.transition(id, func(cr *models.ContactRequest) bool {
		if cr.Status != models.RequestStatusAccepted {
			return false
		}
		cr.Status = outcome
		cr.ConfirmationStatus = outcome
		return true
	})
}

func (m *mockContactRepo) ResolveDispute(ctx context.Context, id uuid.UUID, resolution string, adminNote string) (*models.ContactRequest, error) {
	return m.transition(id, func(cr *models.ContactRequest) bool {
		if cr.Status != models.RequestStatusDisputed {
			return false
		}
		cr.Status = resolution
		cr.ConfirmationStatus = resolution
		cr.AdminNote = &adminNote
		return true
	})
}

func (m *mockContactRepo) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.ContactRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ContactRequest
	for _, cr := range m.requests {
		if cr.RequesterID == requesterID {
			out = append(out, *cr)
		}
	}
	return out, nil
}

func (m *mockContactRepo) ListByFarmer(ctx context.Context, farmerID uuid.UUID) ([]models.ContactRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ContactRequest
	for _, cr := range m.requests {
		if cr.FarmerID == farmerID {
			out = append(out, *cr)
		}
	}
	return out, nil
}

func (m *mockContactRepo) ListActiveFarmerIDs(ctx context.Context, requesterID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, cr := range m.requests {
		if cr.RequesterID != requesterID {
			continue
		}
		if cr.Status != models.RequestStatusPending && cr.Status != models.RequestStatusAccepted {
			continue
		}
		if _, ok := seen[cr.FarmerID]; ok {
			continue
		}
		seen[cr.FarmerID] = struct{}{}
		ids = append(ids, cr.FarmerID)
	}
	return ids, nil
}

func (m *mockContactRepo) ListDisputed(ctx context.Context) ([]models.ContactRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ContactRequest
	for _, cr := range m.requests {
		if cr.Status == models.RequestStatusDisputed {
			out = append(out, *cr)
		}
	}
	return out, nil
}

func (m *mockContactRepo) transition(id uuid.UUID, apply func(*models.ContactRequest) bool) (*models.ContactRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cr, ok := m.requests[id]
	if !ok {
		return nil, repository.ErrTransitionNotApplied
	}
	if !apply(cr) {
		return nil, repository.ErrTransitionNotApplied
	}
	cr.UpdatedAt = time.Now()
	clone := *cr
	return &clone, nil
}

// mockCatalog отдаёт заранее заданные товары.
type mockCatalog struct {
	products map[uuid.UUID]*models.Product
}

func (m *mockCatalog) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if p, ok := m.products[id]; ok {
		return p, nil
	}
	return nil, repository.ErrProductNotFound
}

// mockNotifier записывает отправленные события.
type mockNotifier struct {
	mu     sync.Mutex
	events []notifiedEvent
}

type notifiedEvent struct {
	userID uuid.UUID
	event  string
}

func (m *mockNotifier) BroadcastToUser(userID uuid.UUID, event string, data interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, notifiedEvent{userID: userID, event: event})
	return nil
}

func (m *mockNotifier) eventsFor(userID uuid.UUID) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.events {
		if e.userID == userID {
			out = append(out, e.event)
		}
	}
	return out
}

type fixture struct {
	svc      *ContactRequestService
	repo     *mockContactRepo
	notifier *mockNotifier

	farmerID  uuid.UUID
	buyerID   uuid.UUID
	productID uuid.UUID
}

func newFixture(t *testing.T, dailyLimit int) *fixture {
	t.Helper()

	repo := newMockContactRepo()
	farmerID := uuid.New()
	productID := uuid.New()
	catalog := &mockCatalog{products: map[uuid.UUID]*models.Product{
		productID: {ID: productID, FarmerID: farmerID, Name: "Картофель", Price: 40, Unit: "kg"},
	}}
	notifier := &mockNotifier{}

	svc := NewContactRequestService(repo, catalog, dailyLimit)
	svc.SetNotifier(notifier)

	return &fixture{
		svc:       svc,
		repo:      repo,
		notifier:  notifier,
		farmerID:  farmerID,
		buyerID:   uuid.New(),
		productID: productID,
	}
}

func (f *fixture) createAccepted(t *testing.T) *models.ContactRequest {
	t.Helper()
	ctx := context.Background()

	cr, err := f.svc.CreateRequest(ctx, CreateRequestInput{
		RequesterID:       f.buyerID,
		RequesterRole:     models.RoleUser,
		ProductID:         f.productID,
		RequestedQuantity: 10,
	})
	require.NoError(t, err)

	accepted, err := f.svc.AcceptRequest(ctx, cr.ID, f.farmerID)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusAccepted, accepted.Status)
	return accepted
}

func TestCreateRequest(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	cr, err := f.svc.CreateRequest(ctx, CreateRequestInput{
		RequesterID:       f.buyerID,
		RequesterRole:     models.RoleUser,
		ProductID:         f.productID,
		RequestedQuantity: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, models.RequestStatusPending, cr.Status)
	assert.Equal(t, f.farmerID, cr.FarmerID)
	assert.NotEqual(t, uuid.Nil, cr.ID)
	assert.Equal(t, []string{EventRequestCreated}, f.notifier.eventsFor(f.farmerID))
}

func TestCreateRequest_FarmerRoleForbidden(t *testing.T) {
	f := newFixture(t, 10)

	_, err := f.svc.CreateRequest(context.Background(), CreateRequestInput{
		RequesterID:       uuid.New(),
		RequesterRole:     models.RoleFarmer,
		ProductID:         f.productID,
		RequestedQuantity: 5,
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeForbidden, appErr.Code)
}

func TestCreateRequest_OwnProductForbidden(t *testing.T) {
	f := newFixture(t, 10)

	// Фермер с ролью vendor пытается запросить собственный товар.
	catalogOwner := f.farmerID
	_, err := f.svc.CreateRequest(context.Background(), CreateRequestInput{
		RequesterID:       catalogOwner,
		RequesterRole:     models.RoleVendor,
		ProductID:         f.productID,
		RequestedQuantity: 5,
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeForbidden, appErr.Code)
}

func TestCreateRequest_InvalidQuantity(t *testing.T) {
	f := newFixture(t, 10)

	_, err := f.svc.CreateRequest(context.Background(), CreateRequestInput{
		RequesterID:       f.buyerID,
		RequesterRole:     models.RoleUser,
		ProductID:         f.productID,
		RequestedQuantity: 0,
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeValidation, appErr.Code)
}

func TestCreateRequest_DuplicateReturnsExistingID(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	first, err := f.svc.CreateRequest(ctx, CreateRequestInput{
		RequesterID:       f.buyerID,
		RequesterRole:     models.RoleUser,
		ProductID:         f.productID,
		RequestedQuantity: 10,
	})
	require.NoError(t, err)

	_, err = f.svc.CreateRequest(ctx, CreateRequestInput{
		RequesterID:       f.buyerID,
		RequesterRole:     models.RoleUser,
		ProductID:         f.productID,
		RequestedQuantity: 3,
	})
	require.Error(t, err)

	var dup *DuplicateRequestError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.ID, dup.ExistingID)
}

func TestCreateRequest_AllowedAgainAfterRejection(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	first, err := f.svc.CreateRequest(ctx, CreateRequestInput{
		RequesterID:       f.buyerID,
		RequesterRole:     models.RoleUser,
		ProductID:         f.productID,
		RequestedQuantity: 10,
	})
	require.NoError(t, err)

	_, err = f.svc.RejectRequest(ctx, first.ID, f.farmerID)
	require.NoError(t, err)

	// Запрос закрыт, блокировка дубликата снята.
	second, err := f.svc.CreateRequest(ctx, CreateRequestInput{
		RequesterID:       f.buyerID,
		RequesterRole:     models.RoleUser,
		ProductID:         f.productID,
		RequestedQuantity: 10,
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateRequest_DailyLimit(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	// Два разных товара того же фермера: лимит считается по покупателю, не по паре.
	secondProduct := uuid.New()
	thirdProduct := uuid.New()
	catalog := &mockCatalog{products: map[uuid.UUID]*models.Product{
		f.productID:   {ID: f.productID, FarmerID: f.farmerID},
		secondProduct: {ID: secondProduct, FarmerID: f.farmerID},
		thirdProduct:  {ID: thirdProduct, FarmerID: f.farmerID},
	}}
	f.svc.products = catalog

	for _, productID := range []uuid.UUID{f.productID, secondProduct} {
		_, err := f.svc.CreateRequest(ctx, CreateRequestInput{
			RequesterID:       f.buyerID,
			RequesterRole:     models.RoleUser,
			ProductID:         productID,
			RequestedQuantity: 1,
		})
		require.NoError(t, err)
	}

	_, err := f.svc.CreateRequest(ctx, CreateRequestInput{
		RequesterID:       f.buyerID,
		RequesterRole:     models.RoleUser,
		ProductID:         thirdProduct,
		RequestedQuantity: 1,
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeRateLimited, appErr.Code)
}

func TestAcceptRequest_OnlyFarmer(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	cr, err := f.svc.CreateRequest(ctx, CreateRequestInput{
		RequesterID:       f.buyerID,
		RequesterRole:     models.RoleUser,
		ProductID:         f.productID,
		RequestedQuantity: 10,
	})
	require.NoError(t, err)

	_, err = f.svc.AcceptRequest(ctx, cr.ID, uuid.New())
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeForbidden, appErr.Code)
}

func TestAcceptRequest_AlreadyProcessed(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	cr, err := f.svc.CreateRequest(ctx, CreateRequestInput{
		RequesterID:       f.buyerID,
		RequesterRole:     models.RoleUser,
		ProductID:         f.productID,
		RequestedQuantity: 10,
	})
	require.NoError(t, err)

	_, err = f.svc.RejectRequest(ctx, cr.ID, f.farmerID)
	require.NoError(t, err)

	_, err = f.svc.AcceptRequest(ctx, cr.ID, f.farmerID)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeConflict, appErr.Code)
}

func TestConfirmation_BothAgreeCompleted(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	cr := f.createAccepted(t)

	res, err := f.svc.SubmitUserConfirmation(ctx, cr.ID, f.buyerID, ConfirmationInput{
		Occurred: true, FinalQuantity: 10, FinalPrice: 400,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Outcome)
	assert.Equal(t, models.RequestStatusAccepted, res.Request.Status)

	res, err = f.svc.SubmitFarmerConfirmation(ctx, cr.ID, f.farmerID, ConfirmationInput{
		Occurred: true, FinalQuantity: 10, FinalPrice: 400,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, res.Outcome)
	assert.Equal(t, models.RequestStatusCompleted, res.Request.Status)
	assert.Equal(t, models.RequestStatusCompleted, res.Request.ConfirmationStatus)
}

func TestConfirmation_BothDeclinedNotCompleted(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	cr := f.createAccepted(t)

	_, err := f.svc.SubmitFarmerConfirmation(ctx, cr.ID, f.farmerID, ConfirmationInput{Occurred: false})
	require.NoError(t, err)

	res, err := f.svc.SubmitUserConfirmation(ctx, cr.ID, f.buyerID, ConfirmationInput{Occurred: false})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusNotCompleted, res.Outcome)
}

func TestConfirmation_MismatchDisputed(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	cr := f.createAccepted(t)

	_, err := f.svc.SubmitUserConfirmation(ctx, cr.ID, f.buyerID, ConfirmationInput{
		Occurred: true, FinalQuantity: 10, FinalPrice: 400,
	})
	require.NoError(t, err)

	res, err := f.svc.SubmitFarmerConfirmation(ctx, cr.ID, f.farmerID, ConfirmationInput{
		Occurred: true, FinalQuantity: 8, FinalPrice: 400,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusDisputed, res.Outcome)
}

func TestConfirmation_OrderIndependent(t *testing.T) {
	// Итог сверки не зависит от того, кто отчитался первым.
	run := func(farmerFirst bool) string {
		f := newFixture(t, 10)
		ctx := context.Background()
		cr := f.createAccepted(t)

		buyer := ConfirmationInput{Occurred: true, FinalQuantity: 7, FinalPrice: 280}
		farmer := ConfirmationInput{Occurred: true, FinalQuantity: 7, FinalPrice: 280}

		var last *ConfirmationResult
		var err error
		if farmerFirst {
			_, err = f.svc.SubmitFarmerConfirmation(ctx, cr.ID, f.farmerID, farmer)
			require.NoError(t, err)
			last, err = f.svc.SubmitUserConfirmation(ctx, cr.ID, f.buyerID, buyer)
		} else {
			_, err = f.svc.SubmitUserConfirmation(ctx, cr.ID, f.buyerID, buyer)
			require.NoError(t, err)
			last, err = f.svc.SubmitFarmerConfirmation(ctx, cr.ID, f.farmerID, farmer)
		}
		require.NoError(t, err)
		return last.Outcome
	}

	assert.Equal(t, run(true), run(false))
	assert.Equal(t, models.RequestStatusCompleted, run(true))
}

func TestConfirmation_RepeatRejected(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	cr := f.createAccepted(t)

	_, err := f.svc.SubmitUserConfirmation(ctx, cr.ID, f.buyerID, ConfirmationInput{
		Occurred: true, FinalQuantity: 10, FinalPrice: 400,
	})
	require.NoError(t, err)

	_, err = f.svc.SubmitUserConfirmation(ctx, cr.ID, f.buyerID, ConfirmationInput{
		Occurred: true, FinalQuantity: 12, FinalPrice: 500,
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeConflict, appErr.Code)
}

func TestConfirmation_BeforeAcceptanceRejected(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	cr, err := f.svc.CreateRequest(ctx, CreateRequestInput{
		RequesterID:       f.buyerID,
		RequesterRole:     models.RoleUser,
		ProductID:         f.productID,
		RequestedQuantity: 10,
	})
	require.NoError(t, err)

	_, err = f.svc.SubmitUserConfirmation(ctx, cr.ID, f.buyerID, ConfirmationInput{
		Occurred: true, FinalQuantity: 10, FinalPrice: 400,
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeConflict, appErr.Code)
}

func TestConfirmation_OnlyParticipants(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	cr := f.createAccepted(t)

	stranger := uuid.New()
	_, err := f.svc.SubmitUserConfirmation(ctx, cr.ID, stranger, ConfirmationInput{Occurred: false})
	require.Error(t, err)

	_, err = f.svc.SubmitFarmerConfirmation(ctx, cr.ID, stranger, ConfirmationInput{Occurred: false})
	require.Error(t, err)
}

func TestResolveDispute(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	cr := f.createAccepted(t)

	// Доводим до спора расхождением.
	_, err := f.svc.SubmitUserConfirmation(ctx, cr.ID, f.buyerID, ConfirmationInput{
		Occurred: true, FinalQuantity: 10, FinalPrice: 400,
	})
	require.NoError(t, err)
	res, err := f.svc.SubmitFarmerConfirmation(ctx, cr.ID, f.farmerID, ConfirmationInput{Occurred: false})
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusDisputed, res.Outcome)

	// Не-админ не видит очередь и не разрешает спор.
	_, err = f.svc.ListDisputes(ctx, models.RoleFarmer)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.svc.ResolveDispute(ctx, cr.ID, models.RoleFarmer, ResolveDisputeInput{Resolution: models.RequestStatusCompleted})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	// Админ видит спор в очереди.
	disputes, err := f.svc.ListDisputes(ctx, models.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, disputes, 1)

	// Недопустимый итог отклоняется.
	_, err = f.svc.ResolveDispute(ctx, cr.ID, models.RoleAdmin, ResolveDisputeInput{Resolution: "cancelled"})
	require.Error(t, err)

	resolved, err := f.svc.ResolveDispute(ctx, cr.ID, models.RoleAdmin, ResolveDisputeInput{
		Resolution: models.RequestStatusCompleted,
		AdminNote:  "стороны договорились по телефону",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, resolved.Status)
	require.NotNil(t, resolved.AdminNote)
	assert.Equal(t, "стороны договорились по телефону", *resolved.AdminNote)

	// Повторное разрешение — конфликт.
	_, err = f.svc.ResolveDispute(ctx, cr.ID, models.RoleAdmin, ResolveDisputeInput{Resolution: models.RequestStatusNotCompleted})
	require.Error(t, err)
}

func TestResolveDispute_OnlyDisputed(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	cr := f.createAccepted(t)

	_, err := f.svc.ResolveDispute(ctx, cr.ID, models.RoleAdmin, ResolveDisputeInput{
		Resolution: models.RequestStatusCompleted,
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeConflict, appErr.Code)
}

func TestGetRequest_Access(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	cr := f.createAccepted(t)

	_, err := f.svc.GetRequest(ctx, cr.ID, f.buyerID, models.RoleUser)
	assert.NoError(t, err)

	_, err = f.svc.GetRequest(ctx, cr.ID, f.farmerID, models.RoleFarmer)
	assert.NoError(t, err)

	_, err = f.svc.GetRequest(ctx, cr.ID, uuid.New(), models.RoleAdmin)
	assert.NoError(t, err)

	_, err = f.svc.GetRequest(ctx, cr.ID, uuid.New(), models.RoleUser)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestListMyRequests(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	cr, err := f.svc.CreateRequest(ctx, CreateRequestInput{
		RequesterID:       f.buyerID,
		RequesterRole:     models.RoleUser,
		ProductID:         f.productID,
		RequestedQuantity: 10,
	})
	require.NoError(t, err)

	mine, err := f.svc.ListMyRequests(ctx, f.buyerID)
	require.NoError(t, err)
	require.Len(t, mine.Sent, 1)
	assert.Equal(t, cr.ID, mine.Sent[0].ID)
	assert.Empty(t, mine.Received)
	assert.Equal(t, []uuid.UUID{f.farmerID}, mine.PendingFarmerIDs)

	farmers, err := f.svc.ListMyRequests(ctx, f.farmerID)
	require.NoError(t, err)
	require.Len(t, farmers.Received, 1)
	assert.Empty(t, farmers.Sent)
}

func TestGetRequest_NotFound(t *testing.T) {
	f := newFixture(t, 10)

	_, err := f.svc.GetRequest(context.Background(), uuid.New(), f.buyerID, models.RoleUser)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrRequestNotFound))
}
