package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/farmlink/farmlink-backend/internal/goroutine"
	"github.com/farmlink/farmlink-backend/internal/logger"
	"github.com/farmlink/farmlink-backend/internal/models"
)

// SweeperRepository — контракт sweeper'а с хранилищем.
type SweeperRepository interface {
	ExpireStale(ctx context.Context, cutoff time.Time) ([]models.ContactRequest, error)
}

// ExpirySweeper периодически закрывает просроченные переговоры: accepted запросы,
// по которым стороны не довели сверку до конца за отведённое окно, переводятся
// в expired одним условным UPDATE. Повторный запуск по тем же данным — no-op,
// поэтому наложение запусков безопасно.
type ExpirySweeper struct {
	repo     SweeperRepository
	notifier Notifier
	window   time.Duration
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// NewExpirySweeper создаёт sweeper. window — срок на подтверждения после
// принятия, interval — период между запусками.
func NewExpirySweeper(repo SweeperRepository, window, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{
		repo:     repo,
		window:   window,
		interval: interval,
		now:      time.Now,
	}
}

// SetNotifier устанавливает диспетчер уведомлений.
func (s *ExpirySweeper) SetNotifier(n Notifier) {
	s.notifier = n
}

// Start запускает фоновый цикл. Повторный Start без Stop игнорируется.
func (s *ExpirySweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})

	stop, stopped := s.stop, s.stopped
	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
		defer close(stopped)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				if _, err := s.RunOnce(ctx); err != nil && logger.Log != nil {
					logger.Log.Errorf("sweeper: проход завершился с ошибкой: %v", err)
				}
			}
		}
	})
}

// Stop останавливает фоновый цикл и дожидается его завершения.
func (s *ExpirySweeper) Stop() {
	s.mu.Lock()
	stop, stopped := s.stop, s.stopped
	s.stop = nil
	s.stopped = nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-stopped
}

// RunOnce выполняет один проход и возвращает количество закрытых запросов.
// Вызывается циклом по таймеру и напрямую из тестов.
func (s *ExpirySweeper) RunOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.window)

	expired, err := s.repo.ExpireStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	// Сбой уведомления по одной записи не прерывает обработку остальных.
	for i := range expired {
		cr := &expired[i]
		s.notifyParty(cr.RequesterID, cr)
		s.notifyParty(cr.FarmerID, cr)
	}

	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"expired_count": len(expired),
			"cutoff":        cutoff,
		}).Info("sweeper: просроченные запросы закрыты")
	}

	return len(expired), nil
}

func (s *ExpirySweeper) notifyParty(userID uuid.UUID, cr *models.ContactRequest) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BroadcastToUser(userID, EventRequestExpired, cr); err != nil && logger.Log != nil {
		logger.Log.Warnf("sweeper: не удалось уведомить %s о просрочке запроса %s: %v", userID, cr.ID, err)
	}
}
