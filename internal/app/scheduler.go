package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/booking_engine/internal/service"
)

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	pruner   service.SlotLockPruner
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	done     chan struct{}
}

// NewScheduler создаёт планировщик очистки блокировок прошедших встреч
func NewScheduler(pruner service.SlotLockPruner, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		pruner:   pruner,
		interval: interval,
		now:      time.Now,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.logger.Info("Starting background scheduler", zap.Duration("lock_prune_interval", s.interval))
	go s.runLockPruneTask(ctx)
}

// Stop останавливает фоновые задачи и ждёт завершения текущего прохода.
// Без предшествующего Start возвращается сразу, а последующий Start ничего не запускает.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
		if s.started.CompareAndSwap(false, true) {
			close(s.done)
		}
	})
	<-s.done
}

func (s *Scheduler) runLockPruneTask(ctx context.Context) {
	defer close(s.done)

	// Первый запуск сразу при старте
	s.pruneLocks(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.pruneLocks(ctx)
		case <-s.stopChan:
			s.logger.Info("Lock prune task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Lock prune task cancelled")
			return
		}
	}
}

// pruneLocks удаляет блокировки слотов, которые уже закончились.
// Они больше не влияют на доступность, а таблица растёт с каждой бронью.
func (s *Scheduler) pruneLocks(ctx context.Context) {
	deleted, err := s.pruner.DeleteEndedBefore(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to prune slot locks", zap.Error(err))
		return
	}

	if deleted > 0 {
		s.logger.Info("Pruned ended slot locks", zap.Int64("deleted", deleted))
	}
}
