package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// AgendaSender отправляет владельцу сводку записей на день
type AgendaSender interface {
	SendDailyAgenda(ctx context.Context) error
}

// Digest ежедневная сводка по cron-расписанию в зоне владельца
type Digest struct {
	cron    *cron.Cron
	sender  AgendaSender
	timeout time.Duration
	logger  *zap.Logger
}

// NewDigest регистрирует задачу; spec в стандартном 5-польном формате
func NewDigest(sender AgendaSender, spec string, loc *time.Location, logger *zap.Logger) (*Digest, error) {
	if loc == nil {
		loc = time.UTC
	}

	d := &Digest{
		cron:    cron.New(cron.WithLocation(loc)),
		sender:  sender,
		timeout: 30 * time.Second,
		logger:  logger,
	}

	if _, err := d.cron.AddFunc(spec, d.run); err != nil {
		return nil, fmt.Errorf("schedule daily digest %q: %w", spec, err)
	}

	return d, nil
}

// Start запускает cron в своей горутине
func (d *Digest) Start() {
	d.logger.Info("Daily digest scheduled", zap.String("location", d.cron.Location().String()))
	d.cron.Start()
}

// Stop останавливает cron и ждёт текущую отправку
func (d *Digest) Stop() {
	<-d.cron.Stop().Done()
}

func (d *Digest) run() {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sender.SendDailyAgenda(ctx); err != nil {
		d.logger.Warn("Failed to send daily digest", zap.Error(err))
	}
}
