package workforce

import (
	"context"
	"database/sql"
	"time"

	"foodcourt/internal/domain"
	"foodcourt/internal/eventbus"
	"foodcourt/internal/logger"

	"go.uber.org/zap"
)

// Sweeper periodically cancels Scheduled shifts nobody clocked into within
// MissedShiftGrace of their scheduledStart, marking them as no-shows.
type Sweeper struct {
	engine       *Engine
	pollInterval time.Duration
}

func NewSweeper(e *Engine) *Sweeper {
	return &Sweeper{engine: e, pollInterval: time.Minute}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	log := logger.GetLogger(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sweepOnce(ctx); err != nil {
				log.Error("[WORKFORCE] action=sweep_failed", zap.Error(err))
			}
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-MissedShiftGrace)
	overdue, err := s.engine.store.Shifts.ListScheduledBefore(ctx, s.engine.store.DB, cutoff)
	if err != nil {
		return err
	}

	for _, shift := range overdue {
		shiftID := shift.ID
		err := s.engine.store.WithSerializableRetry(ctx, func(ctx context.Context, tx *sql.Tx) error {
			locked, err := s.engine.store.Shifts.GetByIDForUpdate(ctx, tx, shiftID)
			if err != nil {
				return err
			}
			if locked.Status != domain.ShiftScheduled || locked.ActualStart != nil {
				return nil
			}
			noShow := "no-show"
			locked.Status = domain.ShiftCancelled
			locked.Notes = &noShow
			if err := s.engine.store.Shifts.Update(ctx, tx, locked); err != nil {
				return err
			}
			return s.engine.bus.Publish(ctx, tx, eventbus.AggregateShift, locked.ID, eventbus.KindShiftMissed, eventbus.ShiftMissedPayload{
				ShiftID: locked.ID, EmployeeID: locked.EmployeeID,
			})
		})
		if err != nil {
			logger.GetLogger(ctx).Error("[WORKFORCE] action=sweep_shift_failed", zap.String("shift_id", shiftID), zap.Error(err))
		}
	}
	return nil
}
