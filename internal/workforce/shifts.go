package workforce

import (
	"context"
	"database/sql"
	"time"

	"foodcourt/internal/apperr"
	"foodcourt/internal/domain"
	"foodcourt/internal/eventbus"
	"foodcourt/internal/identity"
)

type ScheduleShiftInput struct {
	EmployeeID     string
	RestaurantID   string
	ScheduledStart time.Time
	ScheduledEnd   time.Time
	BreakMinutes   int
	Notes          *string
}

// ScheduleShift validates overlap against every non-terminal shift the
// employee already has.
func (e *Engine) ScheduleShift(ctx context.Context, principal domain.Principal, in ScheduleShiftInput) (domain.Shift, error) {
	if err := e.oracle.Authorize(ctx, principal, identity.VerbCreateOrUpdateEmployee, identity.Resource{RestaurantID: in.RestaurantID}); err != nil {
		return domain.Shift{}, err
	}
	if !in.ScheduledStart.Before(in.ScheduledEnd) {
		return domain.Shift{}, apperr.New(apperr.ValidationFailed, "scheduledStart must be before scheduledEnd")
	}

	var result domain.Shift
	err := e.store.WithSerializableRetry(ctx, func(ctx context.Context, tx *sql.Tx) error {
		existing, err := e.store.Shifts.ListNonTerminalForEmployee(ctx, tx, in.EmployeeID)
		if err != nil {
			return err
		}
		for _, s := range existing {
			if overlaps(in.ScheduledStart, in.ScheduledEnd, s.ScheduledStart, s.ScheduledEnd) {
				return apperr.New(apperr.OverlappingShift, "shift overlaps an existing scheduled or active shift")
			}
		}

		shift := domain.Shift{
			ID:             domain.NewID(),
			EmployeeID:     in.EmployeeID,
			ScheduledStart: in.ScheduledStart,
			ScheduledEnd:   in.ScheduledEnd,
			BreakMinutes:   in.BreakMinutes,
			Status:         domain.ShiftScheduled,
			Notes:          in.Notes,
		}
		if err := e.store.Shifts.Create(ctx, tx, shift); err != nil {
			return err
		}
		result = shift
		return nil
	})
	if err != nil {
		return domain.Shift{}, err
	}
	return result, nil
}

// overlaps treats [start, end) as half-open so a shift ending exactly when
// another begins does not count as an overlap.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func sameLocalDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ClockIn starts a shift for an employee: the Scheduled shift starting
// today in the restaurant's timezone if one exists, otherwise a fresh
// on-demand Shift running to end-of-day, same as an unscheduled walk-in
// start. A second clock-in while a shift is Active is a Conflict.
func (e *Engine) ClockIn(ctx context.Context, principal domain.Principal, employeeID string) (domain.Shift, error) {
	var result domain.Shift
	err := e.store.WithSerializableRetry(ctx, func(ctx context.Context, tx *sql.Tx) error {
		emp, err := e.store.Employees.GetByID(ctx, tx, employeeID)
		if err != nil {
			return err
		}
		if err := e.oracle.Authorize(ctx, principal, identity.VerbClockInOut, identity.Resource{
			RestaurantID:        emp.RestaurantID,
			EmployeePrincipalID: emp.PrincipalID,
		}); err != nil {
			return err
		}
		rest, err := e.store.Restaurants.GetByID(ctx, tx, emp.RestaurantID)
		if err != nil {
			return err
		}
		loc, err := time.LoadLocation(rest.Timezone)
		if err != nil {
			return apperr.Wrap(apperr.Internal, "load restaurant timezone", err)
		}

		existing, err := e.store.Shifts.ListNonTerminalForEmployee(ctx, tx, employeeID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		localNow := now.In(loc)
		var target *domain.Shift
		for i := range existing {
			if existing[i].Status == domain.ShiftActive {
				return apperr.New(apperr.Conflict, "employee already has an active shift")
			}
			localStart := existing[i].ScheduledStart.In(loc)
			if existing[i].Status == domain.ShiftScheduled && sameLocalDay(localStart, localNow) {
				target = &existing[i]
			}
		}

		if target == nil {
			endOfDay := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 23, 59, 59, 0, loc).UTC()
			shift := domain.Shift{
				ID:             domain.NewID(),
				EmployeeID:     employeeID,
				ScheduledStart: now,
				ScheduledEnd:   endOfDay,
				ActualStart:    &now,
				Status:         domain.ShiftActive,
			}
			if err := e.store.Shifts.Create(ctx, tx, shift); err != nil {
				return err
			}
			result = shift
		} else {
			target.ActualStart = &now
			target.Status = domain.ShiftActive
			if err := e.store.Shifts.Update(ctx, tx, *target); err != nil {
				return err
			}
			result = *target
		}

		return e.bus.Publish(ctx, tx, eventbus.AggregateShift, result.ID, eventbus.KindShiftStarted, eventbus.ShiftStartedPayload{
			ShiftID: result.ID, EmployeeID: employeeID,
		})
	})
	if err != nil {
		return domain.Shift{}, err
	}
	return result, nil
}

// ClockOut closes the employee's active shift, computing effective hours
// net of break time and, when the employee has an hourly wage, the shift
// pay owed.
func (e *Engine) ClockOut(ctx context.Context, principal domain.Principal, employeeID string) (domain.Shift, error) {
	var result domain.Shift
	err := e.store.WithSerializableRetry(ctx, func(ctx context.Context, tx *sql.Tx) error {
		emp, err := e.store.Employees.GetByID(ctx, tx, employeeID)
		if err != nil {
			return err
		}
		if err := e.oracle.Authorize(ctx, principal, identity.VerbClockInOut, identity.Resource{
			RestaurantID:        emp.RestaurantID,
			EmployeePrincipalID: emp.PrincipalID,
		}); err != nil {
			return err
		}

		existing, err := e.store.Shifts.ListNonTerminalForEmployee(ctx, tx, employeeID)
		if err != nil {
			return err
		}
		var active *domain.Shift
		for i := range existing {
			if existing[i].Status == domain.ShiftActive {
				active = &existing[i]
				break
			}
		}
		if active == nil {
			return apperr.New(apperr.ValidationFailed, "employee has no active shift")
		}

		now := time.Now().UTC()
		worked := now.Sub(*active.ActualStart) - time.Duration(active.BreakMinutes)*time.Minute
		if worked < 0 {
			worked = 0
		}
		hours := worked.Hours()
		active.ActualEnd = &now
		active.Status = domain.ShiftCompleted
		active.EffectiveHours = &hours

		var payMinor *int64
		if emp.HourlyWageMinor != nil {
			pay := domain.RoundMinor(hours * float64(*emp.HourlyWageMinor))
			payMinor = &pay
			active.ShiftPayMinor = payMinor
		}

		if err := e.store.Shifts.Update(ctx, tx, *active); err != nil {
			return err
		}
		result = *active

		return e.bus.Publish(ctx, tx, eventbus.AggregateShift, active.ID, eventbus.KindShiftEnded, eventbus.ShiftEndedPayload{
			ShiftID: active.ID, EmployeeID: employeeID, HoursWorked: hours, PayMinor: payMinor,
		})
	})
	if err != nil {
		return domain.Shift{}, err
	}
	return result, nil
}

// ListShifts returns every shift recorded for an employee, most useful to
// the employee themself or their restaurant's managers.
func (e *Engine) ListShifts(ctx context.Context, principal domain.Principal, employeeID string) ([]domain.Shift, error) {
	emp, err := e.store.Employees.GetByID(ctx, e.store.DB, employeeID)
	if err != nil {
		return nil, err
	}
	if err := e.oracle.Authorize(ctx, principal, identity.VerbClockInOut, identity.Resource{
		RestaurantID:        emp.RestaurantID,
		EmployeePrincipalID: emp.PrincipalID,
	}); err != nil {
		return nil, err
	}
	return e.store.Shifts.ListForEmployee(ctx, e.store.DB, employeeID)
}

// PayrollEntry is one employee's rolled-up pay for the payroll read
// endpoint.
type PayrollEntry struct {
	EmployeeID    string
	TotalHours    float64
	TotalPayMinor int64
	ShiftCount    int
}

func (e *Engine) Payroll(ctx context.Context, principal domain.Principal, restaurantID string) ([]PayrollEntry, error) {
	if err := e.oracle.Authorize(ctx, principal, identity.VerbCreateOrUpdateEmployee, identity.Resource{RestaurantID: restaurantID}); err != nil {
		return nil, err
	}

	employees, err := e.store.Employees.ListByRestaurant(ctx, e.store.DB, restaurantID)
	if err != nil {
		return nil, err
	}
	entries := make([]PayrollEntry, 0, len(employees))
	for _, emp := range employees {
		shifts, err := e.store.Shifts.ListForEmployee(ctx, e.store.DB, emp.ID)
		if err != nil {
			return nil, err
		}
		entry := PayrollEntry{EmployeeID: emp.ID}
		for _, s := range shifts {
			if s.Status != domain.ShiftCompleted {
				continue
			}
			if s.EffectiveHours != nil {
				entry.TotalHours += *s.EffectiveHours
			}
			if s.ShiftPayMinor != nil {
				entry.TotalPayMinor += *s.ShiftPayMinor
			}
			entry.ShiftCount++
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
