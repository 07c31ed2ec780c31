package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"foodcourt/internal/apperr"
	"foodcourt/internal/domain"
)

type EmployeeRepo struct{}

const employeeSelect = `
	SELECT id, restaurant_id, principal_id, name, phone, email, employee_role, hourly_wage_minor, active_flag
	FROM employee`

func (r *EmployeeRepo) Create(ctx context.Context, tx *sql.Tx, e domain.Employee) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO employee (id, restaurant_id, principal_id, name, phone, email, employee_role, hourly_wage_minor, active_flag)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.ID, e.RestaurantID, e.PrincipalID, e.Name, e.Phone, e.Email, e.EmployeeRole, e.HourlyWageMinor, e.ActiveFlag)
	if err != nil {
		if matchesPQCode(err, "23505") {
			return apperr.New(apperr.AlreadyExists, "an active employee with this phone already exists")
		}
		return apperr.Wrap(apperr.Internal, "create employee", err)
	}
	return nil
}

func (r *EmployeeRepo) GetByID(ctx context.Context, q Querier, id string) (domain.Employee, error) {
	return r.scanOne(q.QueryRowContext(ctx, employeeSelect+` WHERE id = $1`, id))
}

func (r *EmployeeRepo) GetByPrincipalID(ctx context.Context, q Querier, principalID string) (domain.Employee, error) {
	return r.scanOne(q.QueryRowContext(ctx, employeeSelect+` WHERE principal_id = $1 AND active_flag`, principalID))
}

// ListByRestaurant supports the payroll rollup read endpoint.
func (r *EmployeeRepo) ListByRestaurant(ctx context.Context, q Querier, restaurantID string) ([]domain.Employee, error) {
	rows, err := q.QueryContext(ctx, employeeSelect+` WHERE restaurant_id = $1`, restaurantID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list employees for restaurant", err)
	}
	defer rows.Close()

	var out []domain.Employee
	for rows.Next() {
		var e domain.Employee
		if err := rows.Scan(&e.ID, &e.RestaurantID, &e.PrincipalID, &e.Name, &e.Phone, &e.Email, &e.EmployeeRole, &e.HourlyWageMinor, &e.ActiveFlag); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan employee row", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *EmployeeRepo) scanOne(row *sql.Row) (domain.Employee, error) {
	var e domain.Employee
	err := row.Scan(&e.ID, &e.RestaurantID, &e.PrincipalID, &e.Name, &e.Phone, &e.Email, &e.EmployeeRole, &e.HourlyWageMinor, &e.ActiveFlag)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Employee{}, apperr.New(apperr.NotFound, "employee not found")
	}
	if err != nil {
		return domain.Employee{}, apperr.Wrap(apperr.Internal, "scan employee", err)
	}
	return e, nil
}

type ShiftRepo struct{}

const shiftSelect = `
	SELECT id, employee_id, scheduled_start, scheduled_end, actual_start, actual_end, break_minutes, status,
		notes, effective_hours, shift_pay_minor
	FROM shift`

func (r *ShiftRepo) Create(ctx context.Context, tx *sql.Tx, s domain.Shift) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO shift (id, employee_id, scheduled_start, scheduled_end, actual_start, actual_end, break_minutes,
			status, notes, effective_hours, shift_pay_minor)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		s.ID, s.EmployeeID, s.ScheduledStart, s.ScheduledEnd, s.ActualStart, s.ActualEnd, s.BreakMinutes,
		s.Status, s.Notes, s.EffectiveHours, s.ShiftPayMinor)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "create shift", err)
	}
	return nil
}

func (r *ShiftRepo) GetByID(ctx context.Context, q Querier, id string) (domain.Shift, error) {
	return r.scanOne(q.QueryRowContext(ctx, shiftSelect+` WHERE id = $1`, id))
}

func (r *ShiftRepo) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (domain.Shift, error) {
	return r.scanOne(tx.QueryRowContext(ctx, shiftSelect+` WHERE id = $1 FOR UPDATE`, id))
}

func (r *ShiftRepo) scanOne(row *sql.Row) (domain.Shift, error) {
	var s domain.Shift
	err := row.Scan(&s.ID, &s.EmployeeID, &s.ScheduledStart, &s.ScheduledEnd, &s.ActualStart, &s.ActualEnd, &s.BreakMinutes,
		&s.Status, &s.Notes, &s.EffectiveHours, &s.ShiftPayMinor)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Shift{}, apperr.New(apperr.NotFound, "shift not found")
	}
	if err != nil {
		return domain.Shift{}, apperr.Wrap(apperr.Internal, "scan shift", err)
	}
	return s, nil
}

// ListNonTerminalForEmployee supports the overlap check and the
// at-most-one-Active invariant; it locks the rows for update so concurrent
// schedule/clock-in calls for the same employee serialize.
func (r *ShiftRepo) ListNonTerminalForEmployee(ctx context.Context, tx *sql.Tx, employeeID string) ([]domain.Shift, error) {
	rows, err := tx.QueryContext(ctx, shiftSelect+`
		WHERE employee_id = $1 AND status IN ($2, $3) FOR UPDATE`,
		employeeID, domain.ShiftScheduled, domain.ShiftActive)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list non-terminal shifts", err)
	}
	defer rows.Close()

	var out []domain.Shift
	for rows.Next() {
		var s domain.Shift
		if err := rows.Scan(&s.ID, &s.EmployeeID, &s.ScheduledStart, &s.ScheduledEnd, &s.ActualStart, &s.ActualEnd, &s.BreakMinutes,
			&s.Status, &s.Notes, &s.EffectiveHours, &s.ShiftPayMinor); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan shift row", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListScheduledBefore supports the missed-shift sweeper: every Scheduled
// shift whose scheduledStart is before cutoff and has no actualStart.
func (r *ShiftRepo) ListScheduledBefore(ctx context.Context, q Querier, cutoff time.Time) ([]domain.Shift, error) {
	rows, err := q.QueryContext(ctx, shiftSelect+`
		WHERE status = $1 AND scheduled_start < $2 AND actual_start IS NULL`,
		domain.ShiftScheduled, cutoff)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list overdue scheduled shifts", err)
	}
	defer rows.Close()

	var out []domain.Shift
	for rows.Next() {
		var s domain.Shift
		if err := rows.Scan(&s.ID, &s.EmployeeID, &s.ScheduledStart, &s.ScheduledEnd, &s.ActualStart, &s.ActualEnd, &s.BreakMinutes,
			&s.Status, &s.Notes, &s.EffectiveHours, &s.ShiftPayMinor); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan overdue shift row", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListForEmployee supports the payroll rollup read endpoint.
func (r *ShiftRepo) ListForEmployee(ctx context.Context, q Querier, employeeID string) ([]domain.Shift, error) {
	rows, err := q.QueryContext(ctx, shiftSelect+` WHERE employee_id = $1 ORDER BY scheduled_start DESC`, employeeID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list shifts for employee", err)
	}
	defer rows.Close()

	var out []domain.Shift
	for rows.Next() {
		var s domain.Shift
		if err := rows.Scan(&s.ID, &s.EmployeeID, &s.ScheduledStart, &s.ScheduledEnd, &s.ActualStart, &s.ActualEnd, &s.BreakMinutes,
			&s.Status, &s.Notes, &s.EffectiveHours, &s.ShiftPayMinor); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan employee shift row", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *ShiftRepo) Update(ctx context.Context, tx *sql.Tx, s domain.Shift) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE shift SET scheduled_start=$1, scheduled_end=$2, actual_start=$3, actual_end=$4, break_minutes=$5,
			status=$6, notes=$7, effective_hours=$8, shift_pay_minor=$9
		WHERE id=$10`,
		s.ScheduledStart, s.ScheduledEnd, s.ActualStart, s.ActualEnd, s.BreakMinutes,
		s.Status, s.Notes, s.EffectiveHours, s.ShiftPayMinor, s.ID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "update shift", err)
	}
	return nil
}
