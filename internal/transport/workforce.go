package transport

import (
	"io"
	"net/http"
	"time"

	"foodcourt/internal/apperr"
	"foodcourt/internal/domain"
	"foodcourt/internal/workforce"

	"github.com/go-chi/chi/v5"
)

type createInviteRequest struct {
	RestaurantID    string `json:"restaurantId"`
	GrantedRole     string `json:"grantedRole"`
	HourlyWageMinor *int64 `json:"hourlyWageMinor"`
	ExpiresAt       string `json:"expiresAt"`
	MaxUses         int    `json:"maxUses"`
}

func (svc *Services) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.ValidationFailed, "failed to read request body", err))
		return
	}
	if err := validateCreateInviteBody(body); err != nil {
		writeError(w, r, err)
		return
	}

	var req createInviteRequest
	if err := decodeJSONBytes(body, &req); err != nil {
		writeError(w, r, err)
		return
	}
	expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.ValidationFailed, "expiresAt must be RFC3339", err))
		return
	}

	invite, err := svc.Workforce.CreateInvite(r.Context(), principalFrom(r), workforce.CreateInviteInput{
		RestaurantID:    req.RestaurantID,
		GrantedRole:     domain.EmployeeRole(req.GrantedRole),
		HourlyWageMinor: req.HourlyWageMinor,
		ExpiresAt:       expiresAt,
		MaxUses:         req.MaxUses,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInviteDTO(invite))
}

func (svc *Services) handleRevokeInvite(w http.ResponseWriter, r *http.Request) {
	if err := svc.Workforce.RevokeInvite(r.Context(), principalFrom(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type consumeInviteRequest struct {
	Token string  `json:"token"`
	Name  string  `json:"name"`
	Phone string  `json:"phone"`
	Email *string `json:"email"`
}

func (svc *Services) handleConsumeInvite(w http.ResponseWriter, r *http.Request) {
	var req consumeInviteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	employee, err := svc.Workforce.ConsumeInvite(r.Context(), principalFrom(r), req.Token, req.Name, req.Phone, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(employee))
}

type scheduleShiftRequest struct {
	EmployeeID     string  `json:"employeeId"`
	RestaurantID   string  `json:"restaurantId"`
	ScheduledStart string  `json:"scheduledStart"`
	ScheduledEnd   string  `json:"scheduledEnd"`
	BreakMinutes   int     `json:"breakMinutes"`
	Notes          *string `json:"notes"`
}

func (svc *Services) handleScheduleShift(w http.ResponseWriter, r *http.Request) {
	var req scheduleShiftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	start, err := time.Parse(time.RFC3339, req.ScheduledStart)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.ValidationFailed, "scheduledStart must be RFC3339", err))
		return
	}
	end, err := time.Parse(time.RFC3339, req.ScheduledEnd)
	if err != nil {
		writeError(w, r, apperr.Wrap(apperr.ValidationFailed, "scheduledEnd must be RFC3339", err))
		return
	}
	shift, err := svc.Workforce.ScheduleShift(r.Context(), principalFrom(r), workforce.ScheduleShiftInput{
		EmployeeID:     req.EmployeeID,
		RestaurantID:   req.RestaurantID,
		ScheduledStart: start,
		ScheduledEnd:   end,
		BreakMinutes:   req.BreakMinutes,
		Notes:          req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftDTO(shift))
}

type clockRequest struct {
	EmployeeID string `json:"employeeId"`
}

func (svc *Services) handleClockIn(w http.ResponseWriter, r *http.Request) {
	var req clockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	shift, err := svc.Workforce.ClockIn(r.Context(), principalFrom(r), req.EmployeeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(shift))
}

func (svc *Services) handleClockOut(w http.ResponseWriter, r *http.Request) {
	var req clockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	shift, err := svc.Workforce.ClockOut(r.Context(), principalFrom(r), req.EmployeeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(shift))
}

func (svc *Services) handleListEmployeeShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := svc.Workforce.ListShifts(r.Context(), principalFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	dtos := make([]shiftDTO, len(shifts))
	for i, s := range shifts {
		dtos[i] = toShiftDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (svc *Services) handlePayroll(w http.ResponseWriter, r *http.Request) {
	entries, err := svc.Workforce.Payroll(r.Context(), principalFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	dtos := make([]payrollEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toPayrollEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}
