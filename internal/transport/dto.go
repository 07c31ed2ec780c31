package transport

import (
	"time"

	"foodcourt/internal/domain"
	"foodcourt/internal/workforce"
)

// DTOs translate domain aggregates to their wire shape. Keeping this
// separate from internal/domain lets the aggregates stay persistence- and
// transport-agnostic.

type orderItemDTO struct {
	ID                  string  `json:"id"`
	ProductID           string  `json:"productId"`
	VariantLabel        *string `json:"variantLabel,omitempty"`
	Quantity            int     `json:"quantity"`
	UnitPriceMinor      int64   `json:"unitPriceMinor"`
	LineTotalMinor      int64   `json:"lineTotalMinor"`
	SpecialInstructions *string `json:"specialInstructions,omitempty"`
}

type orderDTO struct {
	ID                  string         `json:"id"`
	OrderNumber         string         `json:"orderNumber"`
	RestaurantID        string         `json:"restaurantId"`
	TableID             *string        `json:"tableId,omitempty"`
	CustomerPrincipalID *string        `json:"customerPrincipalId,omitempty"`
	CustomerName        string         `json:"customerName"`
	CustomerPhone       string         `json:"customerPhone"`
	DeliveryType        string         `json:"deliveryType"`
	TotalMinor          int64          `json:"totalMinor"`
	Status              string         `json:"status"`
	SpecialInstructions *string        `json:"specialInstructions,omitempty"`
	Items               []orderItemDTO `json:"items"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}

func toOrderDTO(o domain.Order) orderDTO {
	items := make([]orderItemDTO, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemDTO{
			ID: it.ID, ProductID: it.ProductID, VariantLabel: it.VariantLabel, Quantity: it.Quantity,
			UnitPriceMinor: it.UnitPriceMinor, LineTotalMinor: it.LineTotalMinor, SpecialInstructions: it.SpecialInstructions,
		}
	}
	return orderDTO{
		ID: o.ID, OrderNumber: o.OrderNumber, RestaurantID: o.RestaurantID, TableID: o.TableID,
		CustomerPrincipalID: o.CustomerPrincipalID, CustomerName: o.CustomerName, CustomerPhone: o.CustomerPhone,
		DeliveryType: string(o.DeliveryType), TotalMinor: o.TotalMinor, Status: string(o.Status),
		SpecialInstructions: o.SpecialInstructions, Items: items, CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt,
	}
}

type paymentDTO struct {
	ID              string    `json:"id"`
	OrderID         string    `json:"orderId"`
	AmountMinor     int64     `json:"amountMinor"`
	Currency        string    `json:"currency"`
	Method          string    `json:"method"`
	Status          string    `json:"status"`
	CommissionMinor int64     `json:"commissionMinor"`
	NetMinor        int64     `json:"netMinor"`
	ProviderRef     *string   `json:"providerRef,omitempty"`
	RedirectURL     *string   `json:"redirectUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toPaymentDTO(p domain.Payment) paymentDTO {
	return paymentDTO{
		ID: p.ID, OrderID: p.OrderID, AmountMinor: p.AmountMinor, Currency: p.Currency,
		Method: string(p.Method), Status: string(p.Status), CommissionMinor: p.CommissionMinor, NetMinor: p.NetMinor,
		ProviderRef: p.ProviderRef, RedirectURL: p.RedirectURL, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

type inviteDTO struct {
	ID              string `json:"id"`
	Token           string `json:"token"`
	RestaurantID    string `json:"restaurantId"`
	GrantedRole     string `json:"grantedRole"`
	HourlyWageMinor *int64 `json:"hourlyWageMinor,omitempty"`
	ExpiresAt       string `json:"expiresAt"`
	MaxUses         int    `json:"maxUses"`
	UsedCount       int    `json:"usedCount"`
	Status          string `json:"status"`
}

func toInviteDTO(i domain.InviteToken) inviteDTO {
	return inviteDTO{
		ID: i.ID, Token: i.Token, RestaurantID: i.RestaurantID, GrantedRole: string(i.GrantedRole),
		HourlyWageMinor: i.HourlyWageMinor, ExpiresAt: i.ExpiresAt.Format(time.RFC3339), MaxUses: i.MaxUses,
		UsedCount: i.UsedCount, Status: string(i.Status),
	}
}

type employeeDTO struct {
	ID              string  `json:"id"`
	RestaurantID    string  `json:"restaurantId"`
	PrincipalID     *string `json:"principalId,omitempty"`
	Name            string  `json:"name"`
	Phone           string  `json:"phone"`
	Email           *string `json:"email,omitempty"`
	EmployeeRole    string  `json:"employeeRole"`
	HourlyWageMinor *int64  `json:"hourlyWageMinor,omitempty"`
	ActiveFlag      bool    `json:"activeFlag"`
}

func toEmployeeDTO(e domain.Employee) employeeDTO {
	return employeeDTO{
		ID: e.ID, RestaurantID: e.RestaurantID, PrincipalID: e.PrincipalID, Name: e.Name, Phone: e.Phone,
		Email: e.Email, EmployeeRole: string(e.EmployeeRole), HourlyWageMinor: e.HourlyWageMinor, ActiveFlag: e.ActiveFlag,
	}
}

type shiftDTO struct {
	ID             string     `json:"id"`
	EmployeeID     string     `json:"employeeId"`
	ScheduledStart time.Time  `json:"scheduledStart"`
	ScheduledEnd   time.Time  `json:"scheduledEnd"`
	ActualStart    *time.Time `json:"actualStart,omitempty"`
	ActualEnd      *time.Time `json:"actualEnd,omitempty"`
	BreakMinutes   int        `json:"breakMinutes"`
	Status         string     `json:"status"`
	Notes          *string    `json:"notes,omitempty"`
	EffectiveHours *float64   `json:"effectiveHours,omitempty"`
	ShiftPayMinor  *int64     `json:"shiftPayMinor,omitempty"`
}

func toShiftDTO(s domain.Shift) shiftDTO {
	return shiftDTO{
		ID: s.ID, EmployeeID: s.EmployeeID, ScheduledStart: s.ScheduledStart, ScheduledEnd: s.ScheduledEnd,
		ActualStart: s.ActualStart, ActualEnd: s.ActualEnd, BreakMinutes: s.BreakMinutes, Status: string(s.Status),
		Notes: s.Notes, EffectiveHours: s.EffectiveHours, ShiftPayMinor: s.ShiftPayMinor,
	}
}

type payrollEntryDTO struct {
	EmployeeID    string  `json:"employeeId"`
	TotalHours    float64 `json:"totalHours"`
	TotalPayMinor int64   `json:"totalPayMinor"`
	ShiftCount    int     `json:"shiftCount"`
}

func toPayrollEntryDTO(e workforce.PayrollEntry) payrollEntryDTO {
	return payrollEntryDTO{
		EmployeeID: e.EmployeeID, TotalHours: e.TotalHours, TotalPayMinor: e.TotalPayMinor, ShiftCount: e.ShiftCount,
	}
}
