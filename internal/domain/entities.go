package domain

import (
	"encoding/json"
	"time"
)

// Principal is a resolved, authenticated caller.
type Principal struct {
	ID               string
	Role             Role
	ExternalIdentityID string
	CreatedAt        time.Time
}

// Foodcourt groups a set of Restaurants under one physical location.
type Foodcourt struct {
	ID             string
	Name           string
	CommissionRate float64
	ActiveFlag     bool
}

// Restaurant is a tenant storefront within a Foodcourt.
type Restaurant struct {
	ID               string
	OwnerPrincipalID string
	FoodcourtID      string
	Name             string
	CommissionRate   float64 // copied from Foodcourt.CommissionRate at creation time
	PublishedFlag    bool
	Timezone         string          // IANA timezone, e.g. "Europe/Belgrade"
	Location         json.RawMessage // opaque; owned by the catalog subsystem
}

// Table is a physical seating location belonging to a Foodcourt.
type Table struct {
	ID          string
	FoodcourtID string
	Label       string
}

// Order is the order aggregate root.
type Order struct {
	ID                   string
	OrderNumber          string
	RestaurantID         string
	TableID              *string
	CustomerPrincipalID  *string
	CustomerName         string
	CustomerPhone        string
	DeliveryType         DeliveryType
	TotalMinor           int64
	Status               OrderStatus
	SpecialInstructions  *string
	Items                []OrderItem
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// OrderItem is a line item snapshot frozen at order-creation time.
type OrderItem struct {
	ID                  string
	OrderID             string
	ProductID           string
	VariantLabel        *string
	Quantity            int
	UnitPriceMinor      int64
	LineTotalMinor      int64
	SpecialInstructions *string
}

// Payment is the payment aggregate root, 1:1 with an Order.
type Payment struct {
	ID               string
	OrderID          string
	AmountMinor      int64
	Currency         string
	Method           PaymentMethod
	Status           PaymentStatus
	CommissionMinor  int64
	NetMinor         int64
	ProviderRef      *string
	RedirectURL      *string
	ProviderMetadata json.RawMessage
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Refund is a partial or full reversal of a Payment.
type Refund struct {
	ID          string
	PaymentID   string
	AmountMinor int64
	Reason      string
	ProviderRef *string
	CreatedAt   time.Time
}

// Employee is an aggregate root bound to a restaurant.
type Employee struct {
	ID              string
	RestaurantID    string
	PrincipalID     *string
	Name            string
	Phone           string
	Email           *string
	EmployeeRole    EmployeeRole
	HourlyWageMinor *int64
	ActiveFlag      bool
}

// Shift is an aggregate tracking one scheduled or worked period.
type Shift struct {
	ID              string
	EmployeeID      string
	ScheduledStart  time.Time
	ScheduledEnd    time.Time
	ActualStart     *time.Time
	ActualEnd       *time.Time
	BreakMinutes    int
	Status          ShiftStatus
	Notes           *string
	EffectiveHours  *float64
	ShiftPayMinor   *int64
}

// InviteToken promotes a Customer to an Employee when consumed.
type InviteToken struct {
	ID                 string
	Token              string
	RestaurantID       string
	GrantedRole        EmployeeRole
	HourlyWageMinor    *int64
	ExpiresAt          time.Time
	MaxUses            int
	UsedCount          int
	Status             InviteStatus
	CreatedByPrincipalID string
}

// Session binds a signed session token to a Principal.
type Session struct {
	ID          string
	PrincipalID string
	Token       string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}
