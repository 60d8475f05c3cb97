/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AND QUANTITY:
  Decimal values cross the wire as strings ("1234.50") to avoid float
  rounding in clients. Requests accept plain JSON numbers for amounts;
  they are converted to decimals at the handler boundary.

VALIDATION:
  Structural validation is done in handlers; domain validation lives in
  the engine. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/types.go: Domain counterparts
*/
package api

import (
	"time"

	"github.com/warp/depot-engine/engine"
	"github.com/warp/depot-engine/inventory"
	"github.com/warp/depot-engine/ledger"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// CustomerDTO represents a customer in API responses.
type CustomerDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Phone         string `json:"phone,omitempty"`
	LoyaltyPoints int64  `json:"loyalty_points"`
	TotalCredit   string `json:"total_credit"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// CreateCustomerRequest is the request to register a customer.
type CreateCustomerRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// SupplierDTO represents a supplier in API responses.
type SupplierDTO struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Phone            string `json:"phone,omitempty"`
	TotalSupplied    string `json:"total_supplied_liters"`
	TotalPaid        string `json:"total_paid"`
	TotalOutstanding string `json:"total_outstanding"`
	CreatedAt        string `json:"created_at,omitempty"`
}

// CreateSupplierRequest is the request to register a supplier.
type CreateSupplierRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// BottleDTO represents a bottle in API responses.
type BottleDTO struct {
	ID             string `json:"id"`
	SerialNumber   string `json:"serial_number"`
	CapacityLiters string `json:"capacity_liters"`
	Status         string `json:"status"`
	CustomerID     string `json:"customer_id,omitempty"`
}

// CreateBottleRequest is the request to register a bottle into the fleet.
type CreateBottleRequest struct {
	SerialNumber   string  `json:"serial_number"`
	CapacityLiters float64 `json:"capacity_liters"`
}

// FillBottlesRequest asks for the listed empty bottles to be filled
// from the bulk tank.
type FillBottlesRequest struct {
	BottleIDs []string `json:"bottle_ids"`
}

// TankDTO represents the bulk tank state.
type TankDTO struct {
	CurrentLevel string `json:"current_level_liters"`
	Capacity     string `json:"capacity_liters"`
	MaxRefill    string `json:"max_refill_liters"`
}

// RefillRequest records a tank refill from a supplier.
type RefillRequest struct {
	SupplierID    string  `json:"supplier_id"`
	Liters        float64 `json:"liters"`
	PricePerLiter float64 `json:"price_per_liter"`
	AmountPaid    float64 `json:"amount_paid"`
	PaymentStatus string  `json:"payment_status"`
	Method        string  `json:"method"`
	Reference     string  `json:"reference,omitempty"`
	Note          string  `json:"note,omitempty"`
}

// RefillDTO represents a recorded refill.
type RefillDTO struct {
	ID            string `json:"id"`
	SupplierID    string `json:"supplier_id"`
	Liters        string `json:"liters"`
	PricePerLiter string `json:"price_per_liter"`
	TotalAmount   string `json:"total_amount"`
	AmountPaid    string `json:"amount_paid"`
	PaymentStatus string `json:"payment_status"`
	RecordedAt    string `json:"recorded_at"`
}

// SaleItemRequest is one line of a sale request.
type SaleItemRequest struct {
	ProductID string   `json:"product_id"`
	BottleIDs []string `json:"bottle_ids,omitempty"`
	Quantity  int      `json:"quantity"`
	UnitPrice float64  `json:"unit_price"`
}

// SaleRequest records a sale.
type SaleRequest struct {
	CustomerID    string            `json:"customer_id,omitempty"`
	Items         []SaleItemRequest `json:"items"`
	Tax           float64           `json:"tax"`
	Discount      float64           `json:"discount"`
	PaymentMethod string            `json:"payment_method"`
	AmountPaid    float64           `json:"amount_paid"`
}

// SaleItemDTO is one line of a sale in responses.
type SaleItemDTO struct {
	ProductID string   `json:"product_id"`
	BottleIDs []string `json:"bottle_ids,omitempty"`
	Quantity  int      `json:"quantity"`
	UnitPrice string   `json:"unit_price"`
	LineTotal string   `json:"line_total"`
}

// SaleDTO represents a sale in API responses.
type SaleDTO struct {
	ID            string        `json:"id"`
	CustomerID    string        `json:"customer_id,omitempty"`
	Items         []SaleItemDTO `json:"items"`
	Subtotal      string        `json:"subtotal"`
	Tax           string        `json:"tax"`
	Discount      string        `json:"discount"`
	Total         string        `json:"total"`
	AmountPaid    string        `json:"amount_paid"`
	CreditCharged string        `json:"credit_charged"`
	PointsEarned  int64         `json:"points_earned"`
	PaymentMethod string        `json:"payment_method"`
	Status        string        `json:"status"`
	CreatedAt     string        `json:"created_at"`
	CancelledAt   string        `json:"cancelled_at,omitempty"`
}

// ReturnRequest hands bottles back from a customer.
type ReturnRequest struct {
	CustomerID string   `json:"customer_id"`
	BottleIDs  []string `json:"bottle_ids"`
}

// PaymentRequest settles outstanding credit for a customer or supplier.
type PaymentRequest struct {
	HolderKind string  `json:"holder_kind"`
	HolderID   string  `json:"holder_id"`
	Amount     float64 `json:"amount"`
	Method     string  `json:"method"`
	Reference  string  `json:"reference,omitempty"`
	Note       string  `json:"note,omitempty"`
}

// PaymentResponse reports the balance after a settlement.
type PaymentResponse struct {
	HolderKind string `json:"holder_kind"`
	HolderID   string `json:"holder_id"`
	Amount     string `json:"amount"`
	Balance    string `json:"balance"`
}

// RedeemRequest spends loyalty points.
type RedeemRequest struct {
	Points int64 `json:"points"`
}

// EntryDTO represents one credit ledger entry.
type EntryDTO struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Method      string `json:"method,omitempty"`
	ReferenceID string `json:"reference_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Note        string `json:"note,omitempty"`
	RecordedAt  string `json:"recorded_at"`
}

// PositionDTO summarizes one credit ledger position.
type PositionDTO struct {
	HolderKind    string `json:"holder_kind"`
	HolderID      string `json:"holder_id"`
	Balance       string `json:"balance"`
	TotalCharged  string `json:"total_charged"`
	TotalSettled  string `json:"total_settled"`
	TotalReversed string `json:"total_reversed"`
}

// AuditResponse wraps the findings of an invariant sweep.
type AuditResponse struct {
	Findings []engine.Finding `json:"findings"`
	Clean    bool             `json:"clean"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toCustomerDTO(a engine.CustomerAccount) CustomerDTO {
	return CustomerDTO{
		ID:            a.ID,
		Name:          a.Name,
		Phone:         a.Phone,
		LoyaltyPoints: a.LoyaltyPoints,
		TotalCredit:   a.TotalCredit.String(),
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
	}
}

func toSupplierDTO(a engine.SupplierAccount) SupplierDTO {
	return SupplierDTO{
		ID:               a.ID,
		Name:             a.Name,
		Phone:            a.Phone,
		TotalSupplied:    a.TotalSupplied.String(),
		TotalPaid:        a.TotalPaid.String(),
		TotalOutstanding: a.TotalOutstanding.String(),
		CreatedAt:        a.CreatedAt.Format(time.RFC3339),
	}
}

func toBottleDTO(b inventory.Bottle) BottleDTO {
	return BottleDTO{
		ID:             string(b.ID),
		SerialNumber:   b.SerialNumber,
		CapacityLiters: b.CapacityLiters.String(),
		Status:         string(b.Status),
		CustomerID:     b.CustomerID,
	}
}

func toRefillDTO(r engine.Refill) RefillDTO {
	return RefillDTO{
		ID:            r.ID,
		SupplierID:    r.SupplierID,
		Liters:        r.Liters.String(),
		PricePerLiter: r.PricePerLiter.String(),
		TotalAmount:   r.TotalAmount.String(),
		AmountPaid:    r.AmountPaid.String(),
		PaymentStatus: string(r.PaymentStatus),
		RecordedAt:    r.RecordedAt.Format(time.RFC3339),
	}
}

func toSaleDTO(s engine.Sale) SaleDTO {
	items := make([]SaleItemDTO, len(s.Items))
	for i, it := range s.Items {
		ids := make([]string, len(it.BottleIDs))
		for j, id := range it.BottleIDs {
			ids[j] = string(id)
		}
		items[i] = SaleItemDTO{
			ProductID: it.ProductID,
			BottleIDs: ids,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.String(),
			LineTotal: it.LineTotal.String(),
		}
	}
	dto := SaleDTO{
		ID:            s.ID,
		CustomerID:    s.CustomerID,
		Items:         items,
		Subtotal:      s.Subtotal.String(),
		Tax:           s.Tax.String(),
		Discount:      s.Discount.String(),
		Total:         s.Total.String(),
		AmountPaid:    s.AmountPaid.String(),
		CreditCharged: s.CreditCharged.String(),
		PointsEarned:  s.PointsEarned,
		PaymentMethod: string(s.PaymentMethod),
		Status:        string(s.Status),
		CreatedAt:     s.CreatedAt.Format(time.RFC3339),
	}
	if s.CancelledAt != nil {
		dto.CancelledAt = s.CancelledAt.Format(time.RFC3339)
	}
	return dto
}

func toEntryDTO(e ledger.Entry) EntryDTO {
	return EntryDTO{
		ID:          string(e.ID),
		Type:        string(e.Type),
		Amount:      e.Amount.String(),
		Method:      string(e.Method),
		ReferenceID: e.ReferenceID,
		Reason:      e.Reason,
		Note:        e.Note,
		RecordedAt:  e.RecordedAt.Format(time.RFC3339),
	}
}

func toPositionDTO(p ledger.Position) PositionDTO {
	return PositionDTO{
		HolderKind:    string(p.Kind),
		HolderID:      string(p.HolderID),
		Balance:       p.Balance.String(),
		TotalCharged:  p.TotalCharged.String(),
		TotalSettled:  p.TotalSettled.String(),
		TotalReversed: p.TotalReversed.String(),
	}
}
