/*
handlers.go - HTTP API handlers for the depot engine

PURPOSE:
  Exposes the depot engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Customers:
    GET    /api/customers                 List customer accounts
    POST   /api/customers                 Register customer
    GET    /api/customers/{id}            Account with derived credit
    GET    /api/customers/{id}/entries    Credit ledger history
    GET    /api/customers/{id}/position   Ledger position summary
    GET    /api/customers/{id}/bottles    Bottles currently held
    POST   /api/customers/{id}/redemptions Spend loyalty points

  Suppliers:
    GET    /api/suppliers                 List supplier accounts
    POST   /api/suppliers                 Register supplier
    GET    /api/suppliers/{id}            Account with outstanding debt
    GET    /api/suppliers/{id}/entries    Payable ledger history
    GET    /api/suppliers/{id}/refills    Refill history

  Inventory:
    GET    /api/bottles                   List fleet (?status= filter)
    POST   /api/bottles                   Register bottle
    GET    /api/bottles/{id}              Bottle detail
    POST   /api/bottles/fill              Fill empty bottles from tank
    GET    /api/tank                      Tank state
    POST   /api/tank/refills              Record supplier refill
    GET    /api/refills                   All refills

  Sales:
    GET    /api/sales                     List sales
    POST   /api/sales                     Record sale
    GET    /api/sales/{id}                Sale detail
    POST   /api/sales/{id}/cancel         Cancel sale

  Money movement:
    POST   /api/returns                   Return bottles from customer
    POST   /api/payments                  Settle customer/supplier credit

  Ops:
    GET    /api/audit                     Run the invariant sweep

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid transitions, stock/capacity bounds
  - 404: Unknown customer, supplier, bottle, or sale
  - 409: Conflict (duplicate id or serial, idempotency, cancellation)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/depot-engine/engine"
	"github.com/warp/depot-engine/inventory"
	"github.com/warp/depot-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *engine.Engine
	Log    *zap.Logger
}

// NewHandler creates a new handler around the engine.
func NewHandler(eng *engine.Engine, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Engine: eng, Log: log}
}

// =============================================================================
// CUSTOMER HANDLERS
// =============================================================================

// ListCustomers returns all customer accounts with derived credit.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customers, err := h.Engine.Store().ListCustomers(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list customers", err)
		return
	}

	dtos := make([]CustomerDTO, 0, len(customers))
	for _, c := range customers {
		account, err := h.Engine.CustomerAccount(ctx, c.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to derive balance", err)
			return
		}
		dtos = append(dtos, toCustomerDTO(account))
	}

	writeJSON(w, http.StatusOK, dtos)
}

// CreateCustomer registers a new customer.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	c, err := h.Engine.RegisterCustomer(r.Context(), req.ID, req.Name, req.Phone)
	if err != nil {
		h.writeDomainError(w, "Failed to create customer", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCustomerDTO(engine.CustomerAccount{
		Customer:    c,
		TotalCredit: ledger.ZeroMoney(),
	}))
}

// GetCustomer returns one customer account.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	account, err := h.Engine.CustomerAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get customer", err)
		return
	}
	writeJSON(w, http.StatusOK, toCustomerDTO(account))
}

// GetCustomerEntries returns the customer's credit ledger history.
func (h *Handler) GetCustomerEntries(w http.ResponseWriter, r *http.Request) {
	h.writeEntries(w, r, ledger.HolderCustomer)
}

// GetCustomerPosition returns the replayed ledger position.
func (h *Handler) GetCustomerPosition(w http.ResponseWriter, r *http.Request) {
	h.writePosition(w, r, ledger.HolderCustomer)
}

// GetCustomerBottles returns the bottles a customer currently holds.
func (h *Handler) GetCustomerBottles(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	bottles, err := h.Engine.Store().ListBottlesByCustomer(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bottles", err)
		return
	}
	dtos := make([]BottleDTO, len(bottles))
	for i, b := range bottles {
		dtos[i] = toBottleDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RedeemPoints spends loyalty points for a customer.
func (h *Handler) RedeemPoints(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	c, err := h.Engine.RedeemPoints(r.Context(), chi.URLParam(r, "id"), req.Points)
	if err != nil {
		h.writeDomainError(w, "Failed to redeem points", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"customer_id":    c.ID,
		"loyalty_points": c.LoyaltyPoints,
	})
}

// =============================================================================
// SUPPLIER HANDLERS
// =============================================================================

// ListSuppliers returns all supplier accounts with outstanding debt.
func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	suppliers, err := h.Engine.Store().ListSuppliers(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list suppliers", err)
		return
	}

	dtos := make([]SupplierDTO, 0, len(suppliers))
	for _, s := range suppliers {
		account, err := h.Engine.SupplierAccount(ctx, s.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to derive balance", err)
			return
		}
		dtos = append(dtos, toSupplierDTO(account))
	}

	writeJSON(w, http.StatusOK, dtos)
}

// CreateSupplier registers a new supplier.
func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req CreateSupplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, err := h.Engine.RegisterSupplier(r.Context(), req.ID, req.Name, req.Phone)
	if err != nil {
		h.writeDomainError(w, "Failed to create supplier", err)
		return
	}

	writeJSON(w, http.StatusCreated, toSupplierDTO(engine.SupplierAccount{
		Supplier:         s,
		TotalOutstanding: ledger.ZeroMoney(),
	}))
}

// GetSupplier returns one supplier account.
func (h *Handler) GetSupplier(w http.ResponseWriter, r *http.Request) {
	account, err := h.Engine.SupplierAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get supplier", err)
		return
	}
	writeJSON(w, http.StatusOK, toSupplierDTO(account))
}

// GetSupplierEntries returns the supplier's payable ledger history.
func (h *Handler) GetSupplierEntries(w http.ResponseWriter, r *http.Request) {
	h.writeEntries(w, r, ledger.HolderSupplier)
}

// GetSupplierRefills returns the refills received from one supplier.
func (h *Handler) GetSupplierRefills(w http.ResponseWriter, r *http.Request) {
	refills, err := h.Engine.Store().ListRefills(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list refills", err)
		return
	}
	dtos := make([]RefillDTO, len(refills))
	for i, rf := range refills {
		dtos[i] = toRefillDTO(rf)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// INVENTORY HANDLERS
// =============================================================================

// ListBottles returns the fleet, optionally filtered by ?status=.
func (h *Handler) ListBottles(w http.ResponseWriter, r *http.Request) {
	status := inventory.BottleStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown bottle status", nil)
		return
	}

	bottles, err := h.Engine.Store().ListBottles(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bottles", err)
		return
	}
	dtos := make([]BottleDTO, len(bottles))
	for i, b := range bottles {
		dtos[i] = toBottleDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBottle registers a bottle into the fleet.
func (h *Handler) CreateBottle(w http.ResponseWriter, r *http.Request) {
	var req CreateBottleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	b, err := h.Engine.RegisterBottle(r.Context(), req.SerialNumber, ledger.NewQuantity(req.CapacityLiters))
	if err != nil {
		h.writeDomainError(w, "Failed to create bottle", err)
		return
	}

	writeJSON(w, http.StatusCreated, toBottleDTO(b))
}

// GetBottle returns one bottle.
func (h *Handler) GetBottle(w http.ResponseWriter, r *http.Request) {
	b, err := h.Engine.Store().GetBottle(r.Context(), inventory.BottleID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to get bottle", err)
		return
	}
	writeJSON(w, http.StatusOK, toBottleDTO(b))
}

// FillBottles draws the tank down into the listed empty bottles.
func (h *Handler) FillBottles(w http.ResponseWriter, r *http.Request) {
	var req FillBottlesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tank, err := h.Engine.FillBottles(r.Context(), toBottleIDs(req.BottleIDs))
	if err != nil {
		h.writeDomainError(w, "Failed to fill bottles", err)
		return
	}

	writeJSON(w, http.StatusOK, toTankDTO(tank))
}

// GetTank returns the bulk tank state.
func (h *Handler) GetTank(w http.ResponseWriter, r *http.Request) {
	tank, err := h.Engine.Store().GetTank(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get tank", err)
		return
	}
	writeJSON(w, http.StatusOK, toTankDTO(tank))
}

// RecordRefill records a supplier refill into the tank.
func (h *Handler) RecordRefill(w http.ResponseWriter, r *http.Request) {
	var req RefillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tank, err := h.Engine.RefillTank(r.Context(), engine.RefillInput{
		SupplierID:    req.SupplierID,
		Liters:        ledger.NewQuantity(req.Liters),
		PricePerLiter: ledger.NewMoney(req.PricePerLiter),
		AmountPaid:    ledger.NewMoney(req.AmountPaid),
		PaymentStatus: engine.RefillPaymentStatus(req.PaymentStatus),
		Method:        ledger.PaymentMethod(req.Method),
		Reference:     req.Reference,
		Note:          req.Note,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to record refill", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTankDTO(tank))
}

// ListRefills returns every recorded refill.
func (h *Handler) ListRefills(w http.ResponseWriter, r *http.Request) {
	refills, err := h.Engine.Store().ListRefills(r.Context(), "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list refills", err)
		return
	}
	dtos := make([]RefillDTO, len(refills))
	for i, rf := range refills {
		dtos[i] = toRefillDTO(rf)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SALE HANDLERS
// =============================================================================

// ListSales returns all sales in recording order.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.Engine.Store().ListSales(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sales", err)
		return
	}
	dtos := make([]SaleDTO, len(sales))
	for i, s := range sales {
		dtos[i] = toSaleDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecordSale records a sale.
func (h *Handler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	items := make([]engine.SaleItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = engine.SaleItemInput{
			ProductID: it.ProductID,
			BottleIDs: toBottleIDs(it.BottleIDs),
			Quantity:  it.Quantity,
			UnitPrice: ledger.NewMoney(it.UnitPrice),
		}
	}

	sale, err := h.Engine.RecordSale(r.Context(), engine.SaleInput{
		CustomerID:    req.CustomerID,
		Items:         items,
		Tax:           ledger.NewMoney(req.Tax),
		Discount:      ledger.NewMoney(req.Discount),
		PaymentMethod: ledger.PaymentMethod(req.PaymentMethod),
		AmountPaid:    ledger.NewMoney(req.AmountPaid),
	})
	if err != nil {
		h.writeDomainError(w, "Failed to record sale", err)
		return
	}

	writeJSON(w, http.StatusCreated, toSaleDTO(sale))
}

// GetSale returns one sale.
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.Engine.Store().GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get sale", err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(sale))
}

// CancelSale reverses a completed sale.
func (h *Handler) CancelSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.Engine.CancelSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to cancel sale", err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleDTO(sale))
}

// =============================================================================
// RETURN AND PAYMENT HANDLERS
// =============================================================================

// ReturnBottles takes bottles back from a customer.
func (h *Handler) ReturnBottles(w http.ResponseWriter, r *http.Request) {
	var req ReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Engine.ReturnBottles(r.Context(), req.CustomerID, toBottleIDs(req.BottleIDs)); err != nil {
		h.writeDomainError(w, "Failed to return bottles", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"customer_id": req.CustomerID,
		"returned":    len(req.BottleIDs),
	})
}

// CollectPayment settles outstanding credit.
func (h *Handler) CollectPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	balance, err := h.Engine.CollectPayment(r.Context(), engine.PaymentInput{
		HolderKind: ledger.HolderKind(req.HolderKind),
		HolderID:   req.HolderID,
		Amount:     ledger.NewMoney(req.Amount),
		Method:     ledger.PaymentMethod(req.Method),
		Reference:  req.Reference,
		Note:       req.Note,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to collect payment", err)
		return
	}

	writeJSON(w, http.StatusOK, PaymentResponse{
		HolderKind: req.HolderKind,
		HolderID:   req.HolderID,
		Amount:     ledger.NewMoney(req.Amount).String(),
		Balance:    balance.String(),
	})
}

// =============================================================================
// OPS HANDLERS
// =============================================================================

// RunAudit executes the invariant sweep and reports findings.
func (h *Handler) RunAudit(w http.ResponseWriter, r *http.Request) {
	findings, err := h.Engine.Audit(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Audit failed", err)
		return
	}
	if findings == nil {
		findings = []engine.Finding{}
	}
	writeJSON(w, http.StatusOK, AuditResponse{Findings: findings, Clean: len(findings) == 0})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) writeEntries(w http.ResponseWriter, r *http.Request, kind ledger.HolderKind) {
	id := ledger.HolderID(chi.URLParam(r, "id"))
	credit := ledger.New(h.Engine.Store())
	entries, err := credit.Entries(r.Context(), kind, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list entries", err)
		return
	}
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) writePosition(w http.ResponseWriter, r *http.Request, kind ledger.HolderKind) {
	id := ledger.HolderID(chi.URLParam(r, "id"))
	credit := ledger.New(h.Engine.Store())
	pos, err := credit.Position(r.Context(), kind, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to derive position", err)
		return
	}
	writeJSON(w, http.StatusOK, toPositionDTO(pos))
}

// writeDomainError maps domain errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case engine.IsNotFound(err) || ledger.IsNotFound(err) ||
		errors.Is(err, inventory.ErrBottleNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrDuplicateID) ||
		errors.Is(err, inventory.ErrDuplicateSerial) ||
		errors.Is(err, ledger.ErrDuplicateIdempotencyKey) ||
		errors.Is(err, engine.ErrAlreadyCancelled) ||
		errors.Is(err, engine.ErrCannotCancel):
		status = http.StatusConflict
	case ledger.IsClientError(err) || inventory.IsClientError(err):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.Log.Error("request failed", zap.String("message", message), zap.Error(err))
	}
	writeError(w, status, message, err)
}

func toBottleIDs(ids []string) []inventory.BottleID {
	out := make([]inventory.BottleID, len(ids))
	for i, id := range ids {
		out[i] = inventory.BottleID(id)
	}
	return out
}

func toTankDTO(t inventory.Tank) TankDTO {
	return TankDTO{
		CurrentLevel: t.CurrentLevel.String(),
		Capacity:     t.Capacity.String(),
		MaxRefill:    t.Headroom().String(),
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
