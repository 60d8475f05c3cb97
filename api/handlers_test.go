package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/depot-engine/api"
	"github.com/warp/depot-engine/engine"
	"github.com/warp/depot-engine/ledger"
	"github.com/warp/depot-engine/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.New(ledger.NewQuantity(1000))
	eng := engine.New(store, nil)
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(eng, nil)))
	t.Cleanup(srv.Close)
	return srv, store
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

// =============================================================================
// CUSTOMER ENDPOINT TESTS
// =============================================================================

func TestAPI_CreateAndGetCustomer(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/customers", api.CreateCustomerRequest{
		ID: "c1", Name: "Ada", Phone: "555",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created api.CustomerDTO
	decodeBody(t, resp, &created)
	assert.Equal(t, "c1", created.ID)
	assert.Equal(t, "0.00", created.TotalCredit)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/customers/c1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_UnknownCustomer_Returns404(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/customers/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_DuplicateCustomer_Returns409(t *testing.T) {
	srv, _ := newTestServer(t)

	body := api.CreateCustomerRequest{ID: "c1", Name: "Ada"}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/customers", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/customers", body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// =============================================================================
// INVENTORY ENDPOINT TESTS
// =============================================================================

func TestAPI_BottleRegistrationAndDuplicateSerial(t *testing.T) {
	srv, _ := newTestServer(t)

	body := api.CreateBottleRequest{SerialNumber: "SN-001", CapacityLiters: 10}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/bottles", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created api.BottleDTO
	decodeBody(t, resp, &created)
	assert.Equal(t, "empty", created.Status)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/bottles", body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_RefillBeyondCapacity_Returns400(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/suppliers", api.CreateSupplierRequest{ID: "s1", Name: "AirCo"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/tank/refills", api.RefillRequest{
		SupplierID:    "s1",
		Liters:        1500,
		PricePerLiter: 40,
		PaymentStatus: "outstanding",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var tank api.TankDTO
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/tank", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &tank)
	assert.Equal(t, "0", tank.CurrentLevel)
}

// =============================================================================
// SALE ENDPOINT TESTS
// =============================================================================

func TestAPI_SaleLifecycle(t *testing.T) {
	// Register customer + bottle, refill the tank, fill the bottle, sell
	// it on a shortfall, then cancel. The credit must round-trip to zero.

	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/customers", api.CreateCustomerRequest{ID: "c1", Name: "Ada"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/suppliers", api.CreateSupplierRequest{ID: "s1", Name: "AirCo"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/bottles", api.CreateBottleRequest{SerialNumber: "SN-001", CapacityLiters: 10})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var bottle api.BottleDTO
	decodeBody(t, resp, &bottle)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/tank/refills", api.RefillRequest{
		SupplierID: "s1", Liters: 100, PricePerLiter: 40, PaymentStatus: "full", Method: "cash",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/bottles/fill", api.FillBottlesRequest{BottleIDs: []string{bottle.ID}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/sales", api.SaleRequest{
		CustomerID: "c1",
		Items: []api.SaleItemRequest{{
			ProductID: "oxygen-bottle",
			BottleIDs: []string{bottle.ID},
			Quantity:  1,
			UnitPrice: 500,
		}},
		PaymentMethod: "cash",
		AmountPaid:    200,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sale api.SaleDTO
	decodeBody(t, resp, &sale)
	assert.Equal(t, "300.00", sale.CreditCharged)

	var account api.CustomerDTO
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/customers/c1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &account)
	assert.Equal(t, "300.00", account.TotalCredit)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/sales/"+sale.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/sales/"+sale.ID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/customers/c1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &account)
	assert.Equal(t, "0.00", account.TotalCredit)
}

// =============================================================================
// PAYMENT ENDPOINT TESTS
// =============================================================================

func TestAPI_Overpayment_Returns400(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/customers", api.CreateCustomerRequest{ID: "c1", Name: "Ada"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/payments", api.PaymentRequest{
		HolderKind: "customer",
		HolderID:   "c1",
		Amount:     100,
		Method:     "cash",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp api.ErrorResponse
	decodeBody(t, resp, &errResp)
	assert.NotEmpty(t, errResp.Details)
}

func TestAPI_Audit_CleanState(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/audit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var audit api.AuditResponse
	decodeBody(t, resp, &audit)
	assert.True(t, audit.Clean)
	assert.Empty(t, audit.Findings)
}
