package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"fincycle/internal/core"
	applog "fincycle/internal/log"
	"fincycle/internal/services"
	"fincycle/internal/storage/memory"
)

const testServiceKey = "service-key-0123456789"

type fixedRates struct {
	rate decimal.Decimal
	err  error
}

func (f *fixedRates) Rate(context.Context, string, string) (decimal.Decimal, error) {
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.rate, nil
}

type testAPI struct {
	t     *testing.T
	srv   *Server
	rates *fixedRates
	store *memory.Store
	token string
	wsID  string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memory.New()
	rates := &fixedRates{rate: decimal.RequireFromString("5.00")}

	forecaster := services.NewForecaster(store, store, rates)
	sync := services.NewSynchronizer(store, rates, services.DeletionPrune, 2)
	publisher := services.NewInlinePublisher(sync)
	svc := Services{
		Store:        store,
		Workspaces:   services.NewWorkspaceService(store, "BRL"),
		Cycles:       services.NewCycleService(store, forecaster),
		Materializer: services.NewMaterializer(store, rates, services.KickstartReject),
		Status:       services.NewStatusService(store),
		Expenses:     services.NewExpenseService(store),
		Ledger:       services.NewLedgerService(store, publisher),
		Exchange:     services.NewExchangeService(store, rates),
		Publisher:    publisher,
	}
	logger := applog.New(applog.Config{Output: io.Discard, Level: slog.LevelError})
	srv := NewServer(Options{Addr: ":0", ServiceKey: testServiceKey, RateLimitPerMinute: 1000, Logger: logger}, svc)
	t.Cleanup(srv.limiter.Stop)

	api := &testAPI{t: t, srv: srv, rates: rates, store: store}

	var signup signupResponse
	api.do(http.MethodPost, "/internal/signup", testServiceKey, `{"email":"ana@example.com","name":"Ana"}`, http.StatusCreated, &signup)
	api.token = signup.Token
	api.wsID = signup.WorkspaceID
	return api
}

// do sends a request with token as bearer, asserts the status and decodes
// the body into out when out is non-nil.
func (a *testAPI) do(method, path, token, body string, wantStatus int, out any) *httptest.ResponseRecorder {
	a.t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.RemoteAddr = "203.0.113.10:5555"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != wantStatus {
		a.t.Fatalf("%s %s: status = %d, want %d; body %s", method, path, rec.Code, wantStatus, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			a.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return rec
}

func (a *testAPI) member(method, path, body string, wantStatus int, out any) *httptest.ResponseRecorder {
	a.t.Helper()
	return a.do(method, path, a.token, body, wantStatus, out)
}

func TestHealthAndReady(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := api.do(http.MethodGet, path, "", "", http.StatusOK, nil)
		if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
			t.Errorf("%s missing security headers", path)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s missing request id", path)
		}
	}
}

func TestAuth(t *testing.T) {
	api := newTestAPI(t)

	api.do(http.MethodGet, "/cycles/2025-01", "", "", http.StatusUnauthorized, nil)
	api.do(http.MethodGet, "/cycles/2025-01", "not-a-token", "", http.StatusUnauthorized, nil)
	api.do(http.MethodPost, "/internal/signup", "", `{"email":"x@example.com","name":"X"}`, http.StatusUnauthorized, nil)
	api.do(http.MethodPost, "/internal/signup", api.token, `{"email":"x@example.com","name":"X"}`, http.StatusUnauthorized, nil)
	api.do(http.MethodPost, "/internal/signup", testServiceKey, `{"email":"bad","name":"X"}`, http.StatusUnprocessableEntity, nil)
}

func TestCycleLifecycle(t *testing.T) {
	api := newTestAPI(t)

	var owner, payer counterpartyResponse
	api.member(http.MethodPost, "/owners", `{"name":"Credit card"}`, http.StatusCreated, &owner)
	api.member(http.MethodPost, "/payers", `{"name":"Employer"}`, http.StatusCreated, &payer)

	var debt debtResponse
	api.member(http.MethodPost, "/debts", `{"ownerId":"`+owner.ID+`","name":"Phone","amount":"100,00","currency":"BRL",
		"firstPaymentDate":"2025-01-10","hasEnd":true,"installments":3}`, http.StatusCreated, &debt)
	if debt.EndDate != "2025-03-10" {
		t.Errorf("debt end date = %q, want 2025-03-10", debt.EndDate)
	}
	var cloud debtResponse
	api.member(http.MethodPost, "/debts", `{"ownerId":"`+owner.ID+`","name":"Cloud","amountCents":1000,"currency":"USD",
		"firstPaymentDate":"2024-12-01"}`, http.StatusCreated, &cloud)
	api.member(http.MethodPost, "/incomes", `{"payerId":"`+payer.ID+`","name":"Salary","amountCents":500000,"currency":"BRL",
		"firstIncomeDate":"2024-01-05","isRecurrent":true}`, http.StatusCreated, nil)

	var forecast cycleResponse
	api.member(http.MethodGet, "/cycles/2025-02", "", http.StatusOK, &forecast)
	if forecast.Materialized {
		t.Fatal("month materialized before kickstart")
	}
	if forecast.TotalDebts != 10000+5000 || forecast.TotalIncomes != 500000 {
		t.Errorf("forecast totals = %d/%d, want 15000/500000", forecast.TotalDebts, forecast.TotalIncomes)
	}
	api.member(http.MethodPost, "/cycles/2025-02/expenses", `{"name":"Food","amountCents":100}`, http.StatusConflict, nil)

	var ks kickstartResponse
	api.member(http.MethodPost, "/cycles/kickstart", `{"date":"2025-02-14","debtsOverride":[{"debtId":"`+cloud.ID+`","amountMinor":4800}]}`,
		http.StatusCreated, &ks)
	if !ks.Success || !ks.Created || ks.Items != 3 || ks.Month != "2025-02-01" {
		t.Fatalf("kickstart = %+v", ks)
	}
	api.member(http.MethodPost, "/cycles/kickstart", `{"date":"2025-02-01"}`, http.StatusConflict, nil)

	var month cycleResponse
	api.member(http.MethodGet, "/cycles/2025-02-20", "", http.StatusOK, &month)
	if !month.Materialized || month.CycleID != ks.CycleID {
		t.Fatalf("month = %+v", month)
	}
	if month.TotalDebts != 14800 {
		t.Errorf("TotalDebts = %d, want 14800 (override kept)", month.TotalDebts)
	}
	if len(month.Owners) != 1 || month.Owners[0].Status != core.StatusPending {
		t.Fatalf("owners = %+v", month.Owners)
	}

	// Editing the debt re-syncs the materialized month.
	api.member(http.MethodPut, "/debts/"+debt.ID, `{"ownerId":"`+owner.ID+`","name":"Phone","amountCents":12000,"currency":"BRL",
		"firstPaymentDate":"2025-01-10","hasEnd":true,"installments":3}`, http.StatusOK, nil)
	api.member(http.MethodGet, "/cycles/2025-02", "", http.StatusOK, &month)
	if month.TotalDebts != 12000+4800 {
		t.Errorf("TotalDebts after update = %d, want 16800", month.TotalDebts)
	}

	var group groupResponse
	api.member(http.MethodPost, "/cycles/"+ks.CycleID+"/groups/status",
		`{"kind":"debt","groupId":"`+owner.ID+`","status":"PAID"}`, http.StatusOK, &group)
	if group.Status != core.StatusPaid || group.TotalMinor != 16800 || len(group.Items) != 2 {
		t.Errorf("group = %+v", group)
	}

	var item lineItemResponse
	itemID := month.Incomes[0].ID
	api.member(http.MethodPatch, "/line-items/"+itemID+"/amount", `{"amountMinor":510000}`, http.StatusOK, &item)
	if item.AmountMinor != 510000 {
		t.Errorf("amount = %d, want 510000", item.AmountMinor)
	}
	api.member(http.MethodPatch, "/line-items/"+itemID+"/status", `{"status":"PAID"}`, http.StatusOK, &item)
	if item.Status != core.StatusPaid {
		t.Errorf("status = %s, want PAID", item.Status)
	}
	api.member(http.MethodPatch, "/line-items/"+itemID+"/status", `{"status":"LATE"}`, http.StatusUnprocessableEntity, nil)

	var exp expenseResponse
	api.member(http.MethodPost, "/cycles/2025-02/expenses", `{"name":"Food","amount":"25,50"}`, http.StatusCreated, &exp)
	if exp.CycleID != ks.CycleID || exp.Date != "2025-02-01" {
		t.Errorf("expense = %+v", exp)
	}
	api.member(http.MethodPost, "/cycles/"+ks.CycleID+"/expenses", `{"name":"Fuel","amountCents":1000,"date":"2025-02-10"}`, http.StatusCreated, nil)

	var expenses []expenseResponse
	api.member(http.MethodGet, "/cycles/"+ks.CycleID+"/expenses", "", http.StatusOK, &expenses)
	if len(expenses) != 2 {
		t.Fatalf("expenses = %d, want 2", len(expenses))
	}
	api.member(http.MethodDelete, "/expenses/"+exp.ID, "", http.StatusNoContent, nil)

	api.member(http.MethodGet, "/cycles/2025-02", "", http.StatusOK, &month)
	if month.TotalExpenses != 1000 || month.AvailableMoney != 510000-16800-1000 {
		t.Errorf("totals = expenses %d available %d", month.TotalExpenses, month.AvailableMoney)
	}

	// Owner in use cannot be removed.
	api.member(http.MethodDelete, "/owners/"+owner.ID, "", http.StatusConflict, nil)
}

func TestKickstart_Errors(t *testing.T) {
	api := newTestAPI(t)

	api.member(http.MethodPost, "/cycles/kickstart", `{}`, http.StatusUnprocessableEntity, nil)
	api.member(http.MethodPost, "/cycles/kickstart", `{"date":"2025-02-01","debtsOverride":[{"debtId":"d","amountMinor":-1}]}`,
		http.StatusUnprocessableEntity, nil)
	api.member(http.MethodPost, "/cycles/kickstart", `{"date":"2025-02-01","bogus":true}`, http.StatusUnprocessableEntity, nil)

	var owner counterpartyResponse
	api.member(http.MethodPost, "/owners", `{"name":"Card"}`, http.StatusCreated, &owner)
	api.member(http.MethodPost, "/debts", `{"ownerId":"`+owner.ID+`","name":"Cloud","amountCents":1000,"currency":"USD",
		"firstPaymentDate":"2025-01-01"}`, http.StatusCreated, nil)

	api.rates.err = core.Upstream("fetch rate", errors.New("timeout"))
	api.member(http.MethodPost, "/cycles/kickstart", `{"date":"2025-02-01"}`, http.StatusBadGateway, nil)
	api.member(http.MethodGet, "/cycles/2025-02", "", http.StatusBadGateway, nil)

	// Nothing was left behind by the failed kickstart.
	api.rates.err = nil
	api.member(http.MethodPost, "/cycles/kickstart", `{"date":"2025-02-01"}`, http.StatusCreated, nil)
}

func TestSyncHook(t *testing.T) {
	api := newTestAPI(t)

	var owner counterpartyResponse
	api.member(http.MethodPost, "/owners", `{"name":"Card"}`, http.StatusCreated, &owner)
	api.member(http.MethodPost, "/cycles/kickstart", `{"date":"2025-03-01"}`, http.StatusCreated, nil)

	// A row written behind the API's back shows up through the hook.
	debt := core.Debt{
		ID: "external-1", WorkspaceID: api.wsID, OwnerID: owner.ID, Name: "Gym",
		Amount: core.Money{Cents: 9000, Currency: "BRL"}, FirstPaymentDate: core.NewDate(2025, 3, 5),
		HasEnd: true, Installments: 1, EndDate: core.NewDate(2025, 3, 5),
	}
	if err := api.store.CreateDebt(context.Background(), debt); err != nil {
		t.Fatal(err)
	}

	body, _ := json.Marshal(core.SyncEvent{Table: core.TableDebts, Type: core.ChangeInsert, Record: &core.Record{ID: debt.ID, WorkspaceID: api.wsID}})
	var res syncResponse
	api.do(http.MethodPost, "/hooks/sync", testServiceKey, string(body), http.StatusAccepted, &res)
	if !res.Accepted || res.SourceID != debt.ID {
		t.Errorf("sync response = %+v", res)
	}

	var month cycleResponse
	api.member(http.MethodGet, "/cycles/2025-03", "", http.StatusOK, &month)
	if month.TotalDebts != 9000 {
		t.Errorf("TotalDebts = %d, want 9000", month.TotalDebts)
	}

	api.do(http.MethodPost, "/hooks/sync", testServiceKey, `{"table":"payments","record":{"id":"x"}}`, http.StatusUnprocessableEntity, nil)
	api.do(http.MethodPost, "/hooks/sync", api.token, string(body), http.StatusUnauthorized, nil)
}

func TestConvert(t *testing.T) {
	api := newTestAPI(t)

	var out convertResponse
	api.member(http.MethodPost, "/exchange/convert", `{"amountMinor":1000,"currency":"usd"}`, http.StatusOK, &out)
	if out.AmountMinor != 5000 || out.Currency != "BRL" {
		t.Errorf("convert = %+v, want 5000 BRL", out)
	}
	api.member(http.MethodPost, "/exchange/convert", `{"currency":"USD"}`, http.StatusUnprocessableEntity, nil)
}

func TestWorkspaceIsolation(t *testing.T) {
	api := newTestAPI(t)

	var owner counterpartyResponse
	api.member(http.MethodPost, "/owners", `{"name":"Card"}`, http.StatusCreated, &owner)
	var debt debtResponse
	api.member(http.MethodPost, "/debts", `{"ownerId":"`+owner.ID+`","name":"TV","amountCents":5000,"currency":"BRL",
		"firstPaymentDate":"2025-01-01","hasEnd":true,"installments":2}`, http.StatusCreated, &debt)

	var other signupResponse
	api.do(http.MethodPost, "/internal/signup", testServiceKey, `{"email":"bob@example.com","name":"Bob","currency":"usd"}`, http.StatusCreated, &other)
	if other.Currency != "USD" {
		t.Errorf("currency = %q, want USD", other.Currency)
	}

	api.do(http.MethodGet, "/debts/"+debt.ID, other.Token, "", http.StatusNotFound, nil)
	api.do(http.MethodDelete, "/debts/"+debt.ID, other.Token, "", http.StatusNotFound, nil)

	var debts []debtResponse
	api.do(http.MethodGet, "/debts", other.Token, "", http.StatusOK, &debts)
	if len(debts) != 0 {
		t.Errorf("other workspace sees %d debts", len(debts))
	}
}

func TestRateLimit(t *testing.T) {
	store := memory.New()
	logger := applog.New(applog.Config{Output: io.Discard})
	srv := NewServer(Options{RateLimitPerMinute: 2, Logger: logger}, Services{Store: store})
	t.Cleanup(srv.limiter.Stop)

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "198.51.100.1:1000"
		srv.Handler.ServeHTTP(last, req)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", last.Code)
	}
	if !bytes.Contains(last.Body.Bytes(), []byte(`"error"`)) {
		t.Errorf("body = %s, want JSON error", last.Body.String())
	}
	if _, rejected := srv.Metrics(); rejected != 1 {
		t.Errorf("rejected = %d, want 1", rejected)
	}
}
