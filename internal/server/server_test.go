package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sheikh-saqib/balance-ledger/internal/ledger"
	"github.com/sheikh-saqib/balance-ledger/internal/storage/memory"
)

type stubRates struct {
	rates map[string]decimal.Decimal
	err   error
}

func (s stubRates) LookupRate(ctx context.Context, code string) (decimal.Decimal, bool, error) {
	if s.err != nil {
		return decimal.Zero, false, s.err
	}
	r, ok := s.rates[code]
	return r, ok, nil
}

func newTestServer(t *testing.T, rates stubRates) *httptest.Server {
	t.Helper()
	logger := zaptest.NewLogger(t)
	l := ledger.NewLedger(memory.NewMemoryLedgerStore(),
		ledger.WithRateSource(rates),
		ledger.WithLogger(logger),
	)
	s := NewServer(l, NewMetrics(), logger, Options{})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// do sends body as-is and decodes the response into out when non-nil.
func do(t *testing.T, ts *httptest.Server, method, path, body string, wantCode int, out any) {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantCode, resp.StatusCode, "%s %s: %s", method, path, data)
	if out != nil {
		require.NoError(t, json.Unmarshal(data, out))
	}
}

func createCustomer(t *testing.T, ts *httptest.Server, name string) customerView {
	t.Helper()
	var c customerView
	do(t, ts, "POST", "/balance/customers/", `{"name":"`+name+`"}`, http.StatusCreated, &c)
	return c
}

func customerPath(id int64) string {
	return "/balance/customers/" + strconv.FormatInt(id, 10)
}

func TestHTTPFlow(t *testing.T) {
	ts := newTestServer(t, stubRates{rates: map[string]decimal.Decimal{"USD": decimal.NewFromInt(90)}})

	a := createCustomer(t, ts, "A")
	b := createCustomer(t, ts, "B")
	assert.Equal(t, "0.00", a.Balance)
	assert.Equal(t, "RUB", a.Valute)

	var ok map[string]string
	do(t, ts, "POST", customerPath(a.ID)+"/operations/", `{"amount": 5000, "operation": "withdraw"}`, http.StatusOK, &ok)
	assert.Equal(t, okMessage, ok["OK"])

	do(t, ts, "POST", customerPath(a.ID)+"/operations", `{"amount": 0.5, "operation": "deposit", "description": "fee"}`, http.StatusOK, nil)
	do(t, ts, "POST", "/balance/transfer/", `{"amount": 1000, "sender": `+strconv.FormatInt(a.ID, 10)+`, "recipient": "`+strconv.FormatInt(b.ID, 10)+`"}`, http.StatusOK, nil)

	var got customerView
	do(t, ts, "GET", customerPath(a.ID), "", http.StatusOK, &got)
	assert.Equal(t, "3999.50", got.Balance)

	do(t, ts, "GET", customerPath(b.ID)+"/?currency=usd", "", http.StatusOK, &got)
	assert.Equal(t, "11.11", got.Balance)
	assert.Equal(t, "USD", got.Valute)

	var txs []transactionView
	do(t, ts, "GET", customerPath(a.ID)+"/transactions?order=-amount", "", http.StatusOK, &txs)
	require.Len(t, txs, 3)
	assert.Equal(t, "5000.00", txs[0].Amount)
	assert.Equal(t, "1000.00", txs[1].Amount)
	assert.Equal(t, "0.50", txs[2].Amount)
	assert.Nil(t, txs[0].Sender)
	assert.Equal(t, a.ID, *txs[0].Recipient)
	assert.Equal(t, "fee", *txs[2].Description)
	assert.Equal(t, b.ID, *txs[1].Recipient)

	var list []customerView
	do(t, ts, "GET", "/balance/customers", "", http.StatusOK, &list)
	assert.Len(t, list, 2)
}

func TestHTTPErrors(t *testing.T) {
	ts := newTestServer(t, stubRates{rates: map[string]decimal.Decimal{}})
	a := createCustomer(t, ts, "A")
	do(t, ts, "POST", customerPath(a.ID)+"/operations", `{"amount": 10, "operation": "withdraw"}`, http.StatusOK, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
		want   error
	}{
		{"missing amount", "POST", customerPath(a.ID) + "/operations", `{"operation":"withdraw"}`, 400, ledger.ErrMissingField},
		{"empty body", "POST", customerPath(a.ID) + "/operations", ``, 400, ledger.ErrMissingField},
		{"negative amount", "POST", customerPath(a.ID) + "/operations", `{"amount":-1,"operation":"withdraw"}`, 400, ledger.ErrInvalidAmount},
		{"string amount", "POST", customerPath(a.ID) + "/operations", `{"amount":"ten","operation":"withdraw"}`, 400, ledger.ErrInvalidAmount},
		{"bad kind", "POST", customerPath(a.ID) + "/operations", `{"amount":1,"operation":"steal"}`, 400, ledger.ErrInvalidOperationKind},
		{"overdraw", "POST", customerPath(a.ID) + "/operations", `{"amount":11,"operation":"deposit"}`, 400, ledger.ErrInsufficientFunds},
		{"unknown customer", "POST", customerPath(999) + "/operations", `{"amount":1,"operation":"withdraw"}`, 404, ledger.ErrNotFound},
		{"non-integer id", "GET", "/balance/customers/abc", ``, 404, ledger.ErrNotFound},
		{"unknown recipient", "POST", "/balance/transfer", `{"amount":1,"sender":` + strconv.FormatInt(a.ID, 10) + `,"recipient":999}`, 404, ledger.ErrNotFound},
		{"unknown currency", "GET", customerPath(a.ID) + "?currency=ZZZ", ``, 400, ledger.ErrUnknownCurrency},
		{"empty name", "POST", "/balance/customers", `{"name":"  "}`, 400, ledger.ErrMissingField},
		{"long name", "POST", "/balance/customers", `{"name":"` + strings.Repeat("x", 101) + `"}`, 400, ledger.ErrInvalidField},
		{"numeric name", "POST", "/balance/customers", `{"name":5}`, 400, ledger.ErrInvalidField},
		{"numeric rename", "PUT", customerPath(a.ID), `{"name":5}`, 400, ledger.ErrInvalidField},
		{"numeric kind without amount", "POST", customerPath(a.ID) + "/operations", `{"operation":5}`, 400, ledger.ErrMissingField},
		{"numeric kind", "POST", customerPath(a.ID) + "/operations", `{"amount":10,"operation":1}`, 400, ledger.ErrInvalidOperationKind},
		{"numeric description", "POST", customerPath(a.ID) + "/operations", `{"amount":10,"operation":"withdraw","description":7}`, 400, ledger.ErrInvalidField},
		{"transfer numeric description", "POST", "/balance/transfer", `{"amount":1,"sender":` + strconv.FormatInt(a.ID, 10) + `,"recipient":` + strconv.FormatInt(a.ID, 10) + `,"description":7}`, 400, ledger.ErrInvalidField},
		{"huge amount", "POST", customerPath(a.ID) + "/operations", `{"amount":1e120,"operation":"withdraw"}`, 400, ledger.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]string
			do(t, ts, tt.method, tt.path, tt.body, tt.code, &body)
			assert.Contains(t, body["error"], tt.want.Error())
		})
	}

	var body map[string]string
	do(t, ts, "POST", "/balance/transfer", `{not json`, 400, &body)
	assert.Equal(t, "invalid request body", body["error"])

	var got customerView
	do(t, ts, "GET", customerPath(a.ID), "", http.StatusOK, &got)
	assert.Equal(t, "10.00", got.Balance)
}

func TestRateServiceDown(t *testing.T) {
	ts := newTestServer(t, stubRates{err: errors.New("connection refused")})
	a := createCustomer(t, ts, "A")

	var body map[string]string
	do(t, ts, "GET", customerPath(a.ID)+"?currency=USD", "", http.StatusServiceUnavailable, &body)
	assert.Contains(t, body["error"], ledger.ErrRateServiceUnavailable.Error())
}

func TestRenameAndDelete(t *testing.T) {
	ts := newTestServer(t, stubRates{})
	a := createCustomer(t, ts, "A")

	var got customerView
	do(t, ts, "PATCH", customerPath(a.ID)+"/", `{"name":"Anna"}`, http.StatusOK, &got)
	assert.Equal(t, "Anna", got.Name)
	do(t, ts, "PUT", customerPath(a.ID), `{"name":"Anya"}`, http.StatusOK, &got)
	assert.Equal(t, "Anya", got.Name)

	do(t, ts, "DELETE", customerPath(a.ID), "", http.StatusNoContent, nil)
	do(t, ts, "DELETE", customerPath(a.ID), "", http.StatusNotFound, nil)
	do(t, ts, "GET", customerPath(a.ID), "", http.StatusNotFound, nil)

	var txs []transactionView
	do(t, ts, "GET", customerPath(a.ID)+"/transactions", "", http.StatusOK, &txs)
	assert.Empty(t, txs)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, stubRates{})
	a := createCustomer(t, ts, "A")
	do(t, ts, "POST", customerPath(a.ID)+"/operations", `{"amount":1,"operation":"withdraw"}`, http.StatusOK, nil)

	var health map[string]string
	do(t, ts, "GET", "/health", "", http.StatusOK, &health)
	assert.Equal(t, "ok", health["status"])

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, `ledger_operations_total{operation="withdraw",status="ok"} 1`)
	assert.Contains(t, text, `route="/balance/customers/{id}/operations"`)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("db down")))
	assert.Equal(t, http.StatusNotFound, statusFor(ledger.ErrNotFound))
}
