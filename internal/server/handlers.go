package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/balance-ledger/internal/ledger"
	"github.com/sheikh-saqib/balance-ledger/internal/models"
)

func (s *Server) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req ledger.CustomerRequest
	if !s.decode(w, r, &req) {
		return
	}
	name, err := req.ParseName()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	customer, err := s.svc.CreateCustomer(r.Context(), name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCustomerView(customer.ID, customer.Name, customer.Balance, ledger.HomeCurrency))
}

func (s *Server) listCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.svc.ListCustomers(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]customerView, 0, len(customers))
	for _, c := range customers {
		out = append(out, newCustomerView(c.ID, c.Name, c.Balance, ledger.HomeCurrency))
	}
	writeJSON(w, http.StatusOK, out)
}

// getCustomer converts the balance when ?currency= is given.
func (s *Server) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := s.customerID(w, r)
	if !ok {
		return
	}
	balance, err := s.svc.GetCustomerInCurrency(r.Context(), id, r.URL.Query().Get("currency"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c := balance.Customer
	writeJSON(w, http.StatusOK, newCustomerView(c.ID, c.Name, balance.Amount, balance.Currency))
}

func (s *Server) renameCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := s.customerID(w, r)
	if !ok {
		return
	}
	var req ledger.CustomerRequest
	if !s.decode(w, r, &req) {
		return
	}
	name, err := req.ParseName()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	customer, err := s.svc.RenameCustomer(r.Context(), id, name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCustomerView(customer.ID, customer.Name, customer.Balance, ledger.HomeCurrency))
}

func (s *Server) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := s.customerID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteCustomer(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postOperation(w http.ResponseWriter, r *http.Request) {
	id, ok := s.customerID(w, r)
	if !ok {
		return
	}
	var req ledger.OperationRequest
	if !s.decode(w, r, &req) {
		return
	}
	_, err := s.svc.PostOperation(r.Context(), id, req)
	kind := "unknown"
	if op := strings.Trim(string(req.Operation), `"`); op == ledger.OperationWithdraw || op == ledger.OperationDeposit {
		kind = op
	}
	s.metrics.observeOperation(kind, err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	var req ledger.TransferRequest
	if !s.decode(w, r, &req) {
		return
	}
	_, err := s.svc.Transfer(r.Context(), req)
	s.metrics.observeOperation("transfer", err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w)
}

// listTransactions accepts ?order=id|timestamp|amount, "-" prefix for descending.
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := s.customerID(w, r)
	if !ok {
		return
	}
	order := models.ParseTransactionOrder(r.URL.Query().Get("order"))
	txs, err := s.svc.ListTransactions(r.Context(), id, order)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		out = append(out, newTransactionView(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// customerID reads {id}; an id that is not an integer names no customer.
func (s *Server) customerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, ledger.ErrNotFound.Error())
		return 0, false
	}
	return id, true
}

// decode treats an empty body as an empty object so missing fields are
// reported by the ledger rather than as a malformed body. Fields are decoded
// raw, so only a body that is not a JSON object fails here.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, http.StatusBadRequest, "invalid request body")
	return false
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}
