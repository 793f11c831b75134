package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/ankunda/credit-engine/internal/domain"
	"github.com/ankunda/credit-engine/internal/service"
	"github.com/ankunda/credit-engine/pkg/response"
)

type LoanHandler struct {
	service   *service.LoanService
	validator *validator.Validate
}

func NewLoanHandler(service *service.LoanService) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: validator.New(),
	}
}

// Apply handles POST /api/v1/loans
func (h *LoanHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req domain.ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.service.Apply(r.Context(), &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Created(w, result)
}

// Disburse handles POST /api/v1/loans/{loanId}/disburse
func (h *LoanHandler) Disburse(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]
	if loanID == "" {
		response.BadRequest(w, "loanId is required")
		return
	}

	result, err := h.service.Disburse(r.Context(), loanID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, result)
}

// Repay handles POST /api/v1/loans/{loanId}/repayment
func (h *LoanHandler) Repay(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]
	if loanID == "" {
		response.BadRequest(w, "loanId is required")
		return
	}

	var req domain.RepayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.service.Repay(r.Context(), loanID, &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Created(w, result)
}

// GetOutstanding handles GET /api/v1/loans/{loanId}/outstanding
func (h *LoanHandler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]
	if loanID == "" {
		response.BadRequest(w, "loanId is required")
		return
	}

	result, err := h.service.GetOutstanding(r.Context(), loanID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, result)
}

// GetStats handles GET /api/v1/accounts/{accountId}/loans/stats
func (h *LoanHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]
	if accountID == "" {
		response.BadRequest(w, "accountId is required")
		return
	}

	result, err := h.service.GetLoanStats(r.Context(), accountID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, result)
}

// GetTariffs handles GET /api/v1/tariffs
func (h *LoanHandler) GetTariffs(w http.ResponseWriter, r *http.Request) {
	tariffs, err := h.service.GetTariffs(r.Context())
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, tariffs)
}
