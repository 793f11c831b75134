package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ankunda/credit-engine/internal/domain"
	"github.com/ankunda/credit-engine/internal/service"
	"github.com/ankunda/credit-engine/pkg/response"
)

type MeterHandler struct {
	service   *service.TransferService
	validator *validator.Validate
}

func NewMeterHandler(service *service.TransferService) *MeterHandler {
	return &MeterHandler{
		service:   service,
		validator: validator.New(),
	}
}

// Purchase handles POST /api/v1/units/purchase
func (h *MeterHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req domain.PurchaseUnitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.service.PurchaseUnits(r.Context(), &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Created(w, result)
}

// Transfer handles POST /api/v1/units/transfer
func (h *MeterHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req domain.PeerTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.service.PeerTransfer(r.Context(), &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Created(w, result)
}

// Migrate handles POST /api/v1/meters/migrate
func (h *MeterHandler) Migrate(w http.ResponseWriter, r *http.Request) {
	var req domain.MigrateMeterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.service.DeactivateAndMigrate(r.Context(), &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, result)
}
