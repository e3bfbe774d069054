package handler

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/slot-transfer/internal/core/domain"
	"github.com/rl1809/slot-transfer/internal/core/service"
)

type HTTPHandler struct {
	transferService *service.TransferService
	log             logrus.FieldLogger
}

// TransferHTTPRequest names the two inventories either directly
// (source_id/target_id) or through an action between a player and a chest.
type TransferHTTPRequest struct {
	RequestID string          `json:"request_id,omitempty"`
	Action    domain.Action   `json:"action,omitempty"`
	PlayerID  string          `json:"player_id,omitempty"`
	ChestID   string          `json:"chest_id,omitempty"`
	SourceID  string          `json:"source_id,omitempty"`
	TargetID  string          `json:"target_id,omitempty"`
	ItemType  domain.ItemType `json:"item_type"`
	Quantity  int             `json:"quantity"`
}

type TransferHTTPResponse struct {
	Success  bool                  `json:"success"`
	Code     string                `json:"code"`
	Message  string                `json:"message"`
	Plan     *domain.TransferPlan  `json:"plan,omitempty"`
	Transfer *domain.TransferEvent `json:"transfer,omitempty"`
}

func NewHTTPHandler(transferService *service.TransferService, log logrus.FieldLogger) *HTTPHandler {
	return &HTTPHandler{transferService: transferService, log: log}
}

// Plan runs the planner over snapshots carried in the request body.
func (h *HTTPHandler) Plan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req domain.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, TransferHTTPResponse{
			Code:    CodeInvalidRequest,
			Message: "invalid request body",
		})
		return
	}

	plan, err := h.transferService.Plan(req)
	h.writePlan(w, plan, err)
}

// Preview plans against stored inventories without applying.
func (h *HTTPHandler) Preview(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTransfer(w, r)
	if !ok {
		return
	}

	plan, err := h.transferService.Preview(r.Context(), req.SourceID, req.TargetID, req.ItemType, req.Quantity)
	h.writePlan(w, plan, err)
}

func (h *HTTPHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTransfer(w, r)
	if !ok {
		return
	}
	if req.RequestID == "" {
		writeJSON(w, http.StatusBadRequest, TransferHTTPResponse{
			Code:    CodeInvalidRequest,
			Message: "missing required fields",
		})
		return
	}

	event, err := h.transferService.Transfer(r.Context(), service.TransferInput{
		RequestID: req.RequestID,
		SourceID:  req.SourceID,
		TargetID:  req.TargetID,
		ItemType:  req.ItemType,
		Quantity:  req.Quantity,
	})
	status, code, message := classify(err)
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("request_id", req.RequestID).Error("transfer failed")
	}

	resp := TransferHTTPResponse{Success: err == nil, Code: code, Message: message}
	if err == nil {
		resp.Transfer = &event
		if event.Status == domain.TransferStatusPartial {
			resp.Message = "partial transfer applied"
		}
	} else if len(event.Plan.Records) > 0 {
		resp.Plan = &event.Plan
	}
	writeJSON(w, status, resp)
}

// Inventory returns the stored snapshot named by ?id=.
func (h *HTTPHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, TransferHTTPResponse{
			Code:    CodeInvalidRequest,
			Message: "missing inventory id",
		})
		return
	}

	inv, err := h.transferService.Inventory(r.Context(), id)
	if err != nil {
		status, code, message := classify(err)
		if status == http.StatusInternalServerError {
			h.log.WithError(err).WithField("inventory", id).Error("load inventory failed")
		}
		writeJSON(w, status, TransferHTTPResponse{Code: code, Message: message})
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeTransfer parses the body and resolves an action into source/target.
func (h *HTTPHandler) decodeTransfer(w http.ResponseWriter, r *http.Request) (TransferHTTPRequest, bool) {
	var req TransferHTTPRequest
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return req, false
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, TransferHTTPResponse{
			Code:    CodeInvalidRequest,
			Message: "invalid request body",
		})
		return req, false
	}

	if req.Action != "" {
		src, dst, err := domain.ResolveAction(req.Action, req.PlayerID, req.ChestID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, TransferHTTPResponse{
				Code:    CodeInvalidRequest,
				Message: err.Error(),
			})
			return req, false
		}
		req.SourceID, req.TargetID = src, dst
	}

	if req.SourceID == "" || req.TargetID == "" || req.ItemType == "" {
		writeJSON(w, http.StatusBadRequest, TransferHTTPResponse{
			Code:    CodeInvalidRequest,
			Message: "missing required fields",
		})
		return req, false
	}
	return req, true
}

func (h *HTTPHandler) writePlan(w http.ResponseWriter, plan domain.TransferPlan, err error) {
	status, code, message := classify(err)
	if err == nil {
		message = "plan computed"
	}
	if status == http.StatusInternalServerError {
		h.log.WithError(err).Error("planning failed")
	}

	resp := TransferHTTPResponse{Success: err == nil, Code: code, Message: message}
	if err == nil || len(plan.Records) > 0 {
		resp.Plan = &plan
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
