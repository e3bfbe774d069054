package handler

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/slot-transfer/internal/adapter/handler/rpc"
	"github.com/rl1809/slot-transfer/internal/core/domain"
	"github.com/rl1809/slot-transfer/internal/core/service"
)

type GRPCHandler struct {
	rpc.UnimplementedTransferServiceServer
	transferService *service.TransferService
	log             logrus.FieldLogger
}

func NewGRPCHandler(transferService *service.TransferService, log logrus.FieldLogger) *GRPCHandler {
	return &GRPCHandler{transferService: transferService, log: log}
}

func (h *GRPCHandler) Plan(ctx context.Context, req *rpc.PlanRequest) (*rpc.TransferResponse, error) {
	plan, err := h.transferService.Plan(req.Request)
	_, code, message := classify(err)
	if err == nil {
		message = "plan computed"
	}

	resp := &rpc.TransferResponse{Success: err == nil, Code: code, Message: message}
	if err == nil || len(plan.Records) > 0 {
		resp.Plan = &plan
	}
	return resp, nil
}

func (h *GRPCHandler) Transfer(ctx context.Context, req *rpc.TransferRequest) (*rpc.TransferResponse, error) {
	sourceID, targetID := req.SourceId, req.TargetId
	if req.Action != "" {
		var err error
		sourceID, targetID, err = domain.ResolveAction(domain.Action(req.Action), req.PlayerId, req.ChestId)
		if err != nil {
			return &rpc.TransferResponse{Code: CodeInvalidRequest, Message: err.Error()}, nil
		}
	}

	event, err := h.transferService.Transfer(ctx, service.TransferInput{
		RequestID: req.GetRequestId(),
		SourceID:  sourceID,
		TargetID:  targetID,
		ItemType:  domain.ItemType(req.ItemType),
		Quantity:  int(req.GetQuantity()),
	})
	status, code, message := classify(err)
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("request_id", req.GetRequestId()).Error("transfer failed")
	}

	resp := &rpc.TransferResponse{Success: err == nil, Code: code, Message: message}
	if err == nil {
		resp.Transfer = &event
	} else if len(event.Plan.Records) > 0 {
		resp.Plan = &event.Plan
	}
	return resp, nil
}
