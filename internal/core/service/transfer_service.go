package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/slot-transfer/internal/core/domain"
	"github.com/rl1809/slot-transfer/internal/core/planner"
	"github.com/rl1809/slot-transfer/internal/metrics"
	"github.com/rl1809/slot-transfer/internal/port"
)

var (
	ErrDuplicateRequest  = errors.New("duplicate request")
	ErrInventoryNotFound = errors.New("inventory not found")
	ErrConflict          = errors.New("inventories kept changing during transfer")
)

type Config struct {
	StackLimit      int
	AllowPartial    bool
	MaxApplyRetries int
	QueueSize       int
}

type TransferInput struct {
	RequestID string
	SourceID  string
	TargetID  string
	ItemType  domain.ItemType
	Quantity  int
}

type TransferService struct {
	inventories  port.InventoryRepository
	cache        port.CacheRepository
	planner      *planner.Planner
	metrics      *metrics.Metrics
	log          logrus.FieldLogger
	allowPartial bool
	maxRetries   int
	events       chan domain.TransferEvent
	closeOnce    sync.Once
}

func NewTransferService(inventories port.InventoryRepository, cache port.CacheRepository, cfg Config, m *metrics.Metrics, log logrus.FieldLogger) *TransferService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TransferService{
		inventories:  inventories,
		cache:        cache,
		planner:      planner.New(cfg.StackLimit),
		metrics:      m,
		log:          log,
		allowPartial: cfg.AllowPartial,
		maxRetries:   cfg.MaxApplyRetries,
		events:       make(chan domain.TransferEvent, cfg.QueueSize),
	}
}

// Plan runs the planner over caller-supplied snapshots.
func (s *TransferService) Plan(req domain.TransferRequest) (domain.TransferPlan, error) {
	plan, err := s.planner.Plan(req)
	s.metrics.ObservePlan(plan, err)
	return plan, err
}

// Preview plans against the stored inventories without applying anything.
func (s *TransferService) Preview(ctx context.Context, sourceID, targetID string, itemType domain.ItemType, quantity int) (domain.TransferPlan, error) {
	source, target, err := s.snapshots(ctx, sourceID, targetID)
	if err != nil {
		return domain.TransferPlan{}, err
	}
	return s.Plan(domain.TransferRequest{ItemType: itemType, Quantity: quantity, Source: *source, Target: *target})
}

// Transfer plans and applies a transfer between two stored inventories. A
// RequestID is accepted once; it is released again if the transfer fails.
// When the target is short on room the error carries the partial plan in the
// returned event unless AllowPartial is set, in which case the partial plan is
// applied and reported with TransferStatusPartial.
func (s *TransferService) Transfer(ctx context.Context, in TransferInput) (domain.TransferEvent, error) {
	if in.RequestID == "" {
		return domain.TransferEvent{}, fmt.Errorf("%w: request id is required", domain.ErrInvalidRequest)
	}

	ok, err := s.cache.SetIdempotency(ctx, in.RequestID)
	if err != nil {
		return domain.TransferEvent{}, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		return domain.TransferEvent{}, ErrDuplicateRequest
	}

	log := s.log.WithFields(logrus.Fields{
		"request_id": in.RequestID,
		"source":     in.SourceID,
		"target":     in.TargetID,
		"item_type":  in.ItemType,
	})

	event, err := s.transfer(ctx, in, log)
	if err != nil {
		if clearErr := s.cache.ClearIdempotency(ctx, in.RequestID); clearErr != nil {
			log.WithError(clearErr).Warn("failed to release idempotency key")
		}
		return event, err
	}

	log.WithFields(logrus.Fields{
		"moved":    event.Plan.TotalMoved,
		"records":  len(event.Plan.Records),
		"attempts": event.Attempts,
	}).Info("transfer applied")

	s.events <- event

	return event, nil
}

func (s *TransferService) transfer(ctx context.Context, in TransferInput, log logrus.FieldLogger) (domain.TransferEvent, error) {
	event := domain.TransferEvent{
		RequestID: in.RequestID,
		SourceID:  in.SourceID,
		TargetID:  in.TargetID,
		ItemType:  in.ItemType,
		Requested: in.Quantity,
	}

	for attempt := 1; ; attempt++ {
		event.Attempts = attempt

		source, target, err := s.snapshots(ctx, in.SourceID, in.TargetID)
		if err != nil {
			return event, err
		}

		plan, err := s.Plan(domain.TransferRequest{ItemType: in.ItemType, Quantity: in.Quantity, Source: *source, Target: *target})
		event.Plan = plan
		event.Status = domain.TransferStatusApplied
		if err != nil {
			if !errors.Is(err, domain.ErrInsufficientTargetCapacity) || !s.allowPartial || plan.TotalMoved == 0 {
				return event, err
			}
			event.Status = domain.TransferStatusPartial
			log.WithError(err).Warn("applying partial plan")
		}

		newSource, newTarget, err := domain.ApplyPlan(*source, *target, in.ItemType, plan, s.planner.StackLimit())
		if err != nil {
			return event, oops.In("transfer").With("request_id", in.RequestID).Wrapf(err, "plan does not fit snapshots")
		}

		err = s.inventories.ApplyTransfer(ctx, newSource, newTarget)
		if errors.Is(err, port.ErrVersionConflict) {
			s.metrics.ObserveConflict()
			if attempt > s.maxRetries {
				return event, fmt.Errorf("%w after %d attempts", ErrConflict, attempt)
			}
			log.WithField("attempt", attempt).Debug("snapshot went stale, re-planning")
			continue
		}
		if err != nil {
			return event, oops.In("transfer").With("request_id", in.RequestID).Wrapf(err, "apply transfer")
		}

		s.metrics.ObserveApplied(plan.TotalMoved)
		event.ID = uuid.NewString()
		event.CreatedAt = time.Now().UTC()
		return event, nil
	}
}

// Inventory returns the stored snapshot for id.
func (s *TransferService) Inventory(ctx context.Context, id string) (*domain.Inventory, error) {
	return s.inventory(ctx, id)
}

func (s *TransferService) snapshots(ctx context.Context, sourceID, targetID string) (*domain.Inventory, *domain.Inventory, error) {
	source, err := s.inventory(ctx, sourceID)
	if err != nil {
		return nil, nil, err
	}
	target, err := s.inventory(ctx, targetID)
	if err != nil {
		return nil, nil, err
	}
	return source, target, nil
}

func (s *TransferService) inventory(ctx context.Context, id string) (*domain.Inventory, error) {
	inv, err := s.inventories.GetInventory(ctx, id)
	if err != nil {
		return nil, oops.In("transfer").With("inventory", id).Wrapf(err, "load inventory")
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: %s", ErrInventoryNotFound, id)
	}
	return inv, nil
}

func (s *TransferService) Events() <-chan domain.TransferEvent {
	return s.events
}

// Close ends the event stream. Transfer must not be called afterwards.
func (s *TransferService) Close() {
	s.closeOnce.Do(func() { close(s.events) })
}
