package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/event"
	"github.com/iota-uz/hookrelay/modules/webhooks/infrastructure/delivery"
	"github.com/iota-uz/hookrelay/pkg/application"
	"github.com/iota-uz/hookrelay/pkg/configuration"
)

// Waker is the part of the delivery worker the handlers need.
type Waker interface {
	Wake()
}

// DeliveryEventsHandler nudges the delivery worker when new work lands so a
// fresh event does not sit out the rest of a poll interval.
type DeliveryEventsHandler struct {
	worker Waker
	logger *logrus.Logger
}

func NewDeliveryEventsHandler(worker Waker, logger *logrus.Logger) *DeliveryEventsHandler {
	return &DeliveryEventsHandler{worker: worker, logger: logger}
}

func RegisterDeliveryEventHandlers(app application.Application, worker *delivery.Worker) {
	handler := NewDeliveryEventsHandler(worker, configuration.Use().Logger())
	app.EventPublisher().Subscribe(handler.onEventCreated)
	app.EventPublisher().Subscribe(handler.onEventRequeued)
	app.EventPublisher().Subscribe(handler.onEventFailed)
}

func (h *DeliveryEventsHandler) onEventCreated(ev *event.CreatedEvent) {
	if h.worker == nil || ev == nil {
		return
	}
	delivery.ObserveEnqueue(ev.Result.Kind)
	h.worker.Wake()
}

func (h *DeliveryEventsHandler) onEventRequeued(ev *event.RequeuedEvent) {
	if h.worker == nil || ev == nil {
		return
	}
	h.worker.Wake()
}

func (h *DeliveryEventsHandler) onEventFailed(ev *event.FailedEvent) {
	if h.logger == nil || ev == nil {
		return
	}
	h.logger.WithFields(logrus.Fields{
		"event_id":  ev.Result.ID,
		"tenant_id": ev.Result.TenantID,
		"kind":      ev.Result.Kind,
		"try_count": ev.Result.TryCount,
	}).Warn("webhooks: event failed permanently")
}
