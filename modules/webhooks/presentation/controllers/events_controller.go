package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/hookrelay/modules/webhooks/domain/entities/event"
	"github.com/iota-uz/hookrelay/modules/webhooks/domain/relay"
	"github.com/iota-uz/hookrelay/modules/webhooks/presentation/mappers"
	"github.com/iota-uz/hookrelay/modules/webhooks/presentation/viewmodels"
	"github.com/iota-uz/hookrelay/modules/webhooks/services"
	"github.com/iota-uz/hookrelay/pkg/application"
	"github.com/iota-uz/hookrelay/pkg/composables"
	"github.com/iota-uz/hookrelay/pkg/middleware"
)

type EventsAPIController struct {
	app      application.Application
	events   *services.EventService
	basePath string
}

func NewEventsAPIController(app application.Application) application.Controller {
	return &EventsAPIController{
		app:      app,
		events:   app.Service(services.EventService{}).(*services.EventService),
		basePath: "/webhooks",
	}
}

func (c *EventsAPIController) Key() string {
	return c.basePath
}

func (c *EventsAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.RequireTenantID())
	router.HandleFunc("/events", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/events", c.List).Methods(http.MethodGet)
	router.HandleFunc("/events/{id}", c.GetByID).Methods(http.MethodGet)
	router.HandleFunc("/events/{id}/requeue", c.Requeue).Methods(http.MethodPost)
	router.HandleFunc("/summary", c.Summary).Methods(http.MethodGet)

	// The simulator catalog is static documentation and carries no tenant
	// data.
	docRouter := r.PathPrefix(c.basePath).Subrouter()
	docRouter.HandleFunc("/kinds", c.Kinds).Methods(http.MethodGet)
}

func (c *EventsAPIController) Create(w http.ResponseWriter, r *http.Request) {
	var dto event.CreateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "WEBHOOKS_INVALID_JSON", "invalid json")
		return
	}

	if errs, ok := dto.Ok(); !ok {
		message := "validation failed"
		if v := strings.TrimSpace(errs["Kind"]); v != "" {
			message = v
		} else if v := strings.TrimSpace(errs["DestinationURL"]); v != "" {
			message = v
		}
		writeAPIError(w, r, http.StatusUnprocessableEntity, "WEBHOOKS_VALIDATION_FAILED", message)
		return
	}

	created, err := c.events.Enqueue(r.Context(), &dto)
	if err != nil {
		writeAPIError(w, r, http.StatusInternalServerError, "WEBHOOKS_INTERNAL", "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, mappers.EventToViewModel(created))
}

type listEventsQuery struct {
	Kind   string   `form:"kind"`
	Status []string `form:"status"`
}

func (c *EventsAPIController) List(w http.ResponseWriter, r *http.Request) {
	query, err := composables.UseQuery(&listEventsQuery{}, r)
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "WEBHOOKS_INVALID_QUERY", "invalid query parameters")
		return
	}

	params := &event.FindParams{Kind: event.Kind(strings.TrimSpace(query.Kind))}
	for _, raw := range query.Status {
		for _, part := range strings.Split(raw, ",") {
			if s := strings.TrimSpace(part); s != "" {
				params.Status = append(params.Status, event.Status(s))
			}
		}
	}
	pagination := composables.UsePaginated(r)
	params.Limit = pagination.Limit
	params.Offset = pagination.Offset

	items, total, err := c.events.List(r.Context(), params)
	if err != nil {
		writeAPIError(w, r, http.StatusInternalServerError, "WEBHOOKS_INTERNAL", "internal error")
		return
	}

	out := make([]*viewmodels.Event, 0, len(items))
	for _, e := range items {
		out = append(out, mappers.EventToViewModel(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": out,
		"total": total,
		"page":  pagination.Page,
		"limit": pagination.Limit,
	})
}

func (c *EventsAPIController) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "WEBHOOKS_INVALID_ID", "invalid event id")
		return
	}

	e, attempts, err := c.events.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			writeAPIError(w, r, http.StatusNotFound, "WEBHOOKS_NOT_FOUND", "event not found")
			return
		}
		writeAPIError(w, r, http.StatusInternalServerError, "WEBHOOKS_INTERNAL", "internal error")
		return
	}

	out := make([]*viewmodels.Attempt, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, mappers.AttemptToViewModel(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"event":    mappers.EventToViewModel(e),
		"attempts": out,
	})
}

func (c *EventsAPIController) Requeue(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "WEBHOOKS_INVALID_ID", "invalid event id")
		return
	}

	requeued, err := c.events.Requeue(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, event.ErrNotFound):
			writeAPIError(w, r, http.StatusNotFound, "WEBHOOKS_NOT_FOUND", "event not found")
		case errors.Is(err, event.ErrNotRequeueable):
			writeAPIError(w, r, http.StatusConflict, "WEBHOOKS_NOT_REQUEUEABLE", "only permanently failed events can be requeued")
		case errors.Is(err, event.ErrClaimConflict):
			writeAPIError(w, r, http.StatusConflict, "WEBHOOKS_CONFLICT", "event changed concurrently, fetch it again")
		default:
			writeAPIError(w, r, http.StatusInternalServerError, "WEBHOOKS_INTERNAL", "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, mappers.EventToViewModel(requeued))
}

func (c *EventsAPIController) Summary(w http.ResponseWriter, r *http.Request) {
	failing, err := c.events.RecentFailures(r.Context())
	if err != nil {
		writeAPIError(w, r, http.StatusInternalServerError, "WEBHOOKS_INTERNAL", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, mappers.SummaryToViewModel(failing))
}

func (c *EventsAPIController) Kinds(w http.ResponseWriter, r *http.Request) {
	catalog := relay.Catalog()
	out := make([]*viewmodels.Endpoint, 0, len(catalog))
	for _, ep := range catalog {
		out = append(out, mappers.EndpointToViewModel(ep))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"endpoints": out,
	})
}
