// Package http exposes the order sync pipeline's admin-facing HTTP
// surface: a manual trigger and a read-only statistics endpoint.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/qhato/ecommerce/internal/ordersync/application"
	"github.com/qhato/ecommerce/internal/ordersync/domain"
	httpPkg "github.com/qhato/ecommerce/pkg/http"
	apperrors "github.com/qhato/ecommerce/pkg/errors"
	"github.com/qhato/ecommerce/pkg/logging"
	"github.com/qhato/ecommerce/pkg/validator"
)

// Handler serves the manual-trigger and statistics endpoints over the
// orchestrator. It holds no state of its own.
type Handler struct {
	orchestrator *application.PollingOrchestrator
	validator    *validator.Validator
	log          logging.Logger
}

// NewHandler builds a Handler bound to one orchestrator instance.
func NewHandler(orchestrator *application.PollingOrchestrator, v *validator.Validator, log logging.Logger) *Handler {
	if log == nil {
		log = logging.NewNoopLogger()
	}
	return &Handler{orchestrator: orchestrator, validator: v, log: log}
}

// RegisterRoutes mounts the order sync admin endpoints under the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/order-sync", func(r chi.Router) {
		r.Post("/poll", h.TriggerPoll)
		r.Get("/stats", h.Statistics)
	})
}

// triggerPollRequest is the manual-trigger request body. All fields
// are optional; values, including zero values, are passed to the
// orchestrator unchanged, so an omitted batch_size or max_pages
// fetches no orders.
type triggerPollRequest struct {
	LookbackMinutes     int      `json:"lookback_minutes" validate:"omitempty,min=1"`
	BatchSize           int      `json:"batch_size" validate:"omitempty,min=1,max=250"`
	MaxPages            int      `json:"max_pages" validate:"omitempty,min=1"`
	DryRun              bool     `json:"dry_run"`
	IncludeTestOrders   bool     `json:"include_test_orders"`
	FinancialStatuses   []string `json:"financial_statuses"`
	FulfillmentStatuses []string `json:"fulfillment_statuses"`
}

// TriggerPoll runs one poll cycle synchronously and returns its report.
func (h *Handler) TriggerPoll(w http.ResponseWriter, r *http.Request) {
	var req triggerPollRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpPkg.RespondError(w, apperrors.BadRequest("invalid request body").WithInternal(err))
			return
		}
	}

	if err := h.validator.Validate(req); err != nil {
		httpPkg.RespondError(w, apperrors.ValidationError("validation failed").WithInternal(err))
		return
	}

	opts := application.PollOptions{
		LookbackMinutes:   req.LookbackMinutes,
		BatchSize:         req.BatchSize,
		MaxPages:          req.MaxPages,
		DryRun:            req.DryRun,
		IncludeTestOrders: req.IncludeTestOrders,
	}
	for _, s := range req.FinancialStatuses {
		opts.FinancialStatuses = append(opts.FinancialStatuses, domain.FinancialStatus(s))
	}
	opts.FulfillmentStatuses = req.FulfillmentStatuses

	report, err := h.orchestrator.PollAndSync(r.Context(), opts)
	if err != nil {
		h.log.Error("manual order sync poll failed", logging.Error(err))
		httpPkg.RespondError(w, apperrors.Internal("order sync poll failed").WithInternal(err))
		return
	}

	httpPkg.RespondJSON(w, http.StatusOK, report)
}

// Statistics returns the orchestrator's cumulative poll statistics.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	httpPkg.RespondJSON(w, http.StatusOK, h.orchestrator.Statistics())
}
