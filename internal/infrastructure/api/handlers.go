package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"shop-insights/internal/application"
	"shop-insights/internal/domain"
	"shop-insights/internal/infrastructure/pubsub"

	"github.com/rs/zerolog"
)

const (
	defaultRunsLimit = 20
	maxListLimit     = 100
)

type handlers struct {
	tenants   *application.TenantService
	ingestion *application.IngestionService
	insights  *application.InsightsService
	runs      *pubsub.RunPubSub
	heartbeat time.Duration
	logger    zerolog.Logger
}

type credentialsRequest struct {
	Domain     string `json:"domain"`
	AdminToken string `json:"adminToken"`
}

type ingestResponse struct {
	OK        bool                 `json:"ok"`
	Customers int                  `json:"customers"`
	Products  int                  `json:"products"`
	Orders    int                  `json:"orders"`
	Skipped   []domain.Resource    `json:"skipped,omitempty"`
	Run       *domain.IngestionRun `json:"run,omitempty"`
}

type ingestFailure struct {
	OK    bool                    `json:"ok"`
	Error string                  `json:"error"`
	Check *domain.CredentialCheck `json:"check,omitempty"`
	Run   *domain.IngestionRun    `json:"run,omitempty"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.tenants.Get(r.Context(), tenantFrom(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *handlers) connect(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	profile, err := h.tenants.Connect(r.Context(), tenantFrom(r.Context()), req.Domain, req.AdminToken)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *handlers) disconnect(w http.ResponseWriter, r *http.Request) {
	profile, err := h.tenants.Disconnect(r.Context(), tenantFrom(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// checkStored answers 200 when the saved credentials can read something, 401 otherwise
func (h *handlers) checkStored(w http.ResponseWriter, r *http.Request) {
	result, err := h.tenants.CheckStored(r.Context(), tenantFrom(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	status := http.StatusOK
	if !result.OK {
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, result)
}

// checkTyped answers 401 only for auth rejections and 400 for other failures
func (h *handlers) checkTyped(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	result, err := h.tenants.CheckTyped(r.Context(), req.Domain, req.AdminToken)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	status := http.StatusOK
	switch {
	case result.OK:
	case result.IsAuthFailure():
		status = http.StatusUnauthorized
	default:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result)
}

func (h *handlers) ingestRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant, err := h.tenants.Tenant(ctx, tenantFrom(ctx))
	if errors.Is(err, domain.ErrTenantNotFound) || (err == nil && !tenant.CanIngest()) {
		err = &domain.ConfigurationError{Reason: "connect shopify first"}
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	run, err := h.ingestion.IngestAll(ctx, tenant, domain.TriggerManual)
	if err != nil {
		status := domain.HTTPStatusOf(err)
		body := ingestFailure{Error: publicMessage(err, status, h.logger), Run: run}
		var checkErr *domain.CredentialCheckError
		if errors.As(err, &checkErr) {
			body.Check = checkErr.Result
		}
		writeJSON(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		OK:        true,
		Customers: run.Counts.Customers,
		Products:  run.Counts.Products,
		Orders:    run.Counts.Orders,
		Skipped:   run.Skipped,
		Run:       run,
	})
}

func (h *handlers) ingestRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, defaultRunsLimit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	runs, err := h.ingestion.ListRuns(r.Context(), tenantFrom(r.Context()), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[*domain.IngestionRun]{Data: runs})
}

func (h *handlers) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.insights.Summary(r.Context(), tenantFrom(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handlers) ordersByDate(w http.ResponseWriter, r *http.Request) {
	start, err := timeParam(r, "start", false)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	end, err := timeParam(r, "end", true)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	points, err := h.insights.RevenueByDate(r.Context(), tenantFrom(r.Context()), start, end)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.RevenuePoint]{Data: points})
}

func (h *handlers) topCustomers(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, application.DefaultTopCustomers)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	top, err := h.insights.TopCustomers(r.Context(), tenantFrom(r.Context()), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.TopCustomer]{Data: top})
}

func limitParam(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, &domain.ConfigurationError{Reason: "limit must be a positive integer"}
	}
	return min(limit, maxListLimit), nil
}

// timeParam accepts RFC 3339 timestamps or plain dates. A plain end date covers the whole day.
func timeParam(r *http.Request, name string, endOfDay bool) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, &domain.ConfigurationError{Reason: name + " must be a date (YYYY-MM-DD) or RFC 3339 timestamp"}
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
