// Package handler exposes the policy lifecycle over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"polizalab/internal/platform/middleware"
	"polizalab/internal/policy/extraction"
	"polizalab/internal/policy/models"
	"polizalab/internal/policy/service"
	"polizalab/internal/transport/http/shared"
	dErrors "polizalab/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/policy-mocks.go -package=mocks

// Service defines the policy operations the handler depends on.
type Service interface {
	CreateUpload(ctx context.Context, userID string, req service.UploadRequest) (*service.UploadGrant, error)
	CompleteUpload(ctx context.Context, userID string, policyID uuid.UUID) (*service.Snapshot, error)
	Ingest(ctx context.Context, userID string, policyID uuid.UUID) (*service.Snapshot, error)
	Confirm(ctx context.Context, userID string, policyID uuid.UUID, patch models.Fields) (*service.Snapshot, error)
	Patch(ctx context.Context, userID string, policyID uuid.UUID, patch models.Fields) (*service.Snapshot, error)
	MarkRenewed(ctx context.Context, userID string, policyID uuid.UUID, newPolicyID string) (*service.Snapshot, error)
	MarkRenewalLost(ctx context.Context, userID string, policyID uuid.UUID, reason string) (*service.Snapshot, error)
	GetSnapshot(ctx context.Context, userID string, policyID uuid.UUID) (*service.Snapshot, error)
	List(ctx context.Context, userID string) ([]*service.Snapshot, error)
	ListRenewals(ctx context.Context, userID, window string) ([]*service.Snapshot, error)
	CompleteExtractionByJob(ctx context.Context, jobID string, result *extraction.Result) error
}

// CallbackDecoder verifies and decodes extractor push notifications.
type CallbackDecoder interface {
	DecodeCallback(checksum, content string) (jobID string, result *extraction.Result, err error)
}

// Handler handles policy lifecycle endpoints.
type Handler struct {
	logger       *slog.Logger
	policies     Service
	decoder      CallbackDecoder
	jwtValidator middleware.JWTValidator
}

// New creates a new policy Handler.
func New(
	policies Service,
	decoder CallbackDecoder,
	logger *slog.Logger,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		policies:     policies,
		decoder:      decoder,
		jwtValidator: jwtValidator,
	}
}

// Register registers the policy routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	policyRouter := chi.NewRouter()
	policyRouter.Use(middleware.Recovery(h.logger))
	policyRouter.Use(middleware.RequestID)
	policyRouter.Use(middleware.Logger(h.logger))
	policyRouter.Use(middleware.Timeout(30 * time.Second))
	policyRouter.Use(middleware.ContentTypeJSON)
	policyRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	policyRouter.Post("/policies/upload-url", h.handleCreateUpload)
	policyRouter.Get("/policies", h.handleList)
	policyRouter.Get("/policies/renewals", h.handleListRenewals)
	policyRouter.Get("/policies/{policyID}", h.handleGet)
	policyRouter.Patch("/policies/{policyID}", h.handlePatch)
	policyRouter.Post("/policies/{policyID}/upload-complete", h.handleCompleteUpload)
	policyRouter.Post("/policies/{policyID}/ingest", h.handleIngest)
	policyRouter.Post("/policies/{policyID}/confirm", h.handleConfirm)
	policyRouter.Post("/policies/{policyID}/mark-renewed", h.handleMarkRenewed)
	policyRouter.Post("/policies/{policyID}/mark-renewal-lost", h.handleMarkRenewalLost)

	callbackRouter := chi.NewRouter()
	callbackRouter.Use(middleware.Recovery(h.logger))
	callbackRouter.Use(middleware.RequestID)
	callbackRouter.Use(middleware.Logger(h.logger))
	callbackRouter.Use(middleware.Timeout(30 * time.Second))
	callbackRouter.Post("/extraction/callback", h.handleExtractionCallback)

	r.Mount("/internal", callbackRouter)
	r.Mount("/", policyRouter)
}

func (h *Handler) handleCreateUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req service.UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	grant, err := h.policies.CreateUpload(ctx, userID, req)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to create upload")
		return
	}
	shared.WriteJSON(w, http.StatusCreated, grant)
}

func (h *Handler) handleCompleteUpload(w http.ResponseWriter, r *http.Request) {
	h.lifecycleAction(w, r, http.StatusOK, func(ctx context.Context, userID string, policyID uuid.UUID) (*service.Snapshot, error) {
		return h.policies.CompleteUpload(ctx, userID, policyID)
	})
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	h.lifecycleAction(w, r, http.StatusAccepted, func(ctx context.Context, userID string, policyID uuid.UUID) (*service.Snapshot, error) {
		return h.policies.Ingest(ctx, userID, policyID)
	})
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	patch, ok := h.decodeFields(w, r)
	if !ok {
		return
	}
	h.lifecycleAction(w, r, http.StatusOK, func(ctx context.Context, userID string, policyID uuid.UUID) (*service.Snapshot, error) {
		return h.policies.Confirm(ctx, userID, policyID, patch)
	})
}

func (h *Handler) handlePatch(w http.ResponseWriter, r *http.Request) {
	patch, ok := h.decodeFields(w, r)
	if !ok {
		return
	}
	h.lifecycleAction(w, r, http.StatusOK, func(ctx context.Context, userID string, policyID uuid.UUID) (*service.Snapshot, error) {
		return h.policies.Patch(ctx, userID, policyID, patch)
	})
}

func (h *Handler) handleMarkRenewed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewPolicyID string `json:"newPolicyId"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}
	h.lifecycleAction(w, r, http.StatusOK, func(ctx context.Context, userID string, policyID uuid.UUID) (*service.Snapshot, error) {
		return h.policies.MarkRenewed(ctx, userID, policyID, req.NewPolicyID)
	})
}

func (h *Handler) handleMarkRenewalLost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	h.lifecycleAction(w, r, http.StatusOK, func(ctx context.Context, userID string, policyID uuid.UUID) (*service.Snapshot, error) {
		return h.policies.MarkRenewalLost(ctx, userID, policyID, req.Reason)
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	policyID, ok := h.policyID(w, r)
	if !ok {
		return
	}

	snap, err := h.policies.GetSnapshot(ctx, userID, policyID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load policy")
		return
	}
	shared.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	snaps, err := h.policies.List(ctx, userID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list policies")
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"policies": snaps})
}

func (h *Handler) handleListRenewals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	snaps, err := h.policies.ListRenewals(ctx, userID, r.URL.Query().Get("window"))
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list renewals")
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"renewals": snaps})
}

func (h *Handler) handleExtractionCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read body"))
		return
	}
	checksum := r.Header.Get("X-Callback-Checksum")
	if checksum == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing callback checksum"))
		return
	}

	jobID, result, err := h.decoder.DecodeCallback(checksum, string(body))
	if err != nil {
		h.logger.WarnContext(ctx, "rejected extraction callback",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid callback"))
		return
	}

	if err := h.policies.CompleteExtractionByJob(ctx, jobID, result); err != nil {
		h.writeServiceError(ctx, w, err, "failed to apply extraction result")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// lifecycleAction factors the shared shape of the single-policy POST
// endpoints: auth context, path id, service call, snapshot response.
func (h *Handler) lifecycleAction(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	action func(ctx context.Context, userID string, policyID uuid.UUID) (*service.Snapshot, error),
) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	policyID, ok := h.policyID(w, r)
	if !ok {
		return
	}

	snap, err := action(ctx, userID, policyID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "policy action failed")
		return
	}
	shared.WriteJSON(w, status, snap)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		// Should never happen if RequireAuth middleware is configured correctly
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return userID, true
}

func (h *Handler) policyID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "policyID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid policy id"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decodeFields(w http.ResponseWriter, r *http.Request) (models.Fields, bool) {
	var patch models.Fields
	if r.Body == nil || r.ContentLength == 0 {
		return patch, true
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return patch, false
	}
	return patch, true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	var gw dErrors.GatewayError
	if errors.As(err, &gw) {
		if gw.Code == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, msg,
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
	shared.WriteError(w, dErrors.New(dErrors.CodeInternal, msg))
}
