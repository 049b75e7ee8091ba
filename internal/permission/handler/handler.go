// Package handler exposes the permission request API over HTTP. It delegates
// to the permission service without embedding business logic so transport
// concerns remain isolated.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gridgate/internal/connector"
	"gridgate/internal/permission"
	"gridgate/internal/permission/service"
	"gridgate/internal/platform/middleware"
	"gridgate/internal/transport/http/shared"
	id "gridgate/pkg/domain"
	dErrors "gridgate/pkg/domain-errors"
)

// Service defines the permission operations the transport needs.
type Service interface {
	Create(ctx context.Context, params service.CreateParams) (*permission.Request, error)
	Get(ctx context.Context, permissionID id.PermissionID) (*permission.Request, error)
	ListByConnection(ctx context.Context, connectionID id.ConnectionID) ([]*permission.Request, error)
	Terminate(ctx context.Context, permissionID id.PermissionID) (*permission.Request, error)
	Revoke(ctx context.Context, permissionID id.PermissionID) (*permission.Request, error)
	HandleInbound(ctx context.Context, region id.Region, payload []byte) (connector.DeliveryResult, error)
}

// Handler handles permission request endpoints.
type Handler struct {
	service    Service
	logger     *slog.Logger
	webhookKey []byte
}

func New(svc Service, logger *slog.Logger, webhookSecretHash []byte) *Handler {
	return &Handler{service: svc, logger: logger, webhookKey: webhookSecretHash}
}

// Register mounts the API and callback route groups.
func (h *Handler) Register(r chi.Router) {
	r.Route("/permissions", func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{permissionID}", h.handleGet)
		r.Post("/{permissionID}/terminate", h.handleTerminate)
		r.Post("/{permissionID}/revoke", h.handleRevoke)
	})

	// Administrator callbacks carry raw protocol payloads, so no JSON
	// content-type enforcement here.
	r.Route("/callbacks", func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.WebhookAuth(h.webhookKey, h.logger))
		r.Post("/{region}", h.handleCallback)
	})
}

type timeframeBody struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type createRequest struct {
	ConnectionID    string        `json:"connectionId"`
	DataNeedID      string        `json:"dataNeedId"`
	Region          string        `json:"region"`
	Administrator   string        `json:"administrator"`
	MeteringPointID string        `json:"meteringPointId,omitempty"`
	Granularity     string        `json:"granularity,omitempty"`
	Timeframe       timeframeBody `json:"timeframe"`
}

type requestView struct {
	PermissionID    string            `json:"permissionId"`
	ConnectionID    string            `json:"connectionId"`
	DataNeedID      string            `json:"dataNeedId"`
	Status          string            `json:"status"`
	Granularity     string            `json:"granularity,omitempty"`
	Timeframe       timeframeBody     `json:"timeframe"`
	Administrator   string            `json:"administrator"`
	Region          string            `json:"region"`
	MeteringPointID string            `json:"meteringPointId,omitempty"`
	ConsentID       string            `json:"consentId,omitempty"`
	ErrorMessage    string            `json:"errorMessage,omitempty"`
	LastReadings    map[string]string `json:"lastKnownReadings,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
	Version         int64             `json:"version"`
}

func toView(req *permission.Request) requestView {
	view := requestView{
		PermissionID:    req.PermissionID.String(),
		ConnectionID:    req.ConnectionID.String(),
		DataNeedID:      req.DataNeedID.String(),
		Status:          string(req.Status),
		Granularity:     string(req.Granularity),
		Timeframe:       timeframeBody{Start: req.Timeframe.Start, End: req.Timeframe.End},
		Administrator:   req.DataSource.Administrator,
		Region:          req.DataSource.Region.String(),
		MeteringPointID: req.MeteringPointID.String(),
		ConsentID:       req.ConsentID.String(),
		ErrorMessage:    req.ErrorMessage,
		CreatedAt:       req.CreatedAt,
		UpdatedAt:       req.UpdatedAt,
		Version:         req.Version,
	}
	if len(req.LastKnownReadings) > 0 {
		view.LastReadings = make(map[string]string, len(req.LastKnownReadings))
		for point, watermark := range req.LastKnownReadings {
			view.LastReadings[point.String()] = watermark.Format(time.RFC3339)
		}
	}
	return view
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body createRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	region, err := id.ParseRegion(body.Region)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "unknown region"))
		return
	}

	req, err := h.service.Create(ctx, service.CreateParams{
		ConnectionID:    id.ConnectionID(body.ConnectionID),
		DataNeedID:      id.DataNeedID(body.DataNeedID),
		Region:          region,
		Administrator:   body.Administrator,
		MeteringPointID: id.MeteringPointID(body.MeteringPointID),
		Granularity:     permission.Granularity(body.Granularity),
		Timeframe:       permission.Timeframe{Start: body.Timeframe.Start, End: body.Timeframe.End},
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "create permission request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toView(req))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	permissionID, err := id.ParsePermissionID(chi.URLParam(r, "permissionID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid permission id"))
		return
	}
	req, err := h.service.Get(r.Context(), permissionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toView(req))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	connectionID := r.URL.Query().Get("connectionId")
	if connectionID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "connectionId query parameter is required"))
		return
	}
	reqs, err := h.service.ListByConnection(r.Context(), id.ConnectionID(connectionID))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	views := make([]requestView, 0, len(reqs))
	for _, req := range reqs {
		views = append(views, toView(req))
	}
	shared.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) handleTerminate(w http.ResponseWriter, r *http.Request) {
	permissionID, err := id.ParsePermissionID(chi.URLParam(r, "permissionID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid permission id"))
		return
	}
	req, err := h.service.Terminate(r.Context(), permissionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toView(req))
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	permissionID, err := id.ParsePermissionID(chi.URLParam(r, "permissionID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid permission id"))
		return
	}
	req, err := h.service.Revoke(r.Context(), permissionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toView(req))
}
