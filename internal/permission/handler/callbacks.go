package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gridgate/internal/connector"
	"gridgate/internal/platform/middleware"
	"gridgate/internal/transport/http/shared"
	id "gridgate/pkg/domain"
	dErrors "gridgate/pkg/domain-errors"
)

// maxCallbackBody caps inbound callback payloads at 1 MiB.
const maxCallbackBody = 1 << 20

type callbackResponse struct {
	Result string `json:"result"`
}

// handleCallback receives one raw administrator notification. The HTTP status
// tells the administrator's delivery machinery whether to redeliver: 2xx
// settles the message, 503 requests redelivery, 422 refuses it for good.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	region, err := id.ParseRegion(chi.URLParam(r, "region"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown region"))
		return
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unreadable request body"))
		return
	}

	result, err := h.service.HandleInbound(ctx, region, payload)
	if err != nil {
		h.logger.WarnContext(ctx, "inbound notification not settled",
			"request_id", middleware.GetRequestID(ctx),
			"region", region,
			"result", result,
			"error", err.Error(),
		)
	}

	switch result {
	case connector.DeliverySuccess:
		shared.WriteJSON(w, http.StatusOK, callbackResponse{Result: string(result)})
	case connector.DeliveryTemporaryError:
		shared.WriteJSON(w, http.StatusServiceUnavailable, callbackResponse{Result: string(result)})
	default:
		shared.WriteJSON(w, http.StatusUnprocessableEntity, callbackResponse{Result: string(connector.DeliveryRejected)})
	}
}
