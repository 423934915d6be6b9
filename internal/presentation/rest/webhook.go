package rest

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/udyamcap/lending-engine/internal/application/usecase"
	"github.com/udyamcap/lending-engine/internal/domain/errs"
)

// signatureHeader carries the partner's hex-encoded HMAC-SHA256 of the body.
const signatureHeader = "X-Partner-Signature"

// maxWebhookBody caps how much of a request we will read.
const maxWebhookBody = 1 << 20

// WebhookHandler receives settlement events from the lending partner.
type WebhookHandler struct {
	process *usecase.ProcessWebhookUseCase
	logger  *slog.Logger
}

// NewWebhookHandler creates the webhook HTTP handler.
func NewWebhookHandler(process *usecase.ProcessWebhookUseCase, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{process: process, logger: logger}
}

// RegisterRoutes attaches the webhook route to the given mux.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/partner", h.handle)
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("webhook body read failed", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}

	result, err := h.process.Execute(r.Context(), body, r.Header.Get(signatureHeader))
	if err != nil {
		switch {
		// A forged signature and a malformed payload get the same response,
		// so the endpoint does not confirm whether a signature was valid.
		case errors.Is(err, errs.ErrBadSignature), errs.IsValidation(err):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		case errs.IsConflict(err):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			h.logger.Error("webhook processing failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
