package httpapi

import (
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

const maxWebhookBody = 1 << 20

type SweepHandler struct {
	Sweeper     Sweeper
	Verifier    SignatureVerifier
	Destination string
}

// Trigger runs one expiry sweep on behalf of the QStash schedule.
func (h *SweepHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.Verifier.VerifyRequest(r, body, h.Destination); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("reject sweep webhook")
		jsonError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	report, err := h.Sweeper.Trigger(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("expiry sweep")
		jsonError(w, http.StatusInternalServerError, "expiry sweep failed")
		return
	}
	jsonResponse(w, http.StatusOK, report)
}
