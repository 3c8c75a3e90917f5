// exchange_handler.go -- POST /session/{platform}: access token in, XSTS credential out.
package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"github.com/jfeld-dev/janus/internal/store"
	"github.com/jfeld-dev/janus/internal/xbox"
)

// credentialResponse is the success payload for both the API and browser flows.
type credentialResponse struct {
	UserHash  string `json:"user_hash"`
	XSTSToken string `json:"xsts_token"`
}

// deniedResponse is the payload for a classified XSTS denial. ErrorKind is
// the stable enum name; Message is the composed display string.
type deniedResponse struct {
	ErrorKind string `json:"error_kind"`
	XErr      int64  `json:"xerr"`
	Message   string `json:"message"`
}

// ExchangeToken handles POST /session/{platform} -- runs the two-hop Xbox
// Live exchange for a caller-supplied Microsoft access token.
// Returns 200 with the credential pair, 401 for a classified denial,
// 502 for upstream transport or protocol failures.
func (h *Handler) ExchangeToken(w http.ResponseWriter, r *http.Request) {
	platformName := chi.URLParam(r, "platform")
	platform, ok := parsePlatform(platformName)
	if !ok {
		NotFound(w)
		return
	}

	var in struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		logWarn(r, "failed to decode exchange input", "error", err)
		BadRequest(w, r, "error decoding request body")
		return
	}
	if in.AccessToken == "" {
		BadRequest(w, r, "access_token is required")
		return
	}

	h.completeExchange(w, r, in.AccessToken, platform, platformName)
}

// completeExchange is the shared tail of the API and browser flows: cache
// lookup, the exchange itself, audit, cache fill, response. The cache is a
// handler concern -- the xbox package stays stateless.
func (h *Handler) completeExchange(w http.ResponseWriter, r *http.Request, accessToken string, platform xbox.Platform, platformName string) {
	key := cacheKey(platformName, accessToken)
	if cached, err := h.RS.GetCredential(r.Context(), key); err == nil {
		logDebug(r, "credential cache hit", "platform", platformName)
		writeJSON(w, http.StatusOK, credentialResponse{cached.UserHash, cached.Token})
		return
	}

	cred, err := xbox.Authenticate(r.Context(), h.XT, accessToken, platform)
	if err != nil {
		h.exchangeFailed(w, r, err, platformName)
		return
	}

	h.auditExchange(r, store.ExchangeEvent{
		Platform: platformName,
		Outcome:  store.OutcomeSuccess,
		UserHash: &cred.UserHash,
	})

	if err := h.RS.SetCredential(r.Context(), key, store.CachedCredential{
		UserHash: cred.UserHash,
		Token:    cred.Token,
	}, h.CacheTTL); err != nil && !errors.Is(err, store.ErrCacheDisabled) {
		logWarn(r, "failed to cache credential", "error", err)
	}

	logInfo(r, "token exchange succeeded", "platform", platformName)
	writeJSON(w, http.StatusOK, credentialResponse{cred.UserHash, cred.Token})
}

// exchangeFailed maps the exchange's typed errors onto HTTP responses and
// records the audit event for the attempt.
func (h *Handler) exchangeFailed(w http.ResponseWriter, r *http.Request, err error, platformName string) {
	var ste *xbox.SecureTokenError
	if errors.As(err, &ste) {
		kind := ste.Kind.String()
		xerr := ste.XErr
		h.auditExchange(r, store.ExchangeEvent{
			Platform:    platformName,
			Outcome:     store.OutcomeDenied,
			FailureKind: &kind,
			XErr:        &xerr,
		})
		logInfo(r, "xsts authorization denied", "platform", platformName, "kind", kind, "xerr", xerr)
		writeJSON(w, http.StatusUnauthorized, deniedResponse{
			ErrorKind: kind,
			XErr:      xerr,
			Message:   ste.Error(),
		})
		return
	}

	h.auditExchange(r, store.ExchangeEvent{
		Platform: platformName,
		Outcome:  store.OutcomeError,
	})

	var me *xbox.MalformedResponseError
	if errors.As(err, &me) {
		logError(r, "upstream returned malformed response", "error", err)
		BadGateway(w, r, "upstream returned an unexpected response")
		return
	}

	logWarn(r, "upstream request failed", "error", err)
	BadGateway(w, r, "upstream request failed")
}

// auditExchange writes one audit row. Failures are logged, never fatal --
// the caller already has (or was denied) their credential either way.
func (h *Handler) auditExchange(r *http.Request, ev store.ExchangeEvent) {
	id, err := uuid.NewV7()
	if err != nil {
		logWarn(r, "failed to generate audit event id", "error", err)
		return
	}
	ev.ID = id
	if err := h.PS.InsertExchangeEvent(r.Context(), ev); err != nil {
		logWarn(r, "failed to record exchange event", "error", err)
	}
}
