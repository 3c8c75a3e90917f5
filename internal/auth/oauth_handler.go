// oauth_handler.go -- Browser flow: Microsoft consent page round-trip, then
// the Xbox Live exchange on the callback.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"net/http"
)

// oauthStateCookie is the payload stored in __Host-oauth-state during the
// OAuth round-trip. Platform rides along so the callback knows which relying
// party to target without trusting a query parameter.
type oauthStateCookie struct {
	State    string `json:"state"`
	Verifier string `json:"verifier"`
	Platform string `json:"platform"`
}

// OAuthRedirect handles GET /oauth/microsoft -- generates PKCE + state,
// stores them in a short-lived HttpOnly cookie, and redirects the browser to
// the Microsoft consent page. ?platform=java|bedrock selects the relying
// party for the callback; default java.
func (h *Handler) OAuthRedirect(w http.ResponseWriter, r *http.Request) {
	platformName := r.URL.Query().Get("platform")
	if platformName == "" {
		platformName = "java"
	}
	if _, ok := parsePlatform(platformName); !ok {
		BadRequest(w, r, "unknown platform")
		return
	}

	var stateBytes, verifierBytes [32]byte
	if _, err := rand.Read(stateBytes[:]); err != nil {
		InternalServerError(w, r, err)
		return
	}
	if _, err := rand.Read(verifierBytes[:]); err != nil {
		InternalServerError(w, r, err)
		return
	}

	state := base64.RawURLEncoding.EncodeToString(stateBytes[:])
	codeVerifier := base64.RawURLEncoding.EncodeToString(verifierBytes[:])
	challenge := sha256.Sum256([]byte(codeVerifier))
	codeChallenge := base64.RawURLEncoding.EncodeToString(challenge[:])

	setOAuthStateCookie(w, state, codeVerifier, platformName)
	http.Redirect(w, r, h.MSA.AuthCodeURL(state, codeChallenge), http.StatusFound)
}

// OAuthCallback handles GET /oauth/microsoft/callback -- verifies state,
// exchanges the authorization code for a Microsoft access token, then runs
// the full Xbox Live exchange and returns the credential pair.
func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	// Read and immediately clear the state cookie to prevent replay.
	stateCookie, err := r.Cookie("__Host-oauth-state")
	if err != nil {
		logWarn(r, "oauth callback: missing state cookie")
		BadRequest(w, r, "missing oauth state")
		return
	}
	clearOAuthStateCookie(w)

	rawJSON, err := base64.RawURLEncoding.DecodeString(stateCookie.Value)
	if err != nil {
		logWarn(r, "oauth callback: bad state cookie encoding", "error", err)
		BadRequest(w, r, "invalid oauth state")
		return
	}
	var sc oauthStateCookie
	if err := json.Unmarshal(rawJSON, &sc); err != nil {
		logWarn(r, "oauth callback: bad state cookie json", "error", err)
		BadRequest(w, r, "invalid oauth state")
		return
	}

	platform, ok := parsePlatform(sc.Platform)
	if !ok {
		logWarn(r, "oauth callback: bad platform in state cookie", "platform", sc.Platform)
		BadRequest(w, r, "invalid oauth state")
		return
	}

	// Constant-time comparison prevents timing oracle on the state value.
	if subtle.ConstantTimeCompare([]byte(sc.State), []byte(r.URL.Query().Get("state"))) != 1 {
		logWarn(r, "oauth callback: state mismatch")
		Unauthorized(w, r, "invalid oauth state")
		return
	}

	accessToken, err := h.MSA.Exchange(r.Context(), r.URL.Query().Get("code"), sc.Verifier)
	if err != nil {
		logWarn(r, "oauth callback: code exchange failed", "error", err)
		Unauthorized(w, r, "microsoft authentication failed")
		return
	}

	h.completeExchange(w, r, accessToken, platform, sc.Platform)
}

// setOAuthStateCookie stores state + PKCE verifier + platform in a
// short-lived HttpOnly cookie.
func setOAuthStateCookie(w http.ResponseWriter, state, verifier, platform string) {
	payload, _ := json.Marshal(oauthStateCookie{State: state, Verifier: verifier, Platform: platform})
	http.SetCookie(w, &http.Cookie{
		Name:     "__Host-oauth-state",
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600, // 10 minutes
	})
}

// clearOAuthStateCookie expires the OAuth state cookie immediately.
func clearOAuthStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "__Host-oauth-state",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
