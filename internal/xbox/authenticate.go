// Package xbox converts a Microsoft account access token into an XSTS
// credential via the two Xbox Live auth endpoints.
//
// authenticate.go -- the exchange itself: user-token request, then XSTS
// authorization with the relying party selected per platform. The wire field
// names below are part of the upstream contract; do not rename them.
package xbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

const (
	userAuthURL = "https://user.auth.xboxlive.com/user/authenticate"
	xstsAuthURL = "https://xsts.auth.xboxlive.com/xsts/authorize"

	identityRelyingParty = "http://auth.xboxlive.com"
	javaRelyingParty     = "rp://api.minecraftservices.com/"
	bedrockRelyingParty  = "https://multiplayer.minecraft.net/"

	authMethod = "RPS"
	siteName   = "user.auth.xboxlive.com"
	sandboxID  = "RETAIL"
	tokenType  = "JWT"
)

// Platform selects which relying party the XSTS token is scoped to.
type Platform int

const (
	// PlatformJava scopes the token to the Minecraft services API.
	PlatformJava Platform = iota
	// PlatformBedrock scopes the token to the Bedrock multiplayer service.
	PlatformBedrock
)

// relyingParty returns the XSTS target URI for the platform.
func (p Platform) relyingParty() string {
	if p == PlatformBedrock {
		return bedrockRelyingParty
	}
	return javaRelyingParty
}

// Credential is the result of a successful exchange. UserHash and Token are
// only ever produced together; both are required to authenticate against the
// downstream API.
type Credential struct {
	UserHash string
	Token    string
}

type userTokenProperties struct {
	AuthMethod string `json:"AuthMethod"`
	SiteName   string `json:"SiteName"`
	RpsTicket  string `json:"RpsTicket"`
}

type userTokenRequest struct {
	Properties   userTokenProperties `json:"Properties"`
	RelyingParty string              `json:"RelyingParty"`
	TokenType    string              `json:"TokenType"`
}

type xstsProperties struct {
	SandboxID  string   `json:"SandboxId"`
	UserTokens []string `json:"UserTokens"`
}

type xstsRequest struct {
	Properties   xstsProperties `json:"Properties"`
	RelyingParty string         `json:"RelyingParty"`
	TokenType    string         `json:"TokenType"`
}

// tokenResponse covers both endpoints; only the user-token response carries
// display claims we care about.
type tokenResponse struct {
	Token         string `json:"Token"`
	DisplayClaims struct {
		XUI []struct {
			UHS string `json:"uhs"`
		} `json:"xui"`
	} `json:"DisplayClaims"`
}

// xstsDenial is the 401 payload from the XSTS endpoint. Pointer fields
// distinguish absent from empty: all four must be present for the denial to
// be treated as classified.
type xstsDenial struct {
	Identity *string `json:"Identity"`
	XErr     *int64  `json:"XErr"`
	Message  *string `json:"Message"`
	Redirect *string `json:"Redirect"`
}

// Authenticate runs the two-hop exchange: the access token buys an Xbox user
// token, which buys an XSTS token scoped to the platform's relying party.
//
// Failure surface: any step-1 failure and any step-2 status other than 401
// propagate as the transport's *TransportError untouched; a step-2 401 with
// a well-formed denial payload becomes a *SecureTokenError; a success
// response missing a required field becomes a *MalformedResponseError.
// No retries, no caching -- each call is one independent exchange.
func Authenticate(ctx context.Context, t Transport, accessToken string, platform Platform) (*Credential, error) {
	var user tokenResponse
	err := t.PostJSON(ctx, userAuthURL, userTokenRequest{
		Properties: userTokenProperties{
			AuthMethod: authMethod,
			SiteName:   siteName,
			RpsTicket:  "d=" + accessToken,
		},
		RelyingParty: identityRelyingParty,
		TokenType:    tokenType,
	}, &user)
	if err != nil {
		return nil, err
	}
	if user.Token == "" {
		return nil, &MalformedResponseError{Endpoint: userAuthURL, Missing: "Token"}
	}
	if len(user.DisplayClaims.XUI) == 0 || user.DisplayClaims.XUI[0].UHS == "" {
		return nil, &MalformedResponseError{Endpoint: userAuthURL, Missing: "DisplayClaims.xui[0].uhs"}
	}

	var xsts tokenResponse
	err = t.PostJSON(ctx, xstsAuthURL, xstsRequest{
		Properties: xstsProperties{
			SandboxID:  sandboxID,
			UserTokens: []string{user.Token},
		},
		RelyingParty: platform.relyingParty(),
		TokenType:    tokenType,
	}, &xsts)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) && te.StatusCode == http.StatusUnauthorized {
			return nil, decodeDenial(te)
		}
		return nil, err
	}
	if xsts.Token == "" {
		return nil, &MalformedResponseError{Endpoint: xstsAuthURL, Missing: "Token"}
	}

	return &Credential{
		UserHash: user.DisplayClaims.XUI[0].UHS,
		Token:    xsts.Token,
	}, nil
}

// decodeDenial turns an XSTS 401 into a *SecureTokenError, or a
// *MalformedResponseError when the body is not the expected denial payload.
func decodeDenial(te *TransportError) error {
	var d xstsDenial
	if err := json.Unmarshal(te.Body, &d); err != nil {
		return &MalformedResponseError{Endpoint: xstsAuthURL, Err: err}
	}
	if d.Identity == nil || d.XErr == nil || d.Message == nil || d.Redirect == nil {
		return &MalformedResponseError{Endpoint: xstsAuthURL, Missing: "Identity/XErr/Message/Redirect"}
	}
	return &SecureTokenError{
		Kind:        Classify(*d.XErr),
		XErr:        *d.XErr,
		Identity:    *d.Identity,
		Message:     *d.Message,
		RedirectURL: *d.Redirect,
		StatusCode:  te.StatusCode,
	}
}
