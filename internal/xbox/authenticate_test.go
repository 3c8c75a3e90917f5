// authenticate_test.go -- unit tests for the two-hop exchange over a fake Transport.
package xbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// fakeTransport scripts per-URL responses and records every request body so
// tests can assert on what the exchange actually sent.
type fakeTransport struct {
	responses map[string]any   // url -> object marshaled into out
	errs      map[string]error // url -> error returned instead
	calls     []capturedCall
}

type capturedCall struct {
	url  string
	body []byte
}

func (f *fakeTransport) PostJSON(_ context.Context, url string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	f.calls = append(f.calls, capturedCall{url: url, body: raw})
	if err, ok := f.errs[url]; ok {
		return err
	}
	resp, ok := f.responses[url]
	if !ok {
		return errors.New("fakeTransport: no response scripted for " + url)
	}
	raw, err = json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// userTokenOK is a well-formed step-1 response.
func userTokenOK(token, uhs string) map[string]any {
	return map[string]any{
		"Token": token,
		"DisplayClaims": map[string]any{
			"xui": []map[string]any{{"uhs": uhs}},
		},
	}
}

func TestAuthenticate_Success(t *testing.T) {
	ft := &fakeTransport{responses: map[string]any{
		userAuthURL: userTokenOK("XBL1", "hash1"),
		xstsAuthURL: map[string]any{"Token": "XSTS1"},
	}}

	cred, err := Authenticate(context.Background(), ft, "ms-access-token", PlatformJava)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cred.UserHash != "hash1" || cred.Token != "XSTS1" {
		t.Errorf("credential: expected {hash1 XSTS1}, got {%s %s}", cred.UserHash, cred.Token)
	}
}

func TestAuthenticate_RequestBodies(t *testing.T) {
	ft := &fakeTransport{responses: map[string]any{
		userAuthURL: userTokenOK("XBL1", "hash1"),
		xstsAuthURL: map[string]any{"Token": "XSTS1"},
	}}

	if _, err := Authenticate(context.Background(), ft, "tok", PlatformJava); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(ft.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(ft.calls))
	}

	var step1 struct {
		Properties struct {
			AuthMethod string
			SiteName   string
			RpsTicket  string
		}
		RelyingParty string
		TokenType    string
	}
	if err := json.Unmarshal(ft.calls[0].body, &step1); err != nil {
		t.Fatalf("decoding step-1 body: %v", err)
	}
	if step1.Properties.AuthMethod != "RPS" {
		t.Errorf("AuthMethod: expected RPS, got %q", step1.Properties.AuthMethod)
	}
	if step1.Properties.RpsTicket != "d=tok" {
		t.Errorf("RpsTicket: expected d=tok, got %q", step1.Properties.RpsTicket)
	}
	if step1.RelyingParty != identityRelyingParty {
		t.Errorf("RelyingParty: expected %q, got %q", identityRelyingParty, step1.RelyingParty)
	}
	if step1.TokenType != "JWT" {
		t.Errorf("TokenType: expected JWT, got %q", step1.TokenType)
	}

	var step2 struct {
		Properties struct {
			SandboxId  string
			UserTokens []string
		}
		RelyingParty string
		TokenType    string
	}
	if err := json.Unmarshal(ft.calls[1].body, &step2); err != nil {
		t.Fatalf("decoding step-2 body: %v", err)
	}
	if step2.Properties.SandboxId != "RETAIL" {
		t.Errorf("SandboxId: expected RETAIL, got %q", step2.Properties.SandboxId)
	}
	// Step-1 token must be embedded as a singleton list.
	if len(step2.Properties.UserTokens) != 1 || step2.Properties.UserTokens[0] != "XBL1" {
		t.Errorf("UserTokens: expected [XBL1], got %v", step2.Properties.UserTokens)
	}
	if step2.RelyingParty != javaRelyingParty {
		t.Errorf("RelyingParty: expected %q, got %q", javaRelyingParty, step2.RelyingParty)
	}
}

func TestAuthenticate_PlatformSelectsRelyingParty(t *testing.T) {
	for _, c := range []struct {
		platform Platform
		wantRP   string
	}{
		{PlatformJava, javaRelyingParty},
		{PlatformBedrock, bedrockRelyingParty},
	} {
		ft := &fakeTransport{responses: map[string]any{
			userAuthURL: userTokenOK("XBL1", "hash1"),
			xstsAuthURL: map[string]any{"Token": "XSTS1"},
		}}
		if _, err := Authenticate(context.Background(), ft, "tok", c.platform); err != nil {
			t.Fatalf("platform %v: expected nil error, got %v", c.platform, err)
		}
		var step2 struct{ RelyingParty string }
		if err := json.Unmarshal(ft.calls[1].body, &step2); err != nil {
			t.Fatalf("decoding step-2 body: %v", err)
		}
		if step2.RelyingParty != c.wantRP {
			t.Errorf("platform %v: expected relying party %q, got %q", c.platform, c.wantRP, step2.RelyingParty)
		}
	}
}

func TestAuthenticate_Step1TransportErrorPropagates(t *testing.T) {
	wantErr := &TransportError{StatusCode: 500, Body: []byte("boom")}
	ft := &fakeTransport{errs: map[string]error{userAuthURL: wantErr}}

	_, err := Authenticate(context.Background(), ft, "tok", PlatformJava)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %T (%v)", err, err)
	}
	if te != wantErr {
		t.Errorf("expected the step-1 error untouched, got %v", te)
	}
	if len(ft.calls) != 1 {
		t.Errorf("expected no step-2 call after step-1 failure, got %d calls", len(ft.calls))
	}
}

func TestAuthenticate_Step1MalformedResponses(t *testing.T) {
	cases := []struct {
		name string
		resp map[string]any
	}{
		{"missing Token", map[string]any{
			"DisplayClaims": map[string]any{"xui": []map[string]any{{"uhs": "h"}}},
		}},
		{"empty claims array", map[string]any{
			"Token":         "XBL1",
			"DisplayClaims": map[string]any{"xui": []map[string]any{}},
		}},
		{"missing uhs", map[string]any{
			"Token":         "XBL1",
			"DisplayClaims": map[string]any{"xui": []map[string]any{{}}},
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ft := &fakeTransport{responses: map[string]any{userAuthURL: c.resp}}
			_, err := Authenticate(context.Background(), ft, "tok", PlatformJava)
			var me *MalformedResponseError
			if !errors.As(err, &me) {
				t.Fatalf("expected *MalformedResponseError, got %T (%v)", err, err)
			}
		})
	}
}

func TestAuthenticate_XSTSDenied(t *testing.T) {
	denial := func(xerr int64) *TransportError {
		body, _ := json.Marshal(map[string]any{
			"Identity": "0",
			"XErr":     xerr,
			"Message":  "",
			"Redirect": "https://start.ui.xboxlive.com/CreateAccount",
		})
		return &TransportError{StatusCode: 401, Body: body}
	}

	t.Run("mapped XErr yields classified kind", func(t *testing.T) {
		ft := &fakeTransport{
			responses: map[string]any{userAuthURL: userTokenOK("XBL1", "hash1")},
			errs:      map[string]error{xstsAuthURL: denial(2148916233)},
		}
		_, err := Authenticate(context.Background(), ft, "tok", PlatformJava)
		var ste *SecureTokenError
		if !errors.As(err, &ste) {
			t.Fatalf("expected *SecureTokenError, got %T (%v)", err, err)
		}
		if ste.Kind != FailureNoXboxAccount {
			t.Errorf("Kind: expected NoXboxAccount, got %v", ste.Kind)
		}
		if ste.XErr != 2148916233 {
			t.Errorf("XErr: expected 2148916233, got %d", ste.XErr)
		}
		if got := ste.Error(); !strings.HasPrefix(got, "NoXboxAccount:") {
			t.Errorf("display message: expected NoXboxAccount: prefix, got %q", got)
		}
	})

	t.Run("unmapped XErr yields Unknown with raw fields kept", func(t *testing.T) {
		ft := &fakeTransport{
			responses: map[string]any{userAuthURL: userTokenOK("XBL1", "hash1")},
			errs:      map[string]error{xstsAuthURL: denial(999)},
		}
		_, err := Authenticate(context.Background(), ft, "tok", PlatformJava)
		var ste *SecureTokenError
		if !errors.As(err, &ste) {
			t.Fatalf("expected *SecureTokenError, got %T (%v)", err, err)
		}
		if ste.Kind != FailureUnknown {
			t.Errorf("Kind: expected Unknown, got %v", ste.Kind)
		}
		if ste.RedirectURL != "https://start.ui.xboxlive.com/CreateAccount" {
			t.Errorf("RedirectURL not carried through, got %q", ste.RedirectURL)
		}
	})

	t.Run("401 with incomplete payload is malformed", func(t *testing.T) {
		body, _ := json.Marshal(map[string]any{"XErr": 2148916233})
		ft := &fakeTransport{
			responses: map[string]any{userAuthURL: userTokenOK("XBL1", "hash1")},
			errs:      map[string]error{xstsAuthURL: &TransportError{StatusCode: 401, Body: body}},
		}
		_, err := Authenticate(context.Background(), ft, "tok", PlatformJava)
		var me *MalformedResponseError
		if !errors.As(err, &me) {
			t.Fatalf("expected *MalformedResponseError, got %T (%v)", err, err)
		}
	})

	t.Run("401 with non-JSON body is malformed", func(t *testing.T) {
		ft := &fakeTransport{
			responses: map[string]any{userAuthURL: userTokenOK("XBL1", "hash1")},
			errs:      map[string]error{xstsAuthURL: &TransportError{StatusCode: 401, Body: []byte("<html>")}},
		}
		_, err := Authenticate(context.Background(), ft, "tok", PlatformJava)
		var me *MalformedResponseError
		if !errors.As(err, &me) {
			t.Fatalf("expected *MalformedResponseError, got %T (%v)", err, err)
		}
	})
}

func TestAuthenticate_XSTSNon401StaysTransportError(t *testing.T) {
	// 401 is the only status with semantic meaning; 403 must pass through raw.
	wantErr := &TransportError{StatusCode: 403, Body: []byte(`{"XErr":2148916233}`)}
	ft := &fakeTransport{
		responses: map[string]any{userAuthURL: userTokenOK("XBL1", "hash1")},
		errs:      map[string]error{xstsAuthURL: wantErr},
	}
	_, err := Authenticate(context.Background(), ft, "tok", PlatformJava)

	var ste *SecureTokenError
	if errors.As(err, &ste) {
		t.Fatal("403 must never construct a SecureTokenError")
	}
	var te *TransportError
	if !errors.As(err, &te) || te != wantErr {
		t.Fatalf("expected the raw *TransportError, got %T (%v)", err, err)
	}
}

func TestAuthenticate_XSTSMissingToken(t *testing.T) {
	ft := &fakeTransport{responses: map[string]any{
		userAuthURL: userTokenOK("XBL1", "hash1"),
		xstsAuthURL: map[string]any{"NotAfter": "2026-01-01T00:00:00Z"},
	}}
	_, err := Authenticate(context.Background(), ft, "tok", PlatformJava)
	var me *MalformedResponseError
	if !errors.As(err, &me) {
		t.Fatalf("expected *MalformedResponseError, got %T (%v)", err, err)
	}
}
