// transport.go -- JSON POST capability injected into the token exchange.
//
// The exchange itself never touches net/http directly; it goes through the
// Transport interface so timeouts, pooling, and retries stay the caller's
// concern and tests can substitute a fake.
package xbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transport posts a JSON body to a URL and decodes a 2xx response into out.
// A non-2xx response or a network-level failure (including context
// cancellation) returns a *TransportError carrying the status code and raw
// body where available. Implementations must be safe for concurrent use.
type Transport interface {
	PostJSON(ctx context.Context, url string, body, out any) error
}

// HTTPTransport is the production Transport over an owned *http.Client.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport returns an HTTPTransport with the given request timeout.
// A timeout of 0 disables the client-level timeout; per-call deadlines can
// still be set through the context.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{Timeout: timeout},
	}
}

// PostJSON implements Transport.
func (t *HTTPTransport) PostJSON(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	// Required by both Xbox Live auth endpoints.
	req.Header.Set("x-xbl-contract-version", "1")

	resp, err := t.client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{StatusCode: resp.StatusCode, Body: raw}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &MalformedResponseError{Endpoint: url, Err: err}
		}
	}
	return nil
}
