// stores.go
//
// Shared mock implementations of auth.Store, auth.CredentialCache, and
// xbox.Transport. Imported by test files across packages to avoid duplicate
// mock definitions.
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jfeld-dev/janus/internal/store"
)

// MockStore implements auth.Store for tests.
// Stateful: recorded events live in Events, like a real store.
// Use *Err fields to inject errors for specific operations.
type MockStore struct {
	// Error injection -- zero value means no error.
	InsertErr error
	HealthErr error

	Events []store.ExchangeEvent

	mu sync.Mutex
}

// NewMockStore returns an empty MockStore ready for use.
func NewMockStore() *MockStore {
	return &MockStore{}
}

func (m *MockStore) InsertExchangeEvent(_ context.Context, ev store.ExchangeEvent) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.mu.Lock()
	m.Events = append(m.Events, ev)
	m.mu.Unlock()
	return nil
}

func (m *MockStore) CheckHealth(context.Context) error {
	return m.HealthErr
}

// LastEvent returns the most recently recorded event, or nil.
func (m *MockStore) LastEvent() *store.ExchangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Events) == 0 {
		return nil
	}
	ev := m.Events[len(m.Events)-1]
	return &ev
}

// MockCache implements auth.CredentialCache for tests.
// Stateful: Credentials is a map, like a real cache.
type MockCache struct {
	// Error injection -- zero value means no error.
	GetErr    error
	SetErr    error
	HealthErr error

	Credentials map[string]store.CachedCredential

	mu sync.Mutex
}

// NewMockCache returns an empty MockCache ready for use.
func NewMockCache() *MockCache {
	return &MockCache{Credentials: make(map[string]store.CachedCredential)}
}

func (m *MockCache) GetCredential(_ context.Context, key string) (*store.CachedCredential, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.Credentials[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return &cred, nil
}

func (m *MockCache) SetCredential(_ context.Context, key string, cred store.CachedCredential, _ time.Duration) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Credentials == nil {
		m.Credentials = make(map[string]store.CachedCredential)
	}
	m.Credentials[key] = cred
	return nil
}

func (m *MockCache) CheckHealth(context.Context) error {
	return m.HealthErr
}

// MockTransport implements xbox.Transport for tests. Responses and Errors
// are keyed by URL; every call is recorded in Calls.
type MockTransport struct {
	Responses map[string]any   // url -> object marshaled into out
	Errors    map[string]error // url -> error returned instead

	Calls []string // URLs in call order

	mu sync.Mutex
}

// NewMockTransport returns a MockTransport with empty script maps.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		Responses: make(map[string]any),
		Errors:    make(map[string]error),
	}
}

func (m *MockTransport) PostJSON(_ context.Context, url string, _, out any) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, url)
	m.mu.Unlock()

	if err, ok := m.Errors[url]; ok {
		return err
	}
	resp, ok := m.Responses[url]
	if !ok {
		return errors.New("no response scripted for " + url)
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
