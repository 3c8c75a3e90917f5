// errors.go -- Typed failures for the two-hop exchange and the XErr classifier.
package xbox

import "fmt"

// FailureKind is the classified reason an XSTS authorization was denied.
// It is a pure function of the provider's XErr code; presentation text lives
// in failureDescriptions, not in the enum.
type FailureKind int

const (
	// FailureUnknown covers every XErr code without a curated mapping.
	FailureUnknown FailureKind = iota
	// FailureNoXboxAccount -- the Microsoft account has no Xbox profile.
	FailureNoXboxAccount
	// FailureRegionNotSupported -- Xbox Live is banned or unavailable in the
	// account's country.
	FailureRegionNotSupported
	// FailureAdultVerificationRequired -- the account must complete adult
	// verification (South Korea codes).
	FailureAdultVerificationRequired
	// FailureUnderageAccountRestricted -- the account belongs to a minor and
	// must be added to a family by an adult first.
	FailureUnderageAccountRestricted
)

// String returns the stable kind name callers may log or serialize.
func (k FailureKind) String() string {
	switch k {
	case FailureNoXboxAccount:
		return "NoXboxAccount"
	case FailureRegionNotSupported:
		return "RegionNotSupported"
	case FailureAdultVerificationRequired:
		return "AdultVerificationRequired"
	case FailureUnderageAccountRestricted:
		return "UnderageAccountRestricted"
	default:
		return "Unknown"
	}
}

// failureDescriptions maps each classified kind to its caller-facing
// explanation. FailureUnknown deliberately has no entry; unknown denials
// surface the raw provider fields instead.
var failureDescriptions = map[FailureKind]string{
	FailureNoXboxAccount:             "this account has no linked Xbox profile and must create one before proceeding",
	FailureRegionNotSupported:        "the account's region does not support Xbox Live",
	FailureAdultVerificationRequired: "the account requires adult age verification before proceeding",
	FailureUnderageAccountRestricted: "the account belongs to a minor and must be added to a family by a guardian",
}

// Classify maps a provider XErr code to a FailureKind. Pure and total: any
// code outside the table, including zero and negative values, is
// FailureUnknown. The codes are defined by the provider and must not drift.
func Classify(code int64) FailureKind {
	switch code {
	case 2148916233:
		return FailureNoXboxAccount
	case 2148916235:
		return FailureRegionNotSupported
	case 2148916236, 2148916237:
		return FailureAdultVerificationRequired
	case 2148916238:
		return FailureUnderageAccountRestricted
	default:
		return FailureUnknown
	}
}

// TransportError is any network-level failure or non-2xx response that gets
// no special semantic treatment. StatusCode is 0 when the request never
// produced a response; Err holds the underlying cause (network failure,
// cancelled context) when there is one.
type TransportError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("xbox: request failed: %v", e.Err)
	}
	return fmt.Sprintf("xbox: unexpected status %d", e.StatusCode)
}

// Unwrap exposes the underlying cause so context.Canceled and
// context.DeadlineExceeded stay matchable with errors.Is.
func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError is a 2xx (or classified 401) response whose body is
// missing an expected field or cannot be decoded. It signals upstream
// protocol drift and is never silently defaulted.
type MalformedResponseError struct {
	Endpoint string
	Missing  string // the absent field, when one can be named
	Err      error  // decode error, when the body was not valid JSON
}

func (e *MalformedResponseError) Error() string {
	if e.Missing != "" {
		return fmt.Sprintf("xbox: %s response missing %s", e.Endpoint, e.Missing)
	}
	return fmt.Sprintf("xbox: %s returned a malformed response: %v", e.Endpoint, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// SecureTokenError is a classified XSTS denial: the secure-token endpoint
// answered 401 with a decodable error payload. Callers branch on Kind; the
// raw provider fields are kept alongside so nothing has to be parsed back
// out of the display string.
type SecureTokenError struct {
	Kind        FailureKind
	XErr        int64
	Identity    string
	Message     string
	RedirectURL string
	StatusCode  int
}

func (e *SecureTokenError) Error() string {
	if desc, ok := failureDescriptions[e.Kind]; ok {
		return fmt.Sprintf("%s: %s", e.Kind, desc)
	}
	return fmt.Sprintf("identity=%s xerr-%d message=%s redirect_url=%s",
		e.Identity, e.XErr, e.Message, e.RedirectURL)
}
