// Package faults decides what a failed response means for the session and
// carries out the user-facing side of that decision.
package faults

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// Tier is the authentication level an endpoint requires.
type Tier int

const (
	TierNone Tier = iota
	TierAuthenticated
	// TierPermission endpoints additionally check billing and membership.
	TierPermission
)

func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierAuthenticated:
		return "authenticated"
	case TierPermission:
		return "permission"
	default:
		return "unknown"
	}
}

// Outcome is the closed set of reactions to a failed response.
type Outcome int

const (
	OutcomeContinue Outcome = iota
	OutcomeRetryOnce
	OutcomeTerminate
	OutcomeBillingNotice
	OutcomePermissionNotice
	OutcomeOverloadNotice
)

func (o Outcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeRetryOnce:
		return "retry_once"
	case OutcomeTerminate:
		return "terminate"
	case OutcomeBillingNotice:
		return "billing_notice"
	case OutcomePermissionNotice:
		return "permission_notice"
	case OutcomeOverloadNotice:
		return "overload_notice"
	default:
		return "unknown"
	}
}

// Classify maps a failed status to an outcome. nonJSON tells whether the
// response body was something other than JSON, which is how gateway
// overload pages differ from application errors carrying the same status.
func Classify(tier Tier, status int, nonJSON bool) Outcome {
	switch status {
	case http.StatusUnauthorized:
		if tier != TierNone {
			return OutcomeRetryOnce
		}
	case http.StatusPaymentRequired:
		if tier == TierPermission {
			return OutcomeBillingNotice
		}
	case http.StatusForbidden:
		if tier == TierPermission {
			return OutcomePermissionNotice
		}
	case http.StatusBadGateway, http.StatusGatewayTimeout:
		if nonJSON {
			return OutcomeOverloadNotice
		}
	}
	return OutcomeContinue
}

// MaxPeek bounds how much of a body InspectBody buffers.
const MaxPeek = 64 << 10

// InspectBody reports whether resp carries a non-JSON body. The bytes read
// are put back, so the caller still sees the whole body. An empty body
// counts as non-JSON.
func InspectBody(resp *http.Response) bool {
	if resp.Body == nil || resp.Body == http.NoBody {
		return true
	}

	head, err := io.ReadAll(io.LimitReader(resp.Body, MaxPeek+1))
	resp.Body = &peekedBody{Reader: io.MultiReader(bytes.NewReader(head), resp.Body), Closer: resp.Body}
	if err != nil && len(head) == 0 {
		return true
	}

	trimmed := bytes.TrimSpace(head)
	if len(head) > MaxPeek {
		// too large to validate; judge by the opening byte
		return len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[')
	}
	return !json.Valid(trimmed)
}

type peekedBody struct {
	io.Reader
	io.Closer
}
