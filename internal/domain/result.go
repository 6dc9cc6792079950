package domain

import "encoding/json"

// ProviderAttempt records one step of a fallback sequence. Kept only for
// logging and the audit ledger, never used to drive control flow.
type ProviderAttempt struct {
	Provider string `json:"provider"`
	Outcome  string `json:"outcome"` // "ok" or the failure message
}

// AttemptOK is the outcome value for a successful attempt.
const AttemptOK = "ok"

// Failure is the explicit error-result variant. When every provider in a
// chain fails, the pipeline produces a Failure instead of an error so that
// the output file and the reply still carry a well-formed JSON document.
type Failure struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Result is the outcome of running a message through the pipeline.
// Exactly one of Info or Failure is set.
type Result struct {
	Info     *PurchaseInfo
	Failure  *Failure
	Attempts []ProviderAttempt
}

// Failed reports whether the pipeline exhausted all providers.
func (r *Result) Failed() bool { return r.Failure != nil }

// JSON renders the result as the document that gets persisted and sent back
// to the user: either the purchase schema or the {error, message} object.
func (r *Result) JSON() string {
	var v any = r.Failure
	if r.Info != nil {
		v = r.Info
	}
	b, err := json.Marshal(v)
	if err != nil {
		// Both variants are plain structs; this cannot realistically fail.
		return `{"error":"internal","message":"cannot encode result"}`
	}
	return string(b)
}

// FailedResult builds an error-result carrying the last failure's message.
func FailedResult(what string, lastErr error, attempts []ProviderAttempt) *Result {
	msg := ""
	if lastErr != nil {
		msg = lastErr.Error()
	}
	return &Result{
		Failure:  &Failure{Error: what, Message: msg},
		Attempts: attempts,
	}
}
