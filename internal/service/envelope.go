package service

import "net/http"

// Envelope statuses. Every code path out of the dispatcher resolves to one
// of these; nothing propagates to the transport layer as an unhandled
// fault.
const (
	StatusSuccess        = "success"
	StatusSkipped        = "skipped"
	StatusError          = "error"
	StatusNotImplemented = "not_implemented"
	StatusOK             = "ok"
)

// Envelope is the uniform result shape returned to the webhook caller.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// HTTPStatus maps the envelope onto an HTTP response code: only "error" is
// a 500, everything else acknowledges the delivery with a 200.
func (e Envelope) HTTPStatus() int {
	if e.Status == StatusError {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

func errorEnvelope(msg string) Envelope {
	return Envelope{Status: StatusError, Message: msg}
}
