// Package audit emits structured security events over log/slog. Audit
// failures never block the request path. Signature mismatches get their own
// event type so a monitoring pipeline can separate possible forgery attempts
// from ordinary operational failures.
package audit

import (
	"log/slog"
	"time"
)

// Event types.
const (
	EventRegistration       = "register.accepted"
	EventRegistrationDenied = "register.denied"
	EventChallengeIssued    = "challenge.issued"
	EventProposalAccepted   = "proposal.accepted"
	EventProposalDenied     = "proposal.denied"
	EventSignatureMismatch  = "security.signature_mismatch"
	EventSessionIssued      = "session.issued"
)

// Event is one audit record.
type Event struct {
	Type      string
	Timestamp time.Time
	Actor     string // derived address or credential id when known
	Target    string // path, challenge id or registration id
	Reason    string // machine error code for denials, empty for accepts
}

// Emitter records audit events.
type Emitter struct {
	logger *slog.Logger
}

// NewEmitter creates an emitter. A nil logger uses slog.Default().
func NewEmitter(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{logger: logger}
}

// Emit writes the event. Signature mismatches log at Warn so they stand out
// from routine denials; everything else logs at Info.
func (e *Emitter) Emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	attrs := []any{
		"event", ev.Type,
		"actor", ev.Actor,
		"target", ev.Target,
	}
	if ev.Reason != "" {
		attrs = append(attrs, "reason", ev.Reason)
	}
	if ev.Type == EventSignatureMismatch {
		e.logger.Warn("audit", attrs...)
		return
	}
	e.logger.Info("audit", attrs...)
}
