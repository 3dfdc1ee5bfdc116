package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
	"github.com/kirillkom/catalog-archive-analyzer/internal/infrastructure/resilience"
)

var transientNATSErrors = map[error]string{
	nats.ErrNoServers:              "no_servers",
	nats.ErrTimeout:                "timeout",
	nats.ErrConnectionClosed:       "closed",
	nats.ErrDisconnected:           "disconnected",
	nats.ErrConnectionReconnecting: "reconnecting",
}

// classifyNATSError sorts publish failures of an analysis job. Connection
// trouble is retried; a bad subject or oversized payload is a deployment
// mistake that retries cannot fix, so it is not counted against the breaker.
func classifyNATSError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Reason: "canceled"}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true, Reason: "breaker_open"}
	}
	for target, reason := range transientNATSErrors {
		if errors.Is(err, target) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true, Reason: reason}
		}
	}
	if errors.Is(err, nats.ErrConnectionDraining) {
		return resilience.ErrorClassification{Reason: "draining"}
	}
	if errors.Is(err, nats.ErrBadSubject) || errors.Is(err, nats.ErrMaxPayload) {
		return resilience.ErrorClassification{Reason: "misconfigured"}
	}
	return resilience.ErrorClassification{RecordFailure: true, Reason: "unknown"}
}

// wrapTemporaryIfNeeded marks failures after which the upload can be retried
// by the client; the HTTP layer turns them into 503.
func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	class := classifyNATSError(err)
	if class.Retryable || errors.Is(err, nats.ErrConnectionDraining) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
