package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/catalog-archive-analyzer/internal/core/domain"
	"github.com/kirillkom/catalog-archive-analyzer/internal/infrastructure/resilience"
)

// HTTPStatusError is a non-2xx answer from the classification service.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "remote classifier status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("remote %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("remote %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// MalformedResponseError means the service answered 2xx with a body that is
// not a classification result.
type MalformedResponseError struct {
	Operation string
	Err       error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.Operation, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// classifyRemoteError decides whether another attempt can still beat the local
// fallback. Only overload and transport failures are retried; anything the
// service would answer the same way again falls back immediately.
func classifyRemoteError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) {
		return resilience.ErrorClassification{Reason: "canceled"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{RecordFailure: true, Reason: "deadline"}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Reason: "breaker_open"}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		reason := "status_" + strconv.Itoa(statusErr.StatusCode)
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true, Reason: reason}
		}
		// 4xx: the service is up and rejected this archive.
		return resilience.ErrorClassification{Reason: reason}
	}

	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		return resilience.ErrorClassification{RecordFailure: true, Reason: "malformed_response"}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		reason := "network"
		if netErr.Timeout() {
			reason = "timeout"
		}
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true, Reason: reason}
	}

	return resilience.ErrorClassification{RecordFailure: true, Reason: "unknown"}
}

// wrapTemporaryIfNeeded marks failures that may succeed later. The analyze use
// case falls back on every error; the kind only matters to other callers.
func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	class := classifyRemoteError(err)
	if class.Retryable || resilience.IsCircuitOpen(err) || errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch {
	case statusCode >= http.StatusInternalServerError:
		return statusCode != http.StatusNotImplemented
	case statusCode == http.StatusRequestTimeout, statusCode == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}
