package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

var (
	transient = ErrorClassification{Retryable: true, RecordFailure: true}
	permanent = ErrorClassification{Retryable: false, RecordFailure: true}
	ignored   = ErrorClassification{Retryable: false, RecordFailure: false}
)

// ClassifyCommon handles the cases every adapter treats alike: caller
// cancellation, an open breaker and network failures. ok is false when the
// adapter has to decide itself.
func ClassifyCommon(err error) (class ErrorClassification, ok bool) {
	if err == nil {
		return ErrorClassification{}, true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ignored, true
	}
	if IsCircuitOpen(err) {
		return transient, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return transient, true
	}
	return ErrorClassification{}, false
}

// ClassifyHTTPStatus retries throttling and upstream outages. Other client
// errors are the caller's fault and do not count against the breaker.
func ClassifyHTTPStatus(statusCode int) ErrorClassification {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return transient
	}
	if statusCode >= 400 && statusCode < 500 {
		return ignored
	}
	return permanent
}

// WrapTemporary marks err as ErrTemporary when a retry later could succeed.
func WrapTemporary(operation string, err error, classifier ErrorClassifier) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifier == nil {
		classifier = defaultClassifier
	}
	if classifier(err).Retryable || IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
