package executor

import (
	"context"
	"errors"
	"strings"
)

// Error classes reported in rotation logs.
const (
	ClassRateLimit = "rate_limit"
	ClassTimeout   = "timeout"
	ClassServer    = "server"
	ClassAuth      = "auth"
	ClassTerminal  = "terminal"
	ClassUnknown   = "unknown"
)

type statusCoder interface {
	StatusCode() int
}

// Classify labels a provider error for diagnostics. Rotation treats every
// class the same unless fast-fail is enabled.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	if errors.Is(err, ErrRateLimited) {
		return ClassRateLimit
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		switch code := sc.StatusCode(); {
		case code == 429:
			return ClassRateLimit
		case code == 408:
			return ClassTimeout
		case code == 401 || code == 403:
			return ClassAuth
		case code >= 500:
			return ClassServer
		case code >= 400:
			return ClassTerminal
		}
	}
	if errors.Is(err, ErrTerminal) {
		return ClassTerminal
	}

	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(strings.ToLower(msg), "quota") {
		return ClassRateLimit
	}
	return ClassUnknown
}
