package indexpipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/codenerd-labs/conversync/internal/indexdecision"
	"github.com/codenerd-labs/conversync/internal/model"
)

// classifyStoreError maps an error returned by vectorstore.VectorStore.Index
// into the indexdecision.ErrorKind taxonomy so ApplyFailure can decide
// whether to retry or fail permanently. Unrecognized errors default to
// ErrorKindUnknown, which IsPermanent treats as retryable.
func classifyStoreError(err error) indexdecision.ErrorKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return indexdecision.ErrorKindTimeout
	case errors.Is(err, model.ErrPermanentRemote):
		return indexdecision.ErrorKindAuthentication
	case errors.Is(err, model.ErrTransientRemote):
		return indexdecision.ErrorKindTransientNetwork
	case errors.Is(err, model.ErrNotFound):
		return indexdecision.ErrorKindFileNotFound
	case errors.Is(err, model.ErrMalformed):
		return indexdecision.ErrorKindInvalidFormat
	case errors.Is(err, model.ErrPermission):
		return indexdecision.ErrorKindAccessDenied
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such host") || strings.Contains(msg, "enotfound"):
		return indexdecision.ErrorKindDNSNotFound
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return indexdecision.ErrorKindRateLimited
	case strings.Contains(msg, "unavailable") || strings.Contains(msg, "503"):
		return indexdecision.ErrorKindServiceUnavailable
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "401") || strings.Contains(msg, "api key"):
		return indexdecision.ErrorKindAuthentication
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return indexdecision.ErrorKindTimeout
	}
	return indexdecision.ErrorKindUnknown
}
