package interceptor

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jt828/wolam/pkg/apperror"
	"github.com/jt828/wolam/pkg/observability"
)

// HTTPError maps err to a response status and the message shown to the
// client. Unmapped errors are logged and hidden behind a generic message.
func HTTPError(log observability.Logger, route string, err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, apperror.ErrInvalidArgument), errors.Is(err, apperror.ErrInvalidLabel):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, apperror.ErrCardinalityExceeded):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, apperror.ErrUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request cancelled"
	default:
		log.Error("unhandled error", observability.Err(err), observability.String("route", route))
		return http.StatusInternalServerError, "internal server error"
	}
}

// Recover turns a panicking handler into a call of fallback.
func Recover(log observability.Logger, fallback http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic recovered",
						observability.String("panic", fmt.Sprintf("%v", rec)),
						observability.String("path", r.URL.Path),
					)
					fallback.ServeHTTP(w, r)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
