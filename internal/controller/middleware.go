package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/jt828/wolam/pkg/observability"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// instrument traces and times every matched route.
func (ctrl *HTTPController) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeOf(r)
		ctx, span := ctrl.tracer.Start(r.Context(), r.Method+" "+route)
		defer span.End()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			status := strconv.Itoa(rec.status)
			span.SetString("http.status_code", status)
			err := ctrl.registry.HTTPDuration.Observe(time.Since(start).Seconds(),
				observability.Label{Key: "method", Value: r.Method},
				observability.Label{Key: "route", Value: route},
				observability.Label{Key: "status", Value: status},
			)
			if err != nil {
				ctrl.log.Warn("request duration not recorded", observability.Err(err))
			}
		}()

		next.ServeHTTP(rec, r.WithContext(ctx))
	})
}

func routeOf(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}
