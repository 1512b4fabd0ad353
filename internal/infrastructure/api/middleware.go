package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"shop-insights/internal/domain"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// TenantHeader selects the tenant of a request
const TenantHeader = "X-Tenant-ID"

type tenantKey struct{}

// tenantMiddleware resolves the tenant from TenantHeader, falling back to the configured default
func tenantMiddleware(defaultTenant domain.TenantID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := defaultTenant
			if raw := r.Header.Get(TenantHeader); raw != "" {
				id, err := strconv.ParseUint(raw, 10, 64)
				if err != nil || id == 0 {
					writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid " + TenantHeader + " header"})
					return
				}
				tenantID = domain.TenantID(id)
			}
			ctx := context.WithValue(r.Context(), tenantKey{}, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// tenantFrom returns the tenant resolved by tenantMiddleware
func tenantFrom(ctx context.Context) domain.TenantID {
	id, _ := ctx.Value(tenantKey{}).(domain.TenantID)
	return id
}

// requestLogger logs one structured line per request
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)

			logger.Info().
				Str("requestId", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(started)).
				Msg("HTTP request")
		})
	}
}
