package middleware

import (
	"net/http"

	"github.com/rs/zerolog"
)

func Recovery(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logger.Error().Interface("panic", v).Str("path", r.URL.Path).Msg("panic recovered")
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
