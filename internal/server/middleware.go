package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/huarongfei/Event-Control-System/internal/match"
)

type ctxKey int

const (
	ctxKeyMatch ctxKey = iota
)

const operatorKeyHeader = "X-Operator-Key"

// matchMiddleware resolves {matchID} to its stored settings.
func matchMiddleware(store MatchStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "matchID")
			if id == "" {
				writeError(w, http.StatusNotFound, "match not found")
				return
			}

			s, err := store.GetMatch(r.Context(), id)
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "match not found")
				return
			}
			if err != nil {
				writeError(w, http.StatusInternalServerError, "loading match")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyMatch, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// operatorMiddleware guards mutating requests with a shared operator key,
// checked against a bcrypt hash. An empty hash disables the check. Safe
// methods always pass.
func operatorMiddleware(hash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get(operatorKeyHeader)
			if key == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) != nil {
				writeError(w, http.StatusUnauthorized, "invalid operator key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func matchFrom(r *http.Request) match.Settings {
	return r.Context().Value(ctxKeyMatch).(match.Settings)
}
