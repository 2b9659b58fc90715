package http

import (
	"context"
	"crypto/subtle"
	"net/http"

	"fincycle/internal/core"
)

type contextKey string

const memberKey contextKey = "member"

// Authenticator resolves a bearer token to a workspace member.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (core.Member, error)
}

// requireMember rejects requests without a valid bearer token before any
// handler runs and stores the member in the request context.
func requireMember(auth Authenticator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, r, core.ErrUnauthorized)
			return
		}
		m, err := auth.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), memberKey, m)))
	}
}

// requireServiceKey guards internal endpoints with the shared service key
// sent as a bearer token.
func requireServiceKey(key string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if key == "" || subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
			writeError(w, r, core.ErrUnauthorized)
			return
		}
		next(w, r)
	}
}

func memberFrom(ctx context.Context) core.Member {
	m, _ := ctx.Value(memberKey).(core.Member)
	return m
}

func workspaceID(r *http.Request) string {
	return memberFrom(r.Context()).WorkspaceID
}
