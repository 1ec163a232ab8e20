package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	goSessions "github.com/RKessler93/goSessions"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the validation result stored by [Guard].
func AuthResultFromContext(ctx context.Context) (*goSessions.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*goSessions.AuthResult)
	return res, ok
}

// Guard returns middleware that rejects requests whose bearer token fails
// [goSessions.Engine.ValidateAccess].
func Guard(engine *goSessions.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := goSessions.WithClientIP(r.Context(), remoteIP(r))
			res, err := engine.ValidateAccess(ctx, token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
