package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	sessionCookieName = "ikr_session"
	sessionHeaderName = "X-Session-Id"
)

// Session resolves the cart session id from the request, minting one when
// the client arrives without it. The id travels as a cookie; API clients
// without cookie jars can send it back via the X-Session-Id header.
func Session() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(sessionHeaderName))
			if sessionID == "" {
				if cookie, err := r.Cookie(sessionCookieName); err == nil {
					sessionID = strings.TrimSpace(cookie.Value)
				}
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     sessionCookieName,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(sessionHeaderName, sessionID)

			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
		})
	}
}
