package folio

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// requireSecret guards an endpoint with an optional bearer secret. An empty
// secret leaves the endpoint open. With allowQuery the secret may also come
// from the "secret" query parameter, for webhook callers that cannot set
// headers. A logged-in operator always passes.
func (a *App) requireSecret(secret string, allowQuery bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" || IsOperator(c) {
				return next(c)
			}
			ip := c.RealIP()
			if !a.authLimiter.Check(ip) {
				return c.JSON(http.StatusTooManyRequests, errorBody{Error: "Too many attempts. Try again later."})
			}
			token := bearerToken(c.Request())
			if token == "" && allowQuery {
				token = c.QueryParam("secret")
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				a.authLimiter.Record(ip)
				a.log.Warn().Str("ip", ip).Str("path", c.Path()).Msg("rejected secret")
				if allowQuery {
					return c.JSON(http.StatusUnauthorized, messageBody{Message: "Invalid token"})
				}
				return c.JSON(http.StatusUnauthorized, errorBody{Error: "Unauthorized"})
			}
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get(echo.HeaderAuthorization)
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
