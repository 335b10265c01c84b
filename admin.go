package folio

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	sessionName    = "operator_session"
	sessionOperKey = "operator"
	csrfContextKey = "csrf"
	csrfFormField  = "_csrf"
)

// useOperatorSession installs the cookie session and CSRF protection for
// the operator console. Neither touches requests outside /admin.
func (a *App) useOperatorSession() {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   12 * 60 * 60,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	a.Echo.Use(session.Middleware(store))

	a.Echo.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		Skipper:        func(c echo.Context) bool { return !isAdminPath(c.Request().URL.Path) },
		ContextKey:     csrfContextKey,
		TokenLookup:    "form:" + csrfFormField + ",header:X-CSRF-Token",
		CookieName:     csrfFormField,
		CookiePath:     "/admin",
		CookieSameSite: http.SameSiteLaxMode,
		CookieSecure:   a.Config.CookieSecure,
		ErrorHandler: func(_ error, c echo.Context) error {
			return c.String(http.StatusForbidden, "Forbidden")
		},
	}))
}

// IsOperator reports whether the request carries a logged-in operator
// session. It is always false when the console is disabled.
func IsOperator(c echo.Context) bool {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return false
	}
	ok, _ := sess.Values[sessionOperKey].(bool)
	return ok
}

func saveOperatorSession(c echo.Context, loggedIn bool) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	if loggedIn {
		sess.Values[sessionOperKey] = true
	} else {
		delete(sess.Values, sessionOperKey)
		sess.Options.MaxAge = -1
	}
	return sess.Save(c.Request(), c.Response())
}

func csrfToken(c echo.Context) string {
	tok, _ := c.Get(csrfContextKey).(string)
	return tok
}

// operatorOnly sends anonymous visitors back to the login form.
func operatorOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !IsOperator(c) {
			return c.Redirect(http.StatusSeeOther, "/admin")
		}
		return next(c)
	}
}

func (a *App) handleAdmin(c echo.Context) error {
	if !IsOperator(c) {
		return Render(c, a.Views.AdminLogin(false, csrfToken(c)))
	}
	ctx := c.Request().Context()
	entries, err := a.mirror.Entries(ctx)
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminDashboard(entries, a.Projects.Get(ctx), c.QueryParam("msg"), csrfToken(c)))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.authLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	given := []byte(c.FormValue("password"))
	if subtle.ConstantTimeCompare(given, []byte(a.Config.AdminPassword)) != 1 {
		a.authLimiter.Record(ip)
		a.log.Warn().Str("ip", ip).Msg("operator login failed")
		return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(true, csrfToken(c)))
	}
	if err := saveOperatorSession(c, true); err != nil {
		return err
	}
	a.log.Info().Str("ip", ip).Msg("operator logged in")
	return c.Redirect(http.StatusSeeOther, "/admin")
}

func handleAdminLogout(c echo.Context) error {
	if err := saveOperatorSession(c, false); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin")
}

func (a *App) handleAdminSync(c echo.Context) error {
	report, err := a.SyncImages(c.Request().Context(), SyncOptions{
		Force:   c.FormValue("force") != "",
		Project: c.FormValue("project"),
	})
	if errors.Is(err, ErrNotFound) {
		return backToDashboard(c, "No matching projects.")
	}
	if err != nil {
		a.log.Error().Err(err).Msg("operator image sync")
		return backToDashboard(c, "Sync failed: "+err.Error())
	}
	return backToDashboard(c, report.Message)
}

func (a *App) handleAdminClear(c echo.Context) error {
	slug := c.Param("slug")
	if err := a.mirror.Clear(c.Request().Context(), slug); err != nil {
		return err
	}
	a.RefreshPortfolio()
	return backToDashboard(c, fmt.Sprintf("Cleared images of %s.", slug))
}

// handleAdminRefresh drops both record caches and every rendered page.
func (a *App) handleAdminRefresh(c echo.Context) error {
	a.Projects.Invalidate()
	a.Posts.Invalidate()
	a.Pages.RevalidateAll()
	a.log.Info().Msg("operator cleared every cache")
	return backToDashboard(c, "Caches cleared.")
}

func backToDashboard(c echo.Context, msg string) error {
	return c.Redirect(http.StatusSeeOther, "/admin?msg="+url.QueryEscape(msg))
}
