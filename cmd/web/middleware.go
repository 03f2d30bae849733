package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/justinas/nosurf"
	"github.com/myrjola/misttheater/internal/contexthelpers"
)

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "origin-when-cross-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			proto  = r.Proto
			method = r.Method
			uri    = r.URL.RequestURI()
		)

		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "received request",
			slog.String("proto", proto), slog.String("method", method), slog.String("uri", uri))

		next.ServeHTTP(w, r)
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverError(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// profile makes sure the session carries an anonymous player profile and puts it in the request context.
// Must run after the session has been loaded.
func (app *application) profile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		profileID := app.sessionManager.GetString(ctx, string(profileIDSessionKey))
		if profileID == "" {
			profileID = uuid.NewString()
			app.sessionManager.Put(ctx, string(profileIDSessionKey), profileID)
			app.logger.LogAttrs(ctx, slog.LevelInfo, "new player profile", slog.String("profile_id", profileID))
		}
		next.ServeHTTP(w, contexthelpers.SetProfileID(r, profileID))
	})
}

// existingProfile is profile for requests that cannot save the session. It rejects sessions without a profile.
func (app *application) existingProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profileID := app.sessionManager.GetString(r.Context(), string(profileIDSessionKey))
		if profileID == "" {
			app.clientError(w, r, http.StatusUnauthorized, "Load the game first.")
			return
		}
		next.ServeHTTP(w, contexthelpers.SetProfileID(r, profileID))
	})
}

// streamSession makes our session library scs work with long-lived connections such as websockets.
// Use this instead of app.sessionManager.LoadAndSave. The session is loaded but never saved.
// See https://github.com/alexedwards/scs/issues/141#issuecomment-1807075358
func (app *application) streamSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		cookie, err := r.Cookie(app.sessionManager.Cookie.Name)
		if err == nil {
			token = cookie.Value
		}
		ctx, err := app.sessionManager.Load(r.Context(), token)
		if err != nil {
			app.serverError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func commonContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = contexthelpers.SetCSRFToken(r, nosurf.Token(r))
		next.ServeHTTP(w, r)
	})
}

// noSurf implements CSRF protection using https://github.com/justinas/nosurf.
// Clients fetch a token from /api/csrf and send it in the X-CSRF-Token header.
func (app *application) noSurf(next http.Handler) http.Handler {
	csrfHandler := nosurf.New(next)
	csrfHandler.SetBaseCookie(http.Cookie{
		HttpOnly: true,
		Path:     "/",
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	csrfHandler.SetFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "csrf check failed", slog.Any("reason", nosurf.Reason(r)))
		app.clientError(w, r, http.StatusBadRequest, "The request could not be verified. Reload and try again.")
	}))

	return csrfHandler
}
