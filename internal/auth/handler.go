// Package auth binds the upstream proxy's identity to the request session.
// Passwords and user records live with the proxy, not here.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/shared"
	"github.com/quotedesk/quotedesk/internal/view"
)

// Config selects the identity header and the redirect targets.
type Config struct {
	UserHeader string
	LoginURL   string
	LogoutURL  string
}

// Handler wires the identity middleware and the auth endpoints.
type Handler struct {
	logger    *slog.Logger
	templates *view.Engine
	sessions  *shared.SessionManager
	csrf      *shared.CSRFManager
	cfg       Config
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, cfg Config) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UserHeader == "" {
		cfg.UserHeader = "X-Forwarded-User"
	}
	if cfg.LoginURL == "" {
		cfg.LoginURL = "/auth/required"
	}
	if cfg.LogoutURL == "" {
		cfg.LogoutURL = "/"
	}
	return &Handler{logger: logger, templates: templates, sessions: sessions, csrf: csrf, cfg: cfg}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/required", h.showRequired)
	r.Post("/logout", h.handleLogout)
}

// RequireIdentity resolves the acting user from the upstream header, falling
// back to the identity already bound to the session. Anonymous browser
// requests are redirected to the login URL; API calls get a 401 problem.
func (h *Handler) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		actor := strings.TrimSpace(r.Header.Get(h.cfg.UserHeader))
		if actor != "" && sess != nil {
			sess.SetActor(actor)
		}
		if actor == "" && sess != nil {
			actor = sess.Actor()
		}
		if actor == "" {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in through the identity proxy")
				return
			}
			http.Redirect(w, r, h.cfg.LoginURL, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

func (h *Handler) showRequired(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	var flashes []shared.FlashMessage
	if sess != nil {
		flashes = sess.PopFlashes()
	}
	data := view.TemplateData{
		Title:       "Sign-in required",
		CSRFToken:   h.csrf.Token(sess),
		Flashes:     flashes,
		CurrentPath: r.URL.Path,
		Data: map[string]any{
			"Status":  http.StatusUnauthorized,
			"Message": "Sign in through your organisation's login page to use Quotedesk.",
		},
	}
	if err := h.templates.RenderStatus(w, http.StatusUnauthorized, "pages/error.html", data); err != nil {
		h.logger.Error("render sign-in notice", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.logger.Info("sign out", slog.String("actor", sess.Actor()))
		h.sessions.Destroy(sess)
	}
	http.Redirect(w, r, h.cfg.LogoutURL, http.StatusSeeOther)
}
