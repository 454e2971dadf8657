package http

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/trackify-app/trackify/internal/domain/directory"
	"github.com/trackify-app/trackify/internal/domain/inspector"
	"github.com/trackify-app/trackify/internal/domain/location"
	"github.com/trackify-app/trackify/internal/domain/session"
	"github.com/trackify-app/trackify/internal/port/outbound"
	"github.com/trackify-app/trackify/internal/service"
)

//go:embed templates/*.html
var templatesFS embed.FS

// fallbackAuthError is shown when a failed login carries no message.
const fallbackAuthError = "Something went wrong!!"

// selfViewRefresh reloads the self view on the sampling cadence.
const selfViewRefresh = 4

const (
	pageLogin      = "login"
	pageAdminLogin = "admin_login"
	pageSelf       = "self"
	pageDashboard  = "dashboard"
	pageInspector  = "inspector"
	pageMessage    = "message"
)

var pageNames = []string{pageLogin, pageAdminLogin, pageSelf, pageDashboard, pageInspector, pageMessage}

// UIDeps are the services behind the rendered views.
type UIDeps struct {
	Gate      *service.RouteGate
	Sessions  *service.SessionService
	Directory *service.DirectoryService
	Inspector *service.InspectorService
	Sampler   SamplerStatus
	Maps      outbound.MapRenderer
	// Metrics is optional; gate decisions are counted when set.
	Metrics *Metrics
}

// UIHandler renders the navigable views.
type UIHandler struct {
	deps   UIDeps
	logger *slog.Logger
	pages  map[string]*template.Template
	mux    *http.ServeMux
}

// pageData is the root object of every page template.
type pageData struct {
	Title   string
	Area    session.Area
	Session *session.Session
	Refresh int
	Content any
}

// BrandPath is where the navbar brand links to.
func (p pageData) BrandPath() string {
	if p.Session.IsAdmin() {
		return session.AreaAdmin.HomePath()
	}
	return session.AreaOrdinary.HomePath()
}

type loginView struct {
	Signup    bool
	Error     string
	FirstName string
	LastName  string
	EmailID   string
}

type selfView struct {
	Notice  string
	Current *location.PositionSample
	Map     *outbound.MapView
}

type dashboardView struct {
	Error       string
	Placeholder string
	Listing     *directory.Listing
}

type inspectorView struct {
	View      *inspector.View
	Map       *outbound.MapView
	MapTitle  string
	ClosePath string
}

type messageView struct {
	Heading string
	Text    string
	Link    string
}

// NewUIHandler parses the embedded templates.
func NewUIHandler(deps UIDeps, logger *slog.Logger) (*UIHandler, error) {
	base, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/navbar.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templatesFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("failed to parse page %s: %w", name, err)
		}
		pages[name] = t
	}

	h := &UIHandler{deps: deps, logger: logger, pages: pages}
	h.mux = h.routes()
	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *UIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *UIHandler) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Every navigation goes through the route gate.
	mux.HandleFunc("GET /", h.navigate)

	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("POST /signup", h.signup)
	mux.HandleFunc("POST /admin/login", h.adminLogin)
	mux.HandleFunc("POST /logout", h.logout)

	return mux
}

func (h *UIHandler) navigate(w http.ResponseWriter, r *http.Request) {
	d := h.deps.Gate.Resolve(r.Context(), r.URL.Path)
	if h.deps.Metrics != nil {
		h.deps.Metrics.GateDecisions.WithLabelValues(string(d.Area), d.Kind.String()).Inc()
	}

	switch d.Kind {
	case service.Redirect:
		http.Redirect(w, r, d.Target, http.StatusFound)
		return
	case service.NotFound:
		h.render(w, r, http.StatusNotFound, pageMessage, pageData{
			Title:   "Not Found",
			Area:    d.Area,
			Session: d.Session,
			Content: messageView{Heading: "Page not found", Text: "There is nothing at " + r.URL.Path + ".", Link: d.Area.HomePath()},
		})
		return
	case service.Unavailable:
		h.requestLogger(r).Warn("session state unknown, backend unavailable", "path", r.URL.Path)
		h.render(w, r, http.StatusServiceUnavailable, pageMessage, pageData{
			Title:   "Unavailable",
			Area:    d.Area,
			Content: messageView{Heading: "Tracking service unavailable", Text: "Could not reach the tracking service. Try again in a moment.", Link: r.URL.RequestURI()},
		})
		return
	}

	switch d.View {
	case service.ViewLogin:
		if h.redirectSignedIn(w, r, d) {
			return
		}
		h.renderLogin(w, r, pageLogin, http.StatusOK, loginView{Signup: r.URL.Query().Get("mode") == "signup"})
	case service.ViewAdminLogin:
		if h.redirectSignedIn(w, r, d) {
			return
		}
		h.renderLogin(w, r, pageAdminLogin, http.StatusOK, loginView{})
	case service.ViewSelf:
		h.selfPage(w, r, d)
	case service.ViewDashboard:
		h.dashboardPage(w, r, d)
	case service.ViewInspector:
		h.inspectorPage(w, r, d)
	default:
		http.NotFound(w, r)
	}
}

// redirectSignedIn sends a session that already belongs to the login's
// area to its home view.
func (h *UIHandler) redirectSignedIn(w http.ResponseWriter, r *http.Request, d service.Decision) bool {
	if d.Session == nil || !d.Area.Admits(d.Session.Role) {
		return false
	}
	http.Redirect(w, r, session.AreaOf(d.Session).HomePath(), http.StatusFound)
	return true
}

func (h *UIHandler) selfPage(w http.ResponseWriter, r *http.Request, d service.Decision) {
	view := selfView{}
	if h.deps.Sampler != nil {
		snap := h.deps.Sampler.Snapshot()
		view.Notice = snap.Notice
		if snap.Current != nil {
			view.Current = snap.Current
			if h.deps.Maps != nil {
				mv := h.deps.Maps.Render(*snap.Current, "Your Current Location")
				view.Map = &mv
			}
		}
	}

	h.render(w, r, http.StatusOK, pageSelf, pageData{
		Title:   "Live Location Tracker",
		Area:    d.Area,
		Session: d.Session,
		Refresh: selfViewRefresh,
		Content: view,
	})
}

func (h *UIHandler) dashboardPage(w http.ResponseWriter, r *http.Request, d service.Decision) {
	n := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			n = v
		}
	}
	if n < 1 {
		http.Redirect(w, r, "/admin/dashboard?page=1", http.StatusFound)
		return
	}

	view := dashboardView{Placeholder: directory.EmptyPlaceholder}
	listing, err := h.deps.Directory.FetchPage(r.Context(), n)
	switch {
	case errors.Is(err, session.ErrUnauthorized):
		http.Redirect(w, r, session.AreaAdmin.LoginPath(), http.StatusFound)
		return
	case err != nil:
		view.Error = directory.ErrorMessage
	default:
		if clamped := directory.ClampPage(n, listing.TotalPages); clamped != n && listing.TotalPages > 0 {
			http.Redirect(w, r, "/admin/dashboard?page="+strconv.Itoa(clamped), http.StatusFound)
			return
		}
		view.Listing = listing
	}

	h.render(w, r, http.StatusOK, pageDashboard, pageData{
		Title:   "Admin Dashboard",
		Area:    d.Area,
		Session: d.Session,
		Content: view,
	})
}

func (h *UIHandler) inspectorPage(w http.ResponseWriter, r *http.Request, d service.Decision) {
	userID := d.Params["userId"]
	in := h.deps.Inspector.Inspect(r.Context(), userID)
	v, err := in.View(r.Context())
	switch {
	case errors.Is(err, session.ErrUnauthorized):
		http.Redirect(w, r, session.AreaAdmin.LoginPath(), http.StatusFound)
		return
	case err != nil:
		// Client went away.
		return
	}

	closePath := "/admin/view/" + url.PathEscape(userID)
	view := inspectorView{View: v, ClosePath: closePath}
	if r.URL.Query().Get("map") != "" && v.MapAvailable() {
		mv, err := h.deps.Inspector.Map(v)
		if err == nil {
			view.Map = &mv
			name := ""
			if v.Profile.Profile != nil {
				name = v.Profile.Profile.FirstName
			}
			view.MapTitle = name + "'s Location Map"
		}
	}

	h.render(w, r, http.StatusOK, pageInspector, pageData{
		Title:   v.Title(),
		Area:    d.Area,
		Session: d.Session,
		Content: view,
	})
}

func (h *UIHandler) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	creds := outbound.Credentials{
		EmailID:  strings.TrimSpace(r.PostForm.Get("emailId")),
		Password: r.PostForm.Get("password"),
	}

	sess, err := h.deps.Sessions.Login(r.Context(), creds)
	if err != nil {
		h.renderLogin(w, r, pageLogin, http.StatusOK, loginView{EmailID: creds.EmailID, Error: authErrorMessage(err)})
		return
	}
	http.Redirect(w, r, session.AreaOf(sess).HomePath(), http.StatusSeeOther)
}

func (h *UIHandler) signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	req := outbound.SignupRequest{
		FirstName: strings.TrimSpace(r.PostForm.Get("firstName")),
		LastName:  strings.TrimSpace(r.PostForm.Get("lastName")),
		EmailID:   strings.TrimSpace(r.PostForm.Get("emailId")),
		Password:  r.PostForm.Get("password"),
	}

	if _, err := h.deps.Sessions.Signup(r.Context(), req); err != nil {
		h.renderLogin(w, r, pageLogin, http.StatusOK, loginView{
			Signup:    true,
			Error:     authErrorMessage(err),
			FirstName: req.FirstName,
			LastName:  req.LastName,
			EmailID:   req.EmailID,
		})
		return
	}
	http.Redirect(w, r, session.AreaOrdinary.HomePath(), http.StatusSeeOther)
}

func (h *UIHandler) adminLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	creds := outbound.Credentials{
		EmailID:  strings.TrimSpace(r.PostForm.Get("emailId")),
		Password: r.PostForm.Get("password"),
	}

	sess, err := h.deps.Sessions.AdminLogin(r.Context(), creds)
	if err != nil {
		h.renderLogin(w, r, pageAdminLogin, http.StatusOK, loginView{EmailID: creds.EmailID, Error: authErrorMessage(err)})
		return
	}
	http.Redirect(w, r, session.AreaOf(sess).HomePath(), http.StatusSeeOther)
}

func (h *UIHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	var area session.Area
	switch session.Area(r.PostForm.Get("area")) {
	case session.AreaAdmin:
		area = session.AreaAdmin
	case session.AreaOrdinary:
		area = session.AreaOrdinary
	}

	target := h.deps.Sessions.Logout(r.Context(), area)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *UIHandler) renderLogin(w http.ResponseWriter, r *http.Request, page string, status int, view loginView) {
	area := session.AreaOrdinary
	title := "Login"
	if view.Signup {
		title = "Sign Up"
	}
	if page == pageAdminLogin {
		area = session.AreaAdmin
		title = "Admin Login"
	}
	h.render(w, r, status, page, pageData{Title: title, Area: area, Content: view})
}

// render executes the page into a buffer so a template failure never
// produces a half-written page.
func (h *UIHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.requestLogger(r).Error("failed to render page", "page", page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// requestLogger prefers the request-scoped logger set by RequestIDMiddleware.
func (h *UIHandler) requestLogger(r *http.Request) *slog.Logger {
	if logger, ok := r.Context().Value(LoggerKey).(*slog.Logger); ok {
		return logger
	}
	return h.logger
}

// authErrorMessage is the text shown next to a rejected login or signup form.
func authErrorMessage(err error) string {
	if msg := outbound.MessageOf(err); msg != "" {
		return msg
	}
	return fallbackAuthError
}
