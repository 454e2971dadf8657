package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/trackify-app/trackify/internal/domain/session"
)

// View names a navigable view.
type View string

const (
	ViewSelf       View = "self"
	ViewLogin      View = "login"
	ViewAdminLogin View = "admin-login"
	ViewDashboard  View = "dashboard"
	ViewInspector  View = "inspector"
)

// DecisionKind is the outcome of resolving a navigation target.
type DecisionKind int

const (
	// Render shows the view.
	Render DecisionKind = iota
	// Redirect sends the user to Decision.Target.
	Redirect
	// NotFound means no route matches.
	NotFound
	// Unavailable means the session could not be determined because the
	// backend failed; nothing is redirected and the next navigation retries.
	Unavailable
)

func (k DecisionKind) String() string {
	switch k {
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	case NotFound:
		return "not_found"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Decision tells the caller what to show for a path.
type Decision struct {
	Kind DecisionKind
	Area session.Area
	View View
	// Target is the redirect destination.
	Target string
	// Params holds path parameters, e.g. "userId".
	Params map[string]string
	// Session is the session the view renders for; nil on public views
	// when nobody is signed in.
	Session *session.Session
}

type route struct {
	view   View
	area   session.Area
	public bool
	// prefix routes take the remainder of the path as a single parameter.
	prefix string
	param  string
}

var routes = map[string]route{
	"/":                {view: ViewSelf, area: session.AreaOrdinary},
	"/login":           {view: ViewLogin, area: session.AreaOrdinary, public: true},
	"/admin/login":     {view: ViewAdminLogin, area: session.AreaAdmin, public: true},
	"/admin/dashboard": {view: ViewDashboard, area: session.AreaAdmin},
}

var prefixRoutes = []route{
	{view: ViewInspector, area: session.AreaAdmin, prefix: "/admin/view/", param: "userId"},
}

// RouteGate decides whether the cached session may view a navigation
// target. Each area is probed at most once per process; after that a
// missing session redirects straight to the area login.
type RouteGate struct {
	sessions *SessionService
	logger   *slog.Logger

	mu     sync.Mutex
	probed map[session.Area]bool
}

// NewRouteGate creates a RouteGate over sessions. Any session established
// or cleared through the store settles both areas.
func NewRouteGate(sessions *SessionService, logger *slog.Logger) *RouteGate {
	g := &RouteGate{
		sessions: sessions,
		logger:   logger,
		probed:   make(map[session.Area]bool),
	}
	sessions.Holder().Subscribe(func(session.Event) {
		g.settle()
	})
	return g
}

// settle marks every area as probed.
func (g *RouteGate) settle() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, area := range []session.Area{session.AreaOrdinary, session.AreaAdmin} {
		g.probed[area] = true
	}
}

// Resolve decides what to show for path.
func (g *RouteGate) Resolve(ctx context.Context, path string) Decision {
	r, params, ok := match(path)
	if !ok {
		return Decision{Kind: NotFound, Area: session.AreaForPath(path)}
	}

	d := Decision{Area: r.area, View: r.view, Params: params}

	if r.public {
		if cur, ok := g.sessions.Current(); ok {
			d.Session = &cur
		}
		d.Kind = Render
		return d
	}

	cur, err := g.sessionFor(ctx, r.area)
	switch {
	case errors.Is(err, session.ErrUnauthorized):
		return g.redirect(d, r.area.LoginPath())
	case err != nil:
		d.Kind = Unavailable
		return d
	}

	if !r.area.Admits(cur.Role) {
		g.logger.Debug("role not admitted to area",
			"user_id", cur.UserID,
			"role", cur.Role,
			"area", r.area,
		)
		return g.redirect(d, r.area.LoginPath())
	}

	d.Kind = Render
	d.Session = cur
	return d
}

// sessionFor returns the cached session, probing the area the first time
// it is entered without one. ErrUnauthorized means "go to login"; any other
// error means the probe failed and the area stays unprobed.
func (g *RouteGate) sessionFor(ctx context.Context, area session.Area) (*session.Session, error) {
	if cur, ok := g.sessions.Current(); ok {
		return &cur, nil
	}

	g.mu.Lock()
	probed := g.probed[area]
	g.mu.Unlock()
	if probed {
		return nil, session.ErrUnauthorized
	}

	got, err := g.sessions.Probe(ctx, area)
	if err != nil && !errors.Is(err, session.ErrUnauthorized) {
		return nil, err
	}

	g.mu.Lock()
	g.probed[area] = true
	g.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return got, nil
}

// Probed reports whether area has already been probed.
func (g *RouteGate) Probed(area session.Area) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.probed[area]
}

func (g *RouteGate) redirect(d Decision, target string) Decision {
	d.Kind = Redirect
	d.Target = target
	d.Session = nil
	return d
}

func match(path string) (route, map[string]string, bool) {
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if r, ok := routes[path]; ok {
		return r, nil, true
	}
	for _, r := range prefixRoutes {
		rest, ok := strings.CutPrefix(path, r.prefix)
		if !ok || rest == "" || strings.Contains(rest, "/") {
			continue
		}
		return r, map[string]string{r.param: rest}, true
	}
	return route{}, nil, false
}
