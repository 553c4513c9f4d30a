package mockapi

import (
	"net/http"
	"strings"

	"practicelab/latency"
)

// Params holds the path parameters bound by a route pattern, as strings.
type Params map[string]string

// Response is what a handler produces. Body is encoded as JSON.
type Response struct {
	Status int
	Body   any
}

// HandlerFunc answers one intercepted request.
type HandlerFunc func(r *http.Request, params Params) Response

// Route binds a method and a path pattern such as /books/:id to a handler.
type Route struct {
	Name    string
	Method  string
	Pattern string
	Summary string
	Tag     string
	Latency latency.Latency
	Handler HandlerFunc

	// Statuses lists the documented response codes with a description each.
	Statuses map[int]string
	// Example is a sample request body; Required names its mandatory fields.
	Example  map[string]any
	Required []string

	segments []string
}

// ParamNames returns the names of the :param segments in order.
func (rt Route) ParamNames() []string {
	var names []string
	for _, seg := range rt.segments {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			names = append(names, name)
		}
	}
	return names
}

func (rt Route) match(segments []string) (Params, bool) {
	if len(segments) != len(rt.segments) {
		return nil, false
	}
	var params Params
	for i, seg := range rt.segments {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			if segments[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(Params)
			}
			params[name] = segments[i]
			continue
		}
		if seg != segments[i] {
			return nil, false
		}
	}
	return params, true
}

// Table is an ordered route list. The first matching route wins.
type Table struct {
	routes []Route
}

// Add registers a route after the existing ones.
func (t *Table) Add(rt Route) {
	rt.Method = strings.ToUpper(rt.Method)
	rt.segments = splitPath(rt.Pattern)
	if rt.Latency == nil {
		rt.Latency = latency.None
	}
	t.routes = append(t.routes, rt)
}

// Routes returns the registered routes in order.
func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

// Match finds the first route for method and path. path is relative to the
// base path.
func (t *Table) Match(method, path string) (Route, Params, bool) {
	segments := splitPath(path)
	for _, rt := range t.routes {
		if rt.Method != method {
			continue
		}
		if params, ok := rt.match(segments); ok {
			return rt, params, true
		}
	}
	return Route{}, nil, false
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return []string{}
	}
	return strings.Split(p, "/")
}
