package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// APIPrefix is where every group except /health is mounted.
const APIPrefix = "/api"

// Group is a set of routes sharing a prefix and an auth chain. Middleware
// given to a group never runs for routes of another group.
type Group struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewGroup creates a group guarded by middleware.
func NewGroup(name, prefix string, middleware ...gin.HandlerFunc) *Group {
	return &Group{name: name, prefix: prefix, middleware: middleware}
}

// Use appends middleware to the group chain.
func (g *Group) Use(middleware ...gin.HandlerFunc) *Group {
	g.middleware = append(g.middleware, middleware...)
	return g
}

// GET registers a GET route
func (g *Group) GET(relativePath string, handlers ...gin.HandlerFunc) *Group {
	return g.add(http.MethodGet, relativePath, handlers)
}

// POST registers a POST route
func (g *Group) POST(relativePath string, handlers ...gin.HandlerFunc) *Group {
	return g.add(http.MethodPost, relativePath, handlers)
}

func (g *Group) add(method, relativePath string, handlers []gin.HandlerFunc) *Group {
	g.routes = append(g.routes, route{method: method, path: relativePath, handlers: handlers})
	return g
}

// Name returns the group name
func (g *Group) Name() string { return g.name }

// Endpoints lists "METHOD /path" for each route, relative to the mount point.
func (g *Group) Endpoints() []string {
	out := make([]string, len(g.routes))
	for i, r := range g.routes {
		out[i] = r.method + " " + path.Join(g.prefix, r.path)
	}
	return out
}

// Mount attaches groups under parent.
func Mount(parent gin.IRouter, groups ...*Group) {
	for _, g := range groups {
		rg := parent.Group(g.prefix, g.middleware...)
		for _, r := range g.routes {
			rg.Handle(r.method, r.path, r.handlers...)
		}
	}
}
