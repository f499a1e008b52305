package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestMount(t *testing.T) {
	engine := gin.New()
	g := NewGroup("test", "/test")
	g.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	Mount(engine.Group(APIPrefix), g)

	w := serve(engine, http.MethodGet, "/api/test/ping")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestGroup(t *testing.T) {
	t.Run("endpoints", func(t *testing.T) {
		g := NewGroup("admin", "/admin")
		g.POST("/payments/mark").GET("/collections")

		assert.Equal(t, "admin", g.Name())
		assert.Equal(t, []string{"POST /admin/payments/mark", "GET /admin/collections"}, g.Endpoints())
	})

	t.Run("middleware runs only for its group", func(t *testing.T) {
		engine := gin.New()
		var calls int
		guarded := NewGroup("guarded", "/guarded", func(c *gin.Context) {
			calls++
			c.Next()
		})
		guarded.POST("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		open := NewGroup("open", "/open")
		open.GET("/y", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		Mount(engine, guarded, open)

		assert.Equal(t, http.StatusNoContent, serve(engine, http.MethodPost, "/guarded/x").Code)
		assert.Equal(t, http.StatusNoContent, serve(engine, http.MethodGet, "/open/y").Code)
		assert.Equal(t, 1, calls)
	})

	t.Run("use appends to the chain", func(t *testing.T) {
		engine := gin.New()
		var order []string
		g := NewGroup("chain", "/chain", func(c *gin.Context) { order = append(order, "first"); c.Next() }).
			Use(func(c *gin.Context) { order = append(order, "second"); c.Next() })
		g.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
		Mount(engine, g)

		serve(engine, http.MethodGet, "/chain/")
		assert.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("method is honoured", func(t *testing.T) {
		engine := gin.New()
		g := NewGroup("test", "/test")
		g.POST("/only-post", func(c *gin.Context) { c.Status(http.StatusOK) })
		Mount(engine, g)

		assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/test/only-post").Code)
	})
}
