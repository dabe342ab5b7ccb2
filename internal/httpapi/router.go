// Package httpapi is the HTTP surface: the three endpoints mapping to
// the role engine, wrapped in a gin-based middleware stack.
package httpapi

import (
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/evalnet/machined/internal/roleengine"
)

// NewRouter builds the gin.Engine exposing the daemon's three endpoints.
func NewRouter(log *zap.Logger, engine *roleengine.Engine) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	_ = r.SetTrustedProxies(nil)

	r.Use(gin.Recovery())

	if os.Getenv("ENV") == "dev" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"POST", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type"},
			AllowCredentials: false,
		}))
	}

	r.Use(secure.New(secure.Config{
		SSLRedirect:           false,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ContentSecurityPolicy: "default-src 'none'",
	}))

	r.Use(RequestID())
	r.Use(CapConcurrentRequests(256))
	r.Use(ZapLogger(log.Named("http")))

	s := newServer(engine)

	v0 := r.Group("/v0")
	v0.POST("/machines", s.handleNewMachine)
	v0.POST("/machines/:id/query", s.handleQuery)
	v0.POST("/machines/:id/send", s.handleSend)

	return r
}
