// Package http is the network surface of a host: the player WebSocket endpoint and the
// operator REST API.
package http

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/app"
)

type RouterOptions struct {
	// PublicURL is the base players open; join links and QR codes point at it.
	PublicURL string
	// AllowedOrigins limits browser origins. Empty allows any origin.
	AllowedOrigins []string
	MessageRate    float64
	MessageBurst   int
}

// NewRouter wires the HTTP routes of a host process.
func NewRouter(games *app.GameService, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: opts.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{
				"Content-Type",
				"Upgrade",
				"Connection",
				"Sec-WebSocket-Key",
				"Sec-WebSocket-Version",
				"Sec-WebSocket-Extensions",
				"Sec-WebSocket-Protocol",
			},
			MaxAge: 12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	ws := NewWSHandler(games, originChecker(opts.AllowedOrigins), opts.MessageRate, opts.MessageBurst)
	r.GET("/ws/:code", ws.ServeWS)

	api := NewAPIHandler(games, opts.PublicURL)
	g := r.Group("/api/games")
	g.POST("", api.Create)
	g.GET("/:code", api.Get)
	g.POST("/:code/advance", api.Advance)
	g.POST("/:code/reset", api.Reset)
	g.POST("/:code/simulate/join", api.SimulateJoin)
	g.POST("/:code/simulate/answer", api.SimulateAnswer)
	g.GET("/:code/votes", api.Votes)
	g.GET("/:code/qr.png", api.QR)
	return r
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// non-browser clients send no origin
		return origin == "" || slices.Contains(allowed, origin)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	}
}
