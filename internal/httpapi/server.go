// Package httpapi exposes a running scheduler.Scheduler over HTTP: a
// snapshot endpoint, a manual step driver, and a liveness probe, built on
// the same gin middleware stack the teacher's server uses.
package httpapi

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/procsim/schedcore/internal/recorder"
	"github.com/procsim/schedcore/internal/scheduler"
	"go.uber.org/zap"
)

// Options configures the router.
type Options struct {
	Log       *zap.Logger
	Sched     scheduler.Scheduler
	Rec       *recorder.Recorder // nil disables the audit trail
	Dev       bool               // enables CORS for the local dev frontend
	RedisAddr string             // required when pause-gating sessions are enabled
}

// NewRouter builds the gin.Engine serving the scheduler control surface.
func NewRouter(opts Options) (*gin.Engine, error) {
	binding.EnableDecoderDisallowUnknownFields = true

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"127.0.0.1"})

	r.Use(gin.Recovery())

	r.Use(secure.New(secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		SSLRedirect:        false,
	}))

	if opts.Dev || os.Getenv("ENV") == "dev" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "POST"},
			AllowHeaders:     []string{"Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(zapLogger(opts.Log))

	h := &handlers{log: opts.Log, sched: opts.Sched, rec: opts.Rec, history: &decisionHistory{}}

	v1 := r.Group("/api/v1")
	v1.GET("/healthz", h.healthz)
	v1.GET("/processes", h.listProcesses)
	v1.GET("/history", h.listHistory)
	v1.POST("/step", stepGate(), h.step)

	if opts.Rec != nil {
		v1.GET("/trail", h.listTrail)
	}

	if opts.RedisAddr != "" {
		gate, err := newPauseGate(opts.Dev, opts.RedisAddr)
		if err != nil {
			return nil, err
		}
		v1.POST("/pause", gate.middleware(), requirePaused(), h.pause)
	}

	return r, nil
}

// handlers holds the dependencies every route needs.
type handlers struct {
	log   *zap.Logger
	sched scheduler.Scheduler
	rec   *recorder.Recorder

	paused  bool
	history *decisionHistory
}

func (h *handlers) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
