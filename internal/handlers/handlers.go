package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PRASANNAPATIL12/weddingcard/internal/compositor"
	"github.com/PRASANNAPATIL12/weddingcard/internal/generator"
	"github.com/PRASANNAPATIL12/weddingcard/internal/metrics"
	"github.com/PRASANNAPATIL12/weddingcard/internal/qrrequest"
	"github.com/PRASANNAPATIL12/weddingcard/internal/style"
	"github.com/PRASANNAPATIL12/weddingcard/internal/wedding"
)

// DefaultDownloadWait bounds how long a download waits for a running cycle.
const DefaultDownloadWait = 30 * time.Second

// Options holds the dependencies of the HTTP handlers.
type Options struct {
	Builder  *qrrequest.Builder
	Fetcher  generator.Fetcher
	Registry *wedding.Registry
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	// Origin is the public origin invitation links are built on.
	Origin string
	// DownloadWait bounds /download; zero means DefaultDownloadWait.
	DownloadWait time.Duration
}

// Handler serves the QR API.
type Handler struct {
	builder      *qrrequest.Builder
	registry     *wedding.Registry
	metrics      *metrics.Metrics
	logger       *slog.Logger
	origin       string
	downloadWait time.Duration

	// oneshot renders stateless requests; it never holds cycle state.
	oneshot *generator.Generator
	pool    *generatorPool
}

// New returns a Handler.
func New(opts Options) *Handler {
	h := &Handler{
		builder:      opts.Builder,
		registry:     opts.Registry,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		origin:       opts.Origin,
		downloadWait: opts.DownloadWait,
	}
	if h.builder == nil {
		h.builder = qrrequest.NewBuilder(qrrequest.Endpoints{})
	}
	if h.registry == nil {
		h.registry = wedding.NewRegistry()
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.downloadWait <= 0 {
		h.downloadWait = DefaultDownloadWait
	}
	comp := compositor.New(h.logger)
	newGen := func() *generator.Generator {
		return generator.New(generator.Options{
			Builder:    h.builder,
			Fetcher:    opts.Fetcher,
			Compositor: comp,
			Metrics:    h.metrics,
			Logger:     h.logger,
		})
	}
	h.oneshot = newGen()
	h.pool = newGeneratorPool(newGen)
	return h
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	api := r.Group("/api")
	{
		api.GET("/qr", h.QRCodeHandler)
		api.GET("/qr/request", h.QRRequest)
		api.GET("/qr/presets", h.Presets)

		w := api.Group("/weddings/:key")
		w.GET("", h.GetWedding)
		w.POST("/qr", h.TriggerWeddingQR)
		w.GET("/qr", h.WeddingQRStatus)
		w.GET("/qr/preview.png", h.WeddingQRPreview)
		w.GET("/qr/download", h.DownloadWeddingQR)
	}
}

// Close stops every generator and waits for in-flight cycles.
func (h *Handler) Close() {
	h.oneshot.Close()
	h.pool.closeAll()
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"weddings":   h.registry.Len(),
		"generators": h.pool.len(),
	})
}

// Presets lists the selectable shapes and swatch colors.
func (h *Handler) Presets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"shapes":   style.Shapes,
		"colors":   style.Presets,
		"defaults": style.DefaultSelection(),
	})
}
