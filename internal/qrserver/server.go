package qrserver

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PRASANNAPATIL12/weddingcard/internal/qrrequest"
)

// Route paths of the two endpoints.
const (
	CreatePath = "/qrserver/v1/create-qr-code/"
	StyledPath = "/qrserver/v1/styled-qr-code/"
)

// LocalBaseURL is the origin used with NewTransport.
const LocalBaseURL = "http://qrserver.local"

// Endpoints returns the endpoint pair served under base.
func Endpoints(base string) qrrequest.Endpoints {
	base = strings.TrimRight(base, "/")
	return qrrequest.Endpoints{Primary: base + CreatePath, Dots: base + StyledPath}
}

// Server holds the HTTP handlers.
type Server struct {
	logger *slog.Logger
}

// New returns a Server logging to logger, or slog.Default when nil.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{logger: logger}
}

// Register mounts both endpoints on r.
func (s *Server) Register(r gin.IRoutes) {
	r.GET(CreatePath, s.CreateQRCode)
	r.GET(StyledPath, s.StyledQRCode)
}

// CreateQRCode serves the create-qr-code contract.
func (s *Server) CreateQRCode(c *gin.Context) {
	o, err := ParseCreateQuery(c.Request.URL.Query())
	s.respond(c, o, err)
}

// StyledQRCode serves the styled-qr-code contract.
func (s *Server) StyledQRCode(c *gin.Context) {
	o, err := ParseStyledQuery(c.Request.URL.Query())
	s.respond(c, o, err)
}

func (s *Server) respond(c *gin.Context, o Options, err error) {
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	data, err := Render(o)
	if err != nil {
		s.logger.Error("qrserver: render failed", "error", err, "size", o.Width, "format", o.Format)
		status := http.StatusInternalServerError
		if errors.Is(err, ErrBadRequest) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": "Failed to generate QR code"})
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, o.Format.ContentType(), data)
}

// Handler returns a standalone handler serving both endpoints.
func (s *Server) Handler() http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery())
	s.Register(engine)
	return engine
}

// localTransport answers requests in-process. Requests for other hosts go
// to next when it is set.
type localTransport struct {
	handler http.Handler
	host    string
	next    http.RoundTripper
}

// NewTransport returns a RoundTripper that serves both endpoints without
// touching the network. Pair it with Endpoints(LocalBaseURL).
func NewTransport(logger *slog.Logger) http.RoundTripper {
	return NewRoutingTransport(logger, nil)
}

// NewRoutingTransport serves requests to LocalBaseURL in-process and sends
// everything else through next. A nil next answers every host in-process.
func NewRoutingTransport(logger *slog.Logger, next http.RoundTripper) http.RoundTripper {
	local, _ := url.Parse(LocalBaseURL)
	return &localTransport{handler: New(logger).Handler(), host: local.Host, next: next}
}

func (t *localTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.next != nil && req.URL.Host != t.host {
		return t.next.RoundTrip(req)
	}
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	rec := httptest.NewRecorder()
	inner := req.Clone(req.Context())
	inner.RequestURI = (&url.URL{Path: req.URL.Path, RawQuery: req.URL.RawQuery}).RequestURI()
	t.handler.ServeHTTP(rec, inner)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}
