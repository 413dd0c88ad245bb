// Package fetch downloads and decodes images from the QR image services.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/PRASANNAPATIL12/weddingcard/internal/cache"
	"github.com/PRASANNAPATIL12/weddingcard/internal/metrics"
	"github.com/PRASANNAPATIL12/weddingcard/internal/qrrequest"
)

// DefaultMaxBytes caps a response body.
const DefaultMaxBytes = 8 << 20

// svgFallbackSize is used when an SVG carries no usable viewBox.
const svgFallbackSize = 300

// maxSVGEdge bounds the raster an SVG response is drawn onto.
const maxSVGEdge = 1000

// StatusError reports a non-2xx answer from the image service.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("image service returned %d for %s", e.StatusCode, e.URL)
}

// Options configures a Fetcher. Zero values pick sensible defaults.
type Options struct {
	Client   *http.Client
	Cache    cache.Cache
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	MaxBytes int64
}

// Fetcher performs one GET per descriptor. It never retries.
type Fetcher struct {
	client   *http.Client
	cache    cache.Cache
	metrics  *metrics.Metrics
	logger   *slog.Logger
	maxBytes int64
}

// New returns a Fetcher.
func New(opts Options) *Fetcher {
	f := &Fetcher{
		client:   opts.Client,
		cache:    opts.Cache,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		maxBytes: opts.MaxBytes,
	}
	if f.client == nil {
		f.client = NewHTTPClient(15*time.Second, 5*time.Second)
	}
	if f.cache == nil {
		f.cache = cache.Nop{}
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	if f.maxBytes <= 0 {
		f.maxBytes = DefaultMaxBytes
	}
	return f
}

// NewHTTPClient returns a pooled client whose total request time is bounded
// by timeout + connectTimeout.
func NewHTTPClient(timeout, connectTimeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout + connectTimeout,
	}
}

// Fetch downloads and decodes the image d points at.
func (f *Fetcher) Fetch(ctx context.Context, d qrrequest.Descriptor) (image.Image, error) {
	img, _, _, err := f.load(ctx, d)
	return img, err
}

// FetchBytes returns the raw response body, consulting the cache first.
// Only bodies that decode as an image are returned or cached.
func (f *Fetcher) FetchBytes(ctx context.Context, d qrrequest.Descriptor) ([]byte, string, error) {
	_, data, contentType, err := f.load(ctx, d)
	return data, contentType, err
}

// load serves d from the cache when a decodable entry exists, otherwise it
// asks the image service and caches the body once it has decoded.
func (f *Fetcher) load(ctx context.Context, d qrrequest.Descriptor) (image.Image, []byte, string, error) {
	reqURL := d.URL()
	key := cache.Key(reqURL)

	data, err := f.cache.Get(ctx, key)
	switch {
	case err == nil:
		if img, derr := Decode(data, ""); derr == nil {
			f.metrics.CacheHit(true)
			return img, data, "", nil
		}
		f.logger.Warn("fetch: discarding undecodable cache entry", "endpoint", d.Endpoint)
	case !errors.Is(err, cache.ErrMiss):
		f.logger.Warn("fetch: cache lookup failed", "error", err)
	}
	f.metrics.CacheHit(false)

	start := time.Now()
	data, contentType, err := f.get(ctx, reqURL)
	var img image.Image
	if err == nil {
		img, err = Decode(data, contentType)
		if err != nil {
			err = fmt.Errorf("decode %s: %w", d.Endpoint, err)
		}
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	f.metrics.ObserveFetch(endpointLabel(d.Endpoint), outcome, time.Since(start))
	if err != nil {
		return nil, nil, "", err
	}

	if err := f.cache.Set(ctx, key, data); err != nil {
		f.logger.Warn("fetch: cache store failed", "error", err)
	}
	return img, data, contentType, nil
}

func (f *Fetcher) get(ctx context.Context, reqURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "image/png,image/*;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, "", &StatusError{URL: reqURL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("image larger than %d bytes", f.maxBytes)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Decode turns a response body into an image. SVG documents are rasterised
// at their viewBox size; everything else goes through image.Decode.
func Decode(data []byte, contentType string) (image.Image, error) {
	if isSVG(data, contentType) {
		return decodeSVG(data)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

func isSVG(data []byte, contentType string) bool {
	if strings.HasPrefix(strings.ToLower(contentType), "image/svg") {
		return true
	}
	head := bytes.TrimSpace(data)
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(head, []byte("<svg")) ||
		(bytes.HasPrefix(head, []byte("<?xml")) && bytes.Contains(head, []byte("<svg")))
}

func decodeSVG(data []byte) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	w, h := svgRasterSize(icon.ViewBox.W, icon.ViewBox.H)
	icon.SetTarget(0, 0, float64(w), float64(h))
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)
	return rgba, nil
}

// svgRasterSize picks the raster size for a viewBox, keeping the aspect ratio
// and capping the longer edge at maxSVGEdge.
func svgRasterSize(vw, vh float64) (int, int) {
	if !(vw > 0 && vh > 0) || math.IsInf(vw, 0) || math.IsInf(vh, 0) {
		return svgFallbackSize, svgFallbackSize
	}
	if long := max(vw, vh); long > maxSVGEdge {
		vw, vh = vw*maxSVGEdge/long, vh*maxSVGEdge/long
	}
	return max(1, int(vw)), max(1, int(vh))
}

func endpointLabel(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
