package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PRASANNAPATIL12/weddingcard/internal/style"
	"github.com/PRASANNAPATIL12/weddingcard/internal/wedding"
)

const maxURLLength = 4096

// normalizeHTTPURL validates and normalizes a URL string for QR generation.
// It ensures an http/https scheme and a non-empty host.
func normalizeHTTPURL(s string) (string, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return "", fmt.Errorf("URL parameter is required")
	}
	// If missing scheme, default to https
	if !strings.Contains(v, "://") {
		v = "https://" + v
	}
	if len(v) > maxURLLength {
		return "", fmt.Errorf("URL is too long")
	}
	u, err := url.ParseRequestURI(v)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("only http and https URLs are supported")
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL must include a valid host")
	}
	return u.String(), nil
}

// selectionFromQuery reads fg, bg and shape strictly; a bad value is an error.
func selectionFromQuery(c *gin.Context) (style.Selection, error) {
	sel := style.DefaultSelection()
	if v := c.Query("shape"); v != "" {
		id, err := style.ParseShape(v)
		if err != nil {
			return sel, err
		}
		sel = sel.WithShape(id)
	}
	if v := c.Query("fg"); v != "" {
		fg, err := style.ParseColor(v)
		if err != nil {
			return sel, err
		}
		sel = sel.WithForeground(fg)
	}
	if v := c.Query("bg"); v != "" {
		bg, err := style.ParseColor(v)
		if err != nil {
			return sel, err
		}
		sel = sel.WithBackground(bg)
	}
	return sel, nil
}

func (h *Handler) parseQRQuery(c *gin.Context) (string, style.Selection, bool) {
	target, err := normalizeHTTPURL(c.Query("url"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", style.Selection{}, false
	}
	sel, err := selectionFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", style.Selection{}, false
	}
	return target, sel, true
}

// QRRequest returns the image request a selection maps to without fetching it.
func (h *Handler) QRRequest(c *gin.Context) {
	target, sel, ok := h.parseQRQuery(c)
	if !ok {
		return
	}
	d := h.builder.BuildSelection(target, sel)
	c.JSON(http.StatusOK, gin.H{
		"target":     target,
		"selection":  sel,
		"descriptor": d,
		"url":        d.URL(),
	})
}

// QRCodeHandler builds, fetches and composites one QR code and returns it
// as PNG. With download=1 the response is sent as an attachment.
func (h *Handler) QRCodeHandler(c *gin.Context) {
	target, sel, ok := h.parseQRQuery(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.downloadWait)
	defer cancel()

	res, err := h.oneshot.Render(ctx, target, sel)
	if err != nil {
		h.logger.Warn("qr: render failed", "target", target, "shape", sel.Shape, "error", err)
		c.JSON(fetchErrorStatus(err), gin.H{"error": "Failed to generate QR code"})
		return
	}

	if c.Query("download") == "1" || c.Query("download") == "true" {
		name := c.Query("filename")
		if name == "" {
			name = wedding.DownloadFilename("", "")
		}
		setAttachment(c, name)
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", res.PNG)
}

// fetchErrorStatus maps a failed image load onto a response code.
func fetchErrorStatus(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

// setAttachment marks the response as a file download named name.
func setAttachment(c *gin.Context, name string) {
	name = strings.NewReplacer("/", "-", "\\", "-").Replace(name)
	if !strings.HasSuffix(strings.ToLower(name), ".png") {
		name += ".png"
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
}
