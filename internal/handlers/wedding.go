package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PRASANNAPATIL12/weddingcard/internal/generator"
	"github.com/PRASANNAPATIL12/weddingcard/internal/style"
	"github.com/PRASANNAPATIL12/weddingcard/internal/wedding"
)

// qrSelectionRequest is the widget payload. Empty fields keep the current
// value; invalid ones are ignored.
type qrSelectionRequest struct {
	Shape      string `json:"shape"`
	Foreground string `json:"foreground"`
	Background string `json:"background"`
}

func (h *Handler) lookupWedding(c *gin.Context) (wedding.Wedding, bool) {
	w, err := h.registry.Lookup(c.Param("key"))
	if err != nil {
		if errors.Is(err, wedding.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "wedding not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return wedding.Wedding{}, false
	}
	return w, true
}

// GetWedding returns the invitation and the link its QR code encodes.
func (h *Handler) GetWedding(c *gin.Context) {
	w, ok := h.lookupWedding(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"wedding":           w,
		"target_url":        w.TargetURL(h.origin),
		"download_filename": w.DownloadFilename(),
	})
}

// TriggerWeddingQR applies a selection change and starts a generation cycle.
func (h *Handler) TriggerWeddingQR(c *gin.Context) {
	w, ok := h.lookupWedding(c)
	if !ok {
		return
	}
	var req qrSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	gen := h.pool.get(w.Key())
	var rejected []string
	t, sel, err := gen.TriggerMerge(w.TargetURL(h.origin), style.DefaultSelection(), func(cur style.Selection) style.Selection {
		var next style.Selection
		next, rejected = cur.Merge(req.Shape, req.Foreground, req.Background)
		return next
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if len(rejected) > 0 {
		h.logger.Debug("wedding qr: ignoring invalid input", "wedding", w.Key(), "fields", rejected)
	}
	if rejected == nil {
		rejected = []string{}
	}
	c.JSON(http.StatusAccepted, gin.H{
		"token":      t.Token,
		"selection":  sel,
		"rejected":   rejected,
		"descriptor": t.Descriptor,
		"url":        t.Descriptor.URL(),
	})
}

// WeddingQRStatus reports the current cycle of the wedding's widget.
func (h *Handler) WeddingQRStatus(c *gin.Context) {
	w, ok := h.lookupWedding(c)
	if !ok {
		return
	}
	st := generator.Status{State: generator.Idle, Selection: style.DefaultSelection()}
	if gen, ok := h.pool.peek(w.Key()); ok {
		st = gen.Status()
	}
	c.JSON(http.StatusOK, gin.H{
		"wedding":    w.Key(),
		"target_url": w.TargetURL(h.origin),
		"status":     st,
	})
}

// WeddingQRPreview serves the last composited image.
func (h *Handler) WeddingQRPreview(c *gin.Context) {
	w, ok := h.lookupWedding(c)
	if !ok {
		return
	}
	gen, ok := h.pool.peek(w.Key())
	var last *generator.Result
	if ok {
		last = gen.Status().Last
	}
	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no QR code generated yet"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", last.PNG)
}

// DownloadWeddingQR waits for the current cycle and sends its image as an
// attachment. A wedding that was never styled is generated with defaults.
func (h *Handler) DownloadWeddingQR(c *gin.Context) {
	w, ok := h.lookupWedding(c)
	if !ok {
		return
	}
	gen := h.pool.get(w.Key())
	t, ok := gen.Latest()
	if !ok {
		var err error
		t, err = gen.Trigger(w.TargetURL(h.origin), style.DefaultSelection())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.downloadWait)
	defer cancel()

	png, err := awaitLatest(ctx, gen, t)
	if err != nil {
		last := gen.Status().Last
		if last == nil {
			h.logger.Warn("wedding qr: download failed", "wedding", w.Key(), "error", err)
			c.JSON(fetchErrorStatus(err), gin.H{"error": "Failed to generate QR code"})
			return
		}
		h.logger.Warn("wedding qr: serving previous image", "wedding", w.Key(), "error", err)
		c.Header("X-QR-Stale", "true")
		png = last.PNG
	}

	setAttachment(c, w.DownloadFilename())
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// awaitLatest follows superseding triggers until a cycle settles.
func awaitLatest(ctx context.Context, gen *generator.Generator, t generator.Ticket) ([]byte, error) {
	for {
		res, err := gen.Await(ctx, t)
		if !errors.Is(err, generator.ErrSuperseded) {
			if err != nil {
				return nil, err
			}
			return res.PNG, nil
		}
		next, ok := gen.Latest()
		if !ok || next.Token == t.Token {
			return nil, err
		}
		t = next
	}
}
