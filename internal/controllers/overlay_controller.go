package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"campus_wayfinder/internal/overlay"
)

// GetOverlay returns a site's floor-plan placement without the image bytes.
func (ctl *Controller) GetOverlay(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	row, err := ctl.Directory.Overlay(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"overlay":   row,
		"image_url": fmt.Sprintf("/sites/%d/overlay/image", id),
	})
}

// OverlayImage serves the floor plan rotated by its committed angle.
func (ctl *Controller) OverlayImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	load := func(ctx context.Context) ([]byte, error) {
		row, err := ctl.Directory.Overlay(ctx, id)
		if err != nil {
			return nil, err
		}
		return overlay.Render(row.Image, row.RotationDegrees)
	}

	var (
		body []byte
		err  error
	)
	if ctl.Rendered != nil {
		body, err = ctl.Rendered.GetOrLoad(c.Request.Context(), id, load)
	} else {
		body, err = load(c.Request.Context())
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", body)
}
