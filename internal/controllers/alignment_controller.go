package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"campus_wayfinder/internal/geo"
	"campus_wayfinder/internal/middleware"
	"campus_wayfinder/internal/overlay"
)

const maxImageBytes = 10 << 20

var errImageTooLarge = errors.New("image exceeds 10 MiB")

type boundsInput struct {
	NorthEast *geo.Point `json:"north_east" binding:"required"`
	SouthWest *geo.Point `json:"south_west" binding:"required"`
}

type rotateInput struct {
	Delta float64 `json:"delta" binding:"required"`
}

type pointInput struct {
	Latitude  *float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
}

// OpenAlignment starts an alignment session seeded from the site's
// committed overlay and locations.
func (ctl *Controller) OpenAlignment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	committed, locations, err := ctl.Directory.SessionSeed(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	s := overlay.NewSession(id, committed, locations, ctl.Geocoder)
	ctl.Sessions.Set(s.ID, s)
	logrus.WithFields(logrus.Fields{
		"session": s.ID,
		"site_id": id,
		"user_id": c.GetUint(middleware.ContextUserID),
	}).Info("alignment session opened")

	c.JSON(http.StatusCreated, gin.H{"session": s.View()})
}

func (ctl *Controller) GetAlignment(c *gin.Context) {
	s, ok := ctl.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s.View()})
}

// CloseAlignment drops the session; uncommitted edits are lost.
func (ctl *Controller) CloseAlignment(c *gin.Context) {
	s, ok := ctl.session(c)
	if !ok {
		return
	}
	ctl.Sessions.Delete(s.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Alignment session closed"})
}

// UploadImage accepts a multipart "image" file or a raw PNG/JPEG body.
func (ctl *Controller) UploadImage(c *gin.Context) {
	s, ok := ctl.session(c)
	if !ok {
		return
	}

	data, err := readImage(c)
	if errors.Is(err, errImageTooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.SetImage(data); err != nil {
		respondError(c, err)
		return
	}
	ctl.touch(s)
	c.JSON(http.StatusOK, gin.H{"session": s.View()})
}

func (ctl *Controller) RemoveImage(c *gin.Context) {
	s, ok := ctl.session(c)
	if !ok {
		return
	}
	s.ClearImage()
	ctl.touch(s)
	c.JSON(http.StatusOK, gin.H{"session": s.View()})
}

func (ctl *Controller) RotateImage(c *gin.Context) {
	s, ok := ctl.session(c)
	if !ok {
		return
	}
	var input rotateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := s.Rotate(input.Delta); err != nil {
		respondError(c, err)
		return
	}
	ctl.touch(s)
	c.JSON(http.StatusOK, gin.H{"session": s.View()})
}

// SetBounds takes the rectangle the operator drew, as any two opposite
// corners.
func (ctl *Controller) SetBounds(c *gin.Context) {
	s, ok := ctl.session(c)
	if !ok {
		return
	}
	var input boundsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.RectangleChanged(c.Request.Context(), *input.NorthEast, *input.SouthWest); err != nil {
		respondError(c, err)
		return
	}
	ctl.touch(s)
	c.JSON(http.StatusOK, gin.H{"session": s.View()})
}

// DefaultBounds drops a small box centred on the lobby.
func (ctl *Controller) DefaultBounds(c *gin.Context) {
	s, ok := ctl.session(c)
	if !ok {
		return
	}
	if err := s.PlaceDefaultBounds(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	ctl.touch(s)
	c.JSON(http.StatusOK, gin.H{"session": s.View()})
}

func (ctl *Controller) MoveAnchor(c *gin.Context) {
	s, ok := ctl.session(c)
	if !ok {
		return
	}
	anchor, err := overlay.ParseAnchor(c.Param("anchor"))
	if err != nil {
		respondError(c, err)
		return
	}
	var input pointInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := geo.Point{Latitude: *input.Latitude, Longitude: *input.Longitude}
	if err := s.AnchorMoved(c.Request.Context(), anchor, p); err != nil {
		respondError(c, err)
		return
	}
	ctl.touch(s)
	c.JSON(http.StatusOK, gin.H{"session": s.View()})
}

// CommitAlignment saves the working overlay and anchors to the site.
func (ctl *Controller) CommitAlignment(c *gin.Context) {
	s, ok := ctl.session(c)
	if !ok {
		return
	}
	if _, err := s.Commit(c.Request.Context(), ctl.Directory.SaveAlignment); err != nil {
		respondError(c, err)
		return
	}
	ctl.touch(s)
	ctl.siteChanged(s.SiteID)
	c.JSON(http.StatusOK, gin.H{"session": s.View()})
}

// CancelAlignment reverts the session to the last commit.
func (ctl *Controller) CancelAlignment(c *gin.Context) {
	s, ok := ctl.session(c)
	if !ok {
		return
	}
	s.Cancel()
	ctl.touch(s)
	c.JSON(http.StatusOK, gin.H{"session": s.View()})
}

// PreviewAlignment renders the working image at its current rotation.
func (ctl *Controller) PreviewAlignment(c *gin.Context) {
	s, ok := ctl.session(c)
	if !ok {
		return
	}
	body, err := s.Rendered()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", body)
}

func (ctl *Controller) session(c *gin.Context) (*overlay.Session, bool) {
	s, ok := ctl.Sessions.Get(c.Param("sid"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "alignment session not found"})
		return nil, false
	}
	return s, true
}

// touch extends the session's idle timeout.
func (ctl *Controller) touch(s *overlay.Session) {
	ctl.Sessions.Set(s.ID, s)
}

func readImage(c *gin.Context) ([]byte, error) {
	var r io.Reader = c.Request.Body
	if fh, err := c.FormFile("image"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageBytes {
		return nil, errImageTooLarge
	}
	if len(data) == 0 {
		return nil, errors.New("image is required")
	}
	return data, nil
}
