package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus_wayfinder/internal/directory"
	"campus_wayfinder/internal/models"
)

type serviceInput struct {
	Name        string   `json:"name" binding:"required"`
	Specialties []string `json:"specialties" binding:"required,min=1,dive,required"`
	Floor       []string `json:"floor" binding:"omitempty,dive,required"`
	Suite       []string `json:"suite" binding:"omitempty,dive,required"`
	Phone       string   `json:"phone"`
	Hours       string   `json:"hours"`
	BuildingID  *uint    `json:"building_id"`
}

type previewInput struct {
	Pending []directory.PendingOp `json:"pending" binding:"dive"`
}

// ListServices is the public directory: services in a building, filtered by
// ?q= and ?building=
func (ctl *Controller) ListServices(c *gin.Context) {
	services, err := ctl.Directory.Services(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      directory.Search(services, c.Query("q"), c.Query("building")),
		"buildings": directory.BuildingNames(services),
	})
}

// AdminListServices lists every service, including those without a building
func (ctl *Controller) AdminListServices(c *gin.Context) {
	services, err := ctl.Directory.Services(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": services})
}

func (ctl *Controller) CreateService(c *gin.Context) {
	var input serviceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc := models.Service{
		Name:        input.Name,
		Specialties: input.Specialties,
		Floor:       input.Floor,
		Suite:       input.Suite,
		Phone:       input.Phone,
		Hours:       input.Hours,
		BuildingID:  input.BuildingID,
	}
	if err := ctl.Directory.CreateService(c.Request.Context(), &svc); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"service": svc})
}

func (ctl *Controller) UpdateService(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var patch directory.ServicePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	svc, err := ctl.Directory.UpdateService(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"service": svc})
}

func (ctl *Controller) DeleteService(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := ctl.Directory.DeleteService(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Service deleted"})
}

// PreviewServices shows the admin table as it will look once the pending
// edits land
func (ctl *Controller) PreviewServices(c *gin.Context) {
	var input previewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	services, err := ctl.Directory.Services(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	sites, err := ctl.Directory.Sites(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	rows, err := directory.Reconcile(services, input.Pending, sites)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}
