package handlers

import (
	"net/http"

	"github.com/OldStager01/paas-autoscaler/pkg/models"
	"github.com/gin-gonic/gin"
)

// AppSnapshotSource is the narrow orchestrator collaborator this
// handler needs: the last-tick state of every registered app.
type AppSnapshotSource interface {
	Snapshots() []models.AppSnapshot
}

type AppHandler struct {
	orch AppSnapshotSource
}

func NewAppHandler(orch AppSnapshotSource) *AppHandler {
	return &AppHandler{orch: orch}
}

// List godoc
// @Summary List apps
// @Description Get the last-tick state of every app this process manages
// @Tags Apps
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "List of app snapshots"
// @Router /apps [get]
func (h *AppHandler) List(c *gin.Context) {
	snapshots := h.orch.Snapshots()
	c.JSON(http.StatusOK, gin.H{
		"apps":  snapshots,
		"count": len(snapshots),
	})
}

// Get godoc
// @Summary Get app
// @Description Get the last-tick state of one app by name
// @Tags Apps
// @Produce json
// @Security BearerAuth
// @Param name path string true "App name"
// @Success 200 {object} models.AppSnapshot "App snapshot"
// @Failure 404 {object} map[string]string "App not found"
// @Router /apps/{name} [get]
func (h *AppHandler) Get(c *gin.Context) {
	name := c.Param("name")
	for _, snap := range h.orch.Snapshots() {
		if snap.Name == name {
			c.JSON(http.StatusOK, snap)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "app not found"})
}
