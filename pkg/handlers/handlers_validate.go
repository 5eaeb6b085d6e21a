package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/care-scheduler-api/pkg/models"
)

// PlanSnapshot runs the planner on a posted {shifts, staff} snapshot without touching the store
func (h *Handler) PlanSnapshot(c *gin.Context) {
	var snapshot models.Snapshot
	if err := c.ShouldBindJSON(&snapshot); err != nil {
		badRequest(c, err)
		return
	}

	plan := h.Planner.Plan(snapshot.Shifts, snapshot.Staff, nil)

	h.RecordUsage(c, len(snapshot.Shifts), len(snapshot.Staff))
	c.JSON(http.StatusOK, plan)
}

// ValidateSnapshot checks a snapshot for binding errors and duplicate ids
func (h *Handler) ValidateSnapshot(c *gin.Context) {
	var snapshot models.Snapshot
	if err := c.ShouldBindJSON(&snapshot); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	if len(snapshot.Staff) == 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "At least one staff member is required"})
		return
	}

	if len(snapshot.Shifts) == 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": "At least one shift is required"})
		return
	}

	staffIDs := make(map[string]bool)
	for _, s := range snapshot.Staff {
		if s.ID == "" {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Every staff member needs an id"})
			return
		}
		if staffIDs[s.ID] {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Duplicate staff ID: " + s.ID})
			return
		}
		staffIDs[s.ID] = true
	}

	shiftIDs := make(map[string]bool)
	for _, sh := range snapshot.Shifts {
		if sh.ID == "" {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Every shift needs an id"})
			return
		}
		if shiftIDs[sh.ID] {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Duplicate shift ID: " + sh.ID})
			return
		}
		shiftIDs[sh.ID] = true
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"stats": gin.H{
			"staff_count": len(snapshot.Staff),
			"shift_count": len(snapshot.Shifts),
		},
	})
}
