package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/care-scheduler-api/pkg/assignment"
	"github.com/arnavshah/care-scheduler-api/pkg/models"
)

// Health reports backend and database status
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	tables, err := h.Store.Ping(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"backend":  "ok",
			"database": "unavailable",
			"error":    err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"backend":  "ok",
		"database": "ok",
		"tables":   tables,
	})
}

// CreateResident adds a resident
func (h *Handler) CreateResident(c *gin.Context) {
	var resident models.Resident
	if err := c.ShouldBindJSON(&resident); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.Store.CreateResident(ctx, &resident); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resident)
}

// ListResidents returns all residents
func (h *Handler) ListResidents(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	residents, err := h.Store.ListResidents(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, residents)
}

// CreateStaff adds a staff member
func (h *Handler) CreateStaff(c *gin.Context) {
	var staff models.Staff
	if err := c.ShouldBindJSON(&staff); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.Store.CreateStaff(ctx, &staff); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, staff)
}

// ListStaff returns all staff
func (h *Handler) ListStaff(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	staff, err := h.Store.ListStaff(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, staff)
}

// CreateShift adds a shift
func (h *Handler) CreateShift(c *gin.Context) {
	var shift models.Shift
	if err := c.ShouldBindJSON(&shift); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.Store.CreateShift(ctx, &shift); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, shift)
}

type shiftQuery struct {
	Date   string `form:"date" binding:"omitempty,datetime=2006-01-02"`
	Status string `form:"status" binding:"omitempty,oneof=planned published in_progress completed cancelled"`
}

// ListShifts returns shifts, optionally filtered by ?date= and ?status=
func (h *Handler) ListShifts(c *gin.Context) {
	var q shiftQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	shifts, err := h.Store.ListShifts(ctx, models.ShiftFilter{Date: q.Date, Status: models.ShiftStatus(q.Status)})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, shifts)
}

// CreateTask adds a care task
func (h *Handler) CreateTask(c *gin.Context) {
	var task models.CareTask
	if err := c.ShouldBindJSON(&task); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.Store.CreateTask(ctx, &task); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// ListTasks returns care tasks, optionally filtered by ?resident_id= and ?staff_id=
func (h *Handler) ListTasks(c *gin.Context) {
	filter := models.TaskFilter{
		ResidentID: c.Query("resident_id"),
		StaffID:    c.Query("staff_id"),
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	tasks, err := h.Store.ListTasks(ctx, filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

type taskStatusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required,oneof=pending in_progress completed missed cancelled"`
}

// UpdateTaskStatus moves a task to a new status
func (h *Handler) UpdateTaskStatus(c *gin.Context) {
	var req taskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	task, err := h.Store.UpdateTaskStatus(ctx, c.Param("id"), req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// AutoAssign fills open shifts from the stored staff, for one date or for all schedulable shifts
func (h *Handler) AutoAssign(c *gin.Context) {
	var req assignment.Request
	// An empty body plans every schedulable shift, whether or not a length was sent
	if c.Request.Body != nil {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, err)
			return
		}
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	result, err := h.Assigner.AutoAssign(ctx, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.RecordUsage(c, result.Updated, result.StaffCount)
	c.JSON(http.StatusOK, result)
}
