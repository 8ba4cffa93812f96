package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tthaschke-rgb/kalender/internal/service/employees"
)

func (h *handler) listEmployees(c *gin.Context) {
	rows, err := h.employees.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]employeeResponse, 0, len(rows))
	for _, e := range rows {
		out = append(out, toEmployeeResponse(e))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) getEmployee(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	e, err := h.employees.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEmployeeResponse(e))
}

func (h *handler) createEmployee(c *gin.Context) {
	var req employeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	in := employees.CreateInput{}
	if req.FirstName != nil {
		in.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		in.LastName = *req.LastName
	}
	if req.Color != nil {
		in.Color = *req.Color
	}
	if req.WeeklyHours != nil {
		in.WeeklyHours = *req.WeeklyHours
	}
	if req.Holidays != nil {
		in.Holidays = *req.Holidays
	}

	e, err := h.employees.Create(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toEmployeeResponse(e))
}

func (h *handler) updateEmployee(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req employeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	e, err := h.employees.Update(c.Request.Context(), id, employees.UpdateInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Color:       req.Color,
		WeeklyHours: req.WeeklyHours,
		Holidays:    req.Holidays,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEmployeeResponse(e))
}

func (h *handler) deleteEmployee(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.employees.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
