package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tthaschke-rgb/kalender/internal/service/appointments"
)

func (h *handler) listAppointments(c *gin.Context) {
	rows, err := h.appointments.List(c.Request.Context(), appointments.ListInput{
		EmployeeID: c.Query("employeeId"),
		Date:       c.Query("date"),
		From:       c.Query("from"),
		To:         c.Query("to"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]appointmentResponse, 0, len(rows))
	for _, a := range rows {
		out = append(out, toAppointmentResponse(a))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) getAppointment(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	a, err := h.appointments.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(a))
}

func (h *handler) createAppointment(c *gin.Context) {
	var req appointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	a, err := h.appointments.Create(c.Request.Context(), appointments.CreateInput{
		EmployeeID:      req.EmployeeID,
		Date:            req.Date,
		Start:           req.Start,
		DurationMinutes: req.Duration,
		ServiceID:       req.ServiceID,
		CustomerName:    req.CustomerName,
		Phone:           req.Phone,
		Email:           req.Email,
		Notes:           req.Notes,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAppointmentResponse(a))
}

func (h *handler) updateAppointment(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req appointmentPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badBody(c, err)
		return
	}

	a, err := h.appointments.Update(c.Request.Context(), id, appointments.UpdateInput{
		EmployeeID:      req.EmployeeID,
		Date:            req.Date,
		Start:           req.Start,
		DurationMinutes: req.Duration,
		ServiceID:       req.ServiceID,
		CustomerName:    req.CustomerName,
		Phone:           req.Phone,
		Email:           req.Email,
		Notes:           req.Notes,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(a))
}

func (h *handler) deleteAppointment(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.appointments.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
