package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tthaschke-rgb/kalender/internal/domain"
	"github.com/tthaschke-rgb/kalender/internal/service"
	"github.com/tthaschke-rgb/kalender/internal/store"
)

type errorBody struct {
	Error                    string            `json:"error"`
	Message                  string            `json:"message"`
	Reason                   string            `json:"reason,omitempty"`
	ConflictingAppointmentID *uuid.UUID        `json:"conflictingAppointmentId,omitempty"`
	Fields                   map[string]string `json:"fields,omitempty"`
}

func (h *handler) writeError(c *gin.Context, err error) {
	var rejection *domain.Rejection
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &rejection):
		body := errorBody{Error: string(rejection.Kind), Message: rejection.Reason}
		if body.Message == "" {
			body.Message = string(rejection.Kind)
		}
		if rejection.Kind == domain.RejectEmployeeUnavailable {
			body.Reason = rejection.Reason
		}
		if rejection.ConflictingID != uuid.Nil {
			id := rejection.ConflictingID
			body.ConflictingAppointmentID = &id
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, errorBody{Error: "ValidationFailed", Message: vErr.Error(), Fields: vErr.Fields})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, errorBody{Error: "NotFound", Message: "not found"})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, errorBody{Error: "Conflict", Message: "conflicts with existing data"})
	case errors.Is(err, service.ErrBusy):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, errorBody{Error: "Busy", Message: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		h.log.Warn("request deadline exceeded", slog.String("path", c.Request.URL.Path), slog.Any("err", err))
		c.JSON(http.StatusGatewayTimeout, errorBody{Error: "Timeout", Message: "request timed out"})
	case errors.Is(err, context.Canceled):
		// Client went away; the status is only seen in the access log.
		c.Status(499)
	default:
		h.log.Error("request failed", slog.String("path", c.Request.URL.Path), slog.Any("err", err))
		c.JSON(http.StatusInternalServerError, errorBody{Error: "StorageUnavailable", Message: "storage unavailable"})
	}
}

func (h *handler) badBody(c *gin.Context, err error) {
	h.writeError(c, service.InvalidField("body", err.Error()))
}

// pathID parses the :id parameter and writes a 400 response when it is not a UUID.
func (h *handler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.writeError(c, service.InvalidField("id", "must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}
