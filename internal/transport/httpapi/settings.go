package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handler) getSettings(c *gin.Context) {
	s, err := h.settings.Get(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSettingsBody(s))
}

// replaceSettings stores the body as the complete new settings.
func (h *handler) replaceSettings(c *gin.Context) {
	var body settingsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badBody(c, err)
		return
	}
	s, err := h.settings.Replace(c.Request.Context(), body.toDomain())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSettingsBody(s))
}
