package conversations

import (
	"errors"
	"net/http"

	"github.com/ageniuscoder/guffgaff/backend/internal/auth"
	"github.com/ageniuscoder/guffgaff/backend/internal/httpx"
	"github.com/ageniuscoder/guffgaff/backend/internal/messages"
	"github.com/gin-gonic/gin"
)

type handler struct {
	co *Coordinator
}

func Register(rg *gin.RouterGroup, co *Coordinator) {
	h := handler{co: co}
	rg.DELETE("/conversation/:id", h.delete)
}

func (h handler) delete(c *gin.Context) {
	uid := auth.MustUserID(c)
	otherID := c.Param("id")

	out, err := h.co.RequestDelete(c.Request.Context(), uid, otherID)
	switch {
	case errors.Is(err, messages.ErrSelfConversation):
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.co.log.Error("Error in deleteConversation", "error", err)
		httpx.Err(c, http.StatusInternalServerError, "Internal server Error")
		return
	}
	httpx.OK(c, out)
}
