package messages

import (
	"context"
	"errors"
	"net/http"

	"github.com/ageniuscoder/guffgaff/backend/internal/auth"
	"github.com/ageniuscoder/guffgaff/backend/internal/httpx"
	"github.com/ageniuscoder/guffgaff/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Directory tells whether a user id belongs to a registered account.
type Directory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

type handler struct {
	svc *Service
	dir Directory
}

type sendReq struct {
	Text  string `json:"text" binding:"max=5000"`
	Image string `json:"image"`
	Voice string `json:"voice"`
}

func Register(rg *gin.RouterGroup, svc *Service, dir Directory) {
	h := handler{
		svc: svc,
		dir: dir,
	}
	rg.GET("/:id", h.list)
	rg.POST("/send/:id", h.send)
}

func (h handler) list(c *gin.Context) {
	uid := auth.MustUserID(c)
	list, err := h.svc.List(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.svc.log.Error("Error in getMessages", "error", err)
		httpx.Err(c, http.StatusInternalServerError, "Internal server Error")
		return
	}
	httpx.OK(c, list)
}

func (h handler) send(c *gin.Context) {
	uid := auth.MustUserID(c)
	receiverID := c.Param("id")

	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := h.dir.Exists(c.Request.Context(), receiverID)
	if err != nil {
		h.svc.log.Error("Error in sendMessage", "error", err)
		httpx.Err(c, http.StatusInternalServerError, "Internal server Error")
		return
	}
	if !ok {
		httpx.Err(c, http.StatusNotFound, "receiver not found")
		return
	}

	m, _, err := h.svc.Send(c.Request.Context(), uid, receiverID, SendInput{
		Text:  req.Text,
		Image: req.Image,
		Voice: req.Voice,
	})
	switch {
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrSelfConversation):
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.svc.log.Error("Error in sendMessage", "error", err)
		httpx.Err(c, http.StatusInternalServerError, "Internal server Error")
		return
	}
	httpx.Created(c, m)
}
