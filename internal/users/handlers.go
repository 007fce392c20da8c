package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ageniuscoder/guffgaff/backend/internal/auth"
	"github.com/ageniuscoder/guffgaff/backend/internal/httpx"
	"github.com/ageniuscoder/guffgaff/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// OnlineLister is the read side of the presence registry.
type OnlineLister interface {
	OnlineUserIDs() []string
}

type Service struct {
	Store        *Store
	Online       OnlineLister
	Log          *slog.Logger
	JWTSecret    string
	JWTTTLMin    int
	CookieSecure bool
}

type signupReq struct {
	FullName string `json:"fullName" binding:"required,max=100"`
	Username string `json:"username" binding:"required,alphanum,min=3,max=32"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type updateProfileReq struct {
	ProfilePic string `json:"profilePic" binding:"required,max=2048"`
}

type authResp struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// RegisterPublic mounts the unauthenticated /auth routes.
func RegisterPublic(rg *gin.RouterGroup, s Service) {
	rg.POST("/signup", s.signup)
	rg.POST("/login", s.login)
	rg.POST("/logout", s.logout)
}

// RegisterProtected mounts the /auth routes that need a session.
func RegisterProtected(rg *gin.RouterGroup, s Service) {
	rg.GET("/me", s.me)
	rg.PUT("/update-profile", s.updateProfile)
}

const searchLimit = 10

// RegisterDirectory mounts the sidebar user list, user search and the
// online list.
func RegisterDirectory(messagesGroup, api *gin.RouterGroup, s Service) {
	messagesGroup.GET("/users", s.listUsers)
	api.GET("/users/search", s.searchUsers)
	api.GET("/presence", s.presence)
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return false
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s Service) setSession(c *gin.Context, u User) (string, bool) {
	tok, err := auth.NewToken(s.JWTSecret, u.ID, s.JWTTTLMin)
	if err != nil {
		s.Log.Error("token generation failed", "user", u.ID, "error", err)
		httpx.Err(c, http.StatusInternalServerError, "Token Generation Failed")
		return "", false
	}
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(auth.CookieName, tok, s.JWTTTLMin*60, "/", "", s.CookieSecure, true)
	return tok, true
}

func (s Service) signup(c *gin.Context) {
	var req signupReq
	if !bindJSON(c, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.Log.Error("Error in signup", "error", err)
		httpx.Err(c, http.StatusInternalServerError, "Internal server Error")
		return
	}
	u, err := s.Store.Create(c.Request.Context(), User{
		Username:     req.Username,
		FullName:     req.FullName,
		PasswordHash: hash,
	})
	if errors.Is(err, ErrUserExists) {
		httpx.Err(c, http.StatusConflict, "Username Already Exists")
		return
	}
	if err != nil {
		s.Log.Error("Error in signup", "error", err)
		httpx.Err(c, http.StatusInternalServerError, "Internal server Error")
		return
	}

	tok, ok := s.setSession(c, u)
	if !ok {
		return
	}
	s.Log.Info("user signed up", "user", u.ID, "username", u.Username)
	httpx.Created(c, authResp{User: u, Token: tok})
}

func (s Service) login(c *gin.Context) {
	var req loginReq
	if !bindJSON(c, &req) {
		return
	}

	u, err := s.Store.ByUsername(c.Request.Context(), req.Username)
	if errors.Is(err, ErrNotFound) {
		httpx.Err(c, http.StatusUnauthorized, "Invalid Credentials")
		return
	}
	if err != nil {
		s.Log.Error("Error in login", "error", err)
		httpx.Err(c, http.StatusInternalServerError, "Internal server Error")
		return
	}
	if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
		httpx.Err(c, http.StatusUnauthorized, "Invalid Credentials")
		return
	}

	tok, ok := s.setSession(c, u)
	if !ok {
		return
	}
	httpx.OK(c, authResp{User: u, Token: tok})
}

func (s Service) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", s.CookieSecure, true)
	httpx.OK(c, gin.H{"message": "Logout Successful"})
}

func (s Service) me(c *gin.Context) {
	u, err := s.Store.ByID(c.Request.Context(), auth.MustUserID(c))
	if errors.Is(err, ErrNotFound) {
		httpx.Err(c, http.StatusUnauthorized, "Unauthorized - User not found")
		return
	}
	if err != nil {
		s.Log.Error("Error in checkAuth", "error", err)
		httpx.Err(c, http.StatusInternalServerError, "Internal server Error")
		return
	}
	httpx.OK(c, u)
}

func (s Service) updateProfile(c *gin.Context) {
	var req updateProfileReq
	if !bindJSON(c, &req) {
		return
	}
	u, err := s.Store.UpdateProfilePic(c.Request.Context(), auth.MustUserID(c), req.ProfilePic)
	if errors.Is(err, ErrNotFound) {
		httpx.Err(c, http.StatusUnauthorized, "Unauthorized - User not found")
		return
	}
	if err != nil {
		s.Log.Error("Error in updateProfile", "error", err)
		httpx.Err(c, http.StatusInternalServerError, "Internal server Error")
		return
	}
	httpx.OK(c, u)
}

func (s Service) listUsers(c *gin.Context) {
	list, err := s.Store.ListExcept(c.Request.Context(), auth.MustUserID(c))
	if err != nil {
		s.Log.Error("Error in getUsersForSidebar", "error", err)
		httpx.Err(c, http.StatusInternalServerError, "Internal server Error")
		return
	}
	httpx.OK(c, list)
}

func (s Service) searchUsers(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		httpx.Err(c, http.StatusBadRequest, "query parameter is required")
		return
	}
	list, err := s.Store.Search(c.Request.Context(), query, auth.MustUserID(c), searchLimit)
	if err != nil {
		s.Log.Error("Error in searchUsers", "error", err)
		httpx.Err(c, http.StatusInternalServerError, "Internal server Error")
		return
	}
	httpx.OK(c, list)
}

func (s Service) presence(c *gin.Context) {
	httpx.OK(c, gin.H{"online": s.Online.OnlineUserIDs()})
}
