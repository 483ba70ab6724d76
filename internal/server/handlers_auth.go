package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chamapesa/backend/pkg/models"
)

func (s *Server) handleRegister(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}
	resp, err := s.identitiesSvc.Register(c.Request.Context(), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}
	resp, err := s.identitiesSvc.Login(c.Request.Context(), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRefresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}
	resp, err := s.identitiesSvc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleLogout(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}
	if err := s.identitiesSvc.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "successfully logged out"})
}

func (s *Server) handleVerifyToken(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no token provided"})
		return
	}
	claims, err := s.identitiesSvc.ValidateToken(c.Request.Context(), token)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":      true,
		"user_id":    claims.Subject,
		"email":      claims.Email,
		"expires_at": claims.ExpiresAt.Unix(),
	})
}

func (s *Server) handleGetMe(c *gin.Context) {
	userID := s.currentUserID(c)

	user, err := s.identitiesSvc.GetUser(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	profile, err := s.identitiesSvc.GetProfile(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "profile": profile})
}

func (s *Server) handleUpdateMe(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}
	profile, err := s.identitiesSvc.UpdateProfile(c.Request.Context(), s.currentUserID(c), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleListProfiles(c *gin.Context) {
	var params models.PageParams
	if err := c.ShouldBindQuery(&params); err != nil {
		s.writeBindError(c, err)
		return
	}
	profiles, total, err := s.identitiesSvc.ListProfiles(c.Request.Context(), params.Limit, params.Offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": profiles, "total": total, "limit": params.Limit, "offset": params.Offset})
}

func (s *Server) handleGetProfile(c *gin.Context) {
	userID, err := pathUUID(c, "user_id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	profile, err := s.identitiesSvc.GetProfile(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	userID, err := pathUUID(c, "user_id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	// Users may only edit their own profile
	if userID != s.currentUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot edit another user's profile"})
		return
	}

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}
	profile, err := s.identitiesSvc.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
