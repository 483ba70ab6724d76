package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chamapesa/backend/pkg/models"
)

func (s *Server) handleListTokens(c *gin.Context) {
	list, err := s.tokensSvc.ListTokens(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (s *Server) handleGetToken(c *gin.Context) {
	token, err := s.tokensSvc.GetToken(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

func (s *Server) handleCreateToken(c *gin.Context) {
	var req models.CreateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}
	token, err := s.tokensSvc.CreateToken(c.Request.Context(), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, token)
}

func (s *Server) handleUpdateToken(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	var req models.UpdateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}
	token, err := s.tokensSvc.UpdateToken(c.Request.Context(), id, &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, token)
}

func (s *Server) handleDeleteToken(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	if err := s.tokensSvc.DeleteToken(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token deleted"})
}

func (s *Server) handleChainStatus(c *gin.Context) {
	if s.chainClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chain integration disabled"})
		return
	}
	status, err := s.chainClient.Status(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleChainTxStatus(c *gin.Context) {
	if s.chainClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chain integration disabled"})
		return
	}
	hash := c.Param("hash")
	status, err := s.chainClient.TxStatus(c.Request.Context(), hash)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction_hash": hash, "status": status})
}

func (s *Server) handleChainSync(c *gin.Context) {
	if s.chainClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chain integration disabled"})
		return
	}
	result, err := s.chainClient.SyncGroups(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
