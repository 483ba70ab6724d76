package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chamapesa/backend/pkg/models"
)

func (s *Server) handleListNotifications(c *gin.Context) {
	var params models.NotificationListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		s.writeBindError(c, err)
		return
	}
	list, total, err := s.notificationsSvc.List(c.Request.Context(), s.currentUserID(c), params.Unread, params.Limit, params.Offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "limit": params.Limit, "offset": params.Offset})
}

func (s *Server) handleCreateNotification(c *gin.Context) {
	var req models.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}
	notification, err := s.notificationsSvc.Create(c.Request.Context(), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, notification)
}

func (s *Server) handleUnreadCount(c *gin.Context) {
	count, err := s.notificationsSvc.UnreadCount(c.Request.Context(), s.currentUserID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (s *Server) handleMarkAllRead(c *gin.Context) {
	updated, err := s.notificationsSvc.MarkAllRead(c.Request.Context(), s.currentUserID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (s *Server) handleMarkRead(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	notification, err := s.notificationsSvc.MarkRead(c.Request.Context(), s.currentUserID(c), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, notification)
}

func (s *Server) handleDeleteNotification(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	if err := s.notificationsSvc.Delete(c.Request.Context(), s.currentUserID(c), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification deleted"})
}
