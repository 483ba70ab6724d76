package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chamapesa/backend/pkg/models"
)

func (s *Server) handleCreateGroup(c *gin.Context) {
	var req models.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}
	group, err := s.groupsSvc.CreateGroup(c.Request.Context(), s.currentUserID(c), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, group)
}

func (s *Server) handleListGroups(c *gin.Context) {
	var params models.GroupListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		s.writeBindError(c, err)
		return
	}
	list, total, err := s.groupsSvc.ListGroups(c.Request.Context(), &params)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "limit": params.Limit, "offset": params.Offset})
}

func (s *Server) handleGetGroup(c *gin.Context) {
	groupID, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	group, err := s.groupsSvc.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (s *Server) handleUpdateGroup(c *gin.Context) {
	groupID, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	var req models.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}
	group, err := s.groupsSvc.UpdateGroup(c.Request.Context(), groupID, &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (s *Server) handleDeleteGroup(c *gin.Context) {
	groupID, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	if err := s.groupsSvc.DeleteGroup(c.Request.Context(), groupID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "group deleted"})
}

func (s *Server) handleListUserGroups(c *gin.Context) {
	userID, err := pathUUID(c, "user_id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	list, err := s.groupsSvc.ListUserGroups(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (s *Server) handleAddMember(c *gin.Context) {
	groupID, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	var req models.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}

	// Joining yourself is open to any authenticated user; enrolling someone
	// else requires the group admin role.
	caller := s.currentUserID(c)
	if req.UserID != caller {
		isAdmin, err := s.groupsSvc.IsGroupAdmin(c.Request.Context(), groupID, caller)
		if err != nil {
			s.writeError(c, err)
			return
		}
		if !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "group admin access required"})
			return
		}
	}

	member, err := s.groupsSvc.AddMember(c.Request.Context(), groupID, req.UserID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

func (s *Server) handleListMembers(c *gin.Context) {
	groupID, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	list, err := s.groupsSvc.ListMembers(c.Request.Context(), groupID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (s *Server) handleUpdateMember(c *gin.Context) {
	groupID, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	memberID, err := pathUUID(c, "member_id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	var req models.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}
	member, err := s.groupsSvc.UpdateMember(c.Request.Context(), groupID, memberID, req.Status)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (s *Server) handleRemoveMember(c *gin.Context) {
	groupID, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	memberID, err := pathUUID(c, "member_id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	if err := s.groupsSvc.RemoveMember(c.Request.Context(), groupID, memberID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "member removed"})
}

func (s *Server) handleAddAdmin(c *gin.Context) {
	groupID, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	var req models.AddAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}
	if req.AssignedBy == nil {
		caller := s.currentUserID(c)
		req.AssignedBy = &caller
	}
	admin, err := s.groupsSvc.AddAdmin(c.Request.Context(), groupID, req.UserID, req.AssignedBy)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, admin)
}

func (s *Server) handleListAdmins(c *gin.Context) {
	groupID, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	list, err := s.groupsSvc.ListAdmins(c.Request.Context(), groupID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (s *Server) handleRemoveAdmin(c *gin.Context) {
	groupID, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	adminID, err := pathUUID(c, "admin_id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	if err := s.groupsSvc.RemoveAdmin(c.Request.Context(), groupID, adminID); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "admin removed"})
}

func (s *Server) handlePunishMember(c *gin.Context) {
	groupID, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	var req models.PunishMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}
	punishment, err := s.groupsSvc.PunishMember(c.Request.Context(), groupID, &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, punishment)
}

func (s *Server) handleListPunishments(c *gin.Context) {
	groupID, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	activeOnly := c.Query("active") == "true"
	list, err := s.groupsSvc.ListPunishments(c.Request.Context(), groupID, activeOnly)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (s *Server) handleResolvePunishment(c *gin.Context) {
	groupID, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	punishmentID, err := pathUUID(c, "punishment_id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	punishment, err := s.groupsSvc.ResolvePunishment(c.Request.Context(), groupID, punishmentID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, punishment)
}
