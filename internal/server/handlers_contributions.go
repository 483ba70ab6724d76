package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chamapesa/backend/pkg/models"
)

func (s *Server) handleCreateContribution(c *gin.Context) {
	var req models.CreateContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}
	contribution, err := s.contributionsSvc.Create(c.Request.Context(), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contribution)
}

func (s *Server) handleListContributions(c *gin.Context) {
	var params models.ContributionListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		s.writeBindError(c, err)
		return
	}
	list, total, err := s.contributionsSvc.List(c.Request.Context(), &params)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "limit": params.Limit, "offset": params.Offset})
}

func (s *Server) handleGroupContributions(c *gin.Context) {
	groupID, err := pathUUID(c, "group_id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	var params models.ContributionListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		s.writeBindError(c, err)
		return
	}
	params.GroupID = groupID.String()

	list, total, err := s.contributionsSvc.List(c.Request.Context(), &params)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "limit": params.Limit, "offset": params.Offset})
}

func (s *Server) handleGroupSummary(c *gin.Context) {
	groupID, err := pathUUID(c, "group_id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	summary, err := s.contributionsSvc.GroupSummary(c.Request.Context(), groupID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleUserContributions(c *gin.Context) {
	userID, err := pathUUID(c, "user_id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	var params models.ContributionListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		s.writeBindError(c, err)
		return
	}
	list, total, err := s.contributionsSvc.UserContributions(c.Request.Context(), userID, &params)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": total, "limit": params.Limit, "offset": params.Offset})
}

func (s *Server) handleUserOverdue(c *gin.Context) {
	userID, err := pathUUID(c, "user_id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	list, err := s.contributionsSvc.UserOverdue(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (s *Server) handleGetContribution(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	contribution, err := s.contributionsSvc.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, contribution)
}

func (s *Server) handleUpdateContribution(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	var req models.UpdateContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeBindError(c, err)
		return
	}
	contribution, err := s.contributionsSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, contribution)
}

func (s *Server) handleDeleteContribution(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	if err := s.contributionsSvc.Delete(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "contribution deleted"})
}

func (s *Server) handleMarkPaid(c *gin.Context) {
	id, err := pathUUID(c, "id")
	if err != nil {
		s.writeBindError(c, err)
		return
	}
	// Body is optional; an empty payment still settles the contribution.
	var req models.MarkPaidRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.writeBindError(c, err)
			return
		}
	}
	contribution, err := s.contributionsSvc.MarkPaid(c.Request.Context(), id, req.TransactionHash)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, contribution)
}
