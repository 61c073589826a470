package server

import (
	"net/http"
	"strings"

	lifecycledomain "github.com/casalist/casalist/internal/lifecycle/domain"
	"github.com/casalist/casalist/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

func (s *Server) HandleGetSession(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}

	session, err := s.lifecycleSvc.GetSession(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type decideRequest struct {
	ActorID  string `json:"actor_id" binding:"required"`
	Decision string `json:"decision" binding:"required"`
	Note     string `json:"note"`
}

func (s *Server) HandleDecide(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}
	actorID, err := parseID(req.ActorID)
	if err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}

	status, err := s.lifecycleSvc.Decide(
		c.Request.Context(),
		id,
		actorID,
		lifecycledomain.Decision(strings.ToUpper(strings.TrimSpace(req.Decision))),
		req.Note,
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (s *Server) HandleListActions(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}

	resp, err := s.lifecycleSvc.ListActions(c.Request.Context(), lifecycledomain.ListActionsRequest{
		Pagination: page,
		SessionID:  id,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
