package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	lifecycledomain "github.com/casalist/casalist/internal/lifecycle/domain"
	listingdomain "github.com/casalist/casalist/internal/listing/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createListingRequest struct {
	OwnerID     string `json:"owner_id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	PlanID      string `json:"plan_id" binding:"required"`
	ListingDays int    `json:"listing_days" binding:"required"`
	FeeAmount   string `json:"fee_amount" binding:"required"`
}

func (s *Server) HandleCreateListing(c *gin.Context) {
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}

	ownerID, err := parseID(req.OwnerID)
	if err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}
	planID, err := parseID(req.PlanID)
	if err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}
	fee, err := decimal.NewFromString(strings.TrimSpace(req.FeeAmount))
	if err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}

	listing, err := s.lifecycleSvc.CreateListing(c.Request.Context(), lifecycledomain.CreateListingRequest{
		OwnerID:     ownerID,
		Title:       req.Title,
		PlanID:      planID,
		ListingDays: req.ListingDays,
		FeeAmount:   fee,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

func (s *Server) HandleGetListing(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}

	listing, err := s.lifecycleSvc.GetListing(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

type submitRequest struct {
	ApplicantID string `json:"applicant_id" binding:"required"`
}

func (s *Server) HandleSubmit(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}
	applicantID, err := parseID(req.ApplicantID)
	if err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}

	sessionID, err := s.lifecycleSvc.Submit(c.Request.Context(), id, applicantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": sessionID.String()})
}

type actorRequest struct {
	ActorID string `json:"actor_id" binding:"required"`
	Note    string `json:"note"`
}

func (s *Server) HandleWithdraw(c *gin.Context) {
	s.ownerAction(c, s.lifecycleSvc.Withdraw)
}

func (s *Server) HandleRequestRenewal(c *gin.Context) {
	s.ownerAction(c, s.lifecycleSvc.RequestRenewal)
}

func (s *Server) HandleForceRemove(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}
	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}
	actorID, err := parseID(req.ActorID)
	if err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}

	status, err := s.lifecycleSvc.ForceRemove(c.Request.Context(), id, actorID, req.Note)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

type contractEventRequest struct {
	Event string `json:"event" binding:"required"`
	Note  string `json:"note"`
}

func (s *Server) HandleContractEvent(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}
	var req contractEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}

	status, err := s.lifecycleSvc.ApplyContractEvent(
		c.Request.Context(),
		id,
		lifecycledomain.ContractEvent(strings.ToUpper(strings.TrimSpace(req.Event))),
		req.Note,
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (s *Server) ownerAction(c *gin.Context, fn func(ctx context.Context, listingID, ownerID snowflake.ID) (listingdomain.StatusCode, error)) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}
	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}
	actorID, err := parseID(req.ActorID)
	if err != nil {
		AbortWithError(c, lifecycledomain.ErrValidationFailed)
		return
	}

	status, err := fn(c.Request.Context(), id, actorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, lifecycledomain.ErrValidationFailed
	}
	return id, nil
}
