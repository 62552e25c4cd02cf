package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-store/internal/dto"
	"campus-store/internal/model"
	"campus-store/internal/service"
)

type ReviewService interface {
	CreateReview(ctx context.Context, actor service.Actor, req dto.CreateReviewRequest) (*model.Review, error)
	GetReviewForOrder(ctx context.Context, actor service.Actor, orderID string) (*model.Review, error)
}

type ReviewController struct {
	Service ReviewService
}

func NewReviewController(s ReviewService) *ReviewController {
	return &ReviewController{Service: s}
}

// POST /reviews
func (ctl *ReviewController) CreateReview(c *gin.Context) {
	var req dto.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r, err := ctl.Service.CreateReview(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// GET /orders/:orderId/review
func (ctl *ReviewController) GetReview(c *gin.Context) {
	r, err := ctl.Service.GetReviewForOrder(c.Request.Context(), actorFrom(c), c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
