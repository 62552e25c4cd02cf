package service

import (
	"context"
	"errors"
	"fmt"

	"campus-store/internal/dto"
	"campus-store/internal/model"
)

type ReviewRepository interface {
	Create(ctx context.Context, r *model.Review) error
	FindByOrderID(ctx context.Context, orderID string) (*model.Review, error)
}

type ReviewService struct {
	reviews ReviewRepository
	orders  *OrderService
}

func NewReviewService(r ReviewRepository, orders *OrderService) *ReviewService {
	return &ReviewService{reviews: r, orders: orders}
}

// CreateReview: una reseña por orden y solo del dueño. El duplicado se rechaza antes de mirar el pago.
func (s *ReviewService) CreateReview(ctx context.Context, actor Actor, req dto.CreateReviewRequest) (*model.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, fmt.Errorf("%w: la calificación va de 1 a 5", ErrValidation)
	}

	order, err := s.orders.GetOrder(ctx, actor, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.UserID {
		return nil, ErrForbidden
	}

	existing, err := s.reviews.FindByOrderID(ctx, req.OrderID)
	if err == nil && existing != nil {
		return nil, ErrReviewExists
	}
	if err != nil && !errors.Is(err, ErrReviewNotFound) {
		return nil, err
	}

	if !order.IsPaid {
		return nil, fmt.Errorf("%w: la orden todavía no está pagada", ErrValidation)
	}

	review := &model.Review{
		OrderID: order.ID,
		UserID:  actor.UserID,
		Rating:  req.Rating,
		Comment: req.Comment,
	}
	// El índice único cubre la carrera entre dos reseñas simultáneas.
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) GetReviewForOrder(ctx context.Context, actor Actor, orderID string) (*model.Review, error) {
	if _, err := s.orders.GetOrder(ctx, actor, orderID); err != nil {
		return nil, err
	}
	return s.reviews.FindByOrderID(ctx, orderID)
}
