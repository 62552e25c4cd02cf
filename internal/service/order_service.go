package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"campus-store/internal/dto"
	"campus-store/internal/model"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Interfaz que debe implementar repository
type OrderRepository interface {
	Create(ctx context.Context, o *model.Order) error
	FindByID(ctx context.Context, orderID string) (*model.Order, error)
	FindByUserID(ctx context.Context, userID string) ([]*model.Order, error)
	FindAll(ctx context.Context) ([]*model.Order, error)
	MarkPaid(ctx context.Context, orderID string, paidAt time.Time, result model.PaymentResult) (*model.Order, error)
	MarkPaymentFailed(ctx context.Context, orderID string, result model.PaymentResult) error
	SetCheckoutRequest(ctx context.Context, orderID, checkoutRequestID string) error
	MarkDelivered(ctx context.Context, orderID string, deliveredAt time.Time) (*model.Order, error)
}

type ProductCatalog interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Product, error)
}

type EventPublisher interface {
	PublishOrderPaid(ctx context.Context, evt dto.OrderPaidEvent) error
}

type OrderService struct {
	repo        OrderRepository
	catalog     ProductCatalog
	publisher   EventPublisher
	deliveryFee decimal.Decimal
	now         func() time.Time
}

// publisher puede ser nil si RabbitMQ no está configurado.
func NewOrderService(r OrderRepository, c ProductCatalog, p EventPublisher, deliveryFee decimal.Decimal) *OrderService {
	return &OrderService{
		repo:        r,
		catalog:     c,
		publisher:   p,
		deliveryFee: deliveryFee,
		now:         time.Now,
	}
}

// PlaceOrder valida el carrito, copia los datos del catálogo y recalcula el total en el servidor.
// La orden se crea siempre sin pagar.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, req dto.PlaceOrderRequest) (*model.Order, error) {
	if len(req.OrderItems) == 0 {
		return nil, fmt.Errorf("%w: el carrito está vacío", ErrValidation)
	}
	if strings.TrimSpace(req.DeliveryLocation) == "" {
		return nil, fmt.Errorf("%w: falta el lugar de entrega", ErrValidation)
	}

	ids := make([]string, 0, len(req.OrderItems))
	for _, it := range req.OrderItems {
		if it.Qty < 1 {
			return nil, fmt.Errorf("%w: cantidad inválida para %s", ErrValidation, it.ProductID)
		}
		ids = append(ids, it.ProductID)
	}

	products, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]model.OrderItem, 0, len(req.OrderItems))
	total := s.deliveryFee
	for _, it := range req.OrderItems {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: producto %s no existe", ErrValidation, it.ProductID)
		}
		total = total.Add(decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(it.Qty))))
		items = append(items, model.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Qty:       it.Qty,
			Price:     p.Price,
			Image:     p.Image,
		})
	}
	total = total.Round(2)

	// totalPrice es opcional; si viene, tiene que coincidir con lo calculado.
	if req.TotalPrice != 0 && !decimal.NewFromFloat(req.TotalPrice).Round(2).Equal(total) {
		return nil, fmt.Errorf("%w: el total enviado (%v) no coincide con %s", ErrValidation, req.TotalPrice, total.StringFixed(2))
	}

	order := &model.Order{
		UserID:           userID,
		OrderItems:       items,
		DeliveryLocation: strings.TrimSpace(req.DeliveryLocation),
		TotalPrice:       total.InexactFloat64(),
	}
	if err := s.repo.Create(ctx, order); err != nil {
		logger.Error().Err(err).Str("userId", userID).Msg("Error creando orden")
		return nil, err
	}

	logger.Info().Str("orderId", order.ID.Hex()).Str("userId", userID).Float64("total", order.TotalPrice).Msg("Orden creada")
	return order, nil
}

// GetOrder solo devuelve la orden al dueño o a un admin.
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, orderID string) (*model.Order, error) {
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && o.UserID != actor.UserID {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *OrderService) GetPaymentStatus(ctx context.Context, actor Actor, orderID string) (*dto.PaymentStatusResponse, error) {
	o, err := s.GetOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	return &dto.PaymentStatusResponse{
		IsPaid:        o.IsPaid,
		IsDelivered:   o.IsDelivered,
		PaymentStatus: o.PaymentStatus(),
	}, nil
}

func (s *OrderService) GetByUserID(ctx context.Context, userID string) ([]*model.Order, error) {
	return s.repo.FindByUserID(ctx, userID)
}

func (s *OrderService) GetAll(ctx context.Context) ([]*model.Order, error) {
	return s.repo.FindAll(ctx)
}

// MarkPaid es la vía directa (admin) cuando el callback nunca llegó pero el pago se confirmó por otro medio.
func (s *OrderService) MarkPaid(ctx context.Context, orderID string, req dto.MarkPaidRequest) (*model.Order, error) {
	status := req.Status
	if status == "" {
		status = model.PaymentSuccessful
	}
	if status != model.PaymentSuccessful {
		return nil, fmt.Errorf("%w: estado %q no marca la orden como pagada", ErrValidation, status)
	}

	now := s.now().UTC()
	updateTime := req.UpdateTime
	if updateTime == "" {
		updateTime = now.Format(time.RFC3339)
	}

	o, err := s.repo.MarkPaid(ctx, orderID, now, model.PaymentResult{
		ID:         req.ID,
		Status:     status,
		UpdateTime: updateTime,
	})
	if err != nil {
		return nil, err
	}

	s.publishPaid(ctx, o, req.ID)
	return o, nil
}

func (s *OrderService) MarkDelivered(ctx context.Context, orderID string) (*model.Order, error) {
	o, err := s.repo.MarkDelivered(ctx, orderID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	logger.Info().Str("orderId", orderID).Msg("Orden entregada")
	return o, nil
}

// publishPaid no falla la operación: el pago ya quedó persistido.
func (s *OrderService) publishPaid(ctx context.Context, o *model.Order, receipt string) {
	if s.publisher == nil {
		return
	}
	paidAt := s.now().UTC()
	if o.PaidAt != nil {
		paidAt = *o.PaidAt
	}
	err := s.publisher.PublishOrderPaid(ctx, dto.OrderPaidEvent{
		OrderID:    o.ID.Hex(),
		UserID:     o.UserID,
		TotalPrice: o.TotalPrice,
		Receipt:    receipt,
		PaidAt:     paidAt,
	})
	if err != nil {
		logger.Warn().Err(err).Str("orderId", o.ID.Hex()).Msg("Error publicando order_paid")
	}
}
