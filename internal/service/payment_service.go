package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"campus-store/internal/dto"
	"campus-store/internal/model"
	"campus-store/internal/mpesa"
)

const checkoutKeyTTL = 24 * time.Hour

type PaymentGateway interface {
	InitiatePush(ctx context.Context, orderID, phone string, amount int64) (*dto.StkPushAck, error)
}

// CheckoutGuard evita checkouts duplicados cuando el cliente reenvía con la misma Idempotency-Key.
type CheckoutGuard interface {
	ReserveCheckout(ctx context.Context, key string, ttl time.Duration) (bool, string, error)
	CompleteCheckout(ctx context.Context, key, orderID string) error
	ReleaseCheckout(ctx context.Context, key string) error
}

type CallbackVerifier interface {
	Verify(orderID, sig string) bool
}

type PaymentService struct {
	orders   *OrderService
	repo     OrderRepository
	gateway  PaymentGateway
	guard    CheckoutGuard
	verifier CallbackVerifier
	now      func() time.Time
}

// guard y verifier son opcionales (nil).
func NewPaymentService(orders *OrderService, repo OrderRepository, gateway PaymentGateway, guard CheckoutGuard, verifier CallbackVerifier) *PaymentService {
	return &PaymentService{
		orders:   orders,
		repo:     repo,
		gateway:  gateway,
		guard:    guard,
		verifier: verifier,
		now:      time.Now,
	}
}

type CheckoutResult struct {
	Order   *model.Order
	Payment *dto.StkPushAck
}

// PlaceOrderAndPay crea la orden y, si hay teléfono, dispara el STK push sin esperar el resultado.
// Si el push falla la orden queda creada sin pagar y se devuelve junto con el error
// para que el cliente pueda reintentar el pago sobre la misma orden.
func (s *PaymentService) PlaceOrderAndPay(ctx context.Context, actor Actor, req dto.PlaceOrderRequest, idempotencyKey string) (*CheckoutResult, error) {
	var phone string
	if req.Phone != "" {
		p, err := mpesa.NormalizePhone(req.Phone)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		phone = p
	}

	reserved := false
	if s.guard != nil && idempotencyKey != "" {
		ok, existing, err := s.guard.ReserveCheckout(ctx, idempotencyKey, checkoutKeyTTL)
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("Store de idempotencia no disponible, se sigue sin él")
		case !ok:
			return nil, fmt.Errorf("%w (orden %s)", ErrDuplicateCheckout, existing)
		default:
			reserved = true
		}
	}

	order, err := s.orders.PlaceOrder(ctx, actor.UserID, req)
	if err != nil {
		if reserved {
			_ = s.guard.ReleaseCheckout(ctx, idempotencyKey)
		}
		return nil, err
	}
	if reserved {
		if err := s.guard.CompleteCheckout(ctx, idempotencyKey, order.ID.Hex()); err != nil {
			logger.Warn().Err(err).Str("orderId", order.ID.Hex()).Msg("Error guardando clave de idempotencia")
		}
	}

	res := &CheckoutResult{Order: order}
	if phone == "" {
		return res, nil
	}

	ack, err := s.push(ctx, order, phone)
	if err != nil {
		return res, err
	}
	res.Payment = ack
	return res, nil
}

// InitiatePayment (re)intenta el STK push sobre una orden existente y sin pagar.
func (s *PaymentService) InitiatePayment(ctx context.Context, actor Actor, req dto.StkPushRequest) (*dto.StkPushAck, error) {
	phone, err := mpesa.NormalizePhone(req.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	order, err := s.orders.GetOrder(ctx, actor, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid {
		return nil, ErrAlreadyPaid
	}

	if req.Amount != 0 {
		if got, want := wholeShillings(req.Amount), wholeShillings(order.TotalPrice); got != want {
			return nil, fmt.Errorf("%w: el monto %d no coincide con el total de la orden %d", ErrValidation, got, want)
		}
	}

	return s.push(ctx, order, phone)
}

func (s *PaymentService) push(ctx context.Context, order *model.Order, phone string) (*dto.StkPushAck, error) {
	orderID := order.ID.Hex()
	amount := wholeShillings(order.TotalPrice)

	ack, err := s.gateway.InitiatePush(ctx, orderID, phone, amount)
	if err != nil {
		logger.Error().Err(err).Str("orderId", orderID).Msg("Falló el STK push")
		return nil, err
	}

	if err := s.repo.SetCheckoutRequest(ctx, orderID, ack.CheckoutRequestID); err != nil {
		// Puede pasar si el callback ya llegó y pagó la orden antes que esta escritura.
		// Un Failed del mismo intento no se pisa (el repo lo deja como está).
		logger.Warn().Err(err).Str("orderId", orderID).Msg("No se pudo registrar el checkout request")
	}

	logger.Info().
		Str("orderId", orderID).
		Str("checkoutRequestId", ack.CheckoutRequestID).
		Int64("amount", amount).
		Msg("STK push accepted")
	return ack, nil
}

// HandleCallback aplica el resultado que envía el proveedor. El que llama responde 200 siempre,
// el error devuelto es solo para el log.
func (s *PaymentService) HandleCallback(ctx context.Context, orderID, sig string, env dto.CallbackEnvelope) error {
	if s.verifier != nil && !s.verifier.Verify(orderID, sig) {
		return ErrUnverifiedCallback
	}

	out, err := mpesa.ParseOutcome(env)
	if err != nil {
		return err
	}

	if !out.Succeeded() {
		logger.Warn().
			Str("orderId", orderID).
			Int("resultCode", out.ResultCode).
			Str("resultDesc", out.ResultDesc).
			Msg("Payment failed")

		return s.repo.MarkPaymentFailed(ctx, orderID, model.PaymentResult{
			Status:            model.PaymentFailed,
			Reason:            out.ResultDesc,
			UpdateTime:        s.now().UTC().Format(time.RFC3339),
			CheckoutRequestID: out.CheckoutRequestID,
		})
	}

	txDate := out.TransactionDate
	order, err := s.repo.MarkPaid(ctx, orderID, s.now().UTC(), model.PaymentResult{
		ID:                out.Receipt,
		Status:            model.PaymentSuccessful,
		UpdateTime:        out.TransactionDateRaw,
		TransactionDate:   &txDate,
		CheckoutRequestID: out.CheckoutRequestID,
	})
	if errors.Is(err, ErrAlreadyPaid) {
		logger.Info().Str("orderId", orderID).Str("receipt", out.Receipt).Msg("Callback duplicado ignorado")
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info().Str("orderId", orderID).Str("receipt", out.Receipt).Msg("Orden pagada")
	s.orders.publishPaid(ctx, order, out.Receipt)
	return nil
}

// M-Pesa solo acepta montos enteros; se redondea hacia arriba.
func wholeShillings(amount float64) int64 {
	return decimal.NewFromFloat(amount).Ceil().IntPart()
}
