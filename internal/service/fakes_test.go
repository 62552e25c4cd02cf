package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"campus-store/internal/dto"
	"campus-store/internal/model"
)

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*model.Order
	creates int
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: map[string]*model.Order{}}
}

func (m *memOrderRepo) Create(_ context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = primitive.NewObjectID()
	o.IsPaid = false
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	m.orders[o.ID.Hex()] = &cp
	m.creates++
	return nil
}

func (m *memOrderRepo) FindByID(_ context.Context, id string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderRepo) FindByUserID(_ context.Context, userID string) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memOrderRepo) FindAll(_ context.Context) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Order
	for _, o := range m.orders {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memOrderRepo) MarkPaid(_ context.Context, id string, paidAt time.Time, result model.PaymentResult) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if o.IsPaid {
		return nil, ErrAlreadyPaid
	}
	o.IsPaid = true
	o.PaidAt = &paidAt
	r := result
	o.PaymentResult = &r
	cp := *o
	return &cp, nil
}

func (m *memOrderRepo) MarkPaymentFailed(_ context.Context, id string, result model.PaymentResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.IsPaid {
		return ErrAlreadyPaid
	}
	r := result
	o.PaymentResult = &r
	return nil
}

func (m *memOrderRepo) SetCheckoutRequest(_ context.Context, id, checkoutRequestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.IsPaid {
		return ErrAlreadyPaid
	}
	if o.PaymentResult != nil && o.PaymentResult.CheckoutRequestID == checkoutRequestID {
		return nil
	}
	o.PaymentResult = &model.PaymentResult{Status: model.PaymentPending, CheckoutRequestID: checkoutRequestID}
	return nil
}

func (m *memOrderRepo) MarkDelivered(_ context.Context, id string, at time.Time) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.IsDelivered = true
	o.DeliveredAt = &at
	cp := *o
	return &cp, nil
}

type memCatalog map[string]*model.Product

func (c memCatalog) FindByIDs(_ context.Context, ids []string) (map[string]*model.Product, error) {
	out := map[string]*model.Product{}
	for _, id := range ids {
		if p, ok := c[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func newCatalog(products ...*model.Product) memCatalog {
	c := memCatalog{}
	for _, p := range products {
		c[p.ID.Hex()] = p
	}
	return c
}

type fakeGateway struct {
	mu    sync.Mutex
	err   error
	calls []pushCall
	// repo permite verificar que la orden ya existía cuando se llamó al gateway
	repo *memOrderRepo
	seen []bool
	// beforeAck corre antes de devolver la respuesta, como un callback que llega primero.
	beforeAck func(orderID, checkoutRequestID string)
}

type pushCall struct {
	OrderID string
	Phone   string
	Amount  int64
}

func (g *fakeGateway) InitiatePush(ctx context.Context, orderID, phone string, amount int64) (*dto.StkPushAck, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, pushCall{orderID, phone, amount})
	if g.repo != nil {
		_, err := g.repo.FindByID(ctx, orderID)
		g.seen = append(g.seen, err == nil)
	}
	if g.err != nil {
		return nil, g.err
	}
	checkoutID := fmt.Sprintf("ws_CO_%s_%d", orderID, len(g.calls))
	if g.beforeAck != nil {
		g.beforeAck(orderID, checkoutID)
	}
	return &dto.StkPushAck{
		MerchantRequestID:   "m-1",
		CheckoutRequestID:   checkoutID,
		ResponseCode:        "0",
		ResponseDescription: "Success. Request accepted for processing",
	}, nil
}

type memGuard struct {
	keys map[string]string
}

func (g *memGuard) ReserveCheckout(_ context.Context, key string, _ time.Duration) (bool, string, error) {
	if v, ok := g.keys[key]; ok {
		return false, v, nil
	}
	g.keys[key] = ""
	return true, "", nil
}

func (g *memGuard) CompleteCheckout(_ context.Context, key, orderID string) error {
	g.keys[key] = orderID
	return nil
}

func (g *memGuard) ReleaseCheckout(_ context.Context, key string) error {
	delete(g.keys, key)
	return nil
}

type recordingPublisher struct {
	events []dto.OrderPaidEvent
}

func (p *recordingPublisher) PublishOrderPaid(_ context.Context, evt dto.OrderPaidEvent) error {
	p.events = append(p.events, evt)
	return nil
}

type memReviewRepo struct {
	reviews map[primitive.ObjectID]*model.Review
}

func newMemReviewRepo() *memReviewRepo {
	return &memReviewRepo{reviews: map[primitive.ObjectID]*model.Review{}}
}

func (m *memReviewRepo) Create(_ context.Context, r *model.Review) error {
	if _, ok := m.reviews[r.OrderID]; ok {
		return ErrReviewExists
	}
	r.ID = primitive.NewObjectID()
	m.reviews[r.OrderID] = r
	return nil
}

func (m *memReviewRepo) FindByOrderID(_ context.Context, orderID string) (*model.Review, error) {
	id, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return nil, ErrReviewNotFound
	}
	r, ok := m.reviews[id]
	if !ok {
		return nil, ErrReviewNotFound
	}
	return r, nil
}
