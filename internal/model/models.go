// models.go
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Estados de pago visibles para el cliente.
const (
	PaymentPending    = "Pending"
	PaymentSuccessful = "Successful"
	PaymentFailed     = "Failed"
)

type Order struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           string             `bson:"user_id" json:"userId"`
	OrderItems       []OrderItem        `bson:"order_items" json:"orderItems"`
	DeliveryLocation string             `bson:"delivery_location" json:"deliveryLocation"`
	TotalPrice       float64            `bson:"total_price" json:"totalPrice"`
	IsPaid           bool               `bson:"is_paid" json:"isPaid"`
	PaidAt           *time.Time         `bson:"paid_at,omitempty" json:"paidAt,omitempty"`
	PaymentResult    *PaymentResult     `bson:"payment_result,omitempty" json:"paymentResult,omitempty"`
	IsDelivered      bool               `bson:"is_delivered" json:"isDelivered"`
	DeliveredAt      *time.Time         `bson:"delivered_at,omitempty" json:"deliveredAt,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updatedAt"`
}

// OrderItem es una copia del producto al momento de la compra, no una referencia viva.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Qty       int                `bson:"qty" json:"qty"`
	Price     float64            `bson:"price" json:"price"`
	Image     string             `bson:"image" json:"image"`
}

type PaymentResult struct {
	ID                string     `bson:"id,omitempty" json:"id,omitempty"`
	Status            string     `bson:"status" json:"status"`
	UpdateTime        string     `bson:"update_time,omitempty" json:"updateTime,omitempty"`
	TransactionDate   *time.Time `bson:"transaction_date,omitempty" json:"transactionDate,omitempty"`
	Reason            string     `bson:"reason,omitempty" json:"reason,omitempty"`
	CheckoutRequestID string     `bson:"checkout_request_id,omitempty" json:"checkoutRequestId,omitempty"`
}

// PaymentStatus devuelve el estado del pago, "Pending" si todavía no hay resultado.
func (o *Order) PaymentStatus() string {
	if o.PaymentResult == nil || o.PaymentResult.Status == "" {
		return PaymentPending
	}
	return o.PaymentResult.Status
}

type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID   primitive.ObjectID `bson:"order_id" json:"orderId"`
	UserID    string             `bson:"user_id" json:"userId"`
	Rating    int                `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment" json:"comment"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

// Product es de solo lectura para este servicio; el catálogo lo administra otro componente.
type Product struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Price        float64            `bson:"price" json:"price"`
	Image        string             `bson:"image" json:"image"`
	CountInStock int                `bson:"count_in_stock" json:"countInStock"`
}
