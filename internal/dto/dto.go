// dto.go
package dto

import "time"

type OrderItemDTO struct {
	ProductID string `json:"productId" binding:"required"`
	Qty       int    `json:"qty"`
}

// PlaceOrderRequest es el checkout. Si viene Phone se dispara el STK push en la misma llamada.
type PlaceOrderRequest struct {
	OrderItems       []OrderItemDTO `json:"orderItems"`
	DeliveryLocation string         `json:"deliveryLocation" binding:"required"`
	TotalPrice       float64        `json:"totalPrice"`
	Phone            string         `json:"phone"`
}

type StkPushRequest struct {
	OrderID string  `json:"orderId" binding:"required"`
	Phone   string  `json:"phone" binding:"required"`
	Amount  float64 `json:"amount"`
}

// StkPushAck es la respuesta sincrónica del proveedor: "aceptado", no "pagado".
type StkPushAck struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type PlaceOrderResponse struct {
	OrderID string      `json:"orderId"`
	Order   any         `json:"order"`
	Payment *StkPushAck `json:"payment,omitempty"`
}

// CallbackEnvelope es el cuerpo que envía el proveedor a /payments/callback/:orderId
type CallbackEnvelope struct {
	Body struct {
		StkCallback StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

type StkCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

// Value puede venir como número o como string según el campo.
type MetadataItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value,omitempty"`
}

type PaymentStatusResponse struct {
	IsPaid        bool   `json:"isPaid"`
	IsDelivered   bool   `json:"isDelivered"`
	PaymentStatus string `json:"paymentStatus"`
}

// MarkPaidRequest es la vía directa (admin) para marcar una orden como pagada.
type MarkPaidRequest struct {
	ID         string `json:"id" binding:"required"`
	Status     string `json:"status"`
	UpdateTime string `json:"update_time"`
}

type CreateReviewRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

type OrderPaidEvent struct {
	OrderID    string    `json:"orderId"`
	UserID     string    `json:"userId"`
	TotalPrice float64   `json:"totalPrice"`
	Receipt    string    `json:"receipt"`
	PaidAt     time.Time `json:"paidAt"`
}
