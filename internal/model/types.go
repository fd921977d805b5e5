// Package model defines domain types used by the service.
package model

import "time"

// Channel identifies the chat channel a message arrived from.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelTelegram Channel = "telegram"
	ChannelOther    Channel = "other"
)

// SenderRole distinguishes customers placing orders from admins
// issuing price updates.
type SenderRole string

const (
	RoleCustomer SenderRole = "customer"
	RoleAdmin    SenderRole = "admin"
)

// Order and invoice statuses.
const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"

	InvoiceStatusIssued = "issued"
	InvoiceStatusPaid   = "paid"
)

// IncomingMessage is the boundary input of the processing pipeline.
// All fields are required; validation happens at the HTTP layer.
type IncomingMessage struct {
	From            string     `json:"from"`
	Message         string     `json:"message"`
	Channel         Channel    `json:"channel"`
	BusinessAccount string     `json:"businessAccount"`
	SenderRole      SenderRole `json:"senderRole"`
}

// ProcessResult is the boundary output of the processing pipeline.
type ProcessResult struct {
	Success         bool    `json:"success"`
	OrderCreated    bool    `json:"orderCreated"`
	ConfidenceScore float64 `json:"confidenceScore"`
	ItemsDetected   int     `json:"itemsDetected"`
}

// LineItem is one priced order line. Quantity and UnitPrice are always
// positive; UnitPrice is in minor currency units (paise).
type LineItem struct {
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"price"`
}

// ParseResult is the outcome of interpreting one message.
// TotalAmount is always the sum of Quantity*UnitPrice over Items.
type ParseResult struct {
	Items           []LineItem
	TotalAmount     int64
	ConfidenceScore float64
}

// PriceUpdate is one admin-issued catalog change, price in paise.
type PriceUpdate struct {
	NormalizedName string
	UnitPrice      int64
}

// Customer is a chat sender resolved by exact phone/identifier match.
type Customer struct {
	ID          int64     `json:"id"`
	PhoneNumber string    `json:"phoneNumber"`
	Name        string    `json:"name,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Order is a persisted, priced order. TotalAmount is in paise.
type Order struct {
	ID          int64      `json:"id"`
	CustomerID  int64      `json:"customerId"`
	TotalAmount int64      `json:"totalAmount"`
	Status      string     `json:"status"`
	Items       []LineItem `json:"items"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Invoice is the tax document for an order. Amounts are in paise and
// TotalAmount already includes GSTAmount.
type Invoice struct {
	ID            int64     `json:"id"`
	OrderID       int64     `json:"orderId"`
	InvoiceNumber string    `json:"invoiceNumber"`
	TotalAmount   int64     `json:"totalAmount"`
	GSTAmount     int64     `json:"gstAmount"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ParsedData is the structured interpretation stored with a message.
type ParsedData struct {
	Items           []LineItem `json:"items"`
	Channel         Channel    `json:"channel"`
	BusinessAccount string     `json:"businessAccount"`
	SenderRole      SenderRole `json:"senderRole"`
}

// MessageRecord is the persisted audit trail of one incoming message.
// OrderID references the order created from this message, if any, so
// deletion can cascade without guessing by time proximity.
type MessageRecord struct {
	ID              int64      `json:"id"`
	FromNumber      string     `json:"fromNumber"`
	MessageBody     string     `json:"messageBody"`
	Parsed          ParsedData `json:"parsedData"`
	ConfidenceScore float64    `json:"confidenceScore"`
	OrderCreated    bool       `json:"isOrderCreated"`
	OrderID         *int64     `json:"orderId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// ProductPrice is a persisted per-business catalog entry, keyed
// uniquely by (BusinessAccount, NormalizedName). UnitPrice is in paise.
type ProductPrice struct {
	ID              int64     `json:"id"`
	BusinessAccount string    `json:"businessAccount"`
	ProductName     string    `json:"productName"`
	NormalizedName  string    `json:"normalizedName"`
	UnitPrice       int64     `json:"unitPrice"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
