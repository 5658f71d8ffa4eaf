package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const ProviderStripe = "stripe"

// EventRecord is one delivered processor event. ProcessedAt stays nil until
// a handler has applied it.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:varchar(32);not null"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:varchar(255);not null"`
	EventType       string         `json:"event_type" gorm:"type:varchar(128);not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:text;not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

type Repository interface {
	FindEvent(ctx context.Context, db *gorm.DB, provider string, providerEventID string) (*EventRecord, error)
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
}

// SignatureVerifier checks a webhook body against its signature header.
type SignatureVerifier interface {
	Verify(rawBody []byte, sigHeader string, secret string) bool
}

// EventDecoder turns a verified webhook body into a typed event.
type EventDecoder interface {
	Decode(rawBody []byte) (Event, error)
}

// SessionRequest describes a hosted checkout page for a single product.
type SessionRequest struct {
	OrderID              snowflake.ID
	ProductName          string
	UnitAmount           int64
	Quantity             int
	Currency             string
	ApplicationFeeAmount int64
	DestinationAccount   string
	CustomerEmail        string
	SuccessURL           string
	CancelURL            string
	Metadata             map[string]string
}

type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type SessionFactory interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
}

var (
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrInvalidConfig         = errors.New("invalid_payment_config")
	ErrUpstream              = errors.New("payment_provider_failed")
)
