package stripe

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	paymentdomain "github.com/smallbiznis/popstore/internal/payment/domain"
)

type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Account string          `json:"account"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID            string         `json:"id"`
	PaymentIntent string         `json:"payment_intent"`
	PaymentStatus string         `json:"payment_status"`
	Metadata      map[string]any `json:"metadata"`
}

type stripePaymentIntent struct {
	ID               string         `json:"id"`
	Amount           int64          `json:"amount"`
	AmountReceived   int64          `json:"amount_received"`
	Currency         string         `json:"currency"`
	Metadata         map[string]any `json:"metadata"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

type stripeAccount struct {
	ID             string `json:"id"`
	ChargesEnabled bool   `json:"charges_enabled"`
	PayoutsEnabled bool   `json:"payouts_enabled"`
	Requirements   *struct {
		DisabledReason string `json:"disabled_reason"`
	} `json:"requirements"`
}

// Decode parses a Stripe event envelope. Types the reconciler does not act on
// return ErrEventIgnored.
func (d *Decoder) Decode(payload []byte) (paymentdomain.Event, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	event.ID = strings.TrimSpace(event.ID)
	event.Type = strings.TrimSpace(event.Type)
	if event.ID == "" || event.Type == "" {
		return nil, paymentdomain.ErrInvalidPayload
	}

	meta := paymentdomain.EventMeta{
		ID:      event.ID,
		Type:    event.Type,
		Created: timestamp(event.Created),
	}

	switch event.Type {
	case paymentdomain.EventTypeCheckoutSessionCompleted:
		var session stripeCheckoutSession
		if err := unmarshalObject(event, &session); err != nil {
			return nil, err
		}
		if strings.TrimSpace(session.ID) == "" {
			return nil, paymentdomain.ErrInvalidPayload
		}
		return paymentdomain.CheckoutSessionCompleted{
			EventMeta:     meta,
			SessionID:     strings.TrimSpace(session.ID),
			PaymentRef:    strings.TrimSpace(session.PaymentIntent),
			PaymentStatus: strings.TrimSpace(session.PaymentStatus),
			Metadata:      parseOrderMetadata(session.Metadata),
		}, nil
	case paymentdomain.EventTypePaymentIntentSucceeded:
		var intent stripePaymentIntent
		if err := unmarshalObject(event, &intent); err != nil {
			return nil, err
		}
		if strings.TrimSpace(intent.ID) == "" {
			return nil, paymentdomain.ErrInvalidPayload
		}
		amount := intent.AmountReceived
		if amount <= 0 {
			amount = intent.Amount
		}
		return paymentdomain.PaymentSucceeded{
			EventMeta:  meta,
			PaymentRef: strings.TrimSpace(intent.ID),
			Amount:     amount,
			Currency:   strings.ToLower(strings.TrimSpace(intent.Currency)),
			Metadata:   parseOrderMetadata(intent.Metadata),
		}, nil
	case paymentdomain.EventTypePaymentIntentFailed:
		var intent stripePaymentIntent
		if err := unmarshalObject(event, &intent); err != nil {
			return nil, err
		}
		if strings.TrimSpace(intent.ID) == "" {
			return nil, paymentdomain.ErrInvalidPayload
		}
		failed := paymentdomain.PaymentFailed{
			EventMeta:  meta,
			PaymentRef: strings.TrimSpace(intent.ID),
			Metadata:   parseOrderMetadata(intent.Metadata),
		}
		if intent.LastPaymentError != nil {
			failed.FailureMessage = strings.TrimSpace(intent.LastPaymentError.Message)
		}
		return failed, nil
	case paymentdomain.EventTypeAccountUpdated:
		var account stripeAccount
		if err := unmarshalObject(event, &account); err != nil {
			return nil, err
		}
		accountID := strings.TrimSpace(account.ID)
		if accountID == "" {
			accountID = strings.TrimSpace(event.Account)
		}
		if accountID == "" {
			return nil, paymentdomain.ErrInvalidPayload
		}
		updated := paymentdomain.AccountUpdated{
			EventMeta:      meta,
			AccountID:      accountID,
			ChargesEnabled: account.ChargesEnabled,
			PayoutsEnabled: account.PayoutsEnabled,
		}
		if account.Requirements != nil {
			updated.DisabledReason = strings.TrimSpace(account.Requirements.DisabledReason)
		}
		return updated, nil
	default:
		return nil, paymentdomain.ErrEventIgnored
	}
}

func unmarshalObject(event stripeEvent, out any) error {
	if len(event.Data.Object) == 0 {
		return paymentdomain.ErrInvalidPayload
	}
	if err := json.Unmarshal(event.Data.Object, out); err != nil {
		return paymentdomain.ErrInvalidPayload
	}
	return nil
}

func parseOrderMetadata(metadata map[string]any) paymentdomain.OrderMetadata {
	return paymentdomain.OrderMetadata{
		OrderID:          readMetadataValue(metadata, paymentdomain.MetadataOrderID),
		StoreID:          readMetadataValue(metadata, paymentdomain.MetadataStoreID),
		ProductID:        readMetadataValue(metadata, paymentdomain.MetadataProductID),
		CommissionAmount: readMetadataValue(metadata, paymentdomain.MetadataCommissionAmount),
	}
}

func timestamp(value int64) time.Time {
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}

func readMetadataValue(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	value, ok := metadata[key]
	if !ok {
		return ""
	}
	switch cast := value.(type) {
	case string:
		return strings.TrimSpace(cast)
	case float64:
		if cast == 0 {
			return ""
		}
		return strconv.FormatInt(int64(cast), 10)
	case json.Number:
		return cast.String()
	}
	return ""
}
