package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	paymentdomain "github.com/smallbiznis/popstore/internal/payment/domain"
)

const DefaultAPIBase = "https://api.stripe.com"

type stripeCheckoutSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// SessionClient creates Checkout Sessions through the form-encoded REST API.
type SessionClient struct {
	apiKey  string
	apiBase string
	client  *http.Client
}

func NewSessionClient(apiKey string, apiBase string, client *http.Client) *SessionClient {
	apiBase = strings.TrimRight(strings.TrimSpace(apiBase), "/")
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	if client == nil {
		client = &http.Client{Timeout: 12 * time.Second}
	}
	return &SessionClient{
		apiKey:  strings.TrimSpace(apiKey),
		apiBase: apiBase,
		client:  client,
	}
}

// CreateSession uses the order id as idempotency key, so a retried request
// for the same order returns the session Stripe already created.
func (c *SessionClient) CreateSession(ctx context.Context, req paymentdomain.SessionRequest) (paymentdomain.Session, error) {
	if c.apiKey == "" {
		return paymentdomain.Session{}, paymentdomain.ErrInvalidConfig
	}
	if req.OrderID == 0 || req.Quantity <= 0 || strings.TrimSpace(req.DestinationAccount) == "" {
		return paymentdomain.Session{}, paymentdomain.ErrInvalidConfig
	}

	values := sessionValues(req)
	var session stripeCheckoutSessionResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/checkout/sessions", values, "checkout:"+req.OrderID.String(), &session); err != nil {
		return paymentdomain.Session{}, err
	}
	if session.ID == "" {
		return paymentdomain.Session{}, fmt.Errorf("%w: stripe_response_invalid", paymentdomain.ErrUpstream)
	}
	return paymentdomain.Session{ID: session.ID, URL: session.URL}, nil
}

func sessionValues(req paymentdomain.SessionRequest) url.Values {
	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("success_url", req.SuccessURL)
	values.Set("cancel_url", req.CancelURL)
	values.Set("payment_method_types[]", "card")
	values.Set("line_items[0][quantity]", strconv.Itoa(req.Quantity))
	values.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	values.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.UnitAmount, 10))
	values.Set("line_items[0][price_data][product_data][name]", req.ProductName)
	values.Set("payment_intent_data[application_fee_amount]", strconv.FormatInt(req.ApplicationFeeAmount, 10))
	values.Set("payment_intent_data[transfer_data][destination]", req.DestinationAccount)
	if email := strings.TrimSpace(req.CustomerEmail); email != "" {
		values.Set("customer_email", email)
	}

	keys := make([]string, 0, len(req.Metadata))
	for key := range req.Metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := req.Metadata[key]
		values.Set("metadata["+key+"]", value)
		values.Set("payment_intent_data[metadata]["+key+"]", value)
	}
	return values
}

func (c *SessionClient) doRequest(
	ctx context.Context,
	method string,
	path string,
	values url.Values,
	idempotencyKey string,
	out any,
) error {
	var bodyReader *strings.Reader
	if values != nil {
		bodyReader = strings.NewReader(values.Encode())
	} else {
		bodyReader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", paymentdomain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err != nil {
			return fmt.Errorf("%w: status %d", paymentdomain.ErrUpstream, resp.StatusCode)
		}
		message := strings.TrimSpace(stripeErr.Error.Message)
		if message == "" {
			message = "stripe_request_failed"
		}
		return fmt.Errorf("%w: %s", paymentdomain.ErrUpstream, message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Join(paymentdomain.ErrUpstream, err)
	}
	return nil
}
