package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/checkout-gateway/internal/obs"
)

// Client talks to the hosted checkout platform's REST API using HTTP Basic
// authentication (account id : secret key). Every call is attempted exactly
// once; callers decide what a failure means.
type Client struct {
	AccountID string
	SecretKey string
	BaseURL   string
	HTTP      *http.Client
	Log       zerolog.Logger
	Sandbox   bool
}

// NewClient constructs a client with an otel-instrumented transport and the
// given request timeout.
func NewClient(accountID, secretKey, baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		AccountID: accountID,
		SecretKey: secretKey,
		BaseURL:   baseURL,
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Log: log,
	}
}

// CreateBasket creates a basket that can later be extended with packages.
func (c *Client) CreateBasket(ctx context.Context, basket Basket) (BasketResponse, error) {
	var out BasketResponse
	err := c.do(ctx, http.MethodPost, "baskets", "baskets", basket, &out)
	return out, err
}

// AddPackage adds a package row to an existing basket.
func (c *Client) AddPackage(ctx context.Context, basketID string, item BasketItem) (BasketResponse, error) {
	var out BasketResponse
	endpoint := fmt.Sprintf("baskets/%s/packages", basketID)
	err := c.do(ctx, http.MethodPost, endpoint, "baskets.packages", item, &out)
	return out, err
}

// RemovePackage deletes a basket row.
func (c *Client) RemovePackage(ctx context.Context, basketID string, rowID int) error {
	endpoint := fmt.Sprintf("baskets/%s/packages/%d", basketID, rowID)
	return c.do(ctx, http.MethodDelete, endpoint, "baskets.packages", nil, nil)
}

// AddSale attaches a sale to an existing basket.
func (c *Client) AddSale(ctx context.Context, basketID string, sale Sale) (BasketResponse, error) {
	var out BasketResponse
	endpoint := fmt.Sprintf("baskets/%s/sales", basketID)
	err := c.do(ctx, http.MethodPost, endpoint, "baskets.sales", sale, &out)
	return out, err
}

// CreateCheckout submits basket, items and an optional sale in a single
// request. The response carries the hosted checkout link.
func (c *Client) CreateCheckout(ctx context.Context, basket Basket, sale *Sale) (CheckoutResponse, error) {
	payload := map[string]any{
		"basket": basket,
		"items":  basket.Items(),
	}
	if sale != nil {
		payload["sale"] = sale
	} else {
		payload["sale"] = []any{}
	}
	var out CheckoutResponse
	err := c.do(ctx, http.MethodPost, "checkout", "checkout", payload, &out)
	return out, err
}

// FetchPayment retrieves a payment by its transaction id.
func (c *Client) FetchPayment(ctx context.Context, txnID string) (Payment, error) {
	var out Payment
	endpoint := fmt.Sprintf("payments/%s?type=txn_id", txnID)
	err := c.do(ctx, http.MethodGet, endpoint, "payments", nil, &out)
	return out, err
}

// RefundPayment refunds a payment by its transaction id.
func (c *Client) RefundPayment(ctx context.Context, txnID string) (Payment, error) {
	var out Payment
	endpoint := fmt.Sprintf("payments/%s/refund?type=txn_id", txnID)
	err := c.do(ctx, http.MethodPost, endpoint, "payments.refund", map[string]any{}, &out)
	return out, err
}

// FetchRecurringPayment retrieves a recurring payment by its reference.
func (c *Client) FetchRecurringPayment(ctx context.Context, reference string) (RecurringPayment, error) {
	var out RecurringPayment
	endpoint := "recurring-payments/" + reference
	err := c.do(ctx, http.MethodGet, endpoint, "recurring-payments", nil, &out)
	return out, err
}

// UpdateSubscribedProduct replaces the items billed by a recurring payment.
func (c *Client) UpdateSubscribedProduct(ctx context.Context, reference string, items []BasketItem) (RecurringPayment, error) {
	var out RecurringPayment
	endpoint := "recurring-payments/" + reference
	err := c.do(ctx, http.MethodPut, endpoint, "recurring-payments", map[string]any{"items": items}, &out)
	return out, err
}

// UpdateRecurringPaymentStatus sets the recurring payment status.
func (c *Client) UpdateRecurringPaymentStatus(ctx context.Context, reference string, status RecurringPaymentStatus) error {
	endpoint := "recurring-payments/" + reference + "/status"
	return c.do(ctx, http.MethodPut, endpoint, "recurring-payments.status", map[string]any{"status": status}, nil)
}

// PauseRecurringPayment pauses future renewals.
func (c *Client) PauseRecurringPayment(ctx context.Context, reference string) error {
	return c.UpdateRecurringPaymentStatus(ctx, reference, RecurringPaused)
}

// ReactivateRecurringPayment resumes a paused recurring payment.
func (c *Client) ReactivateRecurringPayment(ctx context.Context, reference string) error {
	return c.UpdateRecurringPaymentStatus(ctx, reference, RecurringActive)
}

// CancelRecurringPayment cancels a recurring payment permanently.
func (c *Client) CancelRecurringPayment(ctx context.Context, reference string) error {
	return c.do(ctx, http.MethodDelete, "recurring-payments/"+reference, "recurring-payments", nil, nil)
}

// do executes one request: serialize, send, classify, decode. No retries;
// transport failures and HTTP error responses surface as distinct types.
func (c *Client) do(ctx context.Context, method, endpoint, label string, payload, out any) error {
	url := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")

	var body io.Reader
	var encoded []byte
	if payload != nil {
		var err error
		encoded, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", label, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", label, err)
	}
	req.SetBasicAuth(c.AccountID, c.SecretKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	evt := c.Log.Debug().Str("method", method).Str("endpoint", endpoint)
	if c.Sandbox && len(encoded) > 0 {
		evt = evt.RawJSON("payload", encoded)
	}
	evt.Msg("api request")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		c.countRequest(label, "transport")
		terr := &TransportError{Endpoint: endpoint, Err: err}
		c.Log.Error().Err(err).Str("endpoint", endpoint).Msg("api transport failure")
		return terr
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.countRequest(label, "transport")
		return &TransportError{Endpoint: endpoint, Err: err}
	}

	c.countRequest(label, statusClass(resp.StatusCode))

	if resp.StatusCode >= 400 {
		apiErr := newAPIError(endpoint, resp.StatusCode, respBody)
		c.Log.Error().
			Int("status", apiErr.StatusCode).
			Str("endpoint", endpoint).
			Str("category", string(apiErr.Category())).
			Str("title", apiErr.Title).
			Str("detail", apiErr.Detail).
			Msg("api response error")
		return apiErr
	}

	respEvt := c.Log.Debug().Int("status", resp.StatusCode).Str("endpoint", endpoint)
	if c.Sandbox && len(respBody) > 0 {
		respEvt = respEvt.RawJSON("body", respBody)
	}
	respEvt.Msg("api response")

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			c.Log.Error().Err(err).Str("endpoint", endpoint).Msg("api response decode failure")
			return newAPIError(endpoint, resp.StatusCode, nil)
		}
	}
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) countRequest(label, class string) {
	if obs.APIRequestTotal != nil {
		obs.APIRequestTotal.WithLabelValues(label, class).Inc()
	}
}

func statusClass(code int) string {
	switch {
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
