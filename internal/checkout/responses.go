package checkout

import "encoding/json"

// Links holds the URLs returned by a successful checkout request.
type Links struct {
	Checkout string `json:"checkout"`
	Payment  string `json:"payment,omitempty"`
}

// Status is a remote-side status descriptor.
type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Price is an amount in a specific currency.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Fees splits the tax and gateway components of a payment's fees.
type Fees struct {
	Tax     Price `json:"tax"`
	Gateway Price `json:"gateway"`
}

// PaymentMethod describes how a payment was made.
type PaymentMethod struct {
	Name       string `json:"name"`
	Refundable bool   `json:"refundable"`
}

// Username identifies the purchasing user on the remote platform.
type Username struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Customer is the customer snapshot attached to a payment.
type Customer struct {
	FirstName        string   `json:"first_name"`
	LastName         string   `json:"last_name"`
	Email            string   `json:"email"`
	IP               string   `json:"ip"`
	Username         Username `json:"username"`
	MarketingConsent bool     `json:"marketing_consent"`
	Country          string   `json:"country"`
	PostalCode       string   `json:"postal_code"`
}

// Variable is a configured option on a purchased product.
type Variable struct {
	Identifier string `json:"identifier"`
	Option     string `json:"option"`
}

// Product is one purchased item on a payment. Custom is the JSON-encoded
// metadata string submitted with the package at basket time.
type Product struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Quantity  int        `json:"quantity"`
	BasePrice Price      `json:"base_price"`
	PaidPrice Price      `json:"paid_price"`
	Variables []Variable `json:"variables"`
	ExpiresAt string     `json:"expires_at"`
	Custom    string     `json:"custom"`
	Username  Username   `json:"username"`
}

// DeclineReason explains why a payment was declined.
type DeclineReason struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Payment is the typed payment shape shared by the payments endpoints and
// the payment webhook subject. Custom carries the basket's free-form
// metadata back to the integration.
type Payment struct {
	TransactionID             string            `json:"transaction_id"`
	Status                    Status            `json:"status"`
	PaymentSequence           string            `json:"payment_sequence"`
	CreatedAt                 string            `json:"created_at"`
	Price                     Price             `json:"price"`
	PricePaid                 Price             `json:"price_paid"`
	PaymentMethod             PaymentMethod     `json:"payment_method"`
	Fees                      Fees              `json:"fees"`
	Customer                  Customer          `json:"customer"`
	Products                  []Product         `json:"products"`
	Coupons                   []json.RawMessage `json:"coupons"`
	GiftCards                 []json.RawMessage `json:"gift_cards"`
	RecurringPaymentReference string            `json:"recurring_payment_reference"`
	DeclineReason             *DeclineReason    `json:"decline_reason"`
	Custom                    map[string]any    `json:"custom"`
}

// RecurringPayment is a subscription billing relationship. Created on the
// first subscription payment, mutated on renewals and failures, terminal
// once cancelled.
type RecurringPayment struct {
	Reference      string  `json:"reference"`
	CreatedAt      string  `json:"created_at"`
	NextPaymentAt  string  `json:"next_payment_at"`
	Status         Status  `json:"status"`
	InitialPayment Payment `json:"initial_payment"`
	LastPayment    Payment `json:"last_payment"`
	FailCount      int     `json:"fail_count"`
	Price          Price   `json:"price"`
	CancelledAt    *string `json:"cancelled_at"`
	CancelReason   *string `json:"cancel_reason"`
}

// BasketResponse is returned by the basket manipulation endpoints.
type BasketResponse struct {
	Ident string `json:"ident"`
	Links Links  `json:"links"`
}

// CheckoutResponse is returned by the checkout creation endpoint. Links
// contains the hosted payment page URL shown to the customer.
type CheckoutResponse struct {
	Ident string `json:"ident"`
	Links Links  `json:"links"`
}
