package checkout

import (
	"bytes"
	"encoding/json"
	"time"
)

// PaymentType discriminates one-off purchases from subscriptions on a basket item.
type PaymentType string

const (
	PaymentTypeSingle       PaymentType = "single"
	PaymentTypeSubscription PaymentType = "subscription"
)

// ExpiryPeriod is the unit a subscription package renews in.
type ExpiryPeriod string

const (
	ExpiryDay   ExpiryPeriod = "day"
	ExpiryMonth ExpiryPeriod = "month"
	ExpiryYear  ExpiryPeriod = "year"
)

// RecurringPaymentStatus is the remote-side state of a recurring payment.
type RecurringPaymentStatus string

const (
	RecurringActive RecurringPaymentStatus = "Active"
	RecurringPaused RecurringPaymentStatus = "Paused"
)

// PackageMeta carries free-form package metadata. Custom is a JSON-encoded
// string that the remote platform passes back verbatim on webhooks, which is
// how purchased items are mapped back to host records.
type PackageMeta struct {
	Name   string `json:"name,omitempty"`
	Custom string `json:"custom,omitempty"`
}

// MetaCustom builds package metadata whose custom payload is the JSON
// encoding of v.
func MetaCustom(v any) (PackageMeta, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return PackageMeta{}, err
	}
	return PackageMeta{Custom: string(b)}, nil
}

// RelationRef is the canonical custom payload linking a package back to the
// host's service record.
type RelationRef struct {
	RelID int `json:"relid"`
}

// Package is one purchasable line item submitted inside a basket. All With*
// methods return a modified copy so shared defaults cannot alias.
type Package struct {
	Name         string
	Price        float64
	Subscription bool
	ExpiryPeriod ExpiryPeriod
	ExpiryLength int
	Metadata     *PackageMeta
}

// NewPackage constructs a single-payment package with the default expiry
// length of one period.
func NewPackage(name string, price float64) Package {
	return Package{Name: name, Price: price, ExpiryLength: 1}
}

// WithSubscription marks the package as a recurring product.
func (p Package) WithSubscription(v bool) Package {
	p.Subscription = v
	return p
}

// WithExpiry sets the renewal period and length. Only meaningful for
// subscription packages.
func (p Package) WithExpiry(period ExpiryPeriod, length int) Package {
	p.ExpiryPeriod = period
	p.ExpiryLength = length
	return p
}

// WithMetadata attaches metadata to the package.
func (p Package) WithMetadata(meta PackageMeta) Package {
	p.Metadata = &meta
	return p
}

// MarshalJSON emits the wire shape the checkout API expects. The metaData key
// spelling is required by the remote schema.
func (p Package) MarshalJSON() ([]byte, error) {
	period := ""
	if p.ExpiryPeriod != "" {
		period = string(p.ExpiryPeriod)
	}
	meta := any(struct{}{})
	if p.Metadata != nil {
		meta = p.Metadata
	}
	return json.Marshal(map[string]any{
		"name":          p.Name,
		"price":         p.Price,
		"expiry_period": period,
		"expiry_length": p.ExpiryLength,
		"metaData":      meta,
	})
}

// UnmarshalJSON accepts the wire shape emitted by MarshalJSON. An empty
// metaData object decodes as no metadata.
func (p *Package) UnmarshalJSON(data []byte) error {
	var wire struct {
		Name         string       `json:"name"`
		Price        float64      `json:"price"`
		ExpiryPeriod ExpiryPeriod `json:"expiry_period"`
		ExpiryLength int          `json:"expiry_length"`
		MetaData     *PackageMeta `json:"metaData"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	p.Name = wire.Name
	p.Price = wire.Price
	p.ExpiryPeriod = wire.ExpiryPeriod
	p.ExpiryLength = wire.ExpiryLength
	p.Metadata = nil
	if wire.MetaData != nil && (wire.MetaData.Name != "" || wire.MetaData.Custom != "") {
		p.Metadata = wire.MetaData
	}
	return nil
}

// RevenueShare routes a portion of a payment to another wallet.
type RevenueShare struct {
	WalletRef         string  `json:"wallet_ref"`
	Amount            float64 `json:"amount"`
	GatewayFeePercent float64 `json:"gateway_fee_percent"`
}

// Sale describes a promotion applied to a basket or item.
type Sale struct {
	ID             int     `json:"id,omitempty"`
	Name           string  `json:"name"`
	PackageID      *int    `json:"package_id"`
	DiscountAmount float64 `json:"discountAmount"`
	Type           string  `json:"type"`
}

// BasketItem pairs a package with quantity and payment type. The type is
// derived from the package's subscription flag at construction time.
type BasketItem struct {
	Package      Package
	Qty          int
	Type         PaymentType
	RevenueShare []RevenueShare
	Sale         *Sale
}

// NewBasketItem wraps a package with quantity 1 and the payment type implied
// by the package.
func NewBasketItem(pkg Package) BasketItem {
	item := BasketItem{Package: pkg, Qty: 1, Type: PaymentTypeSingle}
	if pkg.Subscription {
		item.Type = PaymentTypeSubscription
	}
	return item
}

// WithQuantity returns a copy with the given quantity. Zero or negative
// values are ignored.
func (i BasketItem) WithQuantity(qty int) BasketItem {
	if qty > 0 {
		i.Qty = qty
	}
	return i
}

// WithRevenueShare returns a copy with the revenue share targets set.
func (i BasketItem) WithRevenueShare(shares ...RevenueShare) BasketItem {
	i.RevenueShare = shares
	return i
}

// WithSale returns a copy with a sale reference attached.
func (i BasketItem) WithSale(sale Sale) BasketItem {
	i.Sale = &sale
	return i
}

// MarshalJSON keeps the remote convention of an empty array for absent sale
// and revenue share values.
func (i BasketItem) MarshalJSON() ([]byte, error) {
	share := any(i.RevenueShare)
	if i.RevenueShare == nil {
		share = []RevenueShare{}
	}
	sale := any(i.Sale)
	if i.Sale == nil {
		sale = []any{}
	}
	return json.Marshal(map[string]any{
		"package":       i.Package,
		"qty":           i.Qty,
		"type":          i.Type,
		"revenue_share": share,
		"sale":          sale,
	})
}

// UnmarshalJSON accepts the wire shape, where absent sale and revenue share
// values arrive as empty arrays. The package's subscription flag is restored
// from the item type.
func (i *BasketItem) UnmarshalJSON(data []byte) error {
	var wire struct {
		Package      Package         `json:"package"`
		Qty          int             `json:"qty"`
		Type         PaymentType     `json:"type"`
		RevenueShare []RevenueShare  `json:"revenue_share"`
		Sale         json.RawMessage `json:"sale"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	i.Package = wire.Package
	i.Qty = wire.Qty
	i.Type = wire.Type
	if i.Type == "" {
		i.Type = PaymentTypeSingle
	}
	i.Package.Subscription = i.Type == PaymentTypeSubscription
	i.RevenueShare = nil
	if len(wire.RevenueShare) > 0 {
		i.RevenueShare = wire.RevenueShare
	}
	i.Sale = nil
	if s := string(bytes.TrimSpace(wire.Sale)); s != "" && s != "null" && s != "[]" {
		var sale Sale
		if err := json.Unmarshal(wire.Sale, &sale); err != nil {
			return err
		}
		i.Sale = &sale
	}
	return nil
}

// Basket is the payload submitted to create a hosted checkout. Custom data is
// round-tripped through webhooks and carries the host invoice id.
type Basket struct {
	ReturnURL   string
	CompleteURL string
	FirstName   string
	LastName    string
	Email       string
	ExpiresAt   time.Time
	Custom      map[string]any
	Recurring   bool
	items       []BasketItem
}

// NewBasket constructs an empty basket expiring 24 hours from now.
func NewBasket() Basket {
	return Basket{ExpiresAt: time.Now().Add(24 * time.Hour)}
}

// WithURLs sets the return and complete URLs.
func (b Basket) WithURLs(returnURL, completeURL string) Basket {
	b.ReturnURL = returnURL
	b.CompleteURL = completeURL
	return b
}

// WithCustomer sets the customer name and email.
func (b Basket) WithCustomer(firstName, lastName, email string) Basket {
	b.FirstName = firstName
	b.LastName = lastName
	b.Email = email
	return b
}

// WithCustom sets the free-form metadata echoed back on webhooks.
func (b Basket) WithCustom(custom map[string]any) Basket {
	b.Custom = custom
	return b
}

// WithExpiresAt overrides the basket expiration timestamp.
func (b Basket) WithExpiresAt(t time.Time) Basket {
	b.ExpiresAt = t
	return b
}

// WithRecurring flags the basket as containing a subscription item.
func (b Basket) WithRecurring(v bool) Basket {
	b.Recurring = v
	return b
}

// AddItem appends an item, returning a copy whose item slice is not shared
// with the receiver.
func (b Basket) AddItem(item BasketItem) Basket {
	items := make([]BasketItem, 0, len(b.items)+1)
	items = append(items, b.items...)
	items = append(items, item)
	b.items = items
	return b
}

// Items returns the ordered basket contents.
func (b Basket) Items() []BasketItem {
	return b.items
}

// MarshalJSON emits the basket header. Items travel separately in the
// checkout request payload.
func (b Basket) MarshalJSON() ([]byte, error) {
	expires := b.ExpiresAt
	if expires.IsZero() {
		expires = time.Now().Add(24 * time.Hour)
	}
	return json.Marshal(map[string]any{
		"return_url":   b.ReturnURL,
		"complete_url": b.CompleteURL,
		"first_name":   b.FirstName,
		"last_name":    b.LastName,
		"email":        b.Email,
		"expires_at":   expires.Format("2006-01-02"),
		"custom":       b.Custom,
		"recurring":    b.Recurring,
	})
}
