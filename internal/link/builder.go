package link

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/checkout-gateway/internal/checkout"
	"github.com/noah-isme/checkout-gateway/internal/host"
	"github.com/noah-isme/checkout-gateway/internal/obs"
)

// ErrMultipleSubscriptionItems is returned when an invoice carries more than
// one subscription-eligible line item. Only one subscription is allowed per
// checkout.
var ErrMultipleSubscriptionItems = errors.New("link: invoice has multiple subscription-eligible items")

// ErrNoCheckoutLink is returned when the remote accepted the checkout
// request but the response carried no link.
var ErrNoCheckoutLink = errors.New("link: checkout response contained no link")

// hostingItemType is the invoice line-item type backed by a service record.
const hostingItemType = "Hosting"

// ClientDetails is the customer snapshot submitted with a link request.
type ClientDetails struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	ReturnURL string `json:"returnUrl" validate:"omitempty,url"`
}

// Link is the hosted payment page produced for an invoice.
type Link struct {
	Ident string `json:"ident"`
	URL   string `json:"url"`
}

// Builder turns host invoices into hosted checkout links.
type Builder struct {
	API                *checkout.Client
	Host               host.Repository
	Triage             *checkout.TriageReporter
	AllowSubscriptions bool
	ReturnURLBase      string
	ModuleName         string
	Log                zerolog.Logger
}

// BuildCheckoutLink assembles a basket from the invoice's line items and
// submits a checkout request. Hosting items whose service record has no
// subscription yet become subscription packages when subscriptions are
// enabled; everything else is a one-off charge.
func (b *Builder) BuildCheckoutLink(ctx context.Context, invoiceID int, details ClientDetails) (Link, error) {
	ctx, span := otel.Tracer("link").Start(ctx, "link.BuildCheckoutLink")
	defer span.End()
	span.SetAttributes(attribute.Int("invoice.id", invoiceID))

	invoice, err := b.Host.InvoiceByID(ctx, invoiceID)
	if err != nil {
		obs.LinkBuildTotal.WithLabelValues("invoice_error").Inc()
		return Link{}, fmt.Errorf("load invoice %d: %w", invoiceID, err)
	}

	returnURL := details.ReturnURL
	if returnURL == "" {
		returnURL = fmt.Sprintf("%s/invoices/%d", b.ReturnURLBase, invoiceID)
	}

	basket := checkout.NewBasket().
		WithURLs(returnURL, returnURL).
		WithCustomer(details.FirstName, details.LastName, details.Email).
		WithCustom(map[string]any{"invoiceId": invoice.ID})

	subscriptions := 0
	for _, item := range invoice.Items {
		pkg := checkout.NewPackage(item.Description, item.Amount)

		if item.Type == hostingItemType {
			hosting, err := b.Host.HostingByID(ctx, item.RelationID)
			if err != nil {
				obs.LinkBuildTotal.WithLabelValues("invoice_error").Inc()
				return Link{}, fmt.Errorf("load hosting %d: %w", item.RelationID, err)
			}
			months, err := ExpiryLengthForCycle(hosting.BillingCycle)
			if err != nil {
				obs.LinkBuildTotal.WithLabelValues("bad_cycle").Inc()
				return Link{}, err
			}
			if hosting.SubscriptionID == "" && b.AllowSubscriptions {
				subscriptions++
				if subscriptions > 1 {
					obs.LinkBuildTotal.WithLabelValues("rejected").Inc()
					return Link{}, ErrMultipleSubscriptionItems
				}
				basket = basket.WithRecurring(true)
				pkg = pkg.WithSubscription(true)
			}
			pkg = pkg.WithExpiry(checkout.ExpiryMonth, months)
		}

		meta, err := checkout.MetaCustom(checkout.RelationRef{RelID: item.RelationID})
		if err != nil {
			return Link{}, fmt.Errorf("encode item metadata: %w", err)
		}
		basket = basket.AddItem(checkout.NewBasketItem(pkg.WithMetadata(meta)))
	}

	resp, err := b.API.CreateCheckout(ctx, basket, nil)
	if err != nil {
		b.reportFailure(ctx, invoiceID, basket, err)
		obs.LinkBuildTotal.WithLabelValues("api_error").Inc()
		return Link{}, fmt.Errorf("create checkout: %w", err)
	}
	if resp.Links.Checkout == "" {
		b.reportFailure(ctx, invoiceID, basket, ErrNoCheckoutLink)
		obs.LinkBuildTotal.WithLabelValues("api_error").Inc()
		return Link{}, ErrNoCheckoutLink
	}

	obs.LinkBuildTotal.WithLabelValues("ok").Inc()
	b.Log.Info().Int("invoice_id", invoiceID).Str("ident", resp.Ident).Msg("checkout link created")
	return Link{Ident: resp.Ident, URL: resp.Links.Checkout}, nil
}

// reportFailure records a failed basket in the gateway log and forwards a
// diagnostic event so the remote platform sees integration failures too.
func (b *Builder) reportFailure(ctx context.Context, invoiceID int, basket checkout.Basket, cause error) {
	payload, _ := json.Marshal(map[string]any{"invoiceId": invoiceID, "basket": basket, "error": cause.Error()})
	if err := b.Host.AppendGatewayLog(ctx, host.LogEntry{
		Module:  b.ModuleName,
		Action:  "checkout link failed",
		Payload: payload,
	}); err != nil {
		b.Log.Warn().Err(err).Msg("gateway log append failed")
	}
	if b.Triage != nil {
		b.Triage.Report(ctx, checkout.TriageEvent{
			ErrorMessage: "Failed to create checkout basket",
			Metadata:     map[string]any{"invoiceId": invoiceID, "error": cause.Error()},
		})
	}
	b.Log.Error().Err(cause).Int("invoice_id", invoiceID).Msg("checkout link build failed")
}
