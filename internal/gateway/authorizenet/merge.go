package authorizenet

import (
	"context"
	"errors"

	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
	"github.com/fusionbox/dinero/internal/gateway"
)

// updateCustomerPayment pushes billing or card changes to the customer's
// stored card. Without a card_id option the primary card is looked up; a
// customer with no card gets one created.
func (g *Gateway) updateCustomerPayment(ctx context.Context, customerID string, opts gateway.Options) error {
	if !opts.HasAny(gateway.BillingKeys...) && !opts.Has(gateway.OptNumber) {
		return nil
	}

	cardID, ok := opts.Lookup(gateway.OptCardID)
	if !ok {
		customer, _, err := g.RetrieveCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		cardID = customer.CardID
	}
	return g.savePaymentProfile(ctx, customerID, cardID, opts, "")
}

// savePaymentProfile creates or updates a payment profile. The processor
// blanks every field an update leaves out, so an incomplete update is first
// merged over the stored profile, with the caller's fields winning.
func (g *Gateway) savePaymentProfile(ctx context.Context, customerID, cardID string, opts gateway.Options, validationMode string) error {
	if cardID == "" {
		profile := paymentProfileBlock(opts, g.now())
		_, err := g.do(ctx, createPaymentProfileRequest(customerID, profile, validationMode))
		return err
	}

	merged := opts
	if !completeProfile(opts) {
		stored, err := g.storedProfileOptions(ctx, customerID, cardID)
		switch {
		case errors.Is(err, domainErrors.ErrCustomerNotFound):
			g.logger.Debug().Str("gateway", g.cfg.Name).Str("card_id", cardID).Msg("stored payment profile not found, updating without merge")
		case err != nil:
			return err
		default:
			merged = stored.Merge(opts)
		}
	}

	profile := paymentProfileBlock(merged, g.now())
	_, err := g.do(ctx, updatePaymentProfileRequest(customerID, cardID, profile, validationMode))
	return err
}

func (g *Gateway) storedProfileOptions(ctx context.Context, customerID, cardID string) (gateway.Options, error) {
	resp, err := g.do(ctx, getPaymentProfileRequest(customerID, cardID))
	if err != nil {
		return nil, err
	}
	return paymentProfileOptions(resp.Child("paymentProfile")), nil
}

// completeProfile reports whether opts already carries every field an
// update request sends.
func completeProfile(opts gateway.Options) bool {
	return opts.HasAll(gateway.BillingKeys...) && opts.HasAll(gateway.CardKeys...)
}
