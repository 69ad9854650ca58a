package gateway

import (
	"context"
	"errors"
	"regexp"
	"time"

	domainErrors "github.com/fusionbox/dinero/internal/domain/errors"
	"github.com/fusionbox/dinero/internal/infrastructure/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/fusionbox/dinero/internal/gateway"

var cardNumberPattern = regexp.MustCompile(`\b([0-9])[0-9- ]{9,16}([0-9]{4})\b`)

// MaskCardNumbers replaces anything that looks like a card number with its
// first digit and last four.
func MaskCardNumbers(s string) string {
	return cardNumberPattern.ReplaceAllString(s, "${1}XXXXXXXXX${2}")
}

// Instrumented decorates a Gateway with logging, metrics and tracing.
type Instrumented struct {
	next    Gateway
	logger  zerolog.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
}

// Instrument wraps g. metrics may be nil.
func Instrument(g Gateway, logger zerolog.Logger, metrics *observability.Metrics) *Instrumented {
	return &Instrumented{
		next:    g,
		logger:  logger.With().Str("gateway", g.Name()).Logger(),
		metrics: metrics,
		tracer:  otel.Tracer(tracerName),
	}
}

// Unwrap returns the decorated gateway.
func (g *Instrumented) Unwrap() Gateway { return g.next }

func (g *Instrumented) Name() string { return g.next.Name() }

// Resolve forwards to the wrapped gateway when it discovers endpoints.
func (g *Instrumented) Resolve(ctx context.Context) (string, error) {
	r, ok := g.next.(Resolver)
	if !ok {
		return "", nil
	}
	return observe(ctx, g, "resolve", nil, func(ctx context.Context) (string, error) {
		return r.Resolve(ctx)
	})
}

func (g *Instrumented) Charge(ctx context.Context, price decimal.Decimal, opts Options) (*Transaction, error) {
	return observe(ctx, g, "charge", func(e *zerolog.Event) {
		e.Str("price", price.String()).Dict("options", maskedOptions(opts))
	}, func(ctx context.Context) (*Transaction, error) {
		return g.next.Charge(ctx, price, opts)
	})
}

func (g *Instrumented) ChargeCustomer(ctx context.Context, customer *Customer, price decimal.Decimal, opts Options) (*Transaction, error) {
	return observe(ctx, g, "charge_customer", func(e *zerolog.Event) {
		e.Str("customer_id", customer.CustomerID).Str("price", price.String())
	}, func(ctx context.Context) (*Transaction, error) {
		return g.next.ChargeCustomer(ctx, customer, price, opts)
	})
}

func (g *Instrumented) ChargeCard(ctx context.Context, card *Card, price decimal.Decimal, opts Options) (*Transaction, error) {
	return observe(ctx, g, "charge_card", func(e *zerolog.Event) {
		e.Str("customer_id", card.CustomerID).Str("card_id", card.CardID).Str("price", price.String())
	}, func(ctx context.Context) (*Transaction, error) {
		return g.next.ChargeCard(ctx, card, price, opts)
	})
}

func (g *Instrumented) Retrieve(ctx context.Context, transactionID string) (*Transaction, error) {
	return observe(ctx, g, "retrieve", func(e *zerolog.Event) {
		e.Str("transaction_id", transactionID)
	}, func(ctx context.Context) (*Transaction, error) {
		return g.next.Retrieve(ctx, transactionID)
	})
}

func (g *Instrumented) Void(ctx context.Context, txn *Transaction) error {
	_, err := observe(ctx, g, "void", func(e *zerolog.Event) {
		e.Str("transaction_id", txn.TransactionID)
	}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.next.Void(ctx, txn)
	})
	return err
}

func (g *Instrumented) Refund(ctx context.Context, txn *Transaction, amount decimal.Decimal) error {
	_, err := observe(ctx, g, "refund", func(e *zerolog.Event) {
		e.Str("transaction_id", txn.TransactionID).Str("amount", amount.String())
	}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.next.Refund(ctx, txn, amount)
	})
	return err
}

func (g *Instrumented) Settle(ctx context.Context, txn *Transaction, amount decimal.Decimal) (*Transaction, error) {
	return observe(ctx, g, "settle", func(e *zerolog.Event) {
		e.Str("transaction_id", txn.TransactionID).Str("amount", amount.String())
	}, func(ctx context.Context) (*Transaction, error) {
		return g.next.Settle(ctx, txn, amount)
	})
}

func (g *Instrumented) CreateCustomer(ctx context.Context, opts Options) (*Customer, error) {
	return observe(ctx, g, "create_customer", func(e *zerolog.Event) {
		e.Dict("options", maskedOptions(opts))
	}, func(ctx context.Context) (*Customer, error) {
		return g.next.CreateCustomer(ctx, opts)
	})
}

func (g *Instrumented) RetrieveCustomer(ctx context.Context, customerID string) (*Customer, []*Card, error) {
	type result struct {
		customer *Customer
		cards    []*Card
	}
	res, err := observe(ctx, g, "retrieve_customer", func(e *zerolog.Event) {
		e.Str("customer_id", customerID)
	}, func(ctx context.Context) (result, error) {
		c, cards, err := g.next.RetrieveCustomer(ctx, customerID)
		return result{c, cards}, err
	})
	return res.customer, res.cards, err
}

func (g *Instrumented) UpdateCustomer(ctx context.Context, customerID string, opts Options) error {
	_, err := observe(ctx, g, "update_customer", func(e *zerolog.Event) {
		e.Str("customer_id", customerID).Dict("options", maskedOptions(opts))
	}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.next.UpdateCustomer(ctx, customerID, opts)
	})
	return err
}

func (g *Instrumented) DeleteCustomer(ctx context.Context, customerID string) error {
	_, err := observe(ctx, g, "delete_customer", func(e *zerolog.Event) {
		e.Str("customer_id", customerID)
	}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.next.DeleteCustomer(ctx, customerID)
	})
	return err
}

func (g *Instrumented) AddCardToCustomer(ctx context.Context, customer *Customer, opts Options) (*Card, error) {
	return observe(ctx, g, "add_card", func(e *zerolog.Event) {
		e.Str("customer_id", customer.CustomerID).Dict("options", maskedOptions(opts))
	}, func(ctx context.Context) (*Card, error) {
		return g.next.AddCardToCustomer(ctx, customer, opts)
	})
}

func (g *Instrumented) UpdateCard(ctx context.Context, card *Card) error {
	_, err := observe(ctx, g, "update_card", func(e *zerolog.Event) {
		e.Str("customer_id", card.CustomerID).Str("card_id", card.CardID)
	}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.next.UpdateCard(ctx, card)
	})
	return err
}

func (g *Instrumented) DeleteCard(ctx context.Context, card *Card) error {
	_, err := observe(ctx, g, "delete_card", func(e *zerolog.Event) {
		e.Str("customer_id", card.CustomerID).Str("card_id", card.CardID)
	}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.next.DeleteCard(ctx, card)
	})
	return err
}

func observe[T any](ctx context.Context, g *Instrumented, op string, fields func(*zerolog.Event), fn func(context.Context) (T, error)) (T, error) {
	callID := uuid.NewString()
	ctx, span := g.tracer.Start(ctx, "gateway."+op, trace.WithAttributes(
		attribute.String("gateway.name", g.Name()),
		attribute.String("gateway.operation", op),
		attribute.String("gateway.call_id", callID),
	))
	defer span.End()

	start := time.Now()
	res, err := fn(ctx)
	elapsed := time.Since(start)
	outcome := classifyOutcome(err)

	var ev *zerolog.Event
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		ev = g.logger.Warn().Err(err)
	} else {
		ev = g.logger.Info()
	}
	ev = ev.Str("op", op).Str("call_id", callID).Str("outcome", outcome).Dur("duration", elapsed)
	if fields != nil {
		fields(ev)
	}
	ev.Msg("gateway call")

	if g.metrics != nil {
		g.metrics.GatewayRequestsTotal.WithLabelValues(g.Name(), op, outcome).Inc()
		g.metrics.GatewayRequestDuration.WithLabelValues(g.Name(), op).Observe(elapsed.Seconds())
		var rejected *domainErrors.PaymentRejectedError
		if errors.As(err, &rejected) {
			for _, k := range rejected.Kinds() {
				g.metrics.PaymentRejections.WithLabelValues(g.Name(), string(k)).Inc()
			}
		}
	}
	return res, err
}

func classifyOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domainErrors.ErrPaymentRejected):
		return "rejected"
	case errors.Is(err, domainErrors.ErrCustomerNotFound),
		errors.Is(err, domainErrors.ErrDuplicateCustomer),
		errors.Is(err, domainErrors.ErrDuplicateCard),
		errors.Is(err, domainErrors.ErrInvalidCustomer):
		return "customer_error"
	case errors.Is(err, domainErrors.ErrGateway):
		return "gateway_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

func maskedOptions(opts Options) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range opts {
		if k == OptCVV {
			continue
		}
		d.Str(k, MaskCardNumbers(v))
	}
	return d
}
