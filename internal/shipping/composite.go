package shipping

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// Strategy names accepted by New.
const (
	StrategyFree         = "free"
	StrategyWeightVolume = "weight_volume"
)

// Named is a delivery cost strategy with the name it reports metrics under.
type Named struct {
	Name     string
	Strategy pricing.DeliveryCostStrategy
}

// Composite runs every strategy in order and sums the costs they determine.
type Composite struct {
	Strategies []Named
	Logger     zerolog.Logger
}

var _ pricing.DeliveryCostStrategy = (*Composite)(nil)

// Calculate returns nil when no strategy determined a cost.
func (s *Composite) Calculate(ctx context.Context, c *cart.ShoppingCart) (*pricing.Total, error) {
	var total *pricing.Total
	for _, named := range s.Strategies {
		result, err := s.run(ctx, named, c)
		if err != nil {
			return nil, err
		}
		if result == nil {
			continue
		}
		sum := *result
		if total != nil {
			sum = total.Add(sum)
		}
		total = &sum
	}
	return total, nil
}

func (s *Composite) run(ctx context.Context, named Named, c *cart.ShoppingCart) (*pricing.Total, error) {
	ctx, span := otel.Tracer("shipping").Start(ctx, "shipping."+named.Name)
	defer span.End()

	result, err := named.Strategy.Calculate(ctx, c)
	switch {
	case err != nil:
		obs.ObserveDeliveryCost(named.Name, "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%s delivery cost: %w", named.Name, err)
	case result == nil:
		obs.ObserveDeliveryCost(named.Name, "none")
	default:
		obs.ObserveDeliveryCost(named.Name, "priced")
	}
	return result, nil
}

// Deps are the lookups shared by the built-in strategies.
type Deps struct {
	Slas       SlaService
	Policies   PolicyProvider
	Prices     PriceService
	Shops      ShopSettings
	Attributes AttributeSource
	Logger     zerolog.Logger
}

// New builds a Composite from strategy names such as "free,weight_volume".
func New(names []string, deps Deps) (*Composite, error) {
	resolver := &RegionalPriceResolver{Prices: deps.Prices, Shops: deps.Shops}
	out := &Composite{Logger: deps.Logger}
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		logger := deps.Logger.With().Str("strategy", name).Logger()
		switch name {
		case "":
			continue
		case StrategyFree:
			out.Strategies = append(out.Strategies, Named{Name: name, Strategy: &Free{
				Slas: deps.Slas, Policies: deps.Policies, Prices: resolver, Logger: logger,
			}})
		case StrategyWeightVolume:
			out.Strategies = append(out.Strategies, Named{Name: name, Strategy: &WeightVolume{
				Slas: deps.Slas, Policies: deps.Policies, Prices: resolver, Attributes: deps.Attributes, Logger: logger,
			}})
		default:
			return nil, fmt.Errorf("unknown delivery strategy %q", raw)
		}
	}
	return out, nil
}
