package obs

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartCalculationsTotal counts amount calculations by scope and outcome.
	CartCalculationsTotal *prometheus.CounterVec
	// CartCalculationDuration records calculation latency in seconds.
	CartCalculationDuration *prometheus.HistogramVec
	// DeliveryCostTotal counts delivery strategy outcomes.
	DeliveryCostTotal *prometheus.CounterVec
	// AvailabilityLookupsTotal counts resolved availability models by kind.
	AvailabilityLookupsTotal *prometheus.CounterVec
	// CartCommandsTotal counts executed cart commands.
	CartCommandsTotal *prometheus.CounterVec
	// CatalogCacheTotal counts catalog cache reads by result.
	CatalogCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers pricing Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, buckets []float64, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		if len(buckets) == 0 {
			buckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25}
		}
		CartCalculationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_calculations_total",
			Help:      "Count of cart, order and delivery amount calculations.",
		}, []string{"scope", "outcome"})
		CartCalculationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cart_calculation_duration_seconds",
			Help:      "Latency of amount calculations in seconds.",
			Buckets:   buckets,
		}, []string{"scope"})
		DeliveryCostTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_cost_total",
			Help:      "Count of delivery cost strategy outcomes.",
		}, []string{"strategy", "outcome"})
		AvailabilityLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_lookups_total",
			Help:      "Count of availability models resolved by availability kind.",
		}, []string{"availability"})
		CartCommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_commands_total",
			Help:      "Count of executed cart commands by outcome.",
		}, []string{"command", "outcome"})
		CatalogCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_total",
			Help:      "Count of catalog cache reads by result (hit, miss, error).",
		}, []string{"result"})

		mustRegisterCollector(reg, CartCalculationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartCalculationsTotal = v
			}
		})
		mustRegisterCollector(reg, CartCalculationDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				CartCalculationDuration = v
			}
		})
		mustRegisterCollector(reg, DeliveryCostTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DeliveryCostTotal = v
			}
		})
		mustRegisterCollector(reg, AvailabilityLookupsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				AvailabilityLookupsTotal = v
			}
		})
		mustRegisterCollector(reg, CartCommandsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartCommandsTotal = v
			}
		})
		mustRegisterCollector(reg, CatalogCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogCacheTotal = v
			}
		})
	})
}

// ObserveCalculation records a calculation outcome and its latency.
// It is a no-op until MustRegisterDomainMetrics has run.
func ObserveCalculation(scope, outcome string, elapsed time.Duration) {
	if CartCalculationsTotal != nil {
		CartCalculationsTotal.WithLabelValues(scope, outcome).Inc()
	}
	if CartCalculationDuration != nil {
		CartCalculationDuration.WithLabelValues(scope).Observe(elapsed.Seconds())
	}
}

// ObserveDeliveryCost records a delivery strategy outcome.
func ObserveDeliveryCost(strategy, outcome string) {
	if DeliveryCostTotal != nil {
		DeliveryCostTotal.WithLabelValues(strategy, outcome).Inc()
	}
}

// ObserveAvailability records a resolved availability kind.
func ObserveAvailability(availability string) {
	if AvailabilityLookupsTotal != nil {
		AvailabilityLookupsTotal.WithLabelValues(availability).Inc()
	}
}

// ObserveCommand records a cart command outcome.
func ObserveCommand(command, outcome string) {
	if CartCommandsTotal != nil {
		CartCommandsTotal.WithLabelValues(command, outcome).Inc()
	}
}

// ObserveCatalogCache records a catalog cache read result.
func ObserveCatalogCache(result string) {
	if CatalogCacheTotal != nil {
		CatalogCacheTotal.WithLabelValues(result).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
