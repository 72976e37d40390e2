// Package pricing computes delivery fees and expected delivery times from a
// fixed rate table. The engine holds no mutable state and may be shared freely.
package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
)

// TierRate holds the per-tier part of the rate table.
type TierRate struct {
	BaseFee   domain.Money
	Surcharge domain.Money
	SLA       time.Duration
}

// RateTable is the full set of pricing parameters. Money values are in minor units.
type RateTable struct {
	Tiers             map[domain.ServiceTier]TierRate
	FreeWeightKg      float64
	PerKg             domain.Money
	FreeDistanceKm    float64
	PerKm             domain.Money
	CODFeeBasisPoints int64
}

// DefaultRateTable returns the standard BDT tariff.
func DefaultRateTable() RateTable {
	return RateTable{
		Tiers: map[domain.ServiceTier]TierRate{
			domain.TierNormal:  {BaseFee: 6000, Surcharge: 0, SLA: 72 * time.Hour},
			domain.TierExpress: {BaseFee: 10000, Surcharge: 3000, SLA: 24 * time.Hour},
			domain.TierSameDay: {BaseFee: 15000, Surcharge: 5000, SLA: 8 * time.Hour},
		},
		FreeWeightKg:      1,
		PerKg:             2000,
		FreeDistanceKm:    10,
		PerKm:             200,
		CODFeeBasisPoints: 100,
	}
}

// Input bounds. Anything larger is rejected rather than priced, so every fee
// component stays well inside int64.
const (
	MaxWeightKg   = 1000.0
	MaxDistanceKm = 5000.0
	MaxCODAmount  = domain.Money(1_000_000_000_00) // 1bn BDT in poisha

	maxComponent = 1e15
)

// BusinessHours is the operating window expected delivery times are clipped into.
type BusinessHours struct {
	Location   *time.Location
	OpenHour   int
	CloseHour  int
	ClosedDays []time.Weekday
}

func (h BusinessHours) valid() bool {
	return h.OpenHour >= 0 && h.CloseHour <= 24 && h.OpenHour < h.CloseHour && len(h.ClosedDays) < 7
}

// Engine quotes shipments.
type Engine struct {
	rates RateTable
	hours *BusinessHours
	now   func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithRates replaces the default rate table.
func WithRates(r RateTable) Option {
	return func(e *Engine) { e.rates = r }
}

// WithBusinessHours enables clipping of expected delivery times. An invalid
// window is ignored.
func WithBusinessHours(h BusinessHours) Option {
	return func(e *Engine) {
		if !h.valid() {
			return
		}
		if h.Location == nil {
			h.Location = time.UTC
		}
		e.hours = &h
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an Engine with the default tariff and no clipping.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{rates: DefaultRateTable(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Quote prices a shipment of weightKg over distanceKm at the given tier.
func (e *Engine) Quote(weightKg, distanceKm float64, tier domain.ServiceTier, codAmount domain.Money) (domain.PricingQuote, error) {
	if math.IsNaN(weightKg) || math.IsInf(weightKg, 0) || weightKg <= 0 {
		return domain.PricingQuote{}, fmt.Errorf("%w: weight must be positive, got %v", domain.ErrInvalidPricingInput, weightKg)
	}
	if weightKg > MaxWeightKg {
		return domain.PricingQuote{}, fmt.Errorf("%w: weight %v kg exceeds %v kg", domain.ErrInvalidPricingInput, weightKg, MaxWeightKg)
	}
	if math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) || distanceKm < 0 {
		return domain.PricingQuote{}, fmt.Errorf("%w: distance must not be negative, got %v", domain.ErrInvalidPricingInput, distanceKm)
	}
	if distanceKm > MaxDistanceKm {
		return domain.PricingQuote{}, fmt.Errorf("%w: distance %v km exceeds %v km", domain.ErrInvalidPricingInput, distanceKm, MaxDistanceKm)
	}
	if codAmount < 0 {
		return domain.PricingQuote{}, fmt.Errorf("%w: cod amount must not be negative", domain.ErrInvalidPricingInput)
	}
	if codAmount > MaxCODAmount {
		return domain.PricingQuote{}, fmt.Errorf("%w: cod amount %d exceeds %d", domain.ErrInvalidPricingInput, codAmount, MaxCODAmount)
	}
	rate, ok := e.rates.Tiers[tier]
	if !ok {
		return domain.PricingQuote{}, fmt.Errorf("%w: unknown service tier %q", domain.ErrInvalidPricingInput, tier)
	}

	weightFee, err := surcharge(weightKg, e.rates.FreeWeightKg, e.rates.PerKg)
	if err != nil {
		return domain.PricingQuote{}, err
	}
	distanceFee, err := surcharge(distanceKm, e.rates.FreeDistanceKm, e.rates.PerKm)
	if err != nil {
		return domain.PricingQuote{}, err
	}
	cod, err := codFee(codAmount, e.rates.CODFeeBasisPoints)
	if err != nil {
		return domain.PricingQuote{}, err
	}

	q := domain.PricingQuote{
		BaseFee:              rate.BaseFee,
		WeightSurcharge:      weightFee,
		DistanceSurcharge:    distanceFee,
		ServiceTierSurcharge: rate.Surcharge,
		CODHandlingFee:       cod,
	}
	q.TotalFee = q.BaseFee + q.WeightSurcharge + q.DistanceSurcharge + q.ServiceTierSurcharge + q.CODHandlingFee
	q.ExpectedDeliveryAt = e.expectedDelivery(e.now(), rate.SLA)
	return q, nil
}

// ExpectedDelivery returns the clipped SLA deadline for tier starting at from.
func (e *Engine) ExpectedDelivery(tier domain.ServiceTier, from time.Time) (time.Time, error) {
	rate, ok := e.rates.Tiers[tier]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: unknown service tier %q", domain.ErrInvalidPricingInput, tier)
	}
	return e.expectedDelivery(from, rate.SLA), nil
}

func (e *Engine) expectedDelivery(from time.Time, sla time.Duration) time.Time {
	due := from.Add(sla)
	if e.hours == nil {
		return due.UTC()
	}
	return clip(due, *e.hours).UTC()
}

// clip moves t forward to the start of the next operating window when it
// falls outside one. Instants inside a window are returned unchanged.
func clip(t time.Time, h BusinessHours) time.Time {
	local := t.In(h.Location)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, h.Location)

	for i := 0; i < 8; i++ {
		if !closedOn(day.Weekday(), h.ClosedDays) {
			open := day.Add(time.Duration(h.OpenHour) * time.Hour)
			closeAt := day.Add(time.Duration(h.CloseHour) * time.Hour)
			if local.Before(open) {
				return open
			}
			if local.Before(closeAt) {
				return t
			}
		}
		day = day.AddDate(0, 0, 1)
		local = day
	}
	return t
}

func closedOn(d time.Weekday, closed []time.Weekday) bool {
	for _, c := range closed {
		if c == d {
			return true
		}
	}
	return false
}

// surcharge is max(0, value-free) * rate, rounded half up to the minor unit.
func surcharge(value, free float64, rate domain.Money) (domain.Money, error) {
	excess := value - free
	if excess <= 0 || rate <= 0 {
		return 0, nil
	}
	fee := excess * float64(rate)
	if fee > maxComponent {
		return 0, fmt.Errorf("%w: surcharge out of range", domain.ErrInvalidPricingInput)
	}
	return roundHalfUp(fee), nil
}

// codFee is amount * bps / 10000 rounded half up, computed in integers.
func codFee(amount domain.Money, bps int64) (domain.Money, error) {
	if amount <= 0 || bps <= 0 {
		return 0, nil
	}
	if int64(amount) > (math.MaxInt64-5000)/bps {
		return 0, fmt.Errorf("%w: cod fee out of range", domain.ErrInvalidPricingInput)
	}
	return domain.Money((int64(amount)*bps + 5000) / 10000), nil
}

func roundHalfUp(v float64) domain.Money {
	// the epsilon absorbs binary representation error such as 0.5*x landing just below .5
	return domain.Money(math.Floor(v + 0.5 + 1e-9))
}
