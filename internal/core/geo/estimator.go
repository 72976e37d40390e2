// Package geo estimates straight-line distances between pickup and drop-off
// points. It never routes: the result is a great-circle distance when both
// points carry coordinates and a table lookup otherwise.
package geo

import (
	"fmt"
	"math"
	"strings"

	"github.com/dipto-roy/courier-service-sub002/internal/core/domain"
)

const (
	earthRadiusKm = 6371.0

	DefaultSameAreaKm  = 3.0
	DefaultSameCityKm  = 8.0
	DefaultCrossCityKm = 20.0
)

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Estimator is stateless after construction and safe for concurrent use.
type Estimator struct {
	areas       map[string]float64
	cities      map[string]float64
	sameAreaKm  float64
	sameCityKm  float64
	crossCityKm float64
}

// Option customises an Estimator.
type Option func(*Estimator)

// WithAreaDistance registers the distance between two (city, area) pairs.
func WithAreaDistance(cityA, areaA, cityB, areaB string, km float64) Option {
	return func(e *Estimator) {
		e.areas[pairKey(placeKey(cityA, areaA), placeKey(cityB, areaB))] = km
	}
}

// WithCityDistance registers the distance between two cities, used when the
// areas are unknown but the cities differ.
func WithCityDistance(cityA, cityB string, km float64) Option {
	return func(e *Estimator) {
		e.cities[pairKey(normalize(cityA), normalize(cityB))] = km
	}
}

// WithDefaults overrides the fallback distances.
func WithDefaults(sameAreaKm, sameCityKm, crossCityKm float64) Option {
	return func(e *Estimator) {
		e.sameAreaKm = sameAreaKm
		e.sameCityKm = sameCityKm
		e.crossCityKm = crossCityKm
	}
}

// NewEstimator returns an Estimator seeded with the built-in area table.
func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{
		areas:       make(map[string]float64, len(defaultAreaTable)),
		cities:      make(map[string]float64, len(defaultCityTable)),
		sameAreaKm:  DefaultSameAreaKm,
		sameCityKm:  DefaultSameCityKm,
		crossCityKm: DefaultCrossCityKm,
	}
	for _, d := range defaultAreaTable {
		WithAreaDistance(d.cityA, d.areaA, d.cityB, d.areaB, d.km)(e)
	}
	for _, d := range defaultCityTable {
		WithCityDistance(d.cityA, d.cityB, d.km)(e)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ValidateCoordinates rejects NaN, infinite and out-of-range values.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v outside [-90, 90]", domain.ErrInvalidCoordinate, lat)
	}
	if math.IsNaN(lng) || math.IsInf(lng, 0) || lng < -180 || lng > 180 {
		return fmt.Errorf("%w: longitude %v outside [-180, 180]", domain.ErrInvalidCoordinate, lng)
	}
	return nil
}

// Estimate returns the haversine distance in kilometres between a and b.
func (e *Estimator) Estimate(a, b Point) (float64, error) {
	if err := ValidateCoordinates(a.Lat, a.Lng); err != nil {
		return 0, err
	}
	if err := ValidateCoordinates(b.Lat, b.Lng); err != nil {
		return 0, err
	}
	return haversine(a, b), nil
}

// EstimateByLocation looks the pair up in the area table and falls back to
// the same-city or cross-city default. It never fails.
func (e *Estimator) EstimateByLocation(cityA, areaA, cityB, areaB string) float64 {
	a, b := placeKey(cityA, areaA), placeKey(cityB, areaB)
	sameCity := normalize(cityA) == normalize(cityB)

	if sameCity && normalize(areaA) != "" && a == b {
		return e.sameAreaKm
	}
	if km, ok := e.areas[pairKey(a, b)]; ok {
		return km
	}
	if sameCity {
		return e.sameCityKm
	}
	if km, ok := e.cities[pairKey(normalize(cityA), normalize(cityB))]; ok {
		return km
	}
	return e.crossCityKm
}

// EstimateBetween picks the coordinate path when both addresses carry
// coordinates and the table path otherwise.
func (e *Estimator) EstimateBetween(from, to domain.Address) (float64, error) {
	if from.Coordinates != nil && to.Coordinates != nil {
		return e.Estimate(
			Point{Lat: from.Coordinates.Lat, Lng: from.Coordinates.Lng},
			Point{Lat: to.Coordinates.Lat, Lng: to.Coordinates.Lng},
		)
	}
	return e.EstimateByLocation(from.City, from.Area, to.City, to.Area), nil
}

func haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// rounding can push h a hair above 1 for antipodal points
	h = math.Min(1, math.Max(0, h))

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func placeKey(city, area string) string {
	return normalize(city) + "|" + normalize(area)
}

// pairKey is order independent so lookups are symmetric.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "::" + b
}
