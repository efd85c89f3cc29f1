// Package fare prices booking legs.  All amounts are decimals rounded to two
// places; the discount rules are flat currency amounts, not percentages.
package fare

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/flight-reservation/internal/model"
)

// DefaultBasePrice is used when a flight carries no base price.
var DefaultBasePrice = decimal.NewFromInt(10000)

// Rule is a special-fare discount: a flat amount taken off the base price of
// each ticket, available only to bookings with at least MinPassengers.
type Rule struct {
	Type          model.SpecialFareType
	Discount      decimal.Decimal
	MinPassengers int
}

var rules = map[model.SpecialFareType]Rule{
	model.FareRegular:         {model.FareRegular, decimal.Zero, 1},
	model.FareStudent:         {model.FareStudent, decimal.NewFromInt(500), 1},
	model.FareArmedForces:     {model.FareArmedForces, decimal.NewFromInt(700), 1},
	model.FareSeniorCitizen:   {model.FareSeniorCitizen, decimal.NewFromInt(400), 1},
	model.FareDoctorAndNurses: {model.FareDoctorAndNurses, decimal.NewFromInt(600), 1},
	model.FareFamily:          {model.FareFamily, decimal.NewFromInt(800), 2},
}

// Lookup returns the rule registered for t.  An empty name resolves to
// REGULAR.
func Lookup(t model.SpecialFareType) (Rule, error) {
	if t == "" {
		return rules[model.FareRegular], nil
	}
	r, ok := rules[model.SpecialFareType(strings.ToUpper(string(t)))]
	if !ok {
		return Rule{}, model.NewValidationError("unknown special fare type %q", t)
	}
	return r, nil
}

// Multiplier returns the class multiplier applied to the base price.
func Multiplier(class model.TravelClass) (decimal.Decimal, error) {
	switch class {
	case model.Economy:
		return decimal.NewFromInt(1), nil
	case model.PremiumEconomy:
		return decimal.RequireFromString("1.3"), nil
	case model.Business:
		return decimal.RequireFromString("1.8"), nil
	case model.First:
		return decimal.RequireFromString("2.5"), nil
	}
	return decimal.Zero, model.NewValidationError("unknown travel class %q", class)
}

// Price returns the class-adjusted fare for one passenger.
func Price(base decimal.Decimal, class model.TravelClass) (decimal.Decimal, error) {
	m, err := Multiplier(class)
	if err != nil {
		return decimal.Zero, err
	}
	return base.Mul(m).Round(2), nil
}

// ApplyDiscount takes the rule's flat discount off base.  A nil base uses
// DefaultBasePrice.
func ApplyDiscount(base *decimal.Decimal, r Rule) decimal.Decimal {
	b := DefaultBasePrice
	if base != nil {
		b = *base
	}
	return b.Sub(r.Discount)
}

// ValidatePassengerCount fails with a fare error when count is below the
// rule's minimum.  A nil count is treated as one passenger.
func ValidatePassengerCount(r Rule, count *int) error {
	n := 1
	if count != nil {
		n = *count
	}
	if n < r.MinPassengers {
		return model.NewFareError("%s fare requires at least %d passenger(s).", r.Type, r.MinPassengers)
	}
	return nil
}

// Quote is the priced result for a booking leg.
type Quote struct {
	Subtotal decimal.Decimal   // sum of class-adjusted fares
	Discount decimal.Decimal   // flat discount times passenger count
	Total    decimal.Decimal   // Subtotal - Discount, never negative
	PerSeat  []decimal.Decimal // class-adjusted fare per passenger, in order
}

// Total prices a leg: the class-adjusted fares are summed first and the flat
// discount, multiplied by the passenger count, is subtracted afterwards.  The
// result is floored at zero.
func Total(base decimal.Decimal, classes []model.TravelClass, r Rule) (Quote, error) {
	n := len(classes)
	if err := ValidatePassengerCount(r, &n); err != nil {
		return Quote{}, err
	}
	q := Quote{PerSeat: make([]decimal.Decimal, 0, n)}
	for _, c := range classes {
		p, err := Price(base, c)
		if err != nil {
			return Quote{}, err
		}
		q.PerSeat = append(q.PerSeat, p)
		q.Subtotal = q.Subtotal.Add(p)
	}
	q.Discount = r.Discount.Mul(decimal.NewFromInt(int64(n)))
	q.Total = decimal.Max(q.Subtotal.Sub(q.Discount), decimal.Zero).Round(2)
	return q, nil
}
