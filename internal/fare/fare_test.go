package fare

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-reservation/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestTotal_FamilyBusinessAndEconomy(t *testing.T) {
	family, err := Lookup(model.FareFamily)
	require.NoError(t, err)

	q, err := Total(dec("10000"), []model.TravelClass{model.Business, model.Economy}, family)
	require.NoError(t, err)
	assert.True(t, dec("28000").Equal(q.Subtotal), q.Subtotal.String())
	assert.True(t, dec("1600").Equal(q.Discount), q.Discount.String())
	assert.True(t, dec("26400").Equal(q.Total), q.Total.String())
	assert.True(t, dec("18000").Equal(q.PerSeat[0]))
}

func TestTotal_FamilyNeedsTwoPassengers(t *testing.T) {
	family, _ := Lookup(model.FareFamily)
	_, err := Total(dec("10000"), []model.TravelClass{model.Economy}, family)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindFare))
	assert.Equal(t, "FAMILY fare requires at least 2 passenger(s).", err.Error())
}

func TestTotal_FlooredAtZero(t *testing.T) {
	student, _ := Lookup(model.FareStudent)
	q, err := Total(dec("100"), []model.TravelClass{model.Economy, model.Economy}, student)
	require.NoError(t, err)
	assert.True(t, q.Total.IsZero())
}

func TestMultipliers(t *testing.T) {
	want := map[model.TravelClass]string{
		model.Economy:        "1000",
		model.PremiumEconomy: "1300",
		model.Business:       "1800",
		model.First:          "2500",
	}
	for _, c := range model.TravelClasses {
		p, err := Price(dec("1000"), c)
		require.NoError(t, err, c)
		assert.True(t, dec(want[c]).Equal(p), "%s: %s", c, p)
	}
	_, err := Price(dec("1000"), model.TravelClass("COACH"))
	assert.True(t, model.IsKind(err, model.KindValidation))
}

func TestApplyDiscount(t *testing.T) {
	senior, _ := Lookup(model.FareSeniorCitizen)
	assert.True(t, dec("9600").Equal(ApplyDiscount(nil, senior)))

	base := dec("5000")
	regular, _ := Lookup("")
	assert.True(t, base.Equal(ApplyDiscount(&base, regular)))
}

func TestValidatePassengerCount_NilDefaultsToOne(t *testing.T) {
	family, _ := Lookup(model.FareFamily)
	assert.Error(t, ValidatePassengerCount(family, nil))

	student, _ := Lookup(model.FareStudent)
	assert.NoError(t, ValidatePassengerCount(student, nil))
}

func TestLookup(t *testing.T) {
	r, err := Lookup("armed_forces")
	require.NoError(t, err)
	assert.Equal(t, model.FareArmedForces, r.Type)

	_, err = Lookup("VIP")
	assert.True(t, model.IsKind(err, model.KindValidation))
}
