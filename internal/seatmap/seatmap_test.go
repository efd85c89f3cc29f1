package seatmap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-reservation/internal/model"
)

func TestGenerate_LightCapacity38(t *testing.T) {
	seats, err := Generate(38, model.AircraftLight)
	require.NoError(t, err)
	require.Len(t, seats, 40)

	seen := make(map[string]bool, len(seats))
	for _, s := range seats {
		assert.False(t, seen[s.SeatNumber], "duplicate seat %s", s.SeatNumber)
		seen[s.SeatNumber] = true
		assert.Equal(t, model.Economy, s.TravelClass)
		assert.Equal(t, model.SeatAvailable, s.Status)
	}
	assert.Equal(t, "1A", seats[0].SeatNumber)
	assert.Equal(t, "10D", seats[39].SeatNumber)
	assert.Equal(t, 10, seats[39].RowNumber)
}

func TestGenerate_EverySizeHasColumns(t *testing.T) {
	for _, size := range model.AircraftSizes {
		cols, err := Columns(size)
		require.NoError(t, err, size)
		seats, err := Generate(cols*3, size)
		require.NoError(t, err)
		assert.Len(t, seats, cols*3, size)
	}
}

func TestGenerate_RejectsBadInput(t *testing.T) {
	_, err := Generate(0, model.AircraftLight)
	assert.True(t, model.IsKind(err, model.KindValidation))

	_, err = Generate(10, model.AircraftSize("TINY"))
	assert.True(t, model.IsKind(err, model.KindValidation))
}

func TestPositionAndType(t *testing.T) {
	cases := []struct {
		cols      int
		positions string
		types     string
	}{
		// L/M/R and W/A/M per column
		{4, "LLRR", "WAAW"},
		{6, "LLLRRR", "WMAAMW"},
		{8, "LLLLRRRR", "WMMAAMMW"},
		{10, "LLLMMMMRRR", "WMAAMMAAMW"},
	}
	for _, tc := range cases {
		for c := 0; c < tc.cols; c++ {
			assert.Equal(t, string(tc.positions[c]), string(Position(c, tc.cols)[0]), "cols=%d col=%d", tc.cols, c)
			assert.Equal(t, string(tc.types[c]), string(Type(c, tc.cols)[0]), "cols=%d col=%d", tc.cols, c)
		}
	}
}

func TestColumnLabel(t *testing.T) {
	assert.Equal(t, "A", ColumnLabel(0))
	assert.Equal(t, "J", ColumnLabel(9))
	assert.Equal(t, "AA", ColumnLabel(26))
	assert.Equal(t, "", ColumnLabel(-1))
}

func TestLayout(t *testing.T) {
	seats, err := Generate(4, model.AircraftLight)
	require.NoError(t, err)
	seats[1].Status = model.SeatReserved
	seats[2].Status = model.SeatOccupied

	out, err := Layout("AI-101", model.AircraftLight, seats)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Flight: AI-101", lines[0])
	assert.Equal(t, "1  :  [A][R]   [X][D]", lines[3])
}
