package service

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/flight-reservation/internal/fare"
	"github.com/iliyamo/flight-reservation/internal/model"
)

// TripType selects how SearchTrip pairs airports and dates.
type TripType string

const (
	TripOneWay    TripType = "ONE_WAY"
	TripRoundTrip TripType = "ROUND_TRIP"
	TripMultiCity TripType = "MULTI_CITY"
)

// TripSearchParams is a search over one or more legs.  The shared filters
// of SearchParams apply to every leg; its Source, Destination, DepartureDate
// and paging fields are ignored.
type TripSearchParams struct {
	SearchParams
	TripType     TripType
	Sources      []string
	Destinations []string
	Dates        []time.Time
	ReturnDate   *time.Time // ROUND_TRIP only; defaults to the day after Dates[0]
}

// TripLeg is the list of offers for one source and destination pair, keyed
// "SRC_DST".
type TripLeg struct {
	Key     string        `json:"key"`
	Date    string        `json:"date"`
	Flights []FlightOffer `json:"flights"`
}

const suggestionLimit = 10

// SearchTrip runs one search per leg of the trip and returns the legs in
// travel order.  A round trip without any return flight is NotFound.
func (s *FlightService) SearchTrip(ctx context.Context, p TripSearchParams) ([]TripLeg, error) {
	sources := cleanCodes(p.Sources)
	dests := cleanCodes(p.Destinations)
	if len(sources) == 0 || len(dests) == 0 {
		return nil, model.NewValidationError("source and destination airports must not be empty for the selected trip type")
	}
	if len(p.Dates) == 0 {
		return nil, model.NewValidationError("at least one departure date is required")
	}

	rule, err := fare.Lookup(p.SpecialFare)
	if err != nil {
		return nil, err
	}
	passengers := p.Passengers
	if passengers <= 0 {
		passengers = 1
	}
	if err := fare.ValidatePassengerCount(rule, &passengers); err != nil {
		return nil, err
	}

	type leg struct {
		src, dst string
		date     time.Time
	}
	var legs []leg
	switch TripType(strings.ToUpper(string(p.TripType))) {
	case TripOneWay, "":
		legs = []leg{{sources[0], dests[0], p.Dates[0]}}
	case TripRoundTrip:
		ret := p.Dates[0].AddDate(0, 0, 1)
		if p.ReturnDate != nil {
			ret = *p.ReturnDate
		}
		if ret.Before(p.Dates[0]) {
			return nil, model.NewValidationError("return date must not be before the departure date")
		}
		legs = []leg{{sources[0], dests[0], p.Dates[0]}, {dests[0], sources[0], ret}}
	case TripMultiCity:
		n := min(len(sources), len(dests), len(p.Dates))
		for i := 0; i < n; i++ {
			legs = append(legs, leg{sources[i], dests[i], p.Dates[i]})
		}
	default:
		return nil, model.NewValidationError("invalid trip_type %q", p.TripType)
	}

	out := make([]TripLeg, 0, len(legs))
	for _, l := range legs {
		if l.src == l.dst {
			return nil, model.NewValidationError("leg %s_%s starts and ends at the same airport", l.src, l.dst)
		}
		q := p.FlightSearchQuery
		q.Source, q.Destination = l.src, l.dst
		date := l.date
		q.DepartureDate = &date
		q.Unpaged = true
		found, _, err := s.flights.Search(ctx, q)
		if err != nil {
			return nil, err
		}
		out = append(out, TripLeg{
			Key:     l.src + "_" + l.dst,
			Date:    l.date.UTC().Format(time.DateOnly),
			Flights: offers(found, rule),
		})
	}

	if TripType(strings.ToUpper(string(p.TripType))) == TripRoundTrip && len(out[1].Flights) == 0 {
		return nil, model.NewNotFoundError("flight not available for return date %s", out[1].Date)
	}
	return out, nil
}

func cleanCodes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// AirportSuggestions lists airport codes starting with query.  kind is
// "source" or "destination"; an empty query or an unknown kind yields no
// suggestions.
func (s *FlightService) AirportSuggestions(ctx context.Context, kind, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}, nil
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "source":
		return s.flights.AirportSuggestions(ctx, false, query, suggestionLimit)
	case "destination":
		return s.flights.AirportSuggestions(ctx, true, query, suggestionLimit)
	}
	return []string{}, nil
}
