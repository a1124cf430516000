package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/cache"
	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/model"
	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/repository"
)

// RouteService answers interval questions about a train's route: the
// segment decomposition of an origin/destination pair, the aggregated
// fare over those segments, and how many seats of a class are free
// across all of them.  The order orchestrator resolves an interval once
// per request and passes the same segment slice to every method so that
// fare, availability and allocation all operate on an identical segment
// set.
type RouteService struct {
	stops *repository.StopRepo
	fares *repository.FareRepo
	seats *repository.SeatStatusRepo
	avail *cache.AvailabilityCache
}

// NewRouteService constructs a RouteService.  The cache may be built
// around a nil Redis client, in which case every read goes to the
// database.
func NewRouteService(stops *repository.StopRepo, fares *repository.FareRepo, seats *repository.SeatStatusRepo, avail *cache.AvailabilityCache) *RouteService {
	if stops == nil || fares == nil || seats == nil {
		panic("nil repository passed to NewRouteService")
	}
	return &RouteService{stops: stops, fares: fares, seats: seats, avail: avail}
}

// segmentsBetween decomposes the interval between two stations of a
// stop sequence into its adjacent pairs, in travel order.  For stops
// [A,B,C] and endpoints (A,C) it yields [(A,B),(B,C)]: exactly
// index(destination)-index(origin) segments covering the path with no
// gaps or overlaps.
func segmentsBetween(stops []model.Stop, origin, destination string) ([]model.Segment, error) {
	depIdx, arrIdx := -1, -1
	for i, s := range stops {
		if s.Station == origin {
			depIdx = i
		}
		if s.Station == destination {
			arrIdx = i
		}
	}
	if depIdx == -1 {
		return nil, fmt.Errorf("%w: %q", ErrStationNotOnRoute, origin)
	}
	if arrIdx == -1 {
		return nil, fmt.Errorf("%w: %q", ErrStationNotOnRoute, destination)
	}
	if depIdx >= arrIdx {
		return nil, ErrInvalidDirection
	}
	segments := make([]model.Segment, 0, arrIdx-depIdx)
	for i := depIdx; i < arrIdx; i++ {
		segments = append(segments, model.Segment{From: stops[i].Station, To: stops[i+1].Station})
	}
	return segments, nil
}

// ResolveInterval loads the train's stop sequence and returns the
// ordered segments spanning origin to destination.  It fails with
// ErrTrainNotFound when the train has no stops, ErrStationNotOnRoute
// when either endpoint is absent, and ErrInvalidDirection when the
// origin does not precede the destination.
func (s *RouteService) ResolveInterval(ctx context.Context, trainNo, origin, destination string) ([]model.Segment, error) {
	stops, err := s.stops.ListByTrain(ctx, trainNo)
	if err != nil {
		return nil, err
	}
	if len(stops) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrTrainNotFound, trainNo)
	}
	return segmentsBetween(stops, origin, destination)
}

// sumFares aggregates per-segment fare rows into an interval quote.
// Distance adds up across segments.  A fare class is quoted only when
// it carries a positive price on every segment; a class missing from
// any row is dropped, signalling it is not sellable between the
// endpoints.
func sumFares(rows []*model.FareRow) *model.FareQuote {
	quote := &model.FareQuote{Prices: make(map[model.FareClass]int64)}
	if len(rows) == 0 {
		return quote
	}
	for _, class := range model.FareClasses {
		total := int64(0)
		onAll := true
		for _, row := range rows {
			price, ok := row.PriceCents[class]
			if !ok {
				onAll = false
				break
			}
			total += price
		}
		if onAll {
			quote.Prices[class] = total
		}
	}
	for _, row := range rows {
		quote.DistanceKm += row.DistanceKm
	}
	return quote
}

// AggregateFares sums the fare table over a resolved interval and
// returns per-class totals plus the summed distance.  A segment without
// a fare row fails the whole aggregation with ErrFareDataMissing naming
// the pair: there is no partial or estimated pricing.
func (s *RouteService) AggregateFares(ctx context.Context, trainNo string, segments []model.Segment) (*model.FareQuote, error) {
	rows := make([]*model.FareRow, 0, len(segments))
	for _, seg := range segments {
		row, err := s.fares.GetSegment(ctx, trainNo, seg.From, seg.To)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w for segment %s->%s", ErrFareDataMissing, seg.From, seg.To)
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return sumFares(rows), nil
}

// CountAvailable counts the physical seats of one fare class free
// across every segment of the interval.  Classes are never mixed; the
// caller runs one count per class.
func (s *RouteService) CountAvailable(ctx context.Context, trainNo, date string, class model.FareClass, segments []model.Segment) (int, error) {
	return s.seats.CountAvailableForInterval(ctx, trainNo, date, class, segments)
}

// FareClassAvailability is one row of the availability listing: a
// sellable fare class with its interval price and free seat count.
type FareClassAvailability struct {
	FareClass  model.FareClass `json:"fare_class"`
	PriceCents int64           `json:"price_cents"`
	Available  int             `json:"available_count"`
}

// GetAvailableFareClasses lists every fare class sellable between the
// endpoints with its aggregated price and current free seat count.
// Counts for all classes run concurrently.  Responses are served
// through the availability cache when possible; the cache is
// invalidated on every ledger mutation, so reads reflect committed
// state; a count can go stale between read and booking, and the
// allocator's locking re-check is what prevents oversell.
func (s *RouteService) GetAvailableFareClasses(ctx context.Context, trainNo, origin, destination, date string) ([]FareClassAvailability, error) {
	if s.avail != nil {
		if payload, ok := s.avail.Get(ctx, trainNo, date, origin, destination); ok {
			var cached []FareClassAvailability
			if err := json.Unmarshal(payload, &cached); err == nil {
				return cached, nil
			}
		}
	}

	segments, err := s.ResolveInterval(ctx, trainNo, origin, destination)
	if err != nil {
		return nil, err
	}
	quote, err := s.AggregateFares(ctx, trainNo, segments)
	if err != nil {
		return nil, err
	}

	counts := make([]int, len(model.FareClasses))
	g, gctx := errgroup.WithContext(ctx)
	for i, class := range model.FareClasses {
		if _, ok := quote.Prices[class]; !ok {
			continue
		}
		i, class := i, class
		g.Go(func() error {
			n, err := s.seats.CountAvailableForInterval(gctx, trainNo, date, class, segments)
			if err != nil {
				return err
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make([]FareClassAvailability, 0, len(quote.Prices))
	for i, class := range model.FareClasses {
		price, ok := quote.Prices[class]
		if !ok {
			continue
		}
		result = append(result, FareClassAvailability{FareClass: class, PriceCents: price, Available: counts[i]})
	}

	if s.avail != nil {
		if payload, err := json.Marshal(result); err == nil {
			s.avail.Set(ctx, trainNo, date, origin, destination, payload)
		}
	}
	return result, nil
}
