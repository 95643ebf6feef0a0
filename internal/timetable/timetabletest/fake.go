// Package timetabletest provides an in-memory timetable.Client for tests.
package timetabletest

import (
	"context"
	"errors"
	"sync"

	"github.com/James-Fry-2/train-data-api/internal/timetable"
)

// ErrUnavailable simulates an upstream outage
var ErrUnavailable = errors.New("timetable unavailable")

// Fake serves canned boards and service details
type Fake struct {
	mu         sync.Mutex
	Departures map[string]*timetable.Board
	Arrivals   map[string]*timetable.Board
	Services   map[string]*timetable.ServiceDetails
	Fail       bool

	LastDepartureOpts timetable.BoardOptions
	DepartureCalls    int
	ServiceCalls      int
}

// New creates an empty fake
func New() *Fake {
	return &Fake{
		Departures: make(map[string]*timetable.Board),
		Arrivals:   make(map[string]*timetable.Board),
		Services:   make(map[string]*timetable.ServiceDetails),
	}
}

// AddService registers svc on the departure board of its origin crs together with
// a single-portion calling pattern of subsequent stops as {crs, "HH:MM"} pairs.
func (f *Fake) AddService(originCRS string, svc timetable.TrainService, stops ...[2]string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	board, ok := f.Departures[originCRS]
	if !ok {
		board = &timetable.Board{CRS: originCRS}
		f.Departures[originCRS] = board
	}
	board.TrainServices = append(board.TrainServices, svc)

	var points []timetable.CallingPoint
	for _, s := range stops {
		points = append(points, timetable.CallingPoint{CRS: s[0], ST: s[1]})
	}
	f.Services[svc.ServiceID] = &timetable.ServiceDetails{
		ServiceID:               svc.ServiceID,
		CRS:                     originCRS,
		STD:                     svc.STD,
		Operator:                svc.Operator,
		SubsequentCallingPoints: []timetable.CallingPointList{{CallingPoint: points}},
	}
}

// GetDepartureBoard implements timetable.Client
func (f *Fake) GetDepartureBoard(ctx context.Context, crs string, rows int, opts timetable.BoardOptions) (*timetable.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.DepartureCalls++
	f.LastDepartureOpts = opts.Normalized()
	if f.Fail {
		return nil, ErrUnavailable
	}
	return limit(f.Departures[crs], crs, rows), nil
}

// GetArrivalBoard implements timetable.Client
func (f *Fake) GetArrivalBoard(ctx context.Context, crs string, rows int, opts timetable.BoardOptions) (*timetable.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Fail {
		return nil, ErrUnavailable
	}
	return limit(f.Arrivals[crs], crs, rows), nil
}

// GetServiceDetails implements timetable.Client
func (f *Fake) GetServiceDetails(ctx context.Context, serviceID string) (*timetable.ServiceDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ServiceCalls++
	if f.Fail {
		return nil, ErrUnavailable
	}
	d, ok := f.Services[serviceID]
	if !ok {
		return nil, timetable.ErrServiceNotFound
	}
	return d, nil
}

// GetNextDepartures implements timetable.Client by picking the first service calling at each destination
func (f *Fake) GetNextDepartures(ctx context.Context, crs string, destinations []string, opts timetable.BoardOptions) (*timetable.DeparturesBoard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Fail {
		return nil, ErrUnavailable
	}

	out := &timetable.DeparturesBoard{CRS: crs}
	board := f.Departures[crs]
	for _, dest := range destinations {
		dep := timetable.Departure{CRS: dest}
		if board != nil {
			for i := range board.TrainServices {
				svc := board.TrainServices[i]
				if d, ok := f.Services[svc.ServiceID]; ok {
					if _, calls := d.FindSubsequent(dest); calls {
						dep.Service = &svc
						break
					}
				}
			}
		}
		out.Departures = append(out.Departures, dep)
	}
	return out, nil
}

// GetFastestDepartures implements timetable.Client; the fake does not model journey times
func (f *Fake) GetFastestDepartures(ctx context.Context, crs string, destinations []string, opts timetable.BoardOptions) (*timetable.DeparturesBoard, error) {
	return f.GetNextDepartures(ctx, crs, destinations, opts)
}

func limit(board *timetable.Board, crs string, rows int) *timetable.Board {
	if board == nil {
		return &timetable.Board{CRS: crs}
	}
	out := *board
	if rows > 0 && len(out.TrainServices) > rows {
		out.TrainServices = out.TrainServices[:rows]
	}
	return &out
}
