package timetable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientDepartureBoard(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(Board{
			CRS: "EUS",
			TrainServices: []TrainService{{
				ServiceID: "abc",
				STD:       "10:00",
				ETD:       "On time",
				Origin:    []Location{{LocationName: "London Euston", CRS: "EUS"}},
			}},
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(Options{BaseURL: srv.URL, AccessToken: "tok"})
	board, err := c.GetDepartureBoard(context.Background(), "EUS", 20, BoardOptions{TimeOffset: -60, TimeWindow: 180})
	require.NoError(t, err)

	assert.Equal(t, "/departures/EUS/20", gotPath)
	assert.Contains(t, gotQuery, "accessToken=tok")
	assert.Contains(t, gotQuery, "timeOffset=-60")
	assert.Contains(t, gotQuery, "timeWindow=120")
	require.Len(t, board.TrainServices, 1)
	assert.Equal(t, "London Euston", board.TrainServices[0].FirstOrigin())
	assert.Empty(t, board.TrainServices[0].FirstDestination())
}

func TestHTTPClientFilteredArrivals(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"trainServices":[]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(Options{BaseURL: srv.URL})
	_, err := c.GetArrivalBoard(context.Background(), "MAN", 10, BoardOptions{FilterCRS: "EUS", FilterType: "from"})
	require.NoError(t, err)
	assert.Equal(t, "/arrivals/MAN/from/EUS/10", gotPath)
}

func TestHTTPClientServiceDetailsCached(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{
			"crs": "EUS",
			"std": "10:00",
			"subsequentCallingPoints": [
				{"callingPoint": [{"crs": "MKC", "st": "10:30"}, {"crs": "MAN", "st": "12:10"}]}
			]
		}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(Options{BaseURL: srv.URL, ServiceCacheTTL: time.Minute})
	for i := 0; i < 3; i++ {
		d, err := c.GetServiceDetails(context.Background(), "svc-1")
		require.NoError(t, err)
		cp, ok := d.FindSubsequent("MAN")
		require.True(t, ok)
		assert.Equal(t, "12:10", cp.ST)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/service/gone" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClient(Options{BaseURL: srv.URL})
	_, err := c.GetServiceDetails(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrServiceNotFound)

	_, err = c.GetDepartureBoard(context.Background(), "EUS", 10, BoardOptions{})
	assert.Error(t, err)

	_, err = c.GetNextDepartures(context.Background(), "EUS", nil, BoardOptions{})
	assert.Error(t, err)
}

func TestHTTPClientFastestDepartures(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"crs":"EUS","departures":[{"crs":"MAN","service":{"serviceID":"x","std":"10:00"}}]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(Options{BaseURL: srv.URL})
	board, err := c.GetFastestDepartures(context.Background(), "EUS", []string{"MAN", "BHM"}, BoardOptions{})
	require.NoError(t, err)
	assert.Equal(t, "/fastest/EUS/to/MAN%2CBHM", gotPath)
	require.Len(t, board.Departures, 1)
	assert.Equal(t, "x", board.Departures[0].Service.ServiceID)
}

func TestServiceDetailsFindSubsequent(t *testing.T) {
	d := &ServiceDetails{
		CRS:                   "EUS",
		PreviousCallingPoints: []CallingPointList{{CallingPoint: []CallingPoint{{CRS: "WFJ"}}}},
		SubsequentCallingPoints: []CallingPointList{
			{CallingPoint: []CallingPoint{{CRS: "CRE"}, {CRS: "MAN"}}},
			{CallingPoint: []CallingPoint{{CRS: "CRE"}, {CRS: "LIV"}}},
		},
	}
	_, ok := d.FindSubsequent("LIV")
	assert.True(t, ok)
	_, ok = d.FindSubsequent("WFJ")
	assert.False(t, ok)
	_, ok = d.FindSubsequent("EUS")
	assert.False(t, ok)
}
