package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/James-Fry-2/train-data-api/internal/models"
	"github.com/James-Fry-2/train-data-api/internal/station"
	"github.com/James-Fry-2/train-data-api/internal/timetable"
	"github.com/James-Fry-2/train-data-api/pkg/response"
)

// NearestFinder locates the closest station to a point
type NearestFinder interface {
	FindNearestStation(ctx context.Context, lat, lon float64) (*models.Station, float64, error)
}

// StationHandler handles HTTP requests for the station directory and live departures
type StationHandler struct {
	directory station.Directory
	finder    NearestFinder
	client    timetable.Client
	radiusKm  float64
	timeout   time.Duration
}

// NewStationHandler creates a new station handler
func NewStationHandler(dir station.Directory, finder NearestFinder, client timetable.Client, radiusKm float64, timeout time.Duration) *StationHandler {
	return &StationHandler{
		directory: dir,
		finder:    finder,
		client:    client,
		radiusKm:  radiusKm,
		timeout:   timeout,
	}
}

// NearestResponse is the body of GET /stations/nearest
type NearestResponse struct {
	Station     *models.Station `json:"station"`
	DistanceKm  float64         `json:"distanceKm"`
	IsAtStation bool            `json:"isAtStation"`
}

// Search handles GET /api/v1/stations?q=
func (h *StationHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.BadRequest(c, "q is required")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		response.BadRequest(c, "Invalid limit parameter")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	stations, err := h.directory.Search(ctx, q, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, stations)
}

// Get handles GET /api/v1/stations/:code
func (h *StationHandler) Get(c *gin.Context) {
	code, err := models.NormalizeStationCode(c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	st, err := h.directory.Lookup(ctx, code)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, st)
}

// Nearest handles GET /api/v1/stations/nearest?lat=&lon=
func (h *StationHandler) Nearest(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		response.BadRequest(c, "lat and lon must be numbers")
		return
	}
	if err := (models.LocationSample{Latitude: lat, Longitude: lon}).Validate(); err != nil {
		writeError(c, err)
		return
	}

	st, km, err := h.finder.FindNearestStation(c.Request.Context(), lat, lon)
	if err != nil {
		writeError(c, err)
		return
	}
	if st == nil {
		response.NotFound(c, "No stations with coordinates")
		return
	}

	response.Success(c, NearestResponse{
		Station:     st,
		DistanceKm:  km,
		IsAtStation: km <= h.radiusKm,
	})
}

// NextDepartures handles GET /api/v1/stations/:code/next?to=A,B&fastest=bool
func (h *StationHandler) NextDepartures(c *gin.Context) {
	code, err := models.NormalizeStationCode(c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}

	var destinations []string
	for _, raw := range strings.Split(c.Query("to"), ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		dest, err := models.NormalizeStationCode(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		destinations = append(destinations, dest)
	}
	if len(destinations) == 0 {
		response.BadRequest(c, "to must list at least one station code")
		return
	}

	opts := timetable.BoardOptions{}
	if v := c.Query("timeOffset"); v != "" {
		if opts.TimeOffset, err = strconv.Atoi(v); err != nil {
			response.BadRequest(c, "Invalid timeOffset parameter")
			return
		}
	}
	if v := c.Query("timeWindow"); v != "" {
		if opts.TimeWindow, err = strconv.Atoi(v); err != nil {
			response.BadRequest(c, "Invalid timeWindow parameter")
			return
		}
	}
	opts = opts.Normalized()

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	var board *timetable.DeparturesBoard
	if c.Query("fastest") == "true" {
		board, err = h.client.GetFastestDepartures(ctx, code, destinations, opts)
	} else {
		board, err = h.client.GetNextDepartures(ctx, code, destinations, opts)
	}
	if err != nil {
		response.ServiceUnavailable(c, "Timetable unavailable")
		return
	}

	response.Success(c, board)
}
