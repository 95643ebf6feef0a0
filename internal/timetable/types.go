package timetable

// Location is an origin/destination/via entry on a board
type Location struct {
	LocationName string `json:"locationName"`
	CRS          string `json:"crs"`
	Via          string `json:"via,omitempty"`
}

// TrainService is one row of a departure or arrival board
type TrainService struct {
	ServiceID    string     `json:"serviceID"`
	STA          string     `json:"sta,omitempty"`
	ETA          string     `json:"eta,omitempty"`
	STD          string     `json:"std,omitempty"`
	ETD          string     `json:"etd,omitempty"`
	Platform     string     `json:"platform,omitempty"`
	Operator     string     `json:"operator"`
	OperatorCode string     `json:"operatorCode"`
	Origin       []Location `json:"origin"`
	Destination  []Location `json:"destination"`
	IsCancelled  bool       `json:"isCancelled"`
}

// FirstOrigin returns the first origin name, empty when absent
func (s TrainService) FirstOrigin() string {
	if len(s.Origin) == 0 {
		return ""
	}
	return s.Origin[0].LocationName
}

// FirstDestination returns the first destination name, empty when absent
func (s TrainService) FirstDestination() string {
	if len(s.Destination) == 0 {
		return ""
	}
	return s.Destination[0].LocationName
}

// Board is a station departure or arrival board
type Board struct {
	GeneratedAt   string         `json:"generatedAt"`
	LocationName  string         `json:"locationName"`
	CRS           string         `json:"crs"`
	TrainServices []TrainService `json:"trainServices"`
}

// CallingPoint is a stop of a service with its scheduled/estimated/actual times
type CallingPoint struct {
	LocationName string `json:"locationName"`
	CRS          string `json:"crs"`
	ST           string `json:"st"`
	ET           string `json:"et,omitempty"`
	AT           string `json:"at,omitempty"`
	IsCancelled  bool   `json:"isCancelled"`
}

// CallingPointList is one portion of a service; services that divide have several
type CallingPointList struct {
	CallingPoint []CallingPoint `json:"callingPoint"`
}

// ServiceDetails is the full calling pattern of a service
type ServiceDetails struct {
	GeneratedAt             string             `json:"generatedAt"`
	ServiceID               string             `json:"serviceID,omitempty"`
	LocationName            string             `json:"locationName"`
	CRS                     string             `json:"crs"`
	Operator                string             `json:"operator"`
	OperatorCode            string             `json:"operatorCode"`
	STA                     string             `json:"sta,omitempty"`
	ETA                     string             `json:"eta,omitempty"`
	STD                     string             `json:"std,omitempty"`
	ETD                     string             `json:"etd,omitempty"`
	Platform                string             `json:"platform,omitempty"`
	IsCancelled             bool               `json:"isCancelled"`
	PreviousCallingPoints   []CallingPointList `json:"previousCallingPoints"`
	SubsequentCallingPoints []CallingPointList `json:"subsequentCallingPoints"`
}

// FindSubsequent returns the first subsequent calling point at crs across every portion
func (d *ServiceDetails) FindSubsequent(crs string) (CallingPoint, bool) {
	for _, list := range d.SubsequentCallingPoints {
		for _, cp := range list.CallingPoint {
			if cp.CRS == crs {
				return cp, true
			}
		}
	}
	return CallingPoint{}, false
}

// Departure is one entry of a next/fastest departures board
type Departure struct {
	CRS     string        `json:"crs"`
	Service *TrainService `json:"service"`
}

// DeparturesBoard answers next/fastest departure queries for a set of destinations
type DeparturesBoard struct {
	GeneratedAt  string      `json:"generatedAt"`
	LocationName string      `json:"locationName"`
	CRS          string      `json:"crs"`
	Departures   []Departure `json:"departures"`
}

// BoardOptions narrows a board query. Offsets and windows are minutes in [-120, 120].
type BoardOptions struct {
	FilterCRS  string
	FilterType string // "to" or "from"
	TimeOffset int
	TimeWindow int
}

const maxBoardMinutes = 120

// Normalized clamps offsets into the supported range and defaults the filter type
func (o BoardOptions) Normalized() BoardOptions {
	o.TimeOffset = clampMinutes(o.TimeOffset)
	o.TimeWindow = clampMinutes(o.TimeWindow)
	if o.FilterCRS != "" && o.FilterType != "from" {
		o.FilterType = "to"
	}
	return o
}

func clampMinutes(m int) int {
	if m > maxBoardMinutes {
		return maxBoardMinutes
	}
	if m < -maxBoardMinutes {
		return -maxBoardMinutes
	}
	return m
}
