package domain

// Stop is a transit stop as published in the upstream stop directory.
// Nullable upstream fields are pointers; optional descriptive fields are
// omitted from JSON output when the upstream did not send them.
type Stop struct {
	StopID             int      `json:"stopId"`
	StopCode           *string  `json:"stopCode"`
	StopName           *string  `json:"stopName"`
	StopShortname      *int     `json:"stopShortname"`
	StopDesc           *string  `json:"stopDesc"`
	SubName            *string  `json:"subName,omitempty"`
	Date               *string  `json:"date"`
	ZoneID             *int     `json:"zoneId"`
	ZoneName           *string  `json:"zoneName"`
	Virtual            *int     `json:"virtual"`
	Nonpassenger       *int     `json:"nonpassenger"`
	Depot              *int     `json:"depot"`
	TicketZoneBorder   *int     `json:"ticketZoneBorder"`
	OnDemand           *int     `json:"onDemand"`
	ActivationDate     *string  `json:"activationDate"`
	StopLat            *float64 `json:"stopLat"`
	StopLon            *float64 `json:"stopLon"`
	Type               *string  `json:"type"`
	StopURL            *string  `json:"stopUrl,omitempty"`
	LocationType       *string  `json:"locationType,omitempty"`
	ParentStation      *string  `json:"parentStation,omitempty"`
	StopTimezone       *string  `json:"stopTimezone,omitempty"`
	WheelchairBoarding *int     `json:"wheelchairBoarding"`
}

// StopDirectory is the full upstream stop list.
type StopDirectory struct {
	LastUpdate string `json:"lastUpdate"`
	Stops      []Stop `json:"stops"`
}

// Filter returns a copy of the directory holding only the stops whose ids are
// listed, in directory order. An empty id list returns the directory unchanged.
func (d StopDirectory) Filter(ids []int) StopDirectory {
	if len(ids) == 0 {
		return d
	}
	want := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := StopDirectory{LastUpdate: d.LastUpdate, Stops: []Stop{}}
	for _, s := range d.Stops {
		if _, ok := want[s.StopID]; ok {
			out.Stops = append(out.Stops, s)
		}
	}
	return out
}

// Index returns the stops keyed by id.
func (d StopDirectory) Index() map[int]Stop {
	idx := make(map[int]Stop, len(d.Stops))
	for _, s := range d.Stops {
		idx[s.StopID] = s
	}
	return idx
}

// Departure is a single predicted or scheduled departure from a stop.
type Departure struct {
	ID                     string  `json:"id"`
	DelayInSeconds         *int    `json:"delayInSeconds"`
	EstimatedTime          string  `json:"estimatedTime"`
	Headsign               *string `json:"headsign"`
	RouteID                *int    `json:"routeId"`
	RouteShortName         *string `json:"routeShortName"`
	ScheduledTripStartTime *string `json:"scheduledTripStartTime"`
	TripID                 *int    `json:"tripId"`
	Status                 string  `json:"status"`
	TheoreticalTime        *string `json:"theoreticalTime"`
	Timestamp              string  `json:"timestamp"`
	Trip                   *int    `json:"trip"`
	VehicleCode            *int    `json:"vehicleCode"`
	VehicleID              *int    `json:"vehicleId"`
	VehicleService         *string `json:"vehicleService"`
}

// DepartureBundle is the departure list for a single stop.
type DepartureBundle struct {
	LastUpdate string      `json:"lastUpdate"`
	Departures []Departure `json:"departures"`
}

// AllDepartures maps a stop id (as sent upstream, a decimal string) to its
// departure bundle.
type AllDepartures map[string]DepartureBundle
