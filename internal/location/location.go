// Package location normalizes the three location input modes used by
// mobile-service bookings (device GPS, typed address, map pick) into a
// single tagged union stored with the request.
package location

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Kind discriminates the stored location shape.
type Kind string

const (
	KindCoordinates Kind = "coordinates"
	KindAddress     Kind = "address"
)

var (
	// ErrLocationRequired is returned when no input mode (or more than one)
	// was chosen for a booking.
	ErrLocationRequired = errors.New("location: exactly one location input is required")

	// ErrInvalidCoordinates is returned for non-finite or out-of-range coordinates.
	ErrInvalidCoordinates = errors.New("location: coordinates out of range")

	// ErrEmptyAddress is returned when the address text is blank.
	ErrEmptyAddress = errors.New("location: address text is required")
)

// Location is the tagged union persisted with a mobile-service request.
// Exactly one variant is populated, identified by Kind.
type Location struct {
	Kind Kind
	Lat  float64
	Lng  float64
	Text string
}

// FromGPS builds a coordinate location from device GPS readings.
func FromGPS(lat, lng float64) (Location, error) {
	if !validCoords(lat, lng) {
		return Location{}, ErrInvalidCoordinates
	}
	return Location{Kind: KindCoordinates, Lat: lat, Lng: lng}, nil
}

// FromMapPick builds a coordinate location from a point picked on the map.
// Provenance differs from GPS only in the UI; the stored shape is identical.
func FromMapPick(lat, lng float64) (Location, error) {
	return FromGPS(lat, lng)
}

// FromAddress builds an address location from free text.
func FromAddress(text string) (Location, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Location{}, ErrEmptyAddress
	}
	return Location{Kind: KindAddress, Text: text}, nil
}

// RawInput carries the mutually exclusive location fields as submitted by
// the booking form. Pointer fields distinguish "absent" from zero values.
type RawInput struct {
	GPSLat     *float64 `json:"gpsLat,omitempty"`
	GPSLng     *float64 `json:"gpsLng,omitempty"`
	Address    *string  `json:"address,omitempty"`
	MapPickLat *float64 `json:"mapPickLat,omitempty"`
	MapPickLng *float64 `json:"mapPickLng,omitempty"`
}

// Resolve normalizes a raw form submission into a Location. Exactly one
// input mode must be present.
func Resolve(raw RawInput) (Location, error) {
	modes := 0
	if raw.GPSLat != nil || raw.GPSLng != nil {
		modes++
	}
	if raw.Address != nil {
		modes++
	}
	if raw.MapPickLat != nil || raw.MapPickLng != nil {
		modes++
	}
	if modes != 1 {
		return Location{}, ErrLocationRequired
	}

	switch {
	case raw.GPSLat != nil || raw.GPSLng != nil:
		if raw.GPSLat == nil || raw.GPSLng == nil {
			return Location{}, ErrInvalidCoordinates
		}
		return FromGPS(*raw.GPSLat, *raw.GPSLng)
	case raw.MapPickLat != nil || raw.MapPickLng != nil:
		if raw.MapPickLat == nil || raw.MapPickLng == nil {
			return Location{}, ErrInvalidCoordinates
		}
		return FromMapPick(*raw.MapPickLat, *raw.MapPickLng)
	default:
		return FromAddress(*raw.Address)
	}
}

// Display renders the human-readable form used by staff views.
// Coordinates render as a map-link label; addresses render verbatim.
func (l Location) Display() string {
	switch l.Kind {
	case KindCoordinates:
		return fmt.Sprintf("Pinned location (%.6f, %.6f)", l.Lat, l.Lng)
	case KindAddress:
		return l.Text
	default:
		return ""
	}
}

// MapURL returns a map link for coordinate locations, empty otherwise.
func (l Location) MapURL() string {
	if l.Kind != KindCoordinates {
		return ""
	}
	return fmt.Sprintf("https://www.google.com/maps?q=%.6f,%.6f", l.Lat, l.Lng)
}

// Validate checks that the stored union is well-formed.
func (l Location) Validate() error {
	switch l.Kind {
	case KindCoordinates:
		if !validCoords(l.Lat, l.Lng) {
			return ErrInvalidCoordinates
		}
		return nil
	case KindAddress:
		if strings.TrimSpace(l.Text) == "" {
			return ErrEmptyAddress
		}
		return nil
	default:
		return ErrLocationRequired
	}
}

type locationJSON struct {
	Kind Kind     `json:"kind"`
	Lat  *float64 `json:"lat,omitempty"`
	Lng  *float64 `json:"lng,omitempty"`
	Text string   `json:"text,omitempty"`
}

// MarshalJSON emits only the fields belonging to the active variant so the
// stored value round-trips losslessly.
func (l Location) MarshalJSON() ([]byte, error) {
	out := locationJSON{Kind: l.Kind}
	switch l.Kind {
	case KindCoordinates:
		lat, lng := l.Lat, l.Lng
		out.Lat, out.Lng = &lat, &lng
	case KindAddress:
		out.Text = l.Text
	default:
		return nil, ErrLocationRequired
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the tagged union and rejects malformed variants.
func (l *Location) UnmarshalJSON(data []byte) error {
	var in locationJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Kind {
	case KindCoordinates:
		if in.Lat == nil || in.Lng == nil {
			return ErrInvalidCoordinates
		}
		loc, err := FromGPS(*in.Lat, *in.Lng)
		if err != nil {
			return err
		}
		*l = loc
		return nil
	case KindAddress:
		loc, err := FromAddress(in.Text)
		if err != nil {
			return err
		}
		*l = loc
		return nil
	default:
		return ErrLocationRequired
	}
}

func validCoords(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
