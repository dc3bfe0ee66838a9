package sensors

import (
	"errors"
	"fmt"

	"github.com/wroge/wgs84"
	"tinygo.org/x/drivers/gps"
)

var (
	// ErrNoFix is returned for a sentence that parses but carries no valid fix.
	ErrNoFix = errors.New("sensors: no valid GNSS fix")
	// ErrNotGGA is returned by ParseGGA for any other sentence type.
	ErrNotGGA = errors.New("sensors: not a GGA sentence")
)

// ParseFix parses a GGA, GLL or RMC sentence. A sentence without a valid fix
// returns the parsed fields together with ErrNoFix.
func ParseFix(sentence string) (gps.Fix, error) {
	parser := gps.NewParser()
	fix, err := parser.Parse(sentence)
	if err != nil {
		return fix, fmt.Errorf("sensors: %w", err)
	}
	if !fix.Valid {
		return fix, ErrNoFix
	}
	return fix, nil
}

// ParseGGA is ParseFix restricted to GGA sentences. A receiver emits one GGA
// per fix period, so it marks exactly one measurement epoch per fix even when
// RMC and GLL sentences repeat the same position.
func ParseGGA(sentence string) (gps.Fix, error) {
	if len(sentence) < 6 || sentence[3:6] != "GGA" {
		return gps.Fix{}, ErrNotGGA
	}
	return ParseFix(sentence)
}

// localCode is outside the EPSG registry's assigned range.
const localCode = 990001

type spheroid struct {
	a, fi float64
}

func (s spheroid) A() float64  { return s.a }
func (s spheroid) Fi() float64 { return s.fi }

// LocalFrame maps WGS84 coordinates to east/north metres around an origin
// with a transverse mercator projection centred on the origin.
type LocalFrame struct {
	Lat0, Lon0 float64

	toLocal func(a, b, c float64) (a2, b2, c2 float64)
}

// NewLocalFrame returns the frame whose origin is lat0, lon0 (degrees).
func NewLocalFrame(lat0, lon0 float64) *LocalFrame {
	// SPHEROID["WGS 84",6378137,298.257223563]
	datum := wgs84.Datum{
		Spheroid: spheroid{
			a: 6378137, fi: 298.257223563,
		},
		Area: wgs84.AreaFunc(func(lon, lat float64) bool {
			return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
		}),
	}
	proj := datum.TransverseMercator(lon0, lat0, 1, 0, 0)
	epsg := wgs84.EPSG()
	epsg.Add(localCode, proj)
	return &LocalFrame{
		Lat0:    lat0,
		Lon0:    lon0,
		toLocal: wgs84.Transform(wgs84.WGS84().LonLat(), epsg.Code(localCode)),
	}
}

// Project returns the east and north offsets of lat, lon from the origin.
func (f *LocalFrame) Project(lat, lon float64) (east, north float64) {
	east, north, _ = f.toLocal(lon, lat, 0)
	return east, north
}

// Fix projects a GNSS fix.
func (f *LocalFrame) Fix(fix gps.Fix) (east, north float32) {
	e, n := f.Project(float64(fix.Latitude), float64(fix.Longitude))
	return float32(e), float32(n)
}
