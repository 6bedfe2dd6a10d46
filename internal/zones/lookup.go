// Package zones loads the TLC taxi zone lookup table.
package zones

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"nyc-taxi-lab/internal/domain"
)

// Lookup CSV column names.
const (
	ColLocationID  = "LocationID"
	ColBorough     = "Borough"
	ColZone        = "Zone"
	ColServiceZone = "service_zone"
)

var (
	ErrMissingColumn = errors.New("zone lookup missing column")
	ErrDuplicateID   = errors.New("duplicate zone id")
	ErrInvalidID     = errors.New("invalid zone id")
)

// Lookup maps a location id to its zone. It is read-only after Load.
type Lookup struct {
	zones []domain.Zone
	byID  map[int]int
}

// Load reads a zone lookup CSV from path.
func Load(path string) (*Lookup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open zone lookup: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a zone lookup CSV. LocationID and Zone are required; Borough
// and service_zone are kept when present.
func Parse(r io.Reader) (*Lookup, error) {
	df := dataframe.ReadCSV(r,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("parse zone lookup: %w", df.Err)
	}

	has := make(map[string]bool)
	for _, n := range df.Names() {
		has[n] = true
	}
	for _, req := range []string{ColLocationID, ColZone} {
		if !has[req] {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, req)
		}
	}

	ids := df.Col(ColLocationID).Records()
	names := df.Col(ColZone).Records()
	boroughs := optional(df, has, ColBorough)
	services := optional(df, has, ColServiceZone)

	l := &Lookup{
		zones: make([]domain.Zone, 0, len(ids)),
		byID:  make(map[int]int, len(ids)),
	}
	for i, raw := range ids {
		id, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w at row %d: %q", ErrInvalidID, i+1, raw)
		}
		if _, dup := l.byID[id]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, id)
		}

		l.byID[id] = len(l.zones)
		l.zones = append(l.zones, domain.Zone{
			LocationID:  id,
			Borough:     boroughs[i],
			Zone:        text(names[i]),
			ServiceZone: services[i],
		})
	}
	return l, nil
}

func optional(df dataframe.DataFrame, has map[string]bool, name string) []string {
	out := make([]string, df.Nrow())
	if !has[name] {
		return out
	}
	for i, v := range df.Col(name).Records() {
		out[i] = text(v)
	}
	return out
}

// text maps gota's null marker to an empty string.
func text(v string) string {
	if v == "NaN" {
		return ""
	}
	return v
}

// Len returns the number of zones.
func (l *Lookup) Len() int {
	return len(l.zones)
}

// Get returns the zone for id.
func (l *Lookup) Get(id int) (domain.Zone, bool) {
	i, ok := l.byID[id]
	if !ok {
		return domain.Zone{}, false
	}
	return l.zones[i], true
}

// Name returns the zone name for id.
func (l *Lookup) Name(id int) (string, bool) {
	z, ok := l.Get(id)
	return z.Zone, ok
}

// Borough returns the borough for id; empty when the source had none.
func (l *Lookup) Borough(id int) (string, bool) {
	z, ok := l.Get(id)
	return z.Borough, ok
}

// NameOf resolves a frame id value. NaN and fractional ids do not resolve.
func (l *Lookup) NameOf(id float64) (string, bool) {
	if math.IsNaN(id) || id != math.Trunc(id) {
		return "", false
	}
	return l.Name(int(id))
}

// All returns the zones in file order.
func (l *Lookup) All() []domain.Zone {
	out := make([]domain.Zone, len(l.zones))
	copy(out, l.zones)
	return out
}

// FromZones builds a Lookup from already loaded zones.
func FromZones(zs []domain.Zone) (*Lookup, error) {
	l := &Lookup{
		zones: make([]domain.Zone, 0, len(zs)),
		byID:  make(map[int]int, len(zs)),
	}
	for _, z := range zs {
		if _, dup := l.byID[z.LocationID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, z.LocationID)
		}
		l.byID[z.LocationID] = len(l.zones)
		l.zones = append(l.zones, z)
	}
	return l, nil
}
