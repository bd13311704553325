package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/jszwec/csvutil"
)

// Coordinate columns of the locations table
const (
	latitudeColumn  = "Latitude"
	longitudeColumn = "Longitude"
)

// SiteLocation is one row of the locations table
type SiteLocation struct {
	Index     int     `csv:"index" json:"index"`
	Name      string  `csv:"Name" json:"name"`
	Latitude  float64 `csv:"Latitude" json:"latitude"`
	Longitude float64 `csv:"Longitude" json:"longitude"`
}

// Popup returns the marker label ("<index>: <name>")
func (l SiteLocation) Popup() string {
	return fmt.Sprintf("%d: %s", l.Index, l.Name)
}

// SiteLocationsFromTable converts the locations table into typed rows.
// Rows without usable coordinates are skipped.
func SiteLocationsFromTable(t *Table, nameColumn string) ([]SiteLocation, error) {
	for _, col := range []string{nameColumn, latitudeColumn, longitudeColumn} {
		if !t.HasColumn(col) {
			return nil, fmt.Errorf("%w %q in table %s", ErrUnknownColumn, col, t.Name)
		}
	}

	locations := make([]SiteLocation, 0, t.Len())
	for i := range t.Rows {
		lat, okLat := t.Float(i, latitudeColumn)
		lng, okLng := t.Float(i, longitudeColumn)
		if !okLat || !okLng || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			log.Printf("Skipping location row %d (%s): invalid coordinates", i, t.String(i, nameColumn))
			continue
		}
		locations = append(locations, SiteLocation{
			Index:     i,
			Name:      t.String(i, nameColumn),
			Latitude:  lat,
			Longitude: lng,
		})
	}
	return locations, nil
}

// MarshalSiteLocationsCSV encodes locations as CSV with a header row
func MarshalSiteLocationsCSV(locations []SiteLocation) ([]byte, error) {
	if len(locations) == 0 {
		header, err := csvutil.Header(SiteLocation{}, "csv")
		if err != nil {
			return nil, err
		}
		return []byte(strings.Join(header, ",") + "\n"), nil
	}
	return csvutil.Marshal(locations)
}
