// Package geo converts trip routes between GeoJSON (API) and WKB (storage).
package geo

import (
	"encoding/binary"
	"fmt"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// LineStringToWKB parses a GeoJSON LineString and returns WKB bytes.
// An empty string yields nil.
func LineStringToWKB(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	var g geom.T
	if err := gjson.Unmarshal([]byte(raw), &g); err != nil {
		return nil, err
	}
	ls, ok := g.(*geom.LineString)
	if !ok {
		return nil, fmt.Errorf("expected a LineString, got %T", g)
	}
	if ls.NumCoords() < 2 {
		return nil, fmt.Errorf("a route needs at least two points")
	}
	return wkb.Marshal(ls, binary.LittleEndian)
}

// WKBToGeoJSON converts WKB bytes into a GeoJSON string
func WKBToGeoJSON(wkbBytes []byte) (string, error) {
	if len(wkbBytes) == 0 {
		return "", nil
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return "", err
	}
	b, err := gjson.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
