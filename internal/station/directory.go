package station

import (
	"math"
	"strings"
)

// Directory maps localized station names to station records.
// It is built per request and never shared between requests.
type Directory struct {
	byName  map[string]Record
	records []Record
}

// NewDirectory indexes records by NameLocal. When two records share a name
// the later one wins.
func NewDirectory(records []Record) *Directory {
	d := &Directory{
		byName:  make(map[string]Record, len(records)),
		records: records,
	}
	for _, r := range records {
		d.byName[r.NameLocal] = r
	}
	return d
}

// Len returns the number of distinct localized names.
func (d *Directory) Len() int {
	return len(d.byName)
}

// Records returns every parsed record in document order, duplicates included.
func (d *Directory) Records() []Record {
	return d.records
}

// Lookup returns the record whose NameLocal equals name exactly.
func (d *Directory) Lookup(name string) (Record, bool) {
	r, ok := d.byName[name]
	return r, ok
}

// LookupEnglish returns the last record whose NameEN matches name, ignoring case.
func (d *Directory) LookupEnglish(name string) (Record, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, false
	}

	var (
		found Record
		ok    bool
	)
	for _, r := range d.records {
		if strings.EqualFold(r.NameEN, name) {
			found, ok = r, true
		}
	}
	return found, ok
}

// Nearest returns the record closest to the given point by great-circle
// distance, along with that distance in meters. Records without a location
// are ignored. Ties are broken by the lowest station ID.
func (d *Directory) Nearest(lat, lon float64) (Record, float64, bool) {
	var (
		best     Record
		bestDist = math.Inf(1)
		found    bool
	)

	for _, r := range d.records {
		if !r.HasLocation {
			continue
		}
		dist := haversineDistance(lat, lon, r.Lat, r.Lon)
		if !found || dist < bestDist || (dist == bestDist && r.ID < best.ID) {
			best, bestDist, found = r, dist, true
		}
	}

	return best, bestDist, found
}
