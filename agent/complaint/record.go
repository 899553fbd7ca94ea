package complaint

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	extractx "github.com/tanpawarit/civic-chat/agent/extract"
)

// Container is the storage container complaints are written to.
const Container = "complaints"

const unknownPartition = "unknown"

type Criticality string

const (
	CriticalityHigh   Criticality = "high"
	CriticalityMedium Criticality = "medium"
	CriticalityLow    Criticality = "low"
)

// ParseCriticality accepts English and Spanish levels. Unknown input is unset.
func ParseCriticality(s string) Criticality {
	switch fold(s) {
	case "high", "alta", "alto", "urgente", "urgent":
		return CriticalityHigh
	case "medium", "media", "medio":
		return CriticalityMedium
	case "low", "baja", "bajo":
		return CriticalityLow
	}
	return ""
}

type Origin string

const (
	OriginText  Origin = "text"
	OriginVoice Origin = "voice"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusResolved    Status = "resolved"
)

type Location struct {
	City    string   `json:"city"`
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		City    *string  `json:"city"`
		Address *string  `json:"address"`
		Lat     *float64 `json:"lat"`
		Lon     *float64 `json:"lon"`
	}{
		City:    nullable(l.City),
		Address: nullable(l.Address),
		Lat:     l.Lat,
		Lon:     l.Lon,
	})
}

type Record struct {
	ID                string      `json:"id"`
	Timestamp         time.Time   `json:"timestamp"`
	Criticality       Criticality `json:"criticality"`
	Location          Location    `json:"location"`
	Content           string      `json:"content"`
	Origin            Origin      `json:"origin"`
	Status            Status      `json:"status"`
	SubmitterID       string      `json:"submitterId"`
	Category          string      `json:"category"`
	Tags              []string    `json:"tags"`
	ResponsibleEntity Entity      `json:"responsibleEntity"`
}

// MarshalJSON writes every unset optional field as null, so stored records
// always carry the full field set.
func (r Record) MarshalJSON() ([]byte, error) {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(struct {
		ID                string    `json:"id"`
		Timestamp         time.Time `json:"timestamp"`
		Criticality       *string   `json:"criticality"`
		Location          Location  `json:"location"`
		Content           *string   `json:"content"`
		Origin            Origin    `json:"origin"`
		Status            Status    `json:"status"`
		SubmitterID       *string   `json:"submitterId"`
		Category          *string   `json:"category"`
		Tags              []string  `json:"tags"`
		ResponsibleEntity *string   `json:"responsibleEntity"`
	}{
		ID:                r.ID,
		Timestamp:         r.Timestamp,
		Criticality:       nullable(string(r.Criticality)),
		Location:          r.Location,
		Content:           nullable(r.Content),
		Origin:            r.Origin,
		Status:            r.Status,
		SubmitterID:       nullable(r.SubmitterID),
		Category:          nullable(r.Category),
		Tags:              tags,
		ResponsibleEntity: nullable(string(r.ResponsibleEntity)),
	})
}

func nullable(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func newRecord(id, submitterID string, now time.Time) *Record {
	return &Record{
		ID:          id,
		Timestamp:   now.UTC().Truncate(time.Second),
		Origin:      OriginText,
		Status:      StatusPending,
		SubmitterID: submitterID,
		Tags:        []string{},
	}
}

func (r *Record) DocumentID() string { return r.ID }

// SaveEligible: content plus at least one of city, address or category.
func (r *Record) SaveEligible() bool {
	if strings.TrimSpace(r.Content) == "" {
		return false
	}
	return r.Location.City != "" || r.Location.Address != "" || r.Category != ""
}

// PartitionKey is the city, or "unknown" when no city was given.
func (r *Record) PartitionKey() string {
	if c := strings.TrimSpace(r.Location.City); c != "" {
		return c
	}
	return unknownPartition
}

func (r *Record) Clone() *Record {
	cp := *r
	cp.Tags = append([]string{}, r.Tags...)
	if r.Location.Lat != nil {
		v := *r.Location.Lat
		cp.Location.Lat = &v
	}
	if r.Location.Lon != nil {
		v := *r.Location.Lon
		cp.Location.Lon = &v
	}
	return &cp
}

// Missing lists the user-facing fields still needed for a useful report.
func (r *Record) Missing() []string {
	var out []string
	if r.Content == "" {
		out = append(out, "descripción")
	}
	if r.Location.City == "" {
		out = append(out, "ciudad")
	}
	if r.Location.Address == "" {
		out = append(out, "dirección")
	}
	if r.Category == "" {
		out = append(out, "categoría")
	}
	return out
}

// apply merges one extraction. Scalars are last-write-wins and tags are
// append-dedup. Spanish and English keys are both accepted.
func (r *Record) apply(obj gjson.Result) bool {
	changed := false
	set := func(dst *string, v string) {
		if v != "" && *dst != v {
			*dst = v
			changed = true
		}
	}

	if c := ParseCriticality(extractx.String(obj, "criticidad", "criticality")); c != "" && c != r.Criticality {
		r.Criticality = c
		changed = true
	}
	set(&r.Location.City, extractx.String(obj, "city", "ciudad", "location.city", "location"))
	set(&r.Location.Address, extractx.String(obj, "address", "direccion", "location.address"))
	set(&r.Content, extractx.String(obj, "contenido", "content"))
	set(&r.Category, extractx.String(obj, "categoria", "category"))

	if lat := extractx.Float(obj, "lat", "location.lat"); lat != nil && (r.Location.Lat == nil || *r.Location.Lat != *lat) {
		r.Location.Lat = lat
		changed = true
	}
	if lon := extractx.Float(obj, "lon", "location.lon"); lon != nil && (r.Location.Lon == nil || *r.Location.Lon != *lon) {
		r.Location.Lon = lon
		changed = true
	}

	if o := Origin(strings.ToLower(extractx.String(obj, "origen", "origin"))); (o == OriginText || o == OriginVoice) && o != r.Origin {
		r.Origin = o
		changed = true
	}

	for _, key := range []string{"etiquetas", "tags"} {
		for _, tag := range extractx.Strings(obj, key) {
			if !slices.Contains(r.Tags, tag) {
				r.Tags = append(r.Tags, tag)
				changed = true
			}
		}
	}
	return changed
}
