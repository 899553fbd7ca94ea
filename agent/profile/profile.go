package profile

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	extractx "github.com/tanpawarit/civic-chat/agent/extract"
)

// Container is the storage container profiles are written to.
const Container = "profiles"

// DisplayLimit bounds how many items per fact list are injected into a turn.
const DisplayLimit = 5

type Facts struct {
	Procedures     []string `json:"procedures"`
	Documents      []string `json:"documents"`
	ImportantDates []string `json:"importantDates"`
}

type UserProfile struct {
	UserID      string     `json:"userId"`
	Name        string     `json:"name"`
	Location    string     `json:"location"`
	Profession  string     `json:"profession"`
	LastUpdated *time.Time `json:"lastUpdated"`
	Facts       Facts      `json:"extractedFacts"`
}

// MarshalJSON writes unknown scalars as null and fact lists as arrays.
func (p UserProfile) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		UserID      string     `json:"userId"`
		Name        *string    `json:"name"`
		Location    *string    `json:"location"`
		Profession  *string    `json:"profession"`
		LastUpdated *time.Time `json:"lastUpdated"`
		Facts       Facts      `json:"extractedFacts"`
	}{
		UserID:      p.UserID,
		Name:        nullable(p.Name),
		Location:    nullable(p.Location),
		Profession:  nullable(p.Profession),
		LastUpdated: p.LastUpdated,
		Facts: Facts{
			Procedures:     nonNil(p.Facts.Procedures),
			Documents:      nonNil(p.Facts.Documents),
			ImportantDates: nonNil(p.Facts.ImportantDates),
		},
	})
}

func nullable(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func New(userID string) *UserProfile {
	return &UserProfile{
		UserID: userID,
		Facts: Facts{
			Procedures:     []string{},
			Documents:      []string{},
			ImportantDates: []string{},
		},
	}
}

func (p *UserProfile) DocumentID() string {
	return p.UserID
}

// Known reports whether any scalar or fact is set.
func (p *UserProfile) Known() bool {
	return p.Name != "" || p.Location != "" || p.Profession != "" ||
		len(p.Facts.Procedures) > 0 || len(p.Facts.Documents) > 0 || len(p.Facts.ImportantDates) > 0
}

func (p *UserProfile) Clone() *UserProfile {
	cp := *p
	if p.LastUpdated != nil {
		t := *p.LastUpdated
		cp.LastUpdated = &t
	}
	cp.Facts = Facts{
		Procedures:     append([]string{}, p.Facts.Procedures...),
		Documents:      append([]string{}, p.Facts.Documents...),
		ImportantDates: append([]string{}, p.Facts.ImportantDates...),
	}
	return &cp
}

// Merge applies one extraction result. Scalars are overwritten when the new
// value differs; fact lists only grow, deduplicated by exact match.
func (p *UserProfile) Merge(obj gjson.Result, now time.Time) bool {
	changed := false
	setScalar := func(dst *string, v string) {
		if v != "" && *dst != v {
			*dst = v
			changed = true
		}
	}
	setScalar(&p.Name, extractx.String(obj, "name", "nombre"))
	setScalar(&p.Location, extractx.String(obj, "location", "ubicacion"))
	setScalar(&p.Profession, extractx.String(obj, "profession", "profesion"))

	appendFacts := func(dst *[]string, keys ...string) {
		for _, key := range keys {
			for _, item := range extractx.Strings(obj, key) {
				if appendUnique(dst, item) {
					changed = true
				}
			}
		}
	}
	appendFacts(&p.Facts.Procedures, "procedure", "procedures")
	appendFacts(&p.Facts.Documents, "document", "documents")
	appendFacts(&p.Facts.ImportantDates, "important_dates", "importantDates", "important_date")

	if changed {
		ts := now.UTC().Truncate(time.Second)
		p.LastUpdated = &ts
	}
	return changed
}

func appendUnique(dst *[]string, item string) bool {
	if item == "" || slices.Contains(*dst, item) {
		return false
	}
	*dst = append(*dst, item)
	return true
}

func lastN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

// Format renders the context block injected before a turn. It returns ""
// when nothing is known.
func (p *UserProfile) Format() string {
	if !p.Known() {
		return ""
	}

	var b strings.Builder
	b.WriteString("[INFORMACIÓN DEL USUARIO]\n")
	if p.Name != "" {
		b.WriteString("Nombre: " + p.Name + "\n")
	}
	if p.Location != "" {
		b.WriteString("Ubicación: " + p.Location + "\n")
	}
	if p.Profession != "" {
		b.WriteString("Profesión: " + p.Profession + "\n")
	}

	lists := []struct {
		label string
		items []string
	}{
		{"Trámites", p.Facts.Procedures},
		{"Documentos", p.Facts.Documents},
		{"Fechas importantes", p.Facts.ImportantDates},
	}
	header := false
	for _, l := range lists {
		if len(l.items) == 0 {
			continue
		}
		if !header {
			b.WriteString("\nInformación relevante:\n")
			header = true
		}
		b.WriteString("- " + l.label + ": " + strings.Join(lastN(l.items, DisplayLimit), ", ") + "\n")
	}

	b.WriteString("\nUsa esta información para personalizar tus respuestas cuando sea relevante.")
	return b.String()
}
