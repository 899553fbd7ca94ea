package complaint

import (
	"maps"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Entity is the public body responsible for handling a complaint.
type Entity string

const (
	EntityPolice       Entity = "police"
	EntityMunicipality Entity = "municipality"
	EntityProsecutor   Entity = "prosecutor"
	EntityGovernor     Entity = "governor"
)

const fallbackContact = "general@gobierno.gob.ficticio"

var contacts = map[Entity]string{
	EntityPolice:       "denuncias@policia.gob.ficticio",
	EntityMunicipality: "quejas@municipio.gob.ficticio",
	EntityProsecutor:   "corrupcion@procuraduria.gob.ficticio",
	EntityGovernor:     "atencion@gobernador.gob.ficticio",
}

// ContactFor returns the notification address of e.
func ContactFor(e Entity) string {
	if addr, ok := contacts[e]; ok {
		return addr
	}
	return fallbackContact
}

// EntityTable maps folded complaint categories to entities. The zero value
// resolves everything to the municipality.
type EntityTable struct {
	byCategory map[string]Entity
	fallback   Entity
}

func DefaultEntityTable() EntityTable {
	return EntityTable{
		byCategory: map[string]Entity{
			"seguridad":       EntityPolice,
			"safety":          EntityPolice,
			"security":        EntityPolice,
			"servicios":       EntityMunicipality,
			"services":        EntityMunicipality,
			"infraestructura": EntityMunicipality,
			"infrastructure":  EntityMunicipality,
			"corrupcion":      EntityProsecutor,
			"corruption":      EntityProsecutor,
		},
		fallback: EntityMunicipality,
	}
}

// With returns a copy of t with category bound to e.
func (t EntityTable) With(category string, e Entity) EntityTable {
	next := EntityTable{byCategory: make(map[string]Entity, len(t.byCategory)+1), fallback: t.fallback}
	maps.Copy(next.byCategory, t.byCategory)
	next.byCategory[fold(category)] = e
	return next
}

func (t EntityTable) Resolve(category string) Entity {
	if e, ok := t.byCategory[fold(category)]; ok {
		return e
	}
	if t.fallback != "" {
		return t.fallback
	}
	return EntityMunicipality
}

// fold lower-cases s and strips combining marks, so "Corrupción" and
// "corrupcion" match.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
