package hydragorm

import (
	"strings"

	"github.com/lemmego/hydra"
	"gorm.io/gorm/schema"
)

// NamingStrategy exposes entity fields under their GORM column names:
// "firstName" is extracted as "first_name" and hydrated back.
type NamingStrategy struct {
	Namer schema.Namer
}

// NewNamingStrategy returns a naming strategy using namer, or GORM's
// default naming when namer is nil.
func NewNamingStrategy(namer schema.Namer) NamingStrategy {
	if namer == nil {
		namer = schema.NamingStrategy{}
	}
	return NamingStrategy{Namer: namer}
}

// Extract implements hydra.NamingStrategy
func (n NamingStrategy) Extract(name string) string {
	return n.Namer.ColumnName("", name)
}

// Hydrate implements hydra.NamingStrategy.
// Initialisms are restored the way Metadata names fields: "user_id" gives
// "userID".
func (n NamingStrategy) Hydrate(name string) string {
	var b strings.Builder
	for _, word := range strings.Split(name, "_") {
		if word == "" {
			continue
		}
		if upper := strings.ToUpper(word); initialisms[upper] {
			b.WriteString(upper)
			continue
		}
		b.WriteString(strings.ToUpper(word[:1]) + word[1:])
	}
	return hydra.FieldName(b.String())
}

var initialisms = map[string]bool{
	"API": true, "HTML": true, "HTTP": true, "ID": true, "IP": true, "JSON": true,
	"SQL": true, "UID": true, "URI": true, "URL": true, "UUID": true, "XML": true,
}
