package hydra

import (
	"strings"
	"unicode"
)

// =====================================
// Naming Strategies
// =====================================

// NamingStrategy maps field names to and from their external representation.
type NamingStrategy interface {
	// Extract converts a field name into the key written to a Record
	Extract(name string) string
	// Hydrate converts a Record key back into a field name
	Hydrate(name string) string
}

// IdentityNamingStrategy leaves names untouched.
type IdentityNamingStrategy struct{}

func (IdentityNamingStrategy) Extract(name string) string { return name }
func (IdentityNamingStrategy) Hydrate(name string) string { return name }

// UnderscoreNamingStrategy writes snake_case keys and reads them back as
// lowerCamelCase field names.
type UnderscoreNamingStrategy struct{}

// Extract implements NamingStrategy
func (UnderscoreNamingStrategy) Extract(name string) string {
	return underscore(name)
}

// Hydrate implements NamingStrategy
func (UnderscoreNamingStrategy) Hydrate(name string) string {
	return lowerCamel(name)
}

// MapNamingStrategy renames fields through an explicit mapping.
// Names absent from the mapping are passed through unchanged.
type MapNamingStrategy struct {
	extraction map[string]string
	hydration  map[string]string
}

// NewMapNamingStrategy creates a MapNamingStrategy from a field -> key mapping.
// The hydration mapping is the inverse of extraction.
func NewMapNamingStrategy(extraction map[string]string) *MapNamingStrategy {
	m := &MapNamingStrategy{
		extraction: make(map[string]string, len(extraction)),
		hydration:  make(map[string]string, len(extraction)),
	}
	for field, key := range extraction {
		m.extraction[field] = key
		m.hydration[key] = field
	}
	return m
}

// Extract implements NamingStrategy
func (m *MapNamingStrategy) Extract(name string) string {
	if key, ok := m.extraction[name]; ok {
		return key
	}
	return name
}

// Hydrate implements NamingStrategy
func (m *MapNamingStrategy) Hydrate(name string) string {
	if field, ok := m.hydration[name]; ok {
		return field
	}
	return name
}

// =====================================
// Name helpers
// =====================================

// splitWords breaks a name on separators and case boundaries.
// Runs of upper-case letters are kept together, so "userID" gives
// ["user", "ID"] and "HTTPServer" gives ["HTTP", "Server"].
func splitWords(name string) []string {
	var words []string
	var current []rune
	runes := []rune(name)

	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}

	for i, r := range runes {
		if r == '_' || r == '-' || r == ' ' || r == '.' {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(current) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if !unicode.IsUpper(prev) || nextLower {
				flush()
			}
		}
		current = append(current, r)
	}
	flush()
	return words
}

// classify turns a field name into the exported Go name used for accessor
// methods: "first_name" and "firstName" both give "FirstName".
func classify(name string) string {
	var b strings.Builder
	for _, w := range splitWords(name) {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}

var commonInitialisms = map[string]bool{
	"API": true, "HTML": true, "HTTP": true, "ID": true, "IP": true, "JSON": true,
	"SQL": true, "UID": true, "URI": true, "URL": true, "UUID": true, "XML": true,
}

// goExported is classify with Go initialisms upper-cased:
// "user_id" gives "UserID" where classify gives "UserId".
func goExported(name string) string {
	var b strings.Builder
	for _, w := range splitWords(name) {
		if upper := strings.ToUpper(w); commonInitialisms[upper] {
			b.WriteString(upper)
			continue
		}
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}

// FieldName returns the logical field name inferred for a struct field:
// "FirstName" gives "firstName" and "ID" gives "id".
func FieldName(goName string) string {
	return lowerCamel(goName)
}

// lowerCamel turns a name into lowerCamelCase.
func lowerCamel(name string) string {
	words := splitWords(name)
	var b strings.Builder
	for i, w := range words {
		runes := []rune(w)
		if i == 0 {
			b.WriteString(strings.ToLower(w))
			continue
		}
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}

// underscore turns a name into snake_case.
func underscore(name string) string {
	words := splitWords(name)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "_")
}
