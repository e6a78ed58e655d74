package hydra

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitWords(t *testing.T) {
	tests := map[string][]string{
		"firstName":  {"first", "Name"},
		"first_name": {"first", "name"},
		"userID":     {"user", "ID"},
		"HTTPServer": {"HTTP", "Server"},
		"id":         {"id"},
		"":           nil,
	}
	for in, expected := range tests {
		assert.Equal(t, expected, splitWords(in), in)
	}
}

func TestNameHelpers(t *testing.T) {
	tests := []struct {
		in         string
		classified string
		exported   string
		camel      string
		snake      string
	}{
		{"id", "Id", "ID", "id", "id"},
		{"first_name", "FirstName", "FirstName", "firstName", "first_name"},
		{"userId", "UserId", "UserID", "userId", "user_id"},
		{"isActive", "IsActive", "IsActive", "isActive", "is_active"},
		{"api_url", "ApiUrl", "APIURL", "apiUrl", "api_url"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.classified, classify(tt.in))
			assert.Equal(t, tt.exported, goExported(tt.in))
			assert.Equal(t, tt.camel, lowerCamel(tt.in))
			assert.Equal(t, tt.snake, underscore(tt.in))
		})
	}
}

func TestNamingStrategies(t *testing.T) {
	var identity NamingStrategy = IdentityNamingStrategy{}
	assert.Equal(t, "firstName", identity.Extract("firstName"))
	assert.Equal(t, "first_name", identity.Hydrate("first_name"))

	var underscored NamingStrategy = UnderscoreNamingStrategy{}
	assert.Equal(t, "first_name", underscored.Extract("firstName"))
	assert.Equal(t, "firstName", underscored.Hydrate("first_name"))

	mapped := NewMapNamingStrategy(map[string]string{"id": "pk", "title": "headline"})
	assert.Equal(t, "pk", mapped.Extract("id"))
	assert.Equal(t, "id", mapped.Hydrate("pk"))
	assert.Equal(t, "headline", mapped.Extract("title"))
	assert.Equal(t, "other", mapped.Extract("other"))
	assert.Equal(t, "other", mapped.Hydrate("other"))
}

func TestNameCandidates(t *testing.T) {
	assert.Equal(t, []string{"Id", "ID"}, nameCandidates("id", "id"))
	assert.Equal(t, []string{"FirstName"}, nameCandidates("firstName", "FirstName"))
	assert.Equal(t, []string{"Author", "Writer"}, nameCandidates("author", "Writer"))
}
