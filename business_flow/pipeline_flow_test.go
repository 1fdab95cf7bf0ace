package businessflow

import (
	"testing"

	"github.com/lib/pq"
	"github.com/propertyshodh/lead-pipeline/models"
	"github.com/propertyshodh/lead-pipeline/utils"
	"github.com/stretchr/testify/assert"
)

func TestMatchesQuery(t *testing.T) {
	lead := &models.Lead{
		Name:          "Rohit Deshmukh",
		Phone:         "+919812345678",
		Email:         utils.ToPtr("rohit.d@example.com"),
		City:          utils.ToPtr("Aurangabad"),
		Location:      utils.ToPtr("CIDCO N-4"),
		Purpose:       utils.ToPtr("investment"),
		PropertyType:  utils.ToPtr("2BHK Apartment"),
		PropertyTitle: utils.ToPtr("Sunshine Residency"),
		Tags:          pq.StringArray{"hot", "site-visit-done"},
	}

	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"empty query matches", "", true},
		{"whitespace query matches", "   ", true},
		{"name substring", "deshmukh", true},
		{"name case insensitive", "ROHIT", true},
		{"phone substring", "98123", true},
		{"email", "example.com", true},
		{"city", "aurangabad", true},
		{"location", "cidco", true},
		{"purpose", "invest", true},
		{"property type", "2bhk", true},
		{"property title", "sunshine", true},
		{"tag", "site-visit", true},
		{"no match", "mumbai", false},
		{"status is not searched", "new", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesQuery(lead, tt.query))
		})
	}
}

func TestMatchesQuery_NilOptionalFields(t *testing.T) {
	lead := &models.Lead{Name: "Asha", Phone: "+919800000000"}

	assert.True(t, MatchesQuery(lead, "asha"))
	assert.False(t, MatchesQuery(lead, "pune"))
}
