package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntityType(t *testing.T) {
	tests := []struct {
		in      string
		want    EntityType
		wantErr bool
	}{
		{"government", EntityGovernment, false},
		{"Corporate", EntityCorporate, false},
		{"  NGO ", EntityNGO, false},
		{"civilian", EntityCivilian, false},
		{"alien", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseEntityType(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseDimension(t *testing.T) {
	for _, d := range AllDimensions {
		got, err := ParseDimension(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}

	_, err := ParseDimension("spiritual")
	assert.Error(t, err)
}

func TestNewIDUnique(t *testing.T) {
	a, b := NewID(), NewID()
	assert.False(t, a.IsEmpty())
	assert.NotEqual(t, a, b)
}
