package wildcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		s       string
		want    bool
	}{
		{"", "anything", true},
		{"Temp", "Temp", true},
		{"temp", "TEMP", true},
		{"Temp", "Temperature", false},
		{"Temp*", "Temperature", true},
		{"*ture", "Temperature", true},
		{"*era*", "Temperature", true},
		{"T?mp", "Tamp", true},
		{"T?mp", "Tromp", false},
		{"Pump ?", "Pump 1", true},
		{"Pump ?", "Pump 12", false},
		{"*", "", true},
		{"?", "", false},
		{"a.b", "a.b", true},
		{"a.b", "axb", false}, // dot is literal, not regex
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.s, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pattern, tt.s))
		})
	}
}

func TestHasWildcards(t *testing.T) {
	assert.True(t, HasWildcards("a*"))
	assert.True(t, HasWildcards("a?b"))
	assert.False(t, HasWildcards("plain name"))
}

func TestMatchCachesCompiledPatterns(t *testing.T) {
	// Same pattern twice must hit the cache and stay correct.
	assert.True(t, Match("sensor-*", "sensor-42"))
	assert.True(t, Match("sensor-*", "sensor-43"))
	assert.False(t, Match("sensor-*", "pump-1"))
}
