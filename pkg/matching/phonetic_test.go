package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhoneticKeys(t *testing.T) {
	primary, secondary := PhoneticKeys("")
	assert.Empty(t, primary)
	assert.Empty(t, secondary)

	primary, _ = PhoneticKeys("smith")
	assert.NotEmpty(t, primary)

	assert.Equal(t, KeysFor("john smith"), KeysFor("smith john"), "word order must not change the keys")

	assert.NotPanics(t, func() { KeysFor("राम लाल") })
}

func TestPhoneticallyLinked(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Keys
		expected bool
	}{
		{"primary equal", Keys{"RML", "RML"}, Keys{"RML", ""}, true},
		{"cross match", Keys{"A", "B"}, Keys{"C", "A"}, true},
		{"secondary only", Keys{"", "B"}, Keys{"B", ""}, true},
		{"no overlap", Keys{"A", "B"}, Keys{"C", "D"}, false},
		{"empty codes never link", Keys{}, Keys{}, false},
		{"empty against code", Keys{"", ""}, Keys{"A", ""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PhoneticallyLinked(tt.a, tt.b))
			assert.Equal(t, tt.expected, PhoneticallyLinked(tt.b, tt.a))
		})
	}
}

func TestKeysFor_EmptyInput(t *testing.T) {
	assert.Equal(t, Keys{}, KeysFor(""))
	assert.Equal(t, Keys{}, KeysFor("   "))
}
