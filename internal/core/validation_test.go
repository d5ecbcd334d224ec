// AngelaMos | 2026
// validation_test.go

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsStrongPassword(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"Str0ng@Pass", true},
		{"weak", false},
		{"NoDigits@here", false},
		{"n0upper@case", false},
		{"N0SPECIALchars", false},
		{"MyPassword1@", false},
		{"Qwerty12@x", false},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStrongPassword(tt.password))
		})
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		contact string
		valid   bool
		want    string
	}{
		{"0771234567", true, "+94771234567"},
		{"077 123 4567", true, "+94771234567"},
		{"+94771234567", true, "+94771234567"},
		{"94771234567", true, "+94771234567"},
		{"(011) 234-5678", true, "+94112345678"},
		{"0791234567", false, ""},
		{"+14155550100", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.contact, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsSriLankanPhone(tt.contact))
			if tt.valid {
				assert.Equal(t, tt.want, NormalizePhone(tt.contact))
			}
		})
	}
}

func TestNewValidator_Tags(t *testing.T) {
	type form struct {
		Username string `validate:"username"`
		Name     string `validate:"personname"`
		Postal   string `validate:"postalcode"`
		Phone    string `validate:"lkphone"`
		Password string `validate:"password_strength"`
	}

	v := NewValidator()

	good := form{"alice_01", "Alice Perera", "10100", "0771234567", "Str0ng@Pass"}
	assert.NoError(t, v.Struct(good))

	bad := []form{
		{"al<b>", "Alice Perera", "10100", "0771234567", "Str0ng@Pass"},
		{"alice_01", "Alice  Perera", "10100", "0771234567", "Str0ng@Pass"},
		{"alice_01", "Alice 2", "10100", "0771234567", "Str0ng@Pass"},
		{"alice_01", "Alice Perera", "1010", "0771234567", "Str0ng@Pass"},
		{"alice_01", "Alice Perera", "10100", "12345", "Str0ng@Pass"},
		{"alice_01", "Alice Perera", "10100", "0771234567", "password"},
	}
	for _, f := range bad {
		assert.Error(t, v.Struct(f), "%+v", f)
	}
}
