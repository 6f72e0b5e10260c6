package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCPF(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"123.456.789-01", "12345678901"},
		{"12345678901", "12345678901"},
		{" 123 456 789 01 ", "12345678901"},
		{"", ""},
		{"abc", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeCPF(tc.in), "input %q", tc.in)
	}
}

func TestValidCPF(t *testing.T) {
	valid := []string{"52998224725", "11144477735"}
	for _, cpf := range valid {
		assert.True(t, ValidCPF(cpf), "cpf %s", cpf)
	}

	invalid := []string{
		"52998224724", // wrong check digit
		"11111111111", // repeated digit
		"00000000000",
		"5299822472", // too short
		"529982247250",
		"",
	}
	for _, cpf := range invalid {
		assert.False(t, ValidCPF(cpf), "cpf %s", cpf)
	}
}
