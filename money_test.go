package cryptofolio

import "testing"

func TestEUR(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "€0,00"},
		{"1234.56", "€1.234,56"},
		{"-42.5", "-€42,50"},
		{"1.005", "€1,01"}, // rounds to cents, half away from zero
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := EUR(d(tt.in)); got != tt.want {
				t.Errorf("EUR(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSignedEUR(t *testing.T) {
	if got := SignedEUR(d("0")); got != "-" {
		t.Errorf("zero = %q, want -", got)
	}
	if got := SignedEUR(d("10")); got != "+€10,00" {
		t.Errorf("positive = %q, want +€10,00", got)
	}
	if got := SignedEUR(d("-10")); got != "-€10,00" {
		t.Errorf("negative = %q, want -€10,00", got)
	}
}

func TestCrypto(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0.0000001", "0"}, // below display precision
		{"0.5", "0.500000"},
		{"999", "999.000000"},
		{"2500", "2.50K"},
		{"1500000", "1.50M"},
		{"-2500", "-2.50K"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Crypto(d(tt.in)); got != tt.want {
				t.Errorf("Crypto(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
