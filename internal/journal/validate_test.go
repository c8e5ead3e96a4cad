package journal

import (
	"errors"
	"math"
	"testing"
)

func TestValidateField(t *testing.T) {
	valid := []string{"MESSAGE", "_SYSTEMD_UNIT", "__CURSOR", "A1", "0"}
	for _, name := range valid {
		got, err := ValidateField(name)
		if err != nil {
			t.Errorf("ValidateField(%q) error: %v", name, err)
		}
		if got != name {
			t.Errorf("ValidateField(%q) = %q, want input unchanged", name, got)
		}
	}

	invalid := []string{"", "message", "Message", "MESSAGE ", "FOO-BAR", "FOO=BAR", "ÄÖ"}
	for _, name := range invalid {
		if _, err := ValidateField(name); err == nil {
			t.Errorf("ValidateField(%q) should fail", name)
		}
	}
}

func TestValidateIdentifier(t *testing.T) {
	if _, err := ValidateIdentifier("sshd"); err != nil {
		t.Errorf("ValidateIdentifier(sshd) error: %v", err)
	}
	if _, err := ValidateIdentifier("systemd-coredump"); err != nil {
		t.Errorf("ValidateIdentifier(systemd-coredump) error: %v", err)
	}

	for _, id := range []string{"", "two words", "tab\there", "newline\n", " leading"} {
		if _, err := ValidateIdentifier(id); err == nil {
			t.Errorf("ValidateIdentifier(%q) should fail", id)
		}
	}
}

func TestValidateUnit(t *testing.T) {
	valid := []string{"docker.service", "user-1000.slice", `dev-disk-by\x2duuid.device`, "a:b_c-d.e"}
	for _, unit := range valid {
		if _, err := ValidateUnit(unit); err != nil {
			t.Errorf("ValidateUnit(%q) error: %v", unit, err)
		}
	}

	invalid := []string{"", "getty@tty1.service", "my unit", "unit/slash", "uni;t"}
	for _, unit := range invalid {
		if _, err := ValidateUnit(unit); err == nil {
			t.Errorf("ValidateUnit(%q) should fail", unit)
		}
	}
}

func TestValidateDate(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"2026-02-19", true},
		{"2026-02-19 14:05", true},
		{"2026-02-19 14:05:59", true},
		{"2024-02-29", true},
		{"2026-02-30", false},
		{"2026-13-01", false},
		{"2026-02-19 25:00", false},
		{"2026-02-19 14:60:00", false},
		{"2026-2-19", false},
		{"2026-02-19T14:05:00", false},
		{"yesterday", false},
		{"", false},
	}

	for _, tt := range tests {
		_, err := ValidateDate(tt.in)
		if tt.valid && err != nil {
			t.Errorf("ValidateDate(%q) error: %v", tt.in, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("ValidateDate(%q) should fail", tt.in)
		}
	}
}

func TestValidateDateValue(t *testing.T) {
	got, err := ValidateDate("2026-02-19 14:05")
	if err != nil {
		t.Fatal(err)
	}
	if got.Year() != 2026 || got.Month() != 2 || got.Day() != 19 || got.Hour() != 14 || got.Minute() != 5 {
		t.Errorf("ValidateDate = %v", got)
	}
}

func TestValidateInteger(t *testing.T) {
	for _, v := range []float64{0, 1, 10, 1000} {
		n, err := ValidateInteger(v)
		if err != nil {
			t.Errorf("ValidateInteger(%v) error: %v", v, err)
		}
		if float64(n) != v {
			t.Errorf("ValidateInteger(%v) = %d", v, n)
		}
	}

	for _, v := range []float64{-1, 1.5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := ValidateInteger(v); err == nil {
			t.Errorf("ValidateInteger(%v) should fail", v)
		}
	}
}

func TestParseInteger(t *testing.T) {
	if n, err := ParseInteger("25"); err != nil || n != 25 {
		t.Errorf("ParseInteger(25) = %d, %v", n, err)
	}
	for _, s := range []string{"", "abc", "1.5", "-3", "NaN", "Inf"} {
		if _, err := ParseInteger(s); err == nil {
			t.Errorf("ParseInteger(%q) should fail", s)
		}
	}
}

func TestValidatePriority(t *testing.T) {
	for v := 0; v <= 7; v++ {
		if _, err := ValidatePriority(float64(v)); err != nil {
			t.Errorf("ValidatePriority(%d) error: %v", v, err)
		}
	}
	for _, v := range []float64{8, 100, -1, 2.5, math.NaN()} {
		if _, err := ValidatePriority(v); err == nil {
			t.Errorf("ValidatePriority(%v) should fail", v)
		}
	}
}

func TestOptionErrorMessage(t *testing.T) {
	_, err := ValidateField("lower")
	var optErr *OptionError
	if !errors.As(err, &optErr) {
		t.Fatalf("error type = %T, want *OptionError", err)
	}
	if optErr.Option != "field" || optErr.Value != "lower" {
		t.Errorf("OptionError = %+v", optErr)
	}
	want := `invalid field "lower": must match [A-Z0-9_]+`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
