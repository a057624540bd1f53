package tracking

import (
	"regexp"
	"testing"
)

var vinOutputPattern = regexp.MustCompile(`^[A-Z0-9]*$`)

func TestNormalizeVIN(t *testing.T) {
	cases := map[string]string{
		"vf1rfb00x68123456":       "VF1RFB00X68123456",
		" vf1-rfb00 x68123456 ":   "VF1RFB00X68123456",
		"vf1rfb00x68123456extras": "VF1RFB00X68123456",
		"abc":                     "ABC",
		"":                        "",
	}
	for raw, want := range cases {
		got := Normalize(raw, KindVIN)
		if got != want {
			t.Errorf("Normalize(%q, VIN) = %q, want %q", raw, got, want)
		}
		if len(got) > 17 {
			t.Errorf("Normalize(%q, VIN) longer than 17: %q", raw, got)
		}
		if !vinOutputPattern.MatchString(got) {
			t.Errorf("Normalize(%q, VIN) has invalid characters: %q", raw, got)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{"vf1rfb00x68123456", "rojo vivo", "#a1B2c3", "#FFF", "  Gris Plata  "}
	for _, kind := range []Kind{KindVIN, KindColor} {
		for _, raw := range inputs {
			once := Normalize(raw, kind)
			if twice := Normalize(once, kind); twice != once {
				t.Errorf("Normalize(kind=%d) not idempotent for %q: %q != %q", kind, raw, once, twice)
			}
		}
	}
}

func TestNormalizeColor(t *testing.T) {
	cases := map[string]string{
		"#a1b2c3":     "#A1B2C3",
		"#fff":        "#FFF",
		"rojo vivo":   "Rojo Vivo",
		"  GRIS  ":    "Gris",
		"azul RACING": "Azul Racing",
	}
	for raw, want := range cases {
		if got := Normalize(raw, KindColor); got != want {
			t.Errorf("Normalize(%q, COLOR) = %q, want %q", raw, got, want)
		}
	}
}

func TestValidVIN(t *testing.T) {
	if !ValidVIN("VF1RFB00X68123456") {
		t.Error("expected 17-char alphanumeric VIN to be valid")
	}
	if ValidVIN("VF1RFB00X6812345") {
		t.Error("expected 16-char VIN to be invalid")
	}
	if ValidVIN("vf1rfb00x68123456") {
		t.Error("expected lowercase VIN to be invalid before normalization")
	}
	if ValidVIN("") {
		t.Error("expected empty VIN to be invalid")
	}
}

func TestValidColor(t *testing.T) {
	if !ValidColor("Rojo") {
		t.Error("expected non-empty color to be valid")
	}
	if ValidColor("   ") {
		t.Error("expected blank color to be invalid")
	}
}
