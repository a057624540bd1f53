package tracking

import "testing"

func TestColumnKeyMapsLabelsToStorageKeys(t *testing.T) {
	cases := map[string]string{
		"Montar estribera":        "montar_estribera",
		"Ajustar faro":            "ajustar_faro",
		"Poner adhesivo depósito": "poner_adhesivo_deposito",
		"Revisión (nivel aceite)": "revision_nivel_aceite",
		"  Tapa   lateral  ":      "tapa_lateral",
		"Única pieza nº 3":        "unica_pieza_n_3",
	}

	for label, want := range cases {
		if got := ColumnKey(label); got != want {
			t.Errorf("ColumnKey(%q) = %q, want %q", label, got, want)
		}
	}
}

func TestColumnKeyIsTotal(t *testing.T) {
	if got := ColumnKey(""); got != "" {
		t.Errorf("ColumnKey(\"\") = %q, want empty", got)
	}
	if got := ColumnKey("¿¡---!?"); got != "" {
		t.Errorf("ColumnKey of pure punctuation = %q, want empty", got)
	}
	// Must not panic on arbitrary input.
	_ = ColumnKey("\x00\xff\xfe")
}

func TestColumnKeyIsIdempotent(t *testing.T) {
	inputs := []string{
		"Montar estribera",
		"Revisión módulo eléctrico",
		"a__b",
		"",
		"123",
		"ÁÉÍÓÚ ñÑ çÇ",
	}
	for _, s := range inputs {
		once := ColumnKey(s)
		if twice := ColumnKey(once); twice != once {
			t.Errorf("ColumnKey not idempotent for %q: %q != %q", s, once, twice)
		}
	}
}

func TestColumnKeyTrimsUnderscores(t *testing.T) {
	if got := ColumnKey("¡Montar rueda!"); got != "montar_rueda" {
		t.Errorf("got %q, want montar_rueda", got)
	}
}
