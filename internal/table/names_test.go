package table

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCleanName(t *testing.T) {
	cases := map[string]string{
		"Athlete":             "athlete",
		"  Wind (m/s) ":       "wind_m_s",
		"Date":                "date",
		"Time[a]":             "time_a",
		"__already_clean__":   "already_clean",
		"Record   #":          "record",
		"Café":                "café",
		"---":                 "",
		"Nation/Country Code": "nation_country_code",
		"ID":                  "id",
	}
	for in, want := range cases {
		if got := CleanName(in); got != want {
			t.Errorf("CleanName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanName_Idempotent(t *testing.T) {
	inputs := []string{"", "A B", "a__b", "Ünïcode Hëader", "x-1-Y", " _ _ ", "ǅemal", "MiXeD_Case 42", "été", "Ꭰ", "x Ꭰ_B", "ꭰꭱ Header", "ΟΔΟΣ", "İstanbul"}
	for _, in := range inputs {
		once := CleanName(in)
		if twice := CleanName(once); twice != once {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestCleanName_IdempotentEveryRune(t *testing.T) {
	templates := []string{"%c", "x %c_B", "%cAb", "A-%c-1"}
	bad := 0
	for r := rune(0); r < 0x30000; r++ {
		for _, tmpl := range templates {
			in := fmt.Sprintf(tmpl, r)
			once := CleanName(in)
			if twice := CleanName(once); twice != once {
				if bad < 5 {
					t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
				}
				bad++
			}
		}
	}
	if bad > 0 {
		t.Fatalf("%d inputs not idempotent", bad)
	}
}

func FuzzCleanName(f *testing.F) {
	for _, s := range []string{"Athlete", "Wind (m/s)", "a__b", "Straße", ""} {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, s string) {
		once := CleanName(s)
		if twice := CleanName(once); twice != once {
			t.Fatalf("CleanName not idempotent: %q -> %q -> %q", s, once, twice)
		}
	})
}

func TestUniqueNames(t *testing.T) {
	got := UniqueNames([]string{"Time", "time", "", "Time ", "time_2", "Mark"})
	want := []string{"time", "time_3", "column_3", "time_4", "time_2", "mark"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("UniqueNames mismatch (-want +got):\n%s", diff)
	}
}
