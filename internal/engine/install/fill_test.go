package install

import (
	"testing"

	"github.com/lemachinarbo/RockShell/internal/domain"
)

func TestTimezoneOptions(t *testing.T) {
	t.Parallel()

	fld := domain.FormField{Name: "timezone", Options: []domain.FieldOption{
		{Value: "0", Label: "UTC"},
		{Value: "7", Label: "Europe/Vienna"},
		{Value: "9", Label: "America/Argentina/Buenos_Aires"},
	}}
	opts := timezoneOptions(fld)
	want := []string{"utc", "vienna (europe)", "argentina/buenos_aires (america)"}
	for i, o := range opts {
		if o.label != want[i] {
			t.Fatalf("label[%d]=%q; want %q", i, o.label, want[i])
		}
	}

	cases := []struct {
		in    string
		loose bool
		want  string
		ok    bool
	}{
		{"Europe/Vienna", false, "7", true},
		{"europe/vienna", false, "7", true},
		{"7", false, "7", true},
		{"Vienna (Europe)", false, "7", true},
		{"vienna", false, "", false},
		{"vienna", true, "7", true},
		{"buenos", true, "9", true},
		{"Mars/Olympus", true, "", false},
		{"", true, "", false},
	}
	for _, tc := range cases {
		got, ok := matchTimezone(opts, tc.in, tc.loose)
		if ok != tc.ok || got.key != tc.want {
			t.Fatalf("matchTimezone(%q, loose=%v)=(%q,%v); want (%q,%v)", tc.in, tc.loose, got.key, ok, tc.want, tc.ok)
		}
	}
}

func TestIsSecretField(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]bool{
		"userpass":         true,
		"userpass_confirm": true,
		"dbPass":           true,
		"dbUser":           false,
		"timezone":         false,
	} {
		if got := isSecretField(name); got != want {
			t.Fatalf("isSecretField(%q)=%v; want %v", name, got, want)
		}
	}
}
