package relay

import "testing"

func TestSanitizeDefusesMassMentions(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"hello @everyone", "hello @​everyone"},
		{"hello @EVERYONE", "hello @​EVERYONE"},
		{"ping @here now", "ping @​here now"},
		{"<@&123456> raid time", "@role raid time"},
		{"plain text", "plain text"},
		{"mail@example.com", "mail@example.com"},
	}
	for _, tc := range cases {
		if got := Sanitize(tc.in); got != tc.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	in := "@everyone @here <@&42> hi"
	once := Sanitize(in)
	twice := Sanitize(once)
	if once != twice {
		t.Fatalf("sanitize not idempotent: %q != %q", once, twice)
	}
}
