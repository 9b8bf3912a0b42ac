package options

import "testing"

func TestExpand(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain", "plain"},
		{`a\tb`, "a\tb"},
		{`\n`, "\n"},
		{`\r\n`, "\r\n"},
		{`\a\b\e\f`, "\a\b\x1b\f"},
		{`\0`, "\x00"},
		{`\\t`, `\t`},
		{`\101`, "A"},
		{`\012`, "\n"},
		{`\x41`, "A"},
		{`é`, "é"},
		{`\U0001F600`, "\U0001F600"},
		{`\x{1F600}`, "\U0001F600"},
		{`\q`, "q"},
		{`trailing\`, `trailing\`},
	}
	for _, c := range cases {
		got, err := Expand(c.in)
		if err != nil {
			t.Errorf("Expand(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Expand(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExpandErrors(t *testing.T) {
	bad := []string{`\x4`, `\u12`, `\U1234`, `\x{41`, `\x{zz}`}
	for _, in := range bad {
		if _, err := Expand(in); err == nil {
			t.Errorf("Expand(%q) accepted", in)
		}
	}
}

func TestUnescapeCustomEscapeChar(t *testing.T) {
	if got := Unescape("a%tb", '%'); got != "a\tb" {
		t.Errorf("Unescape %% = %q", got)
	}
	// the escape character escapes itself
	if got := Unescape("100%%", '%'); got != "100%" {
		t.Errorf("doubled escape = %q", got)
	}
	// malformed sequences degrade instead of failing
	if got := Unescape(`a\x4`, '\\'); got != `a\x4` {
		t.Errorf("malformed = %q", got)
	}
	// no escape char configured
	if got := Unescape(`a\tb`, 0); got != `a\tb` {
		t.Errorf("esc=0 = %q", got)
	}
}
