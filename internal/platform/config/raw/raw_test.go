package raw

import "testing"

func TestConfGet(t *testing.T) {
	t.Setenv("LOG_SERVICE", " tulflow-harvest ")
	c := New().Prefix("LOG_")
	if got := c.Get("SERVICE", "x"); got != "tulflow-harvest" {
		t.Fatalf("Get = %q", got)
	}
	if got := c.Get("MISSING", "def"); got != "def" {
		t.Fatalf("Get default = %q", got)
	}
}

func TestConfGetBool(t *testing.T) {
	c := New().Prefix("B_")
	cases := map[string]bool{"1": true, "TRUE": true, " yes ": true, "0": false, "no": false, "off": false}
	for in, want := range cases {
		t.Setenv("B_V", in)
		if got := c.GetBool("V", !want); got != want {
			t.Fatalf("GetBool(%q) = %v, want %v", in, got, want)
		}
	}
	if !c.GetBool("UNSET", true) {
		t.Fatalf("unset should return default")
	}
}

func TestConfGetInt(t *testing.T) {
	c := New().Prefix("I_")
	t.Setenv("I_N", "25")
	t.Setenv("I_NEG", "-3")
	t.Setenv("I_BAD", "2x")
	if got := c.GetInt("N", 0); got != 25 {
		t.Fatalf("GetInt = %d", got)
	}
	if got := c.GetInt("NEG", 4); got != 4 {
		t.Fatalf("negative should return default, got %d", got)
	}
	if got := c.GetInt("BAD", 4); got != 4 {
		t.Fatalf("invalid should return default, got %d", got)
	}
	if got := c.GetInt("UNSET", 9); got != 9 {
		t.Fatalf("unset should return default, got %d", got)
	}
}
