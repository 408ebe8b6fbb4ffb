package checksum

import "testing"

func TestSumStable(t *testing.T) {
	if Sum([]byte("a")) != Sum([]byte("a")) {
		t.Error("digest must be stable")
	}
	if Sum([]byte("a")) == Sum([]byte("b")) {
		t.Error("different content must differ")
	}
}

func TestMatches(t *testing.T) {
	data := []byte("# Note\n")
	sum := Sum(data)
	cases := []struct {
		want string
		ok   bool
	}{
		{"", true},
		{"*", true},
		{sum, true},
		{`"` + sum + `"`, true},
		{"stale", false},
	}
	for _, c := range cases {
		if got := Matches(data, c.want); got != c.ok {
			t.Errorf("Matches(%q) = %v, want %v", c.want, got, c.ok)
		}
	}
}
