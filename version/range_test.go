package version

import "testing"

func TestRangeContains(t *testing.T) {
	tests := []struct {
		since, until string
		v            string
		want         bool
	}{
		{"", "", "1.0", true},
		{"", "", "IU-999.9", true},
		{"181.1", "", "181.1", true},
		{"181.1", "", "181.0", false},
		{"181.1", "", "190.0", true},
		{"", "191.9999", "191.5", true},
		{"IU-150.0", "", "IC-200.0", false},
		{"IU-150.0", "", "IU-200.0", true},
		{"181.1", "183.9", "183.9", true},
		{"181.1", "183.9", "183.10", false},
		{"181.1", "183.9", "180.99", false},
	}

	for _, tt := range tests {
		r, err := ParseRange(tt.since, tt.until)
		if err != nil {
			t.Fatalf("ParseRange(%q, %q) failed: %v", tt.since, tt.until, err)
		}
		if got := IsCompatible(MustParse(tt.v), r); got != tt.want {
			t.Errorf("IsCompatible(%s, %s) = %v, want %v", tt.v, r, got, tt.want)
		}
	}
}

func TestRangeSinceOnlyMatchesCompare(t *testing.T) {
	since := MustParse("200.5")
	for _, s := range []string{"100.0", "200.4", "200.5", "200.5.1", "300.0"} {
		v := MustParse(s)
		want := Compare(since, v) <= 0
		if got := (Range{Since: since}).Contains(v); got != want {
			t.Errorf("Range{Since: %s}.Contains(%s) = %v, want %v", since, v, got, want)
		}
	}
}

func TestRangeString(t *testing.T) {
	tests := []struct {
		r    Range
		want string
	}{
		{Range{}, "all"},
		{Range{Since: MustParse("1.2")}, "1.2+"},
		{Range{Until: MustParse("3.4")}, "1.0 - 3.4"},
		{Range{Since: MustParse("1.2"), Until: MustParse("3.4")}, "1.2 - 3.4"},
	}
	for _, tt := range tests {
		if got := tt.r.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseRangeError(t *testing.T) {
	if _, err := ParseRange("abc", ""); err == nil {
		t.Error("ParseRange(abc) succeeded, want error")
	}
	if _, err := ParseRange("", "1"); err == nil {
		t.Error("ParseRange(until=1) succeeded, want error")
	}
}

func TestCompareStrings(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "1.0.1", -1},
		{"1.10.0", "1.9.0", 1},
		{"1.0.0-beta", "1.0.0", -1},
		{"1.0.0.4", "1.0.0.10", -1},
		{"1.0.0.4", "1.0.0", 1},
		{"2023.1-beta", "2023.1", -1},
		{"2023.1-EAP", "2023.1.1", -1},
		{"1.2", "1.2.0", -1},
	}
	for _, tt := range tests {
		if got := sign(CompareStrings(tt.a, tt.b)); got != tt.want {
			t.Errorf("CompareStrings(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
		if got := sign(CompareStrings(tt.b, tt.a)); got != -tt.want {
			t.Errorf("CompareStrings(%q, %q) = %d, want %d", tt.b, tt.a, got, -tt.want)
		}
	}
}
