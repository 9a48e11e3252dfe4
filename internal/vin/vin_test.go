package vin

import "testing"

func TestValidate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1HGBH41JXMN109186", ""},
		{"1hgbh41jxmn109186", ""},
		{" 1HG-BH41JX-MN109186 ", ""},
		{"1hg-bh41jx!mn10918", MsgLength},
		{"", MsgLength},
		{"1HGBH41JXMN1091866", MsgLength},
	}
	for _, tc := range cases {
		if got := Validate(tc.in); got != tc.want {
			t.Fatalf("Validate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("1hg-bh41jx!mn10918"); got != "1HGBH41JXMN10918" || len(got) != 16 {
		t.Fatalf("unexpected normalized value %q", got)
	}
}
