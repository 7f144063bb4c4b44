package ton

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestNormalizeAddress(t *testing.T) {
	hash := strings.Repeat("ab", 32)

	raw := make([]byte, friendlyLen)
	raw[0] = 0x11
	raw[1] = 0xff // workchain -1
	for i := 2; i < 34; i++ {
		raw[i] = 0xab
	}
	friendly := base64.URLEncoding.EncodeToString(raw)

	cases := []struct {
		in, want string
	}{
		{"0:" + hash, "0:" + hash},
		{"0:" + strings.ToUpper(hash), "0:" + hash},
		{" -1:" + hash + " ", "-1:" + hash},
		{friendly, "-1:" + hash},
	}
	for _, tc := range cases {
		got, err := NormalizeAddress(tc.in)
		if err != nil || got != tc.want {
			t.Fatalf("%q: got %q, %v; want %q", tc.in, got, err, tc.want)
		}
		if !ValidateAddress(strings.TrimSpace(tc.in)) {
			t.Fatalf("%q: not valid", tc.in)
		}
	}
}

func TestRejectsMalformedAddresses(t *testing.T) {
	for _, in := range []string{
		"", "UQ-addr", "0:abc", "2:" + strings.Repeat("ab", 32), "0:" + strings.Repeat("zz", 32),
		strings.Repeat("A", 47),
	} {
		if ValidateAddress(in) {
			t.Fatalf("%q accepted", in)
		}
		if _, err := NormalizeAddress(in); err == nil {
			t.Fatalf("%q normalized", in)
		}
	}
}
