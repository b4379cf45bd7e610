package notify

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		cc   string
		want string
	}{
		{"already e164", "+919876543210", "+91", "+919876543210"},
		{"bare local number", "9876543210", "+91", "+919876543210"},
		{"bare with country digits", "919876543210", "+91", "+919876543210"},
		{"leading zeros stripped", "09876543210", "+91", "+919876543210"},
		{"other default code", "5551234567", "+1", "+15551234567"},
		{"whitespace trimmed", "  9876543210  ", "+91", "+919876543210"},
		{"empty", "", "+91", ""},
		{"letters rejected", "98765abc10", "+91", ""},
		{"too long rejected", "+9198765432109876543", "+91", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizePhone(tc.raw, tc.cc); got != tc.want {
				t.Fatalf("NormalizePhone(%q, %q) = %q, want %q", tc.raw, tc.cc, got, tc.want)
			}
		})
	}
}
