package format

import "testing"

func TestHandle(t *testing.T) {
	alice := "alice"
	at := "@bob"
	blank := "  "
	cases := []struct {
		in   *string
		want string
	}{
		{&alice, "@alice"},
		{&at, "@bob"},
		{&blank, "-"},
		{nil, "-"},
	}
	for _, tc := range cases {
		if got := Handle(tc.in, "-"); got != tc.want {
			t.Fatalf("Handle = %q, want %q", got, tc.want)
		}
	}
}
