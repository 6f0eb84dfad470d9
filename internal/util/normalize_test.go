package util

import (
	"reflect"
	"testing"
)

func TestNormalizeAddress_Basic(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`Name <User@Example.COM>`, "user@example.com"},
		{`"Name" <user+news@Example.com>`, "user+news@example.com"}, // alias kept
		{`user.name@example.com`, "user.name@example.com"},
		{`bad address`, ""},
		{`"A" <not-an-email> , "B" <c@D.com>`, "c@d.com"}, // list fallback picks first valid
		{``, ""},
	}
	for _, tc := range tests {
		if got := NormalizeAddress(tc.in); got != tc.want {
			t.Errorf("NormalizeAddress(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeRecipient(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`Dan <Dan@Example.com>`, "dan@example.com"},
		{`  DAN@example.com `, "dan@example.com"},
		{`@Example.com`, "@example.com"},
		{`dan`, "dan"},
	}
	for _, tc := range tests {
		if got := NormalizeRecipient(tc.in); got != tc.want {
			t.Errorf("NormalizeRecipient(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestSameAddress(t *testing.T) {
	if !SameAddress(`Me <ME@example.com>`, "me@example.com") {
		t.Error("expected display-name form to match bare address")
	}
	if SameAddress("someme@example.com", "me@example.com") {
		t.Error("suffix must not match")
	}
	if SameAddress("", "") {
		t.Error("empty values must not match")
	}
}

func TestJoinRecipients(t *testing.T) {
	got := JoinRecipients([]string{"A@x.com", ""}, nil, []string{"Dan <DAN@example.com>"})
	want := "a@x.com, dan <dan@example.com>"
	if got != want {
		t.Errorf("JoinRecipients = %q; want %q", got, want)
	}
}

func TestSplitAddressList(t *testing.T) {
	got := SplitAddressList(`a@x.com, "Dan" <dan@example.com>`)
	want := []string{"<a@x.com>", `"Dan" <dan@example.com>`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitAddressList = %#v; want %#v", got, want)
	}
	if got := SplitAddressList("  "); got != nil {
		t.Errorf("expected nil for blank header, got %#v", got)
	}
}
