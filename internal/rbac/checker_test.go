package rbac

import "testing"

func TestCheckerHas(t *testing.T) {
	c := NewChecker(nil)

	cases := []struct {
		role, perm string
		want       bool
	}{
		{"reviewer", "scores:write-own", true},
		{"reviewer", "scores:view-all", false},
		{"reviewer", "criteria:manage", false},
		{"applicant", "application:create", true},
		{"applicant", "scores:write-own", false},
		{"admin", "anything:at-all", true},
		{"ghost-role", "program:view", false},
		{"", "program:view", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestCheckerWildcardPrefix(t *testing.T) {
	c := NewChecker(map[string][]string{
		"lead": {"scores:*", "program:view"},
	})
	if !c.Has("lead", "scores:view-all") {
		t.Error("scores:* should match scores:view-all")
	}
	if c.Has("lead", "users:list") {
		t.Error("scores:* must not match users:list")
	}
	if !c.Any("lead", "users:list", "program:view") {
		t.Error("Any should pass when one permission matches")
	}
}
