package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"animals", "animals"},
		{"  cat.png  ", "cat.png"},
		{"my folder", "my folder"},
		{"a/b", "a-b"},
		{`a\b`, "a-b"},
		{"../../etc", "etc"},
		{"..", ""},
		{"...", ""},
		{"héllo", "h-llo"},
		{"-.leading.-", "leading"},
		{"", ""},
		{"   ", ""},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, sanitizeName(tc.in), "input %q", tc.in)
	}
}

func TestChildPath(t *testing.T) {
	require.Equal(t, "alice/animals", childPath("alice", "animals"))
	require.Equal(t, "public/sun.png", childPath("public", "sun.png"))
	require.Equal(t, "orphan", childPath("", "orphan"))
}
