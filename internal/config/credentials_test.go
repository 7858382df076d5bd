package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadCredentials(t *testing.T) {
	t.Parallel()

	testcases := map[string]struct {
		env    map[string]string
		token  string
		source string
	}{
		"None":          {env: map[string]string{}},
		"PrimaryOnly":   {env: map[string]string{PrimaryTokenVar: "primary"}, token: "primary", source: PrimaryTokenVar},
		"SecondaryOnly": {env: map[string]string{SecondaryTokenVar: "secondary"}, token: "secondary", source: SecondaryTokenVar},
		"BothSet": {
			env:    map[string]string{PrimaryTokenVar: "primary", SecondaryTokenVar: "secondary"},
			token:  "primary",
			source: PrimaryTokenVar,
		},
		"EmptyPrimary": {
			env:    map[string]string{PrimaryTokenVar: "", SecondaryTokenVar: "secondary"},
			token:  "secondary",
			source: SecondaryTokenVar,
		},
	}

	for name := range testcases {
		tc := testcases[name]
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			creds := LoadCredentials(func(k string) (string, bool) {
				v, ok := tc.env[k]
				return v, ok
			})
			assert.Equal(t, tc.token, creds.Token())
			assert.Equal(t, tc.source, creds.Source())
			assert.Equal(t, tc.token != "", creds.IsSet())
		})
	}
}
