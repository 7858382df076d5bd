package config

const (
	PrimaryTokenVar   = "GITHUB_API_TOKEN"
	SecondaryTokenVar = "GITHUB_TOKEN"
)

// Credentials carries the optional API token. It is read once at startup and never modified.
type Credentials struct {
	token  string
	source string
}

// LoadCredentials reads the token from the environment via lookup. The primary variable wins over
// the secondary one when both are set. Empty values count as unset.
func LoadCredentials(lookup func(string) (string, bool)) Credentials {
	for _, v := range []string{PrimaryTokenVar, SecondaryTokenVar} {
		if t, ok := lookup(v); ok && t != "" {
			return Credentials{token: t, source: v}
		}
	}
	return Credentials{}
}

func (c Credentials) Token() string { return c.token }

// Source is the name of the environment variable the token came from, if any.
func (c Credentials) Source() string { return c.source }

func (c Credentials) IsSet() bool { return c.token != "" }
