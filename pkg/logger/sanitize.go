package logger

import "strings"

// SanitizedIdentity masks an identity for logging. Email-shaped identities
// keep the first character and the TLD (e.g. "u***@***.com"); anything else
// keeps only the first character.
func SanitizedIdentity(identity string) string {
	at := strings.IndexByte(identity, '@')
	if at < 0 {
		if len(identity) <= 1 {
			return identity
		}
		return string(identity[0]) + strings.Repeat("*", len(identity)-1)
	}

	username := identity[:at]
	domain := identity[at+1:]

	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

// SanitizeQueryString reports whether a raw query string carries sensitive
// parameters and should be redacted wholesale from request logs.
func SanitizeQueryString(rawQuery string) bool {
	sensitive := []string{
		"password",
		"token",
		"secret",
		"api_key",
		"apikey",
		"auth",
		"fingerprint",
		"session",
	}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitive {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
