// Package validation checks user and configuration input before it is sent
// to the panel, and cleans panel text before it reaches a terminal.
package validation

import (
	"encoding/hex"
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// Valid account name: letters, digits and . _ @ + - (emails included).
	accountRegex = regexp.MustCompile(`^[\p{L}\p{N}._@+-]+$`)

	// Characters that should never appear in an account name
	dangerousChars = []string{";", "|", "&", "$", "`", "(", ")", "<", ">", "\\", "\"", "'", "\n", "\r"}
)

// ValidateAccount validates a username or email used to log in.
func ValidateAccount(name string) error {
	if name == "" {
		return fmt.Errorf("account cannot be empty")
	}

	if len(name) > 255 {
		return fmt.Errorf("account too long (max 255 characters)")
	}

	for _, char := range dangerousChars {
		if strings.Contains(name, char) {
			return fmt.Errorf("account contains invalid character: %q", char)
		}
	}

	if !accountRegex.MatchString(name) {
		return fmt.Errorf("invalid account: %s (letters, digits and ._@+- only)", name)
	}

	return nil
}

// ValidateEmail validates a bare email address.
func ValidateEmail(s string) error {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return fmt.Errorf("invalid email address: %q", s)
	}
	return nil
}

// ValidateServerURL validates a panel origin.
func ValidateServerURL(s string) error {
	u, err := url.Parse(s)
	switch {
	case err != nil:
		return err
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	case u.Host == "":
		return fmt.Errorf("missing host")
	}
	return nil
}

// ValidateBasePath validates the API prefix appended to the server URL.
func ValidateBasePath(p string) error {
	if !strings.HasPrefix(p, "/") {
		return fmt.Errorf("must start with '/', got %q", p)
	}
	if strings.Contains(p, "..") {
		return fmt.Errorf("path traversal not allowed: %s", p)
	}
	if strings.ContainsAny(p, "?#") {
		return fmt.Errorf("must not contain a query or fragment: %s", p)
	}
	return nil
}

// ValidateFingerprint validates a SHA-256 certificate fingerprint in hex.
// Colon separators are accepted.
func ValidateFingerprint(fp string) error {
	clean := strings.ReplaceAll(fp, ":", "")
	if len(clean) != 64 {
		return fmt.Errorf("expected 64 hex characters, got %d", len(clean))
	}
	if _, err := hex.DecodeString(clean); err != nil {
		return fmt.Errorf("not hex: %w", err)
	}
	return nil
}

// ValidatePortNumber validates a port number
func ValidatePortNumber(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be 1-65535)", port)
	}
	return nil
}

// SanitizeString removes control characters and terminal escape sequences
// from panel-supplied text (for display purposes).
func SanitizeString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] == 0x1b {
			i = skipEscape(s, i)
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if r == '\t' || r == ' ' || !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// skipEscape returns the index after an ANSI escape starting at s[i].
func skipEscape(s string, i int) int {
	i++
	if i >= len(s) {
		return i
	}
	switch s[i] {
	case '[':
		// CSI: parameters, then one final byte in @..~
		for i++; i < len(s); i++ {
			if s[i] >= '@' && s[i] <= '~' {
				return i + 1
			}
		}
		return i
	case ']':
		// OSC: terminated by BEL or ESC \
		for i++; i < len(s); i++ {
			if s[i] == 0x07 {
				return i + 1
			}
			if s[i] == 0x1b && i+1 < len(s) && s[i+1] == '\\' {
				return i + 2
			}
		}
		return i
	}
	return i + 1
}
