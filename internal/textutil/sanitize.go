package textutil

import "strings"

// SanitizeFileName makes a video download filename safe for
// Content-Disposition headers and local filesystems. Path separators and
// drive punctuation become dashes so a dealer name can never introduce a
// directory component; shell and glob characters are dropped outright.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*':
			return '-'
		case '?', '"', '<', '>', '|':
			return -1
		default:
			return r
		}
	}, name)
	return strings.TrimSpace(mapped)
}

// SanitizeToken normalizes a dealer or stock identifier into the lowercase
// token used for asset directories and object-storage keys. Feed data is not
// trustworthy: letters are lowercased, digits and hyphens/underscores pass
// through, and anything else (spaces, slashes, unicode) collapses to an
// underscore so the token can never escape the assets root or break an S3
// key. Identifiers with nothing usable left become "unknown".
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	token := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, value)
	token = strings.Trim(token, "_-")
	if token == "" {
		return "unknown"
	}
	return token
}
