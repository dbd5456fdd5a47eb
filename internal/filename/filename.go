// Package filename turns untrusted client-supplied names into safe path segments.
package filename

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

	// asciiFold decomposes accented letters and drops whatever is left outside ASCII,
	// so "acta_señal.png" becomes "acta_senal.png".
	asciiFold = transform.Chain(
		norm.NFKD,
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)

	windowsDeviceNames = map[string]struct{}{
		"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
		"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
		"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
	}
)

// Secure returns a version of name that is safe to join onto a directory.
//
// Path separators and whitespace runs become a single underscore, characters outside
// [A-Za-z0-9_.-] are removed, and leading/trailing dots and underscores are trimmed.
// The result may be empty; callers must reject it in that case.
func Secure(name string) string {
	folded, _, err := transform.String(asciiFold, name)
	if err != nil {
		folded = name
	}
	folded = strings.NewReplacer("/", " ", "\\", " ").Replace(folded)
	joined := strings.Join(strings.Fields(folded), "_")
	cleaned := strings.Trim(unsafeChars.ReplaceAllString(joined, ""), "._")

	if cleaned != "" {
		stem := strings.ToUpper(strings.SplitN(cleaned, ".", 2)[0])
		if _, reserved := windowsDeviceNames[stem]; reserved {
			cleaned = "_" + cleaned
		}
	}
	return cleaned
}

// Extension returns the lower-cased text after the last dot, or "" when there is none.
func Extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// HasAllowedExtension reports whether name carries one of the allowed extensions.
func HasAllowedExtension(name string, allowed ...string) bool {
	ext := Extension(name)
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// HasPathComponents reports whether a raw name tries to address anything other than a
// single entry in a directory: separators, parent references or drive/absolute prefixes.
func HasPathComponents(name string) bool {
	if strings.ContainsAny(name, `/\`) {
		return true
	}
	if name == ".." || name == "." {
		return true
	}
	if len(name) >= 2 && name[1] == ':' {
		return true
	}
	return strings.ContainsRune(name, 0)
}
