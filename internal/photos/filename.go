package photos

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// AllowedExtensions lists the accepted upload extensions, lowercase without dot.
var AllowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"heic": true,
	"webp": true,
	"bmp":  true,
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// AllowedFile reports whether filename has an accepted image extension.
func AllowedFile(filename string) bool {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	return ext != "" && AllowedExtensions[strings.ToLower(ext)]
}

// SanitizeFilename turns a client-supplied name into a safe ASCII file name
// ("Fotka z výletu.JPG" -> "Fotka_z_vyletu.JPG"). Path separators and
// whitespace collapse into underscores. The result may be empty.
func SanitizeFilename(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	ascii, _, err := transform.String(t, name)
	if err != nil {
		return ""
	}

	for _, sep := range []string{"/", "\\"} {
		ascii = strings.ReplaceAll(ascii, sep, " ")
	}

	ascii = strings.Join(strings.Fields(ascii), "_")
	ascii = unsafeFilenameChars.ReplaceAllString(ascii, "")
	return strings.Trim(ascii, "._")
}
