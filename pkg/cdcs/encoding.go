package cdcs

import (
	"regexp"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultXMLEncoding applies when the XML prologue declares no charset.
const DefaultXMLEncoding = "UTF-8"

// charsetAliases maps common codec names that neither registry knows.
var charsetAliases = map[string]string{
	"ascii": "US-ASCII",
	"latin": "ISO-8859-1",
}

var encodingDecl = regexp.MustCompile(`encoding\s*=\s*(?:"([^"]+)"|'([^']+)')`)

// DetectXMLEncoding returns the charset declared in the <?xml ... ?>
// prologue of text, or DefaultXMLEncoding.
func DetectXMLEncoding(text string) string {
	start := strings.Index(text, "<?xml")
	if start < 0 {
		return DefaultXMLEncoding
	}
	end := strings.Index(text[start:], "?>")
	if end < 0 {
		return DefaultXMLEncoding
	}
	m := encodingDecl.FindStringSubmatch(text[start : start+end])
	if m == nil {
		return DefaultXMLEncoding
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

// EncodeContent converts an upload payload to bytes. Strings are encoded
// with the charset their XML prologue declares; byte slices pass through
// untouched with an empty charset. Any other type fails with ErrType.
func EncodeContent(content any) ([]byte, string, error) {
	const op = "EncodeContent"

	switch v := content.(type) {
	case []byte:
		return v, "", nil
	case string:
		charset := DetectXMLEncoding(v)
		enc := lookupEncoding(charset)
		if enc == nil {
			return nil, "", newError(op, ErrFormat, "unsupported charset %q", charset)
		}
		if enc == unicode.UTF8 {
			return []byte(v), charset, nil
		}
		b, err := enc.NewEncoder().Bytes([]byte(v))
		if err != nil {
			return nil, "", newError(op, ErrFormat, "content not representable in %s: %v", charset, err)
		}
		return b, charset, nil
	default:
		return nil, "", newError(op, ErrType, "content must be string or []byte, got %T", content)
	}
}

// lookupEncoding resolves a charset label through the IANA registry, then
// the WHATWG labels. Separator variants such as "latin-1" and "utf_8" are
// tried as well.
func lookupEncoding(charset string) encoding.Encoding {
	name := strings.ToLower(strings.TrimSpace(charset))
	if alias, ok := charsetAliases[name]; ok {
		name = alias
	}
	candidates := []string{
		name,
		strings.ReplaceAll(name, "_", "-"),
		strings.NewReplacer("-", "", "_", "").Replace(name),
	}
	for _, c := range candidates {
		if enc, err := ianaindex.IANA.Encoding(c); err == nil && enc != nil {
			return enc
		}
	}
	for _, c := range candidates {
		if enc, err := htmlindex.Get(c); err == nil {
			return enc
		}
	}
	return nil
}
