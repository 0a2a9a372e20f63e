package valuetype

import (
	"encoding/base64"
	"errors"
	"math"
	"net/mail"
	"net/netip"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"github.com/google/uuid"
	"github.com/itchyny/timefmt-go"
	"github.com/tidwall/gjson"
)

// Letter case modes accepted by the letters constraint.
const (
	LettersUpper = "uppercase"
	LettersLower = "lowercase"
)

// Options tune a single type check.
type Options struct {
	// DateFormat is a strftime layout for date strings. Empty means RFC 3339.
	DateFormat string
	// Strict refuses the string forms of numbers and booleans.
	Strict bool
}

// Type is one named value type.
type Type struct {
	check   func(v any, o Options) bool
	convert func(v any, o Options) (any, bool)
	// Name is the authored type name.
	Name string
	// JSONType and Format describe the type in JSON Schema terms.
	JSONType string
	Format   string
}

// Check reports whether v has type t.
func (t *Type) Check(v any, o Options) bool {
	return t.check(v, o)
}

// Convertible reports whether t has a converter.
func (t *Type) Convertible() bool {
	return t.convert != nil
}

// Convert returns the Go form of an accepted value. Types without a
// converter return v unchanged.
func (t *Type) Convert(v any, o Options) (any, bool) {
	if t.convert == nil {
		return v, true
	}
	return t.convert(v, o)
}

var (
	hexColorPattern     = regexp2.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`, regexp2.None)
	hexadecimalPattern  = regexp2.MustCompile(`^(0[xX])?[0-9a-fA-F]+$`, regexp2.None)
	alphanumericPattern = regexp2.MustCompile(`^[A-Za-z0-9]+$`, regexp2.None)
)

var table = map[string]*Type{}

func register(t *Type) {
	table[t.Name] = t
}

func init() {
	register(&Type{Name: "all", check: func(any, Options) bool { return true }})
	register(&Type{Name: "object", JSONType: "object", check: func(v any, _ Options) bool {
		_, ok := v.(map[string]any)
		return ok
	}})
	register(&Type{Name: "array", JSONType: "array", check: func(v any, _ Options) bool {
		_, ok := v.([]any)
		return ok
	}})
	register(&Type{Name: "string", JSONType: "string", check: func(v any, _ Options) bool {
		_, ok := v.(string)
		return ok
	}})
	register(&Type{Name: "char", JSONType: "string", check: func(v any, _ Options) bool {
		s, ok := v.(string)
		return ok && utf8.RuneCountInString(s) == 1
	}})
	register(&Type{Name: "null", JSONType: "null", check: func(v any, _ Options) bool { return v == nil }})
	register(&Type{Name: "int", JSONType: "integer", check: func(v any, o Options) bool {
		_, ok := toInt(v, o.Strict)
		return ok
	}, convert: func(v any, o Options) (any, bool) {
		n, ok := toInt(v, o.Strict)
		return n, ok
	}})
	for _, name := range []string{"float", "number"} {
		register(&Type{Name: name, JSONType: "number", check: func(v any, o Options) bool {
			_, ok := toFloat(v, o.Strict)
			return ok
		}, convert: func(v any, o Options) (any, bool) {
			f, ok := toFloat(v, o.Strict)
			return f, ok
		}})
	}
	register(&Type{Name: "boolean", JSONType: "boolean", check: func(v any, o Options) bool {
		_, ok := toBool(v, o.Strict)
		return ok
	}, convert: func(v any, o Options) (any, bool) {
		b, ok := toBool(v, o.Strict)
		return b, ok
	}})
	register(&Type{Name: "date", JSONType: "string", Format: "date-time", check: func(v any, o Options) bool {
		_, ok := ParseDate(v, o.DateFormat)
		return ok
	}, convert: func(v any, o Options) (any, bool) {
		t, ok := ParseDate(v, o.DateFormat)
		return t, ok
	}})

	registerString("email", "email", func(s string) bool {
		addr, err := mail.ParseAddress(s)
		return err == nil && addr.Address == s
	})
	registerString("url", "uri", func(s string) bool {
		u, err := url.ParseRequestURI(s)
		return err == nil && u.Scheme != "" && u.Host != ""
	})
	registerString("uuid", "uuid", uuidVersion(0))
	registerString("uuid3", "uuid", uuidVersion(3))
	registerString("uuid4", "uuid", uuidVersion(4))
	registerString("uuid5", "uuid", uuidVersion(5))
	registerString("hexColor", "", matcher(hexColorPattern))
	registerString("hexadecimal", "", matcher(hexadecimalPattern))
	registerString("base64", "byte", func(s string) bool {
		_, ok := DecodeBase64(s)
		return ok
	})
	registerString("ascii", "", func(s string) bool {
		for i := 0; i < len(s); i++ {
			if s[i] > unicode.MaxASCII {
				return false
			}
		}
		return true
	})
	registerString("alphanumeric", "", matcher(alphanumericPattern))
	registerString("ip", "", func(s string) bool {
		_, err := netip.ParseAddr(s)
		return err == nil
	})
	registerString("ip4", "ipv4", func(s string) bool {
		addr, err := netip.ParseAddr(s)
		return err == nil && addr.Is4()
	})
	registerString("ip6", "ipv6", func(s string) bool {
		addr, err := netip.ParseAddr(s)
		return err == nil && addr.Is6()
	})
	registerString("json", "", gjson.Valid)
	registerString("md5", "", hexOfLength(32))
	registerString("sha1", "", hexOfLength(40))
	registerString("sha256", "", hexOfLength(64))
	registerString("sha384", "", hexOfLength(96))
	registerString("sha512", "", hexOfLength(128))
	registerString("mongoId", "", hexOfLength(24))
	registerString("latLong", "", latLong)
}

func registerString(name, format string, fn func(string) bool) {
	register(&Type{Name: name, JSONType: "string", Format: format, check: func(v any, _ Options) bool {
		s, ok := v.(string)
		return ok && fn(s)
	}})
}

// Lookup returns the type called name.
func Lookup(name string) (*Type, bool) {
	t, ok := table[name]
	return t, ok
}

// Names returns every registered type name, sorted.
func Names() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func matcher(re *regexp2.Regexp) func(string) bool {
	return func(s string) bool {
		ok, err := re.MatchString(s)
		return err == nil && ok
	}
}

func uuidVersion(version uuid.Version) func(string) bool {
	return func(s string) bool {
		if len(s) != 36 {
			return false
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return false
		}
		return version == 0 || id.Version() == version
	}
}

func hexOfLength(n int) func(string) bool {
	return func(s string) bool {
		if len(s) != n {
			return false
		}
		for i := 0; i < len(s); i++ {
			c := s[i]
			if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
				return false
			}
		}
		return true
	}
}

func latLong(s string) bool {
	lat, long, ok := strings.Cut(s, ",")
	if !ok {
		return false
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil || la < -90 || la > 90 {
		return false
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(long), 64)
	return err == nil && lo >= -180 && lo <= 180
}

// DecodeBase64 decodes standard or URL-safe base64, padded or not.
func DecodeBase64(s string) ([]byte, bool) {
	if s == "" {
		return nil, false
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, true
		}
	}
	return nil, false
}

// ParseDate accepts a time.Time or a date string in the given strftime
// layout (RFC 3339 when format is empty).
func ParseDate(v any, format string) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if format == "" {
			parsed, err := time.Parse(time.RFC3339, t)
			if err != nil {
				parsed, err = time.Parse(time.DateOnly, t)
			}
			return parsed, err == nil
		}
		parsed, err := timefmt.Parse(t, format)
		return parsed, err == nil
	}
	return time.Time{}, false
}

// Number returns the numeric value of v. Strings are never numbers here.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toFloat(v any, strict bool) (float64, bool) {
	if f, ok := Number(v); ok {
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	s, ok := v.(string)
	if !ok || strict {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toInt(v any, strict bool) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case string:
		if strict {
			return 0, false
		}
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	f, ok := Number(v)
	if !ok || f != math.Trunc(f) || f >= 1<<63 || f < -(1<<63) {
		return 0, false
	}
	return int64(f), true
}

func toBool(v any, strict bool) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		if strict {
			return false, false
		}
		switch b {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// Length returns the rune length of a string or the element count of a list.
func Length(v any) (int, bool) {
	switch t := v.(type) {
	case string:
		return utf8.RuneCountInString(t), true
	case []any:
		return len(t), true
	case map[string]any:
		return len(t), true
	}
	return 0, false
}

// HasLetterCase reports whether every cased letter of s is in the given case.
func HasLetterCase(s, mode string) bool {
	for _, r := range s {
		switch mode {
		case LettersUpper:
			if unicode.IsLower(r) {
				return false
			}
		case LettersLower:
			if unicode.IsUpper(r) {
				return false
			}
		}
	}
	return true
}

// PatternTimeout bounds a single regex or char class match.
const PatternTimeout = time.Second

// CompileRegex compiles an authored regex with ECMAScript semantics.
func CompileRegex(src string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(src, regexp2.ECMAScript)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = PatternTimeout
	return re, nil
}

// CompileCharClass compiles a character class body such as "a-z0-9_" into a
// pattern matching strings made only of those characters.
func CompileCharClass(class string) (*regexp2.Regexp, error) {
	if class == "" {
		return nil, errors.New("empty character class")
	}
	return CompileRegex("^[" + class + "]*$")
}
