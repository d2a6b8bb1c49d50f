package clearance

import (
	"fmt"
	"net/url"
	"strings"
)

// Param is one query parameter. Value is formatted with fmt.Sprint.
type Param struct {
	Key   string
	Value any
}

// Query is an ordered list of parameters; serialization keeps its order.
type Query []Param

// componentEscaper turns url.QueryEscape output into encodeURIComponent form.
var componentEscaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func escapeComponent(s string) string {
	return componentEscaper.Replace(url.QueryEscape(s))
}

// SerializeQuery renders q as key=value pairs joined by "&".
func SerializeQuery(q Query) string {
	var b strings.Builder
	for i, p := range q {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escapeComponent(p.Key))
		b.WriteByte('=')
		b.WriteString(escapeComponent(fmt.Sprint(p.Value)))
	}
	return b.String()
}

// BuildURL appends "?" and the serialized query to base. The "?" is added even
// when q is empty, and base is not inspected for an existing query string.
func BuildURL(base string, q Query) string {
	return base + "?" + SerializeQuery(q)
}

// ParseParam splits "key=value" into a Param. A missing "=" yields an empty
// value.
func ParseParam(s string) Param {
	key, value, _ := strings.Cut(s, "=")
	return Param{Key: key, Value: value}
}
