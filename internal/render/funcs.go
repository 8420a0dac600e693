package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-slug"
)

// dateLayouts are tried in order when the date filter receives a string.
var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		"date":      formatDate,
		"upper":     func(v any) string { return strings.ToUpper(text(v)) },
		"lower":     func(v any) string { return strings.ToLower(text(v)) },
		"join":      join,
		"slugify":   slugify,
		"xmlescape": xmlEscape,
		"truncate":  truncate,
		"default":   defaultValue,
	}
}

// formatDate formats v with a Go reference layout: {{ .date | date "2006-01-02" }}.
func formatDate(layout string, v any) (string, error) {
	switch t := v.(type) {
	case time.Time:
		return t.Format(layout), nil
	case string:
		for _, l := range dateLayouts {
			if parsed, err := time.Parse(l, t); err == nil {
				return parsed.Format(layout), nil
			}
		}
		return "", fmt.Errorf("date: cannot parse %q", t)
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("date: unsupported value of type %T", v)
}

func join(sep string, v any) string {
	switch items := v.(type) {
	case []string:
		return strings.Join(items, sep)
	case []any:
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = text(item)
		}
		return strings.Join(parts, sep)
	}
	return text(v)
}

func slugify(v any) string {
	s := text(v)
	normalized, err := slug.Normalize(s)
	if err != nil || normalized == "" {
		return strings.ToLower(strings.Join(strings.Fields(s), "-"))
	}
	return normalized
}

func xmlEscape(v any) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(text(v)))
	return buf.String()
}

// truncate shortens v to at most n runes, marking a cut with "...".
func truncate(n int, v any) string {
	s := text(v)
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

func defaultValue(def any, v any) any {
	switch t := v.(type) {
	case nil:
		return def
	case string:
		if t == "" {
			return def
		}
	case []any:
		if len(t) == 0 {
			return def
		}
	}
	return v
}

// text mirrors meta.Value.Text for plain template data.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	case []any:
		return join(",", t)
	case []string:
		return strings.Join(t, ",")
	}
	return fmt.Sprint(v)
}
