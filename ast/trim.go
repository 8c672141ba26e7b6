package ast

import "strings"

// renderChildToString renders child against rc's evaluation scope and
// parameter list, but captures the SQL text into a separate buffer so the
// caller can post-process it (trim a prefix, strip a suffix) before
// deciding whether to emit it at all. Parameters accumulate on rc
// regardless, since a Trim/Where/Set wrapper never drops a bound value even
// when it drops surrounding punctuation.
func renderChildToString(rc *RenderContext, child Node) (string, error) {
	inner := &RenderContext{Ctx: rc.Ctx}
	if err := child.Render(inner); err != nil {
		return "", err
	}
	sql, params, dynamic := inner.Result()
	for _, p := range params {
		rc.AddParam(p)
	}
	if dynamic {
		rc.MarkDynamic()
	}
	return sql, nil
}

// Where renders its children, strips a leading "AND "/"OR " (case
// insensitive), and prepends "WHERE " if anything remains.
type Where struct {
	Children Mixed
}

func (n Where) Render(rc *RenderContext) error {
	body, err := renderChildToString(rc, n.Children)
	if err != nil {
		return err
	}
	body = strings.TrimSpace(body)
	body = stripPrefixFold(body, "AND ")
	body = stripPrefixFold(body, "OR ")
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	rc.WriteString("WHERE " + body)
	return nil
}

// Set renders its children, strips a trailing comma, and prepends "SET " if
// anything remains.
type Set struct {
	Children Mixed
}

func (n Set) Render(rc *RenderContext) error {
	body, err := renderChildToString(rc, n.Children)
	if err != nil {
		return err
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, ",")
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	rc.WriteString("SET " + body)
	return nil
}

// Trim renders its children, strips the first matching entry of
// PrefixOverrides from the start and SuffixOverrides from the end (case
// insensitive), and wraps the remainder with Prefix/Suffix if
// non-empty.
type Trim struct {
	Children         Mixed
	Prefix           string
	Suffix           string
	PrefixOverrides  []string
	SuffixOverrides  []string
}

func (n Trim) Render(rc *RenderContext) error {
	body, err := renderChildToString(rc, n.Children)
	if err != nil {
		return err
	}
	body = strings.TrimSpace(body)
	for _, p := range n.PrefixOverrides {
		if stripped := stripPrefixFold(body, p); stripped != body {
			body = strings.TrimSpace(stripped)
			break
		}
	}
	for _, s := range n.SuffixOverrides {
		// body is already whitespace-trimmed, so an override's own trailing
		// whitespace is ignored when matching it against the end.
		if stripped := stripSuffixFold(body, strings.TrimRight(s, " \t\r\n")); stripped != body {
			body = strings.TrimSpace(stripped)
			break
		}
	}
	if body == "" {
		return nil
	}
	rc.WriteString(n.Prefix + body + n.Suffix)
	return nil
}

func stripPrefixFold(s, prefix string) string {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):]
	}
	return s
}

func stripSuffixFold(s, suffix string) string {
	if len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return s[:len(s)-len(suffix)]
	}
	return s
}
