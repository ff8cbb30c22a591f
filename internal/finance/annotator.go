package finance

import "strings"

// Annotate tags recognized financial spans with inline typed markers of the
// form "[KIND: text]". Annotation is idempotent: spans already inside a
// marker are left alone, so re-annotating annotated text is a no-op.
func Annotate(text string) string {
	if text == "" {
		return ""
	}

	for _, matcher := range annotateOrder {
		text = applyMatcher(text, matcher)
	}
	return text
}

func applyMatcher(text string, matcher Matcher) string {
	matches := matcher.FindAll(text)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + len(matches)*20)

	last := 0
	for _, m := range matches {
		if m.Start < last || insideMarker(text, m.Start) {
			continue
		}
		b.WriteString(text[last:m.Start])
		b.WriteString("[")
		b.WriteString(string(m.Kind))
		b.WriteString(": ")
		b.WriteString(m.Text)
		b.WriteString("]")
		last = m.End
	}
	b.WriteString(text[last:])
	return b.String()
}

// insideMarker reports whether position pos sits inside an existing
// "[KIND: ...]" marker. Markers never nest, so scanning back to the
// nearest bracket is sufficient.
func insideMarker(text string, pos int) bool {
	const lookback = 160

	stop := pos - lookback
	if stop < 0 {
		stop = 0
	}

	for i := pos - 1; i >= stop; i-- {
		switch text[i] {
		case ']':
			return false
		case '[':
			return isMarkerOpen(text, i)
		}
	}
	return false
}

// isMarkerOpen reports whether text[open] begins a "[KIND: " sequence.
func isMarkerOpen(text string, open int) bool {
	i := open + 1
	start := i
	for i < len(text) && (text[i] == '_' || (text[i] >= 'A' && text[i] <= 'Z')) {
		i++
	}
	if i == start {
		return false
	}
	return strings.HasPrefix(text[i:], ": ")
}
