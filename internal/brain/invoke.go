package brain

import "regexp"

// invokePattern matches `<invoke name="T">ARGS</invoke>`. Scanning is
// literal string-match, ordered first-occurrence-first (spec.md §4.2 step
// 3); this is not a structured parser, just the one shape the brain
// recognizes in an otherwise free-form model response.
var invokePattern = regexp.MustCompile(`(?s)<invoke name="([^"]+)">(.*?)</invoke>`)

// invocation is the first tool call found in a model response.
type invocation struct {
	Name string
	Args string
	// Span is the [start,end) byte range of the matched <invoke> block in
	// the original response, so callers can strip or keep surrounding text.
	Span [2]int
}

// findFirstInvocation returns the first <invoke> block in text, or ok=false
// if the text contains none — in which case it is the turn's final answer
// (spec.md §4.2 step 4).
func findFirstInvocation(text string) (invocation, bool) {
	loc := invokePattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return invocation{}, false
	}
	return invocation{
		Name: text[loc[2]:loc[3]],
		Args: text[loc[4]:loc[5]],
		Span: [2]int{loc[0], loc[1]},
	}, true
}

// announcePattern matches `[ANNOUNCE] <fact>` (spec.md §4.2 "Announcements").
var announcePattern = regexp.MustCompile(`\[ANNOUNCE\]\s*(.+)`)

// findAnnouncement returns the fact text of the first [ANNOUNCE] marker in
// a final response, if any.
func findAnnouncement(text string) (string, bool) {
	m := announcePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}
