package speech

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxChars is the provider's input ceiling per synthesis request.
const DefaultMaxChars = 9999

// SplitSentences packs text into chunks shorter than maxChars, breaking only
// after sentence punctuation (. ! ?) followed by whitespace. A sentence that
// does not fit on its own is broken at whitespace instead. Text that already
// fits is returned whole.
func SplitSentences(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	for _, sent := range sentences(text) {
		pieces := []string{sent}
		if len(sent) >= maxChars {
			pieces = wordPieces(sent, maxChars)
		}
		for _, s := range pieces {
			if cur.Len()+len(s) < maxChars {
				cur.WriteString(s)
				cur.WriteByte(' ')
				continue
			}
			if cur.Len() > 0 {
				chunks = append(chunks, strings.TrimSpace(cur.String()))
			}
			cur.Reset()
			cur.WriteString(s)
			cur.WriteByte(' ')
		}
	}
	if cur.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(cur.String()))
	}
	return chunks
}

// wordPieces packs the words of s into pieces shorter than maxChars. A word
// that is too long by itself is cut at rune boundaries.
func wordPieces(s string, maxChars int) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, w := range strings.Fields(s) {
		for len(w) >= maxChars {
			flush()
			n := runeCut(w, maxChars-1)
			out = append(out, w[:n])
			w = w[n:]
		}
		if w == "" {
			continue
		}
		if cur.Len() > 0 && cur.Len()+1+len(w) >= maxChars {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	flush()
	return out
}

// runeCut returns the largest prefix length of w, at most n bytes, that ends on
// a rune boundary. It is never zero for a non-empty w.
func runeCut(w string, n int) int {
	cut := 0
	for i, r := range w {
		end := i + utf8.RuneLen(r)
		if end > n {
			break
		}
		cut = end
	}
	if cut == 0 {
		_, cut = utf8.DecodeRuneInString(w)
	}
	return cut
}

// sentences splits at whitespace runs that follow . ! or ?, dropping the whitespace.
func sentences(text string) []string {
	var out []string
	start := 0
	rs := []rune(text)
	for i := 0; i < len(rs); i++ {
		if !isTerminal(rs[i]) || i+1 >= len(rs) || !unicode.IsSpace(rs[i+1]) {
			continue
		}
		out = append(out, string(rs[start:i+1]))
		j := i + 1
		for j < len(rs) && unicode.IsSpace(rs[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(rs) {
		out = append(out, string(rs[start:]))
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
