package docx

import (
	"regexp"
	"strings"

	"pantry-intake/internal/render"
)

var (
	// <w:p> or <w:p attr...>, not <w:pPr> or an empty <w:p/>. Nested text-box paragraphs are not handled.
	paragraphPattern = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*[^/])?>.*?</w:p>`)
	textElemPattern  = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
)

// joinSplitPlaceholders moves every {{token}} that Word split across runs into the
// w:t element holding its first character. Text outside tokens keeps its run.
func joinSplitPlaceholders(content string) string {
	return paragraphPattern.ReplaceAllStringFunc(content, joinParagraph)
}

func joinParagraph(p string) string {
	locs := textElemPattern.FindAllStringSubmatchIndex(p, -1)
	if len(locs) < 2 {
		return p
	}

	var joined strings.Builder
	var owner []int
	for i, loc := range locs {
		text := p[loc[2]:loc[3]]
		joined.WriteString(text)
		for j := 0; j < len(text); j++ {
			owner = append(owner, i)
		}
	}

	split := false
	for _, span := range render.TokenSpans(joined.String()) {
		first := owner[span[0]]
		if owner[span[1]-1] == first {
			continue
		}
		split = true
		for k := span[0]; k < span[1]; k++ {
			owner[k] = first
		}
	}
	if !split {
		return p
	}

	all := joined.String()
	texts := make([]strings.Builder, len(locs))
	for k := 0; k < len(all); k++ {
		texts[owner[k]].WriteByte(all[k])
	}

	var out strings.Builder
	prev := 0
	for i, loc := range locs {
		out.WriteString(p[prev:loc[2]])
		out.WriteString(texts[i].String())
		prev = loc[3]
	}
	out.WriteString(p[prev:])
	return out.String()
}

// clearTextLeftovers blanks unreplaced tokens inside w:t elements only.
func clearTextLeftovers(content string) string {
	return textElemPattern.ReplaceAllStringFunc(content, func(elem string) string {
		start := strings.IndexByte(elem, '>') + 1
		end := strings.LastIndex(elem, "</w:t>")
		return elem[:start] + render.ClearLeftovers(elem[start:end]) + elem[end:]
	})
}
