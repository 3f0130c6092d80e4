package chunker

import "strings"

type heading struct {
	level int
	title string
	start int // rune offset into the document where this heading's line begins
}

// detectHeadings finds Markdown ATX headings ("# Title") and a small
// set of strong line-class heuristics (a short line followed by a
// blank line, title-cased, with no terminal punctuation) that commonly
// mark section breaks in plain-text exports that have lost their
// original Markdown formatting.
func detectHeadings(text string) []heading {
	lines := strings.Split(text, "\n")
	var out []heading
	offset := 0
	for i, line := range lines {
		lineRunes := len([]rune(line))
		trimmed := strings.TrimSpace(line)
		if level, title := parseATXHeading(trimmed); level > 0 {
			out = append(out, heading{level: level, title: title, start: offset})
		} else if looksLikeHeading(trimmed, lines, i) {
			out = append(out, heading{level: 1, title: trimmed, start: offset})
		}
		offset += lineRunes + 1
	}
	return out
}

func parseATXHeading(line string) (level int, title string) {
	n := 0
	for n < len(line) && n < 6 && line[n] == '#' {
		n++
	}
	if n == 0 || n >= len(line) || line[n] != ' ' {
		return 0, ""
	}
	return n, strings.TrimSpace(line[n+1:])
}

// looksLikeHeading flags a short, punctuation-free, capitalised line
// that sits alone between blank lines as a de-facto section break.
func looksLikeHeading(line string, lines []string, i int) bool {
	if line == "" || len(line) > 80 {
		return false
	}
	if strings.ContainsAny(line[len(line)-1:], ".,;:!?") {
		return false
	}
	r := []rune(line)[0]
	if r < 'A' || r > 'Z' {
		if !(r >= 'À' && r <= 'Ý') {
			return false
		}
	}
	prevBlank := i == 0 || strings.TrimSpace(lines[i-1]) == ""
	nextBlank := i+1 >= len(lines) || strings.TrimSpace(lines[i+1]) == ""
	return prevBlank && nextBlank
}

// sectionTree walks text and headings to produce, for every rune
// offset, the section_path[] active at that point — the stack of
// enclosing heading titles from outermost to innermost.
func sectionTree(headings []heading) func(offset int) []string {
	return func(offset int) []string {
		var stack []string
		var levels []int
		for _, h := range headings {
			if h.start > offset {
				break
			}
			for len(levels) > 0 && levels[len(levels)-1] >= h.level {
				stack = stack[:len(stack)-1]
				levels = levels[:len(levels)-1]
			}
			stack = append(stack, h.title)
			levels = append(levels, h.level)
		}
		return stack
	}
}
