package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// minTableChars is the trimmed length a block must exceed to become a table chunk.
const minTableChars = 50

var tableSignals = []*regexp.Regexp{
	regexp.MustCompile(`\|.*\|`),
	regexp.MustCompile(`┌.*┐`),
	regexp.MustCompile(`─{3,}`),
	regexp.MustCompile(`(?m)^\s*\d+\s+\p{Hangul}+\s+\d+`),
}

// HasTable reports whether text shows any tabular signal.
func HasTable(text string) bool {
	for _, re := range tableSignals {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Table is an extracted table block. Index is the block's position among
// every block detected in the text, including short blocks left in the
// prose, so ids stay stable when a small table precedes a large one.
type Table struct {
	Index   int
	Content string
}

// ExtractTables splits text into table blocks and the remaining prose.
//
// A block is either a run of two or more consecutive lines containing '|',
// or a run of lines containing box-drawing characters followed by every line
// up to the next blank line. Blocks whose trimmed content is at most
// minTableChars characters are left in the prose.
func ExtractTables(text string) (tables []Table, rest string) {
	if !HasTable(text) {
		return nil, text
	}

	lines := splitLinesKeepEnds(text)
	var sb strings.Builder
	detected := 0
	for i := 0; i < len(lines); {
		end := i
		switch {
		case strings.Contains(lines[i], "|"):
			for end < len(lines) && strings.Contains(lines[end], "|") {
				end++
			}
			if end-i < 2 {
				end = i
			}
		case hasBoxDrawing(lines[i]):
			for end < len(lines) && hasBoxDrawing(lines[end]) {
				end++
			}
			for end < len(lines) && strings.TrimSpace(lines[end]) != "" {
				end++
			}
		}

		if end == i {
			sb.WriteString(lines[i])
			i++
			continue
		}

		block := strings.Join(lines[i:end], "")
		if trimmed := strings.TrimSpace(block); utf8.RuneCountInString(trimmed) > minTableChars {
			tables = append(tables, Table{Index: detected, Content: trimmed})
		} else {
			sb.WriteString(block)
		}
		detected++
		i = end
	}
	return tables, sb.String()
}

func hasBoxDrawing(line string) bool {
	for _, r := range line {
		if r >= '─' && r <= '╿' {
			return true
		}
	}
	return false
}

// splitLinesKeepEnds splits after each '\n' so joining the parts restores s.
func splitLinesKeepEnds(s string) []string {
	var lines []string
	for len(s) > 0 {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}
	return lines
}
