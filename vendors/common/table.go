package common

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/nanoncore/nano-usi/types"
)

// column is a header label located on the header line, in rune offsets
type column struct {
	key        string
	start, end int
}

// token is a whitespace delimited run on the data line, in rune offsets
type token struct {
	start, end int
}

// MapSimpleTable maps a column aligned CLI table, a header line followed by
// one data line, to key/value pairs. headers are the labels as printed and
// keys the result names, index aligned.
//
// A data token belongs to the column whose label it overlaps the most, or
// failing that to the column whose region (label start up to the next label)
// contains the token start. Assignment never moves left, so values wider than
// their label stay in one column and empty columns receive nothing.
//
// Every key is present in the result. Columns that cannot be resolved map
// to "" and are reported through a TableParse error.
func MapSimpleTable(raw string, headers, keys []string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	for _, k := range keys {
		result[k] = ""
	}
	if len(headers) != len(keys) {
		return result, types.NewError(types.CodeTableParse, "map simple table",
			fmt.Sprintf("%d headers for %d keys", len(headers), len(keys)), nil)
	}

	lines := NonBlankLines(raw)
	if len(lines) < 2 {
		return result, types.NewError(types.CodeTableParse, "map simple table",
			fmt.Sprintf("need header and data line, got %d lines", len(lines)), nil)
	}
	header := []rune(lines[0])
	data := []rune(lines[1])

	var missing []string
	columns := make([]column, 0, len(headers))
	pos := 0
	for i, label := range headers {
		idx := runeIndex(header, []rune(label), pos)
		if idx < 0 {
			missing = append(missing, label)
			continue
		}
		end := idx + len([]rune(label))
		columns = append(columns, column{key: keys[i], start: idx, end: end})
		pos = end
	}
	if len(columns) == 0 {
		return result, types.NewError(types.CodeTableParse, "map simple table", "no header labels found", nil)
	}

	assigned := make([][]token, len(columns))
	prev := 0
	for _, tok := range tokenize(data) {
		col := bestOverlap(columns, tok)
		if col < 0 {
			col = regionOf(columns, tok)
		}
		if col < prev {
			col = prev
		}
		prev = col
		assigned[col] = append(assigned[col], tok)
	}

	for i, toks := range assigned {
		if len(toks) == 0 {
			continue
		}
		result[columns[i].key] = string(data[toks[0].start:toks[len(toks)-1].end])
	}

	if len(missing) > 0 {
		return result, types.NewError(types.CodeTableParse, "map simple table",
			fmt.Sprintf("header labels not found: %s", strings.Join(missing, ", ")), nil)
	}
	return result, nil
}

// ParseInlineTable maps "key: value" lines to result names. tokens are the
// keys as printed and keys the result names, index aligned. The value is the
// text after the first colon. Keys that do not appear map to "".
func ParseInlineTable(raw string, tokens, keys []string) map[string]string {
	result := make(map[string]string, len(keys))
	lookup := make(map[string]string, len(tokens))
	for i, k := range keys {
		result[k] = ""
		if i < len(tokens) {
			lookup[tokens[i]] = k
		}
	}

	for _, line := range NonBlankLines(raw) {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if key, found := lookup[strings.TrimSpace(name)]; found {
			result[key] = strings.TrimSpace(value)
		}
	}
	return result
}

// NonBlankLines splits text into lines, dropping blank ones. Non-breaking
// spaces become plain spaces and line content is otherwise untouched.
func NonBlankLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\u00a0", " ")
	raw = strings.ReplaceAll(raw, "\r", "")
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func tokenize(line []rune) []token {
	var toks []token
	start := -1
	for i, r := range line {
		if unicode.IsSpace(r) {
			if start >= 0 {
				toks = append(toks, token{start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		toks = append(toks, token{start: start, end: len(line)})
	}
	return toks
}

// bestOverlap returns the column whose label overlaps tok the most, or -1
func bestOverlap(columns []column, tok token) int {
	best, bestLen := -1, 0
	for i, c := range columns {
		overlap := min(tok.end, c.end) - max(tok.start, c.start)
		if overlap > bestLen {
			best, bestLen = i, overlap
		}
	}
	return best
}

// regionOf returns the last column starting at or before tok, or the first
func regionOf(columns []column, tok token) int {
	col := 0
	for i, c := range columns {
		if tok.start >= c.start {
			col = i
		}
	}
	return col
}

func runeIndex(haystack, needle []rune, from int) int {
	if len(needle) == 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, r := range needle {
			if haystack[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
