package snippet

import (
	"strings"

	"github.com/dshills/typeahead/internal/host"
)

// Expand reduces snippet placeholders to plain text:
//   - $N tabstops are removed
//   - ${N:default} placeholders use the default value
//
// Limitations: escaped dollar signs ($$), nested placeholders like
// ${1:${2:x}}, choice syntax ${1|a,b|}, and variables like $TM_FILENAME
// are not handled. Hosts wanting full snippet semantics should supply
// their own expander.
func Expand(body string) string {
	var result strings.Builder
	runes := []rune(body)
	i := 0

	for i < len(runes) {
		if runes[i] == '$' && i+1 < len(runes) {
			if runes[i+1] == '{' {
				end := -1
				for j := i + 2; j < len(runes); j++ {
					if runes[j] == '}' {
						end = j
						break
					}
				}
				if end != -1 {
					content := string(runes[i+2 : end])
					if colonIdx := strings.Index(content, ":"); colonIdx != -1 {
						result.WriteString(content[colonIdx+1:])
					}
					i = end + 1
					continue
				}
			} else if runes[i+1] >= '0' && runes[i+1] <= '9' {
				i += 2
				for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
					i++
				}
				continue
			}
		}
		result.WriteRune(runes[i])
		i++
	}
	return result.String()
}

// FirstTabstop returns the rune offset, within the expanded text, where
// the cursor should land: the position of the $1 (or ${1:...}) tabstop,
// or the end of the expanded text when none exists.
func FirstTabstop(body string) int {
	runes := []rune(body)
	expanded := 0
	i := 0

	for i < len(runes) {
		if runes[i] == '$' && i+1 < len(runes) {
			if runes[i+1] == '{' {
				end := -1
				for j := i + 2; j < len(runes); j++ {
					if runes[j] == '}' {
						end = j
						break
					}
				}
				if end != -1 {
					content := string(runes[i+2 : end])
					num := content
					if colonIdx := strings.Index(content, ":"); colonIdx != -1 {
						num = content[:colonIdx]
					}
					if num == "1" {
						return expanded
					}
					if colonIdx := strings.Index(content, ":"); colonIdx != -1 {
						expanded += len([]rune(content[colonIdx+1:]))
					}
					i = end + 1
					continue
				}
			} else if runes[i+1] >= '0' && runes[i+1] <= '9' {
				start := i + 1
				i += 2
				for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
					i++
				}
				if string(runes[start:i]) == "1" {
					return expanded
				}
				continue
			}
		}
		expanded++
		i++
	}
	return expanded
}

// Inserter expands snippet bodies to plain text and inserts them into a
// host, leaving the cursor at the first tabstop.
type Inserter struct {
	Host host.Host
}

// Expand implements the engine's snippet-expansion collaborator. It
// never fails; the error return satisfies the collaborator contract.
func (n Inserter) Expand(body string, mode host.InsertTextMode) error {
	text := Expand(body)
	if mode == host.InsertTextAdjustIndentation && strings.Contains(text, "\n") {
		cur := n.Host.Cursor()
		line := n.Host.Line(cur.Row)
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		text = strings.ReplaceAll(text, "\n", "\n"+indent)
	}
	n.Host.Insert(text)

	// Walk the cursor back from the insert end to the first tabstop.
	// Multi-line snippets land at the end of the insertion instead;
	// counted deletes never cross lines, and neither does this.
	if !strings.Contains(text, "\n") {
		back := len([]rune(text)) - FirstTabstop(body)
		if back > 0 {
			cur := n.Host.Cursor()
			cur.Col -= back
			if setter, ok := n.Host.(interface{ SetCursor(host.Position) }); ok {
				setter.SetCursor(cur)
			}
		}
	}
	return nil
}
