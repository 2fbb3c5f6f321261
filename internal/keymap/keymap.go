package keymap

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by sequence parsing and binding.
var (
	// ErrEmptySequence indicates an empty key sequence.
	ErrEmptySequence = errors.New("empty key sequence")

	// ErrEmptyAction indicates a binding with neither a name nor a handler.
	ErrEmptyAction = errors.New("empty action")
)

// Chord is one key press with modifiers. Key holds either a single
// lowercase rune or a canonical special-key name ("space", "tab", "cr",
// "esc", "bs", "up", "down", "left", "right").
type Chord struct {
	Ctrl  bool
	Alt   bool
	Shift bool
	Key   string
}

// String renders the chord in canonical angle-bracket form. Bare
// unmodified runes render without brackets.
func (c Chord) String() string {
	if !c.Ctrl && !c.Alt && !c.Shift && len([]rune(c.Key)) == 1 {
		return c.Key
	}
	var b strings.Builder
	b.WriteByte('<')
	if c.Ctrl {
		b.WriteString("C-")
	}
	if c.Alt {
		b.WriteString("A-")
	}
	if c.Shift {
		b.WriteString("S-")
	}
	b.WriteString(c.Key)
	b.WriteByte('>')
	return b.String()
}

// Sequence is an ordered list of chords.
type Sequence []Chord

// String renders the sequence in canonical form, usable as a map key.
func (s Sequence) String() string {
	var b strings.Builder
	for _, c := range s {
		b.WriteString(c.String())
	}
	return b.String()
}

// specialKeys maps accepted spellings to canonical special-key names.
var specialKeys = map[string]string{
	"space":  "space",
	"tab":    "tab",
	"cr":     "cr",
	"enter":  "cr",
	"return": "cr",
	"esc":    "esc",
	"escape": "esc",
	"bs":     "bs",
	"bspace": "bs",
	"up":     "up",
	"down":   "down",
	"left":   "left",
	"right":  "right",
}

// ParseSequence parses a key-sequence string into chords.
func ParseSequence(s string) (Sequence, error) {
	if s == "" {
		return nil, ErrEmptySequence
	}

	var seq Sequence
	runes := []rune(s)
	i := 0
	for i < len(runes) {
		if runes[i] == '<' {
			end := -1
			for j := i + 1; j < len(runes); j++ {
				if runes[j] == '>' {
					end = j
					break
				}
			}
			if end == -1 {
				return nil, fmt.Errorf("unterminated chord at %q", string(runes[i:]))
			}
			chord, err := parseChord(string(runes[i+1 : end]))
			if err != nil {
				return nil, err
			}
			seq = append(seq, chord)
			i = end + 1
			continue
		}
		seq = append(seq, Chord{Key: strings.ToLower(string(runes[i]))})
		i++
	}
	return seq, nil
}

// parseChord parses the inside of an angle-bracket chord.
func parseChord(body string) (Chord, error) {
	if body == "" {
		return Chord{}, fmt.Errorf("empty chord")
	}

	var chord Chord
	parts := strings.Split(body, "-")
	for len(parts) > 1 {
		switch strings.ToUpper(parts[0]) {
		case "C":
			chord.Ctrl = true
		case "A", "M":
			chord.Alt = true
		case "S":
			chord.Shift = true
		default:
			return Chord{}, fmt.Errorf("unknown modifier %q in <%s>", parts[0], body)
		}
		parts = parts[1:]
	}

	key := strings.ToLower(parts[0])
	if key == "" {
		// "<C-->" binds the dash itself.
		key = "-"
	}
	if canonical, ok := specialKeys[key]; ok {
		chord.Key = canonical
	} else if len([]rune(key)) == 1 {
		chord.Key = key
	} else {
		return Chord{}, fmt.Errorf("unknown key %q in <%s>", parts[0], body)
	}
	return chord, nil
}

// Normalize parses and re-renders a sequence into canonical form.
func Normalize(keys string) (string, error) {
	seq, err := ParseSequence(keys)
	if err != nil {
		return "", err
	}
	return seq.String(), nil
}

// Action is a tagged binding target: a built-in named action, or a
// custom handler. Exactly one side is set.
type Action struct {
	// Name identifies a built-in action when Handler is nil.
	Name string

	// Handler runs instead of a built-in action when non-nil.
	Handler func()
}

// Builtin returns an Action naming a built-in.
func Builtin(name string) Action {
	return Action{Name: name}
}

// Custom returns an Action with a caller-supplied handler.
func Custom(fn func()) Action {
	return Action{Handler: fn}
}

// Map is a resolved key-sequence to action table. Sequences normalize at
// bind time, so lookup is a single map access.
type Map struct {
	bindings map[string]Action
}

// New creates an empty Map.
func New() *Map {
	return &Map{bindings: make(map[string]Action)}
}

// Bind associates keys with an action, replacing any prior binding.
func (m *Map) Bind(keys string, action Action) error {
	if action.Name == "" && action.Handler == nil {
		return ErrEmptyAction
	}
	normalized, err := Normalize(keys)
	if err != nil {
		return fmt.Errorf("binding %q: %w", keys, err)
	}
	m.bindings[normalized] = action
	return nil
}

// Unbind removes a binding. Unknown sequences are ignored.
func (m *Map) Unbind(keys string) {
	if normalized, err := Normalize(keys); err == nil {
		delete(m.bindings, normalized)
	}
}

// Resolve looks up the action for a key sequence.
func (m *Map) Resolve(keys string) (Action, bool) {
	normalized, err := Normalize(keys)
	if err != nil {
		return Action{}, false
	}
	a, ok := m.bindings[normalized]
	return a, ok
}

// Len returns the number of bindings.
func (m *Map) Len() int {
	return len(m.bindings)
}
