package main

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// chordString converts a tcell key event into the keymap's canonical
// sequence notation ("<C-space>", "a", "<cr>"). It returns "" for
// events the keymap cannot express.
func chordString(ev *tcell.EventKey) string {
	var name string
	switch ev.Key() {
	case tcell.KeyRune:
		r := ev.Rune()
		if r == ' ' {
			name = "space"
		} else {
			name = string(r)
		}
	case tcell.KeyEnter:
		name = "cr"
	case tcell.KeyTab:
		name = "tab"
	case tcell.KeyEscape:
		name = "esc"
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		name = "bs"
	case tcell.KeyUp:
		name = "up"
	case tcell.KeyDown:
		name = "down"
	case tcell.KeyLeft:
		name = "left"
	case tcell.KeyRight:
		name = "right"
	case tcell.KeyCtrlSpace:
		return "<C-space>"
	default:
		// Ctrl-letter arrives as a dedicated key code.
		if ev.Key() >= tcell.KeyCtrlA && ev.Key() <= tcell.KeyCtrlZ {
			letter := rune('a' + ev.Key() - tcell.KeyCtrlA)
			return fmt.Sprintf("<C-%c>", letter)
		}
		return ""
	}

	mods := ev.Modifiers()
	if mods&(tcell.ModCtrl|tcell.ModAlt) == 0 {
		if len([]rune(name)) == 1 {
			return name
		}
		return "<" + name + ">"
	}

	var b strings.Builder
	b.WriteByte('<')
	if mods&tcell.ModCtrl != 0 {
		b.WriteString("C-")
	}
	if mods&tcell.ModAlt != 0 {
		b.WriteString("A-")
	}
	b.WriteString(name)
	b.WriteByte('>')
	return b.String()
}
