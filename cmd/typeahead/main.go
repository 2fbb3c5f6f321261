// Package main is a terminal scratchpad demonstrating the completion
// engine: type into an in-memory buffer and completions from the
// configured providers pop up as you go.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/typeahead/internal/complete"
	"github.com/dshills/typeahead/internal/config"
	"github.com/dshills/typeahead/internal/host"
	"github.com/dshills/typeahead/internal/logger"
	"github.com/dshills/typeahead/internal/providers/luasrc"
	"github.com/dshills/typeahead/internal/providers/remote"
	"github.com/dshills/typeahead/internal/providers/words"
	"github.com/dshills/typeahead/internal/snippet"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath string
		luaScript  string
		serverCmd  string
		logPath    string
	)
	flag.StringVar(&configPath, "config", "", "path to TOML configuration")
	flag.StringVar(&configPath, "c", "", "path to TOML configuration (shorthand)")
	flag.StringVar(&luaScript, "lua", "", "path to a Lua completion script")
	flag.StringVar(&serverCmd, "server", "", "word-server command for the remote provider")
	flag.StringVar(&logPath, "log", "", "write logs to this file")
	flag.Parse()

	lg := logger.Discard("typeahead")
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: opening log file: %v\n", err)
			return 1
		}
		defer f.Close()
		lg = log.NewWithOptions(f, log.Options{Prefix: "typeahead", ReportTimestamp: true})
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: creating screen: %v\n", err)
		return 1
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: initializing screen: %v\n", err)
		return 1
	}
	defer screen.Fini()

	h := host.NewMemHost("scratch", "")
	view := newMenuView(func() {
		screen.PostEvent(tcell.NewEventInterrupt(nil))
	})

	eng := complete.New(h, view,
		complete.WithLogger(lg),
		complete.WithExpander(snippet.Inserter{Host: h}),
		complete.WithKeywordLength(cfg.Completion.KeywordLength),
		complete.WithDefaultBehavior(behaviorFromConfig(cfg)),
		complete.WithAutoTrigger(cfg.AutoTrigger(config.TriggerTextChanged)),
	)
	defer eng.Close()

	if err := wireSources(eng, h, cfg, lg, luaScript, serverCmd); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	bindings, err := cfg.LoadKeymap()
	if err != nil {
		lg.Warn("keymap not loaded", "err", err)
	}
	if len(bindings) == 0 {
		bindings = defaultBindings()
	}
	if err := eng.ApplyKeymap(bindings); err != nil {
		lg.Warn("keymap not applied", "err", err)
	}

	var watcher *config.Watcher
	if configPath != "" {
		watcher, err = config.Watch(configPath, func(next *config.Config, err error) {
			if err != nil {
				lg.Warn("config reload failed", "err", err)
				return
			}
			lg.Info("configuration reloaded")
			eng.SetKeywordLength(next.Completion.KeywordLength)
			eng.SetDefaultBehavior(behaviorFromConfig(next))
			eng.SetPriorityOrder(priorityTable(next))
		})
		if err != nil {
			lg.Warn("config watcher not started", "err", err)
		} else {
			defer watcher.Close()
		}
	}

	return uiLoop(screen, h, view, eng, cfg.AutoTrigger(config.TriggerInsertEnter))
}

// uiLoop polls terminal events until quit.
func uiLoop(screen tcell.Screen, h *host.MemHost, view *menuView, eng *complete.Engine, insertEnter bool) int {
	for {
		draw(screen, h, view)

		switch ev := screen.PollEvent().(type) {
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventInterrupt:
			// Menu changed; redraw on the next pass.
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyCtrlC {
				return 0
			}
			if ev.Key() == tcell.KeyEscape {
				if view.Visible() {
					eng.Abort()
					continue
				}
				if h.InsertMode() {
					h.SetInsertMode(false)
					continue
				}
				return 0
			}
			handleKey(ev, h, eng, insertEnter)
		}
	}
}

// handleKey routes one key: engine bindings first, then mode switching,
// then buffer edits.
func handleKey(ev *tcell.EventKey, h *host.MemHost, eng *complete.Engine, insertEnter bool) {
	if chord := chordString(ev); chord != "" && eng.OnKeypress(chord) {
		return
	}

	if !h.InsertMode() {
		if ev.Key() == tcell.KeyRune && ev.Rune() == 'i' {
			h.SetInsertMode(true)
			if insertEnter {
				eng.Invoke()
			}
		}
		return
	}

	cur := h.Cursor()
	switch ev.Key() {
	case tcell.KeyRune:
		h.Insert(string(ev.Rune()))
		eng.OnChange()
	case tcell.KeyEnter:
		h.Insert("\n")
		eng.OnChange()
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		h.DeleteBefore(1)
		eng.OnChange()
	case tcell.KeyLeft:
		h.SetCursor(host.Position{Row: cur.Row, Col: cur.Col - 1})
		eng.OnChange()
	case tcell.KeyRight:
		h.SetCursor(host.Position{Row: cur.Row, Col: cur.Col + 1})
		eng.OnChange()
	case tcell.KeyUp:
		h.SetCursor(host.Position{Row: cur.Row - 1, Col: cur.Col})
		eng.OnChange()
	case tcell.KeyDown:
		h.SetCursor(host.Position{Row: cur.Row + 1, Col: cur.Col})
		eng.OnChange()
	}
}

// draw renders the buffer and the completion menu.
func draw(screen tcell.Screen, h *host.MemHost, view *menuView) {
	screen.Clear()
	width, height := screen.Size()

	base := tcell.StyleDefault
	for row := 0; row < h.LineCount() && row < height-1; row++ {
		for col, r := range []rune(h.Line(row)) {
			if col >= width {
				break
			}
			screen.SetContent(col, row, r, nil, base)
		}
	}

	status := "-- insert --  esc: normal mode  |  typeahead scratchpad"
	if !h.InsertMode() {
		status = "i: insert  esc: quit  |  typeahead scratchpad"
	}
	for col, r := range []rune(status) {
		if col >= width {
			break
		}
		screen.SetContent(col, height-1, r, nil, base.Reverse(true))
	}

	cur := h.Cursor()
	screen.ShowCursor(cur.Col, cur.Row)

	drawMenu(screen, view, width, height)
	screen.Show()
}

// drawMenu paints the candidate popup below the published keyword
// start.
func drawMenu(screen tcell.Screen, view *menuView, width, height int) {
	rows, selected, anchor := view.rows()
	if len(rows) == 0 {
		return
	}

	const maxRows = 8
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	menuWidth := 0
	lines := make([]string, len(rows))
	for i, r := range rows {
		line := r.Label
		if r.Detail != "" {
			line += "  " + r.Detail
		}
		line += "  [" + r.Source + "]"
		lines[i] = line
		if len([]rune(line)) > menuWidth {
			menuWidth = len([]rune(line))
		}
	}
	menuWidth += 2

	x := anchor.Col
	if x+menuWidth > width {
		x = width - menuWidth
	}
	if x < 0 {
		x = 0
	}
	y := anchor.Row + 1

	normal := tcell.StyleDefault.Background(tcell.ColorDarkSlateGray).Foreground(tcell.ColorWhite)
	active := tcell.StyleDefault.Background(tcell.ColorSteelBlue).Foreground(tcell.ColorBlack)

	for i, line := range lines {
		if y+i >= height-1 {
			break
		}
		style := normal
		if i == selected {
			style = active
		}
		runes := []rune(" " + line + strings.Repeat(" ", menuWidth))
		for col := 0; col < menuWidth && x+col < width; col++ {
			screen.SetContent(x+col, y+i, runes[col], nil, style)
		}
	}
}

// wireSources registers the configured providers.
func wireSources(eng *complete.Engine, h *host.MemHost, cfg *config.Config, lg *log.Logger, luaScript, serverCmd string) error {
	if _, err := eng.RegisterSource(words.New(h, words.WithLogger(lg))); err != nil {
		return err
	}

	if luaScript != "" {
		p, err := luasrc.NewFromFile("lua", luaScript, luasrc.WithLogger(lg))
		if err != nil {
			return fmt.Errorf("lua provider: %w", err)
		}
		if _, err := eng.RegisterSource(p); err != nil {
			return err
		}
	}

	if serverCmd != "" {
		parts := strings.Fields(serverCmd)
		p, err := remote.New("remote", parts[0], parts[1:], remote.WithLogger(lg))
		if err != nil {
			return fmt.Errorf("remote provider: %w", err)
		}
		if _, err := eng.RegisterSource(p); err != nil {
			return err
		}
	}

	eng.SetPriorityOrder(priorityTable(cfg))
	return nil
}

// priorityTable builds the name-to-priority map from configuration.
func priorityTable(cfg *config.Config) map[string]int {
	table := make(map[string]int, len(cfg.Sources))
	for _, s := range cfg.Sources {
		table[s.Name] = s.Priority
	}
	return table
}

// behaviorFromConfig maps the configured confirm behavior.
func behaviorFromConfig(cfg *config.Config) complete.ConfirmBehavior {
	if cfg.Confirm.DefaultBehavior == "replace" {
		return complete.BehaviorReplace
	}
	return complete.BehaviorInsert
}

// defaultBindings is the keymap used when none is configured.
func defaultBindings() map[string]string {
	return map[string]string{
		"<C-n>":     complete.ActionSelectNext,
		"<C-p>":     complete.ActionSelectPrev,
		"<C-y>":     complete.ActionConfirm,
		"<C-r>":     complete.ActionConfirmReplace,
		"<C-e>":     complete.ActionAbort,
		"<C-space>": complete.ActionComplete,
	}
}
