package main

import (
	"sync"

	"github.com/dshills/typeahead/internal/complete"
	"github.com/dshills/typeahead/internal/host"
)

// menuView is the completion menu the engine publishes into. It keeps
// the candidate list and selection; drawing happens on the UI loop.
type menuView struct {
	mu         sync.Mutex
	visible    bool
	ctx        *complete.Context
	candidates []*complete.Candidate
	selected   int

	// onChange, when set, asks the UI loop to redraw.
	onChange func()
}

func newMenuView(onChange func()) *menuView {
	return &menuView{selected: -1, onChange: onChange}
}

func (v *menuView) Open(ctx *complete.Context, candidates []*complete.Candidate) {
	v.mu.Lock()
	v.visible = true
	v.ctx = ctx
	v.candidates = candidates
	v.selected = -1
	v.mu.Unlock()
	v.notify()
}

func (v *menuView) Close() {
	v.mu.Lock()
	changed := v.visible
	v.visible = false
	v.ctx = nil
	v.candidates = nil
	v.selected = -1
	v.mu.Unlock()
	if changed {
		v.notify()
	}
}

func (v *menuView) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

func (v *menuView) Ready() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible && len(v.candidates) > 0
}

func (v *menuView) Selected() *complete.Candidate {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selected < 0 || v.selected >= len(v.candidates) {
		return nil
	}
	return v.candidates[v.selected]
}

func (v *menuView) First() *complete.Candidate {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.candidates) == 0 {
		return nil
	}
	return v.candidates[0]
}

func (v *menuView) SelectNext() {
	v.mu.Lock()
	v.selected++
	if v.selected >= len(v.candidates) {
		v.selected = -1
	}
	v.mu.Unlock()
	v.notify()
}

func (v *menuView) SelectPrev() {
	v.mu.Lock()
	v.selected--
	if v.selected < -1 {
		v.selected = len(v.candidates) - 1
	}
	v.mu.Unlock()
	v.notify()
}

// rows returns the display rows, the selected index, and the anchor
// position (the published context's keyword start) for drawing.
func (v *menuView) rows() ([]menuRow, int, host.Position) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.visible {
		return nil, -1, host.Position{}
	}
	anchor := host.Position{}
	if v.ctx != nil {
		anchor = host.Position{Row: v.ctx.Cursor.Row, Col: v.ctx.WordStartCol()}
	}
	rows := make([]menuRow, len(v.candidates))
	for i, c := range v.candidates {
		rows[i] = menuRow{
			Label:  c.Item().Label,
			Detail: c.Item().Detail,
			Source: c.Provider().Name(),
		}
	}
	return rows, v.selected, anchor
}

func (v *menuView) notify() {
	if v.onChange != nil {
		v.onChange()
	}
}

// menuRow is one rendered line of the menu.
type menuRow struct {
	Label  string
	Detail string
	Source string
}
