package complete

import "github.com/dshills/typeahead/internal/host"

// confirm commits cand into the document as a strictly ordered
// transaction. The guard is held for the whole transaction so the
// synthetic edits never start a new automatic cycle, and every exit
// path releases it. A candidate that is already confirmed is a no-op
// and never invokes done.
func (e *Engine) confirm(cand *Candidate, behavior ConfirmBehavior, done func()) {
	release, ok := e.guard.Acquire()
	if !ok {
		return
	}
	if !cand.markConfirmed() {
		release()
		return
	}
	e.advance(ReasonTriggerOnly)

	e.view.Close()

	e.restoreOriginalWord(cand)

	e.applySecondaryEdits(cand, release, func() {
		e.applyPrimaryRange(cand, behavior)
		e.insertCandidate(cand)

		cand.Execute(func() {
			err := e.post(func() {
				e.resetSources()
				release()
				if e.onConfirmDone != nil {
					e.onConfirmDone()
				}
				if done != nil {
					done()
				}
			})
			if err != nil {
				release()
			}
		})
	})
}

// restoreOriginalWord rewinds the cursor line to the candidate's
// originating text: delete everything typed since the candidate's
// offset, round-trip the committable word through an insert/delete so
// the host applies its indentation and undo-history normalization, then
// re-insert the untouched original keyword.
func (e *Engine) restoreOriginalWord(cand *Candidate) {
	cursor := e.h.Cursor()
	if typed := cursor.Col - cand.Offset(); typed > 0 {
		e.h.DeleteBefore(typed)
	}

	word := cand.Word()
	e.h.Insert(word)
	e.h.DeleteBefore(len([]rune(word)))

	orig := []rune(cand.Context().CursorBeforeLine)
	if off := cand.Offset(); off <= len(orig) {
		e.h.Insert(string(orig[off:]))
	}
}

// applySecondaryEdits applies the candidate's edits outside the primary
// range, resolving the item first when it has none and the provider
// supports resolution. next runs afterwards, on the loop; if the loop is
// gone by the time the resolution lands, release runs instead so the
// transaction still frees the guard.
func (e *Engine) applySecondaryEdits(cand *Candidate, release, next func()) {
	row := e.h.Cursor().Row

	edits := cand.Item().AdditionalEdits
	if _, ok := cand.Provider().(Resolver); ok && len(edits) == 0 {
		cand.Resolve(func(item Item) {
			if err := e.post(func() {
				e.applyEdits(item.AdditionalEdits, row)
				next()
			}); err != nil {
				e.log.Debug("resolve continuation dropped", "err", err)
				release()
			}
		})
		return
	}

	e.applyEdits(edits, row)
	next()
}

// applyEdits applies secondary edits, suppressing any that span the
// cursor row: the primary edit owns that line and must not be edited
// twice.
func (e *Engine) applyEdits(edits []host.TextEdit, cursorRow int) {
	for _, edit := range edits {
		if edit.Range.SpansRow(cursorRow) {
			continue
		}
		e.h.ApplyEdit(edit)
	}
}

// applyPrimaryRange clears the candidate's effective range with counted
// deletions around the cursor, preserving the host's own undo
// granularity.
func (e *Engine) applyPrimaryRange(cand *Candidate, behavior ConfirmBehavior) {
	r := cand.EffectiveRange(behavior)
	cursor := e.h.Cursor()

	if r.End.Row == cursor.Row && r.End.Col > cursor.Col {
		e.h.DeleteAfter(r.End.Col - cursor.Col)
	}
	if r.Start.Row == cursor.Row && r.Start.Col < cursor.Col {
		e.h.DeleteBefore(cursor.Col - r.Start.Col)
	}
}

// insertCandidate inserts the final text, through the snippet expander
// for snippet items. The insertion is bracketed by undo breaks so it
// forms one undo step.
func (e *Engine) insertCandidate(cand *Candidate) {
	it := cand.Item()
	text := it.Text()

	e.h.UndoBreak()
	if it.Format == FormatSnippet && e.expander != nil {
		// Placeholder round-trip keeps the host's auto-pairing and
		// indentation hooks consistent before expansion takes over.
		word := cand.Word()
		e.h.Insert(word)
		e.h.DeleteBefore(len([]rune(word)))
		if err := e.expander.Expand(text, it.InsertTextMode); err != nil {
			e.log.Error("snippet expansion failed", "err", err)
			e.h.Insert(text)
		}
	} else {
		e.h.Insert(text)
	}
	e.h.UndoBreak()
}
