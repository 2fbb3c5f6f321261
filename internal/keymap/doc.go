// Package keymap maps normalized key sequences to tagged actions.
//
// Sequences use angle-bracket notation ("<C-Space>", "<C-x><C-o>", "a").
// Bindings resolve to either a built-in named action or a custom handler,
// decided once at setup rather than pattern-matched per keystroke.
package keymap
