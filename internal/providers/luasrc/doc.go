// Package luasrc is a completion provider scripted in Lua. A script
// defines a complete(prefix) function returning a list of suggestions,
// either plain strings or tables with label/insert_text/detail fields.
package luasrc
