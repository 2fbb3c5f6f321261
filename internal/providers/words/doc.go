// Package words is a completion provider that indexes the words already
// present in the host buffer and suggests them by prefix.
package words
