// Package remote is a completion provider backed by an external word
// server speaking msgpack over stdin/stdout. Requests carry an id so
// responses can arrive out of order.
package remote
