// Package snippet reduces structured snippet bodies to plain text and
// provides a host-backed inserter for engines without a richer snippet
// collaborator.
package snippet
