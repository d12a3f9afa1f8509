// Package persistence keeps a bounded history of handoff runs in a JSON
// state file, so outcomes (in particular leaked sessions) survive restarts.
package persistence
