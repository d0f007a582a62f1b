// Package history records every stream run in a local SQLite database so
// past sessions can be listed with the history command.
package history
