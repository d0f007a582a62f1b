// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates CLI flags into the application's internal configuration.
//
// Settings are layered: command flags win over the selected profile block,
// which wins over the built-in defaults. The env file is loaded before the
// profile so env() calls in the profile can see it.
package cli
