// Package cli parses command-line arguments with cobra, validates user
// input and maps failures to exit codes. It translates flags into the
// application's configuration.
package cli
