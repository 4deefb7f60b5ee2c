// Package app wires a gridflow run together: it loads workflow
// definitions, registers the compiled-in modules, builds the graph and
// drives the executor with the notifiers, resource providers and control
// surface selected by the configuration. It is decoupled from any
// entrypoint like the CLI.
package app
