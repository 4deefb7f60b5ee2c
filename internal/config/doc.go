// Package config defines the format-agnostic workflow model for the
// application, along with the Loader interface for reading it from
// various sources.
//
// The `config.Model` is the single source of truth for the `graph` and
// `executor` packages. Concrete loaders, such as for HCL or YAML, are
// provided in separate packages.
package config
