// Package registry provides the central "glue" between workflow files and
// compiled Go code.
//
// The Registry maps the operation names used in workflow files (for example
// `operation = "upper"`) to Go implementations. Two shapes are supported:
//
//   - Services take and return named cty values. ServiceCall nodes without
//     an endpoint are served by them.
//   - Operations are plain Go functions invoked by reflection with typed,
//     positional arguments. DynamicCall nodes use them.
//
// During startup every module registers its handlers and the registry is
// validated so that malformed operation signatures are caught before any
// workflow runs.
package registry
