// Package invoker contains the per-node adapters that perform one concrete
// operation and cache its outputs by port name.
//
// An Invoker is owned by exactly one node and lives for one dispatch attempt:
// it is configured, fed its inputs, invoked, read and then discarded. The
// executor never reuses an invoker across retries, so partial outputs of a
// failed attempt cannot leak into the next one.
//
// Built-in variants:
//
//   - RESTInvoker calls a remote service over HTTP.
//   - LocalInvoker calls a named service from the local registry.
//   - DynamicInvoker calls a registered Go function with typed positional
//     arguments.
//   - SystemInvoker only holds values computed by the interpreter itself.
package invoker
