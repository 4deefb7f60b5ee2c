// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It is responsible for file discovery, parsing, and translating
// `workflow` and `node` blocks into the format-agnostic config model.
//
// A workflow file looks like:
//
//	workflow "main" {
//	  node "input" "x" {
//	    default = "5"
//	  }
//	  node "service_call" "double" {
//	    operation = "double"
//	    input "value" { from = x }
//	    output "result" {}
//	  }
//	  node "output" "y" {
//	    from = double.result
//	  }
//	}
//
// Port references are bare traversals (`node.port`) or strings.
package hcl
