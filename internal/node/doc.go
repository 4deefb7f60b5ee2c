// Package node defines the vertices of a workflow graph: their component
// kind, data and control ports, and the atomically managed per-node state
// (Waiting, Executing, Finished, Failed).
//
// Nodes are created once per graph instance by the graph package. The
// executor is the only writer of node state; the scheduler only reads it.
package node
