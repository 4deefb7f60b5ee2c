// Package graph provides the read-only shape of an authored workflow: its
// nodes, their data and control edges, and the loop constructs formed by a
// Loop, its body and its LoopJoin.
//
// # Responsibilities
//
// A Graph is built from a config.Workflow by Build, which performs
// structural checks only:
//   - every data port has exactly one known source
//   - control references name an existing control-out port
//   - the combined data and control edges form a DAG
//   - every Loop has exactly one body and one LoopJoin
//   - ConditionalJoin inputs come in (true, false) pairs
//
// Semantic checks (for example whether an operation exists) are left to the
// dispatcher at run time.
//
// # Lifecycle
//
// 1. **Built** once per workflow instance (sub-workflow runs build a fresh one)
// 2. **Queried** by the scheduler and executor during a run
// 3. **Reset** between runs, returning every node to Waiting
package graph
