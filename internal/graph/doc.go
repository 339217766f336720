// Package graph holds the trace graph of one metaprogram evaluation.
//
// Vertices and edges live in append-only arenas addressed by integer ids.
// A vertex is identified by its node label together with its source
// location; adding the same pair twice yields the same id, so repeated
// computations reconverge onto one vertex and the graph is a DAG rather than
// a tree. Edges are kept in discovery order, which is the time axis the
// debugger steps along.
//
// Only a few properties may change after insertion: the enabled flag, the
// elapsed time of a closed event, the evaluation result, and the effective
// label and kind that filtering derives from the recorded ones.
package graph
