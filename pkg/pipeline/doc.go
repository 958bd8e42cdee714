// Package pipeline provides the pre-processing pipelines of the grid.
//
// A pipeline is a named, ordered list of stages. Independent features register stages
// into the pipelines they want to extend, and consumers ask for "apply every stage of
// pipeline X to value V". Features never need to know about each other: the only shared
// contract is the accumulator type of the pipeline.
//
// Pipeline names form a closed catalog of typed keys (HydrateColumns, RowTree, ...).
// Each key fixes the accumulator type, so a stage registered with the wrong shape does
// not compile, and a key built outside of this package is rejected at registration.
//
// Stages run in registration order. Registering a stage with an ID that already exists
// replaces its function but keeps its position, so features can re-register on
// reconfiguration without reshuffling the table. Every registration returns a disposer
// that removes exactly that registration: once a stage was replaced, the disposer of the
// previous registration does nothing.
//
// Runs never swallow errors. The first failing stage aborts the run, no partial value is
// returned, and the table is left untouched. Once the pipeline is disposed every
// registration and run fails fast with ErrDisposed and is reported to the Reporter.
package pipeline
