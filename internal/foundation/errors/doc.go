// Package errors provides classified errors for the pipeline engine.
//
// Every error that crosses a package boundary carries a category (config,
// module, upstream, cancel, execution, ...) and a severity. The scheduler
// routes on categories: configuration errors abort before any execution,
// module errors are contained to their pipeline, and cancellation is kept
// distinct from execution failure so callers can tell an interrupted pass
// from a broken one.
package errors
