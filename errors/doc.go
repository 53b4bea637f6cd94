// Package errors provides structured error types for the mongo-bridge module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries a field path, the offending value, an engine error code and a
// cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindInvalidData).
//		Path("find", "data").
//		Detail("expected array, got %s", kind).
//		Build()
//
// Or use convenience constructors for the bridge taxonomy:
//
//	err := errors.UnsupportedPlatform("mongo_engine", "plan9")
//	err := errors.InvalidIdentifier("not-an-id")
//
// Sentinels (ErrDownload, ErrNotInitialized, ...) match with errors.Is.
// IsKind matches by kind alone, across phases.
package errors
