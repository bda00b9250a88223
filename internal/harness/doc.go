// Package harness provides a conformance testing framework for the compile
// pipeline.
//
// A scenario is a YAML file pairing a design document with the expected
// outcome of compiling it: either a monomorphized design with known solved
// existentials, or a specific set of diagnostics. The harness runs the full
// pipeline (decode, resolve, check, solve, monomorphize) and evaluates the
// scenario's expectations against the result.
//
// Golden files pin the exact emitted design. The snapshot is serialized with
// canonical JSON so the comparison is byte-stable across runs and platforms.
// To regenerate golden files after an intentional output change, run:
//
//	go test ./internal/harness -update
package harness
