// Package ir provides the shared expression, interval, and constraint model
// for Silica, plus the fully concrete design form emitted by the
// monomorphizer.
//
// This package contains type definitions and pure functions only. All other
// internal packages import ir; ir imports nothing internal. This ensures IR
// remains the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - all arithmetic is over int64 naturals
//   - Expressions are immutable once constructed; substitution returns a
//     new expression
//   - Time expressions are compared only through the constraint solver,
//     except for the fast syntactic-equality short-circuit
//   - Specialization identity is content-addressed via RFC 8785 canonical
//     JSON, never via Go pointer identity
package ir
