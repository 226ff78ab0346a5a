// Package ir provides the canonical intermediate representation of a schema.
//
// This package contains the IR data model, its serialization and its content
// digest. Other internal packages import ir; ir imports nothing internal.
// This keeps the IR the foundational layer shared by the lowering pipeline,
// the template type checker and every downstream consumer.
//
// Key design constraints:
//   - Optionality is structural: Optional(T), never a flag beside T
//   - Constrained wraps the outermost type only
//   - Every collection in an IntermediateRepr is sorted by name
//   - Source spans never serialize (json:"-"); they are a build-time concern
//   - An IntermediateRepr is never mutated after construction; readers may
//     share it across goroutines without synchronization
//   - All JSON tags use snake_case
package ir
