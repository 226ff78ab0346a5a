// Package harness runs conformance scenarios against promptc schemas.
//
// A scenario names a schema directory, optionally evaluates template
// expressions against the compiled schema, and asserts on the outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: resume_extraction
//	description: "Resume schema compiles and its prompts type-check"
//	schema: resume            # relative to the scenario file or base path
//	context: prompt           # registry for flow steps (prompt|constraint)
//	flow:
//	  - eval: "r.jobs[0].title"
//	    vars: { r: Resume }
//	    expect:
//	      type: string
//	assertions:
//	  - type: compiles
//	  - type: entity_count
//	    kind: classes
//	    count: 2
//	  - type: env_vars
//	    names: [OPENAI_API_KEY]
//
// # Assertion Types
//
//   - compiles: the schema loads, validates and lowers without errors
//   - error_codes: the load, validation or lowering error codes equal codes
//   - entity_count: the IR holds count entities of kind
//   - env_vars: RequiredEnvVars equals names
//   - finding_count: the template check reports count findings, optionally
//     only those whose entity is entity
//   - recursive_cycle: one finite recursive cycle consists of exactly names
//
// # Golden Files
//
// The outcome of a run (digest, error codes, findings, step types) is
// serialized as canonical JSON so RunWithGolden can compare it with goldie.
// Spans in findings are relative to the schema directory, so outcomes are
// stable across checkouts.
package harness
