// Package core provides the report acquisition and normalization pipeline.
//
// This package is the heart of capview. It contains the domain logic
// independent of any transport or presentation layer, so the terminal sink,
// the web sink and tests all drive the same code.
//
// # Architecture
//
// A run moves through a small state machine:
//
//	Idle -> ConfigLoaded -> per entry (Fetching -> Parsing -> Rendered | Failed) -> Done
//
// The collaborators are interfaces:
//
//   - [ConfigResolver] loads the pipeline document (see package manifest)
//   - [Fetcher] downloads one remote file (see package fetch)
//   - [Sink] displays tables and per-slot failures (see packages render and web)
//   - [RunRecorder] stores outcomes (see package history)
//
// # Dataset Registry
//
// Dataset kinds are registered at init time using [Register]. Each
// [DatasetDefinition] names a binding strategy and a parse function:
//
//	core.Register(core.DatasetDefinition{
//	    Kind:    core.KindInventory,
//	    Binding: core.BindByPosition,
//	    Fields:  inventoryFields,
//	    Parse:   parseInventoryTable,
//	})
//
// Entry 1 and 3 are capacity reports, entry 2 is the inventory report.
//
// # Sorting
//
// [Table.SortBy] never mutates its receiver. It compares cells by column
// type and breaks ties by original row index.
//
// # Error Handling
//
// Errors are typed ([ConfigError], [FetchError], [ParseError]) and mapped
// to operator-facing messages using [MapError]:
//
//   - CFG001-CFG003: configuration errors (fatal for the run)
//   - FET001-FET005: fetch errors (scoped to one entry)
//   - PRS001-PRS004: parse errors (scoped to one entry)
//   - RUN001-RUN002: cancellation and deadlines
//   - SNK001: a sink could not render a view
package core
