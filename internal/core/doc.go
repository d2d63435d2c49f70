// Package core provides the file-pairing and diff engine.
//
// This package holds all comparison logic independent of any transport or
// storage. It is used by the web server, the command-line tool and tests
// without modification.
//
// # Pipeline
//
// A [ComparisonRequest] flows through these stages:
//
//  1. [PlanPairs] decides which files are compared: manual pairs first, then
//     positional pairing of the remaining files when sorting is enabled, then
//     every unclaimed file as a one-sided entry.
//  2. [Normalize] parses each file into rows. Dispatch is by extension onto
//     delimited, spreadsheet, structured-document and plain-text readers.
//  3. [ResolveIgnoreIndices] turns ignored column names or indices into
//     positions using each file's own header.
//  4. [Diff] compares two files row by row and classifies the pair.
//  5. [RenderReport] writes one CSV report per pair to a [ReportSink].
//  6. [OverallMetrics.Accumulate] folds every result into request totals.
//
// [Engine.Compare] runs stages 2 to 5 for all planned pairs on a bounded
// worker pool and reduces the metrics in plan order.
//
// # Service
//
// [Service] wraps the engine for frontends: it limits concurrent requests
// with a [ComparisonLimiter], stores uploads through a [SessionStore],
// bundles reports and records one [ComparisonLog] per request.
//
// # Error Handling
//
// Inside a comparison every failure becomes data on the [PairResult]. Errors
// returned by [Service] are mapped to user-facing messages with [MapError]:
//
//   - FILE001-FILE006: upload problems (size, format, names)
//   - CMP001-CMP004: comparison problems (busy, unknown session or report)
//   - REQ001-REQ003: request problems (cancelled, timeout, bad form)
//   - DB001-DB003: audit store problems
package core
