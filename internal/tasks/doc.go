// Package tasks runs multi-request catalog operations with real-time progress reporting.
//
// # Core Operations
//
// [CatalogEngine] offers two operations:
//
//  1. [CatalogEngine.Snapshot] : fetch pages of artists, albums and regionals concurrently
//     - Listings are fetched by an errgroup with a bounded number of workers
//     - Per-listing failures are collected unless StopOnError is set
//     - Concurrent authentication failures share one refresh through the session transport
//
//  2. [CatalogEngine.Export] : take a snapshot and write every listing to disk
//     - One file per listing in the chosen format plus a JSON manifest
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
