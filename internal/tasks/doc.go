// Package tasks runs long feed jobs with real-time progress reporting.
//
// # Bulk Export
//
// [Exporter.BulkExport] writes every author's posts to its own export in one output
// directory, then a manifest summarizing which authors succeeded:
//
//   - Post lookups are paced by a rate limiter
//   - Rendering runs on a bounded worker pool (1 to 10 workers)
//   - One author failing does not stop the others
//
// Formats match the single-feed export: csv, markdown, txt and json.
//
// # Progress Reporting
//
// Progress goes through a caller-owned channel. [ProgressUpdate] carries the phase, step
// counters and a display message. Sends use select with default so a slow reader drops
// updates instead of stalling the export.
package tasks
