// Package tasks runs long project operations with real-time progress reporting.
//
// # Bulk Upload
//
// [UploadEngine.BulkUpload] uploads many archives through the projects service:
//
//   - a bounded pool of workers ([errgroup.Group.SetLimit]) runs uploads concurrently
//   - a [rate.Limiter] paces requests so a large batch does not flood the API
//   - one failed archive never stops the rest; failures are collected in the result
//
// [UploadEngine.Scan] expands directories into the archives they contain, which is how
// `projects push` picks up a build folder.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// [ProgressUpdate] carries the phase, step counters, a message and optional data. Updates use
// select with default so a slow reader never stalls an upload.
package tasks
