// Package file provides the filesystem tools.
//
// Tools:
//   - read_file: Read file contents, recording a read stamp for freshness
//   - write_file: Create or update a file, refusing stale writes
//   - edit_file: Replace text in a file, refusing stale writes
//   - list_files: List directory contents
//
// Write-capable tools enforce the optimistic-concurrency discipline: a path
// must have been read through the current tool-use context, and must not
// have changed on disk since, or the write is refused before any mutation.
package file
