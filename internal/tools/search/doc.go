// Package search provides the content and filename search tools: glob for
// finding files by pattern and grep for searching file contents with a
// regular expression. Both tools are read-only and never prompt for
// permission.
package search
