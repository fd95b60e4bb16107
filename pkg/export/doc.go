// Package export renders a comments.ResultSet as JSON, CSV or TXT.
//
// Rendering is pure: the same ResultSet always produces byte-identical output,
// and nothing here touches the filesystem. Writing the bytes is left to
// storage.Manager so that a failed run never leaves a partial file behind.
package export
