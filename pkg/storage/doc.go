// Package storage persists export output.
//
// Manager writes files atomically: data goes to a temporary file in the
// target directory which is renamed into place only after it was written and
// closed completely, so a reader never observes a half-written export.
//
// S3Uploader copies the same bytes to S3-compatible object storage under
//
//	{prefix}/{YYYY}/{MM}/{DD}/{shortcode}-{runID}.{ext}
//
// Usage:
//
//	manager, err := storage.NewManager("out")
//	if err != nil {
//	    return err
//	}
//	if err := manager.Save(bytes.NewReader(data), "listComments.json"); err != nil {
//	    return err
//	}
package storage
