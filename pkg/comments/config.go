package comments

import (
	"errors"
	"fmt"
	"strings"
)

// DataFormat is the shape of the collected result
type DataFormat string

const (
	FormatUsernames DataFormat = "usernames"
	FormatDetailed  DataFormat = "detailed"
)

// ParseDataFormat validates a data format flag value
func ParseDataFormat(s string) (DataFormat, error) {
	switch DataFormat(strings.ToLower(strings.TrimSpace(s))) {
	case FormatUsernames:
		return FormatUsernames, nil
	case FormatDetailed:
		return FormatDetailed, nil
	default:
		return "", fmt.Errorf("unknown data format %q (want usernames or detailed)", s)
	}
}

// RunConfiguration controls one aggregation run. It is built once and read-only after.
type RunConfiguration struct {
	DataFormat     DataFormat
	IncludeReplies bool
	MinLikes       int
	// MaxComments caps the result; 0 means unlimited.
	MaxComments int
	Dedupe      bool
	PerPage     int
}

// Validate reports every invalid field at once
func (c RunConfiguration) Validate() error {
	var errs []error
	if c.DataFormat != FormatUsernames && c.DataFormat != FormatDetailed {
		errs = append(errs, fmt.Errorf("unknown data format %q", c.DataFormat))
	}
	if c.MinLikes < 0 {
		errs = append(errs, errors.New("min likes cannot be negative"))
	}
	if c.MaxComments < 0 {
		errs = append(errs, errors.New("max comments cannot be negative"))
	}
	if c.PerPage <= 0 {
		errs = append(errs, errors.New("per page must be positive"))
	}
	return errors.Join(errs...)
}

// fetchReplies reports whether replies are worth requesting. Usernames mode
// exports bare strings, so replies would be fetched and then discarded.
func (c RunConfiguration) fetchReplies() bool {
	return c.IncludeReplies && c.DataFormat == FormatDetailed
}

// dedupeKey is the username in usernames mode and the comment id otherwise
func (c RunConfiguration) dedupeKey(r RawComment) string {
	if c.DataFormat == FormatUsernames {
		return r.Username
	}
	return r.ID
}
