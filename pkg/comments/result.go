package comments

import "fmt"

// Warning records a parent whose replies could only be fetched partially.
// The parent is kept with the replies retrieved before Err.
type Warning struct {
	ParentID string
	Username string
	Fetched  int
	Err      error
}

func (w Warning) String() string {
	return fmt.Sprintf("replies for comment %s (@%s) incomplete after %d: %v", w.ParentID, w.Username, w.Fetched, w.Err)
}

// ResultSet is the ordered output of one run. Records is populated in
// detailed mode, Usernames in usernames mode.
type ResultSet struct {
	Format    DataFormat
	Records   []CommentRecord
	Usernames []string
	Warnings  []Warning
	// Pages counts parent pages fetched successfully
	Pages int
}

// Len returns the number of collected entries for the active format
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	if rs.Format == FormatUsernames {
		return len(rs.Usernames)
	}
	return len(rs.Records)
}

// ReplyCount returns the total number of replies attached to records
func (rs *ResultSet) ReplyCount() int {
	if rs == nil {
		return 0
	}
	n := 0
	for _, r := range rs.Records {
		n += len(r.Replies)
	}
	return n
}

func (rs *ResultSet) add(r CommentRecord) {
	if rs.Format == FormatUsernames {
		rs.Usernames = append(rs.Usernames, r.Username)
		return
	}
	rs.Records = append(rs.Records, r)
}
