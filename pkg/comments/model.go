package comments

import (
	"time"

	"instacomments/pkg/auth"
)

// Reply is a second-level comment. It has no replies of its own.
type Reply struct {
	ID        string
	Username  string
	Text      string
	LikeCount int
	CreatedAt time.Time
}

// CommentRecord is a parent comment with the replies fetched for it
type CommentRecord struct {
	ID        string
	Username  string
	Text      string
	LikeCount int
	CreatedAt time.Time
	Replies   []Reply
}

// PageCursor is an opaque pagination token. The zero value starts a stream.
type PageCursor string

// RawComment is one parent comment exactly as delivered by a page
type RawComment struct {
	ID        string
	Username  string
	Text      string
	LikeCount int
	CreatedAt time.Time
	// ReplyCount is the upstream thread size, or -1 when the page did not say
	ReplyCount int
}

// Page is a single response of a cursor-paginated stream.
// HasNext false is the end marker; Next is meaningless then.
type Page struct {
	Items   []RawComment
	Next    PageCursor
	HasNext bool
}

// Done reports whether the stream ended with this page
func (p Page) Done() bool {
	return !p.HasNext
}

// MediaKind is the URL segment of the target media
type MediaKind string

const (
	MediaReel MediaKind = "reel"
	MediaPost MediaKind = "p"
)

// Stream selects which endpoint variant a FetchContext talks to
type Stream string

const (
	StreamParents Stream = "parents"
	StreamReplies Stream = "replies"
)

// FetchContext identifies one logical fetch stream. It is passed by value and
// never modified once a stream has started.
type FetchContext struct {
	Shortcode   string
	Kind        MediaKind
	Credentials *auth.Session
	PerPage     int
	Stream      Stream
	ParentID    string
}

// ForReplies derives the reply stream context for one parent comment
func (fc FetchContext) ForReplies(parentID string) FetchContext {
	fc.Stream = StreamReplies
	fc.ParentID = parentID
	return fc
}

func (r RawComment) record() CommentRecord {
	return CommentRecord{
		ID:        r.ID,
		Username:  r.Username,
		Text:      r.Text,
		LikeCount: r.LikeCount,
		CreatedAt: r.CreatedAt,
	}
}
