package instagram

import (
	"time"

	"instacomments/pkg/comments"
)

// Envelope carries the status fields Instagram adds around every GraphQL answer
type Envelope struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	RequireLogin bool   `json:"require_login"`
}

// ParentCommentsResponse is the answer to the parent comments query
type ParentCommentsResponse struct {
	Data struct {
		ShortcodeMedia *ShortcodeMedia `json:"shortcode_media"`
	} `json:"data"`
}

// ShortcodeMedia is the media object; only its comment edge is read
type ShortcodeMedia struct {
	ID                       string      `json:"id"`
	Shortcode                string      `json:"shortcode"`
	EdgeMediaToParentComment CommentEdge `json:"edge_media_to_parent_comment"`
}

// RepliesResponse is the answer to the threaded replies query
type RepliesResponse struct {
	Data struct {
		Comment *struct {
			ID                   string      `json:"id"`
			EdgeThreadedComments CommentEdge `json:"edge_threaded_comments"`
		} `json:"comment"`
	} `json:"data"`
}

// CommentEdge is one page of a comment connection
type CommentEdge struct {
	Count    int      `json:"count"`
	PageInfo PageInfo `json:"page_info"`
	Edges    []struct {
		Node CommentNode `json:"node"`
	} `json:"edges"`
}

// PageInfo contains pagination information
type PageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor"`
}

// CommentNode is a comment as served by either query
type CommentNode struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at"`
	Owner     struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"owner"`
	LikeCount   *int `json:"like_count"`
	EdgeLikedBy *struct {
		Count int `json:"count"`
	} `json:"edge_liked_by"`
	EdgeThreadedComments *struct {
		Count int `json:"count"`
	} `json:"edge_threaded_comments"`
}

// Likes prefers like_count and falls back to edge_liked_by.count
func (n CommentNode) Likes() int {
	switch {
	case n.LikeCount != nil:
		return *n.LikeCount
	case n.EdgeLikedBy != nil:
		return n.EdgeLikedBy.Count
	}
	return 0
}

// ReplyCount is the thread size, -1 when the node does not carry it
func (n CommentNode) ReplyCount() int {
	if n.EdgeThreadedComments == nil {
		return -1
	}
	return n.EdgeThreadedComments.Count
}

func (n CommentNode) createdAt() time.Time {
	if n.CreatedAt == 0 {
		return time.Time{}
	}
	return time.Unix(n.CreatedAt, 0).UTC()
}

func (n CommentNode) raw() comments.RawComment {
	return comments.RawComment{
		ID:         n.ID,
		Username:   n.Owner.Username,
		Text:       n.Text,
		LikeCount:  n.Likes(),
		CreatedAt:  n.createdAt(),
		ReplyCount: n.ReplyCount(),
	}
}

func (n CommentNode) reply() comments.Reply {
	return comments.Reply{
		ID:        n.ID,
		Username:  n.Owner.Username,
		Text:      n.Text,
		LikeCount: n.Likes(),
		CreatedAt: n.createdAt(),
	}
}
