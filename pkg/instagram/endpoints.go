package instagram

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"

	"instacomments/pkg/comments"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// GraphQLEndpoint serves both comment queries
	GraphQLEndpoint = "/graphql/query/"

	// ParentCommentsQueryHash selects the parent comments of a shortcode
	ParentCommentsQueryHash = "97b41c52301f77ce508f55e66d17620e"

	// RepliesQueryHash selects the threaded replies of one comment
	RepliesQueryHash = "1ee91c32fc020d44158a3192eda98247"

	// MaxPerPage is the largest page the endpoint serves
	MaxPerPage = 50
)

var mediaURLPattern = regexp.MustCompile(`instagram\.com/(reel|p)/([^/?#]+)`)

// ParseMediaURL extracts the media kind and shortcode from a Reel or Post URL
func ParseMediaURL(raw string) (comments.MediaKind, string, error) {
	m := mediaURLPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", "", fmt.Errorf("not an Instagram reel or post URL: %q", raw)
	}
	return comments.MediaKind(m[1]), m[2], nil
}

// MediaURL returns the public page of a media item, used as the Referer
func MediaURL(kind comments.MediaKind, shortcode string) string {
	return fmt.Sprintf("%s/%s/%s/", BaseURL, kind, shortcode)
}

// ClampPerPage bounds a positive page size to MaxPerPage
func ClampPerPage(perPage int) int {
	if perPage > MaxPerPage {
		return MaxPerPage
	}
	return perPage
}

type parentVariables struct {
	Shortcode string `json:"shortcode"`
	First     int    `json:"first"`
	After     string `json:"after,omitempty"`
}

type replyVariables struct {
	CommentID string `json:"comment_id"`
	First     int    `json:"first"`
	After     string `json:"after,omitempty"`
}

// ParentCommentsURL builds the page request for a shortcode's parent comments
func ParentCommentsURL(baseURL, shortcode string, first int, after comments.PageCursor) string {
	return graphQLURL(baseURL, ParentCommentsQueryHash, parentVariables{
		Shortcode: shortcode,
		First:     ClampPerPage(first),
		After:     string(after),
	})
}

// RepliesURL builds the page request for one comment's replies
func RepliesURL(baseURL, commentID string, first int, after comments.PageCursor) string {
	return graphQLURL(baseURL, RepliesQueryHash, replyVariables{
		CommentID: commentID,
		First:     ClampPerPage(first),
		After:     string(after),
	})
}

func graphQLURL(baseURL, queryHash string, variables interface{}) string {
	// Marshal of these flat structs cannot fail
	vars, _ := json.Marshal(variables)

	params := url.Values{}
	params.Set("query_hash", queryHash)
	params.Set("variables", string(vars))

	return fmt.Sprintf("%s%s?%s", baseURL, GraphQLEndpoint, params.Encode())
}
