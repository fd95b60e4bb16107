package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instacomments/pkg/comments"
)

func usernamesResult(names ...string) *comments.ResultSet {
	return &comments.ResultSet{Format: comments.FormatUsernames, Usernames: names}
}

func detailedResult() *comments.ResultSet {
	at := time.Unix(1700000000, 0).UTC()
	return &comments.ResultSet{
		Format: comments.FormatDetailed,
		Records: []comments.CommentRecord{
			{
				ID: "1", Username: "alice", Text: "first <b>line</b>\nsecond line ", LikeCount: 3, CreatedAt: at,
				Replies: []comments.Reply{
					{ID: "11", Username: "bob", Text: "agreed", LikeCount: 1, CreatedAt: at.Add(time.Minute)},
				},
			},
			{ID: "2", Username: "carol", Text: "hi, \"there\"", LikeCount: 0, CreatedAt: at},
		},
	}
}

func TestParseFileFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    FileFormat
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"CSV", FormatCSV, false},
		{" txt ", FormatTXT, false},
		{"xml", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFileFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want FileFormat
		ok   bool
	}{
		{"listComments.json", FormatJSON, true},
		{"out/comments.CSV", FormatCSV, true},
		{"names.txt", FormatTXT, true},
		{"noext", "", false},
		{"archive.tar.gz", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := FormatFromPath(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExportUsernames(t *testing.T) {
	rs := usernamesResult("zed", "amy", "<script>")

	tests := []struct {
		format FileFormat
		want   string
	}{
		{FormatJSON, "[\n  \"zed\",\n  \"amy\",\n  \"<script>\"\n]\n"},
		{FormatTXT, "zed\namy\n<script>\n"},
		{FormatCSV, "username\nzed\namy\n<script>\n"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			got, err := Export(rs, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestExportEmptyResult(t *testing.T) {
	tests := []struct {
		name   string
		rs     *comments.ResultSet
		format FileFormat
		want   string
	}{
		{"usernames json", usernamesResult(), FormatJSON, "[]\n"},
		{"usernames txt", usernamesResult(), FormatTXT, ""},
		{"usernames csv", usernamesResult(), FormatCSV, "username\n"},
		{"detailed json", &comments.ResultSet{Format: comments.FormatDetailed}, FormatJSON, "[]\n"},
		{"detailed csv", &comments.ResultSet{Format: comments.FormatDetailed}, FormatCSV, "id,username,text,like_count,created_at,reply_count\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Export(tt.rs, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestExportDetailedJSON(t *testing.T) {
	got, err := Export(detailedResult(), FormatJSON)
	require.NoError(t, err)

	assert.Contains(t, string(got), "<b>line</b>", "HTML must not be escaped")

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(got, &decoded))
	require.Len(t, decoded, 2)

	first := decoded[0]
	assert.Equal(t, "1", first["id"])
	assert.Equal(t, "alice", first["username"])
	assert.EqualValues(t, 3, first["like_count"])
	assert.EqualValues(t, 1700000000, first["created_at"])
	replies := first["replies"].([]interface{})
	require.Len(t, replies, 1)
	reply := replies[0].(map[string]interface{})
	assert.Equal(t, "bob", reply["username"])
	assert.EqualValues(t, 1700000060, reply["created_at"])
	assert.NotContains(t, reply, "replies")

	second := decoded[1]
	assert.Equal(t, []interface{}{}, second["replies"], "replies is always present")
}

func TestExportDetailedCSV(t *testing.T) {
	got, err := Export(detailedResult(), FormatCSV)
	require.NoError(t, err)

	want := "id,username,text,like_count,created_at,reply_count\n" +
		"1,alice,first <b>line</b> second line,3,1700000000,1\n" +
		"2,carol,\"hi, \"\"there\"\"\",0,1700000000,0\n"
	assert.Equal(t, want, string(got))
}

func TestExportDetailedTXT(t *testing.T) {
	got, err := Export(detailedResult(), FormatTXT)
	require.NoError(t, err)

	want := "@alice: first <b>line</b>\nsecond line  (likes=3)\n" +
		"  ↳ @bob: agreed (likes=1)\n" +
		"@carol: hi, \"there\" (likes=0)\n"
	assert.Equal(t, want, string(got))
}

func TestExportIsDeterministic(t *testing.T) {
	for _, rs := range []*comments.ResultSet{usernamesResult("b", "a"), detailedResult()} {
		for _, format := range []FileFormat{FormatJSON, FormatCSV, FormatTXT} {
			first, err := Export(rs, format)
			require.NoError(t, err)
			second, err := Export(rs, format)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(first, second), "%s/%s differs between runs", rs.Format, format)
		}
	}
}

func TestExportZeroCreatedAt(t *testing.T) {
	rs := &comments.ResultSet{
		Format:  comments.FormatDetailed,
		Records: []comments.CommentRecord{{ID: "1", Username: "a"}},
	}
	got, err := Export(rs, FormatCSV)
	require.NoError(t, err)
	assert.Contains(t, string(got), "1,a,,0,0,0\n")
}

func TestExportErrors(t *testing.T) {
	_, err := Export(nil, FormatJSON)
	assert.Error(t, err)

	_, err = Export(usernamesResult("a"), FileFormat("xml"))
	assert.Error(t, err)

	_, err = Export(&comments.ResultSet{Format: "weird"}, FormatJSON)
	assert.Error(t, err)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteTo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, usernamesResult("a"), FormatTXT))
	assert.Equal(t, "a\n", buf.String())

	err := WriteTo(failingWriter{}, usernamesResult("a"), FormatTXT)
	assert.ErrorContains(t, err, "disk full")
}

func TestSortUsernames(t *testing.T) {
	in := []string{"bob", "Alice", "alice", "Carl", "aaron"}
	got := SortUsernames(in)

	assert.Equal(t, []string{"aaron", "Alice", "alice", "bob", "Carl"}, got)
	assert.Equal(t, []string{"bob", "Alice", "alice", "Carl", "aaron"}, in, "input must not be modified")
}
