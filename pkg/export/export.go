package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"instacomments/pkg/comments"
)

// FileFormat is the on-disk encoding of an export
type FileFormat string

const (
	FormatJSON FileFormat = "json"
	FormatCSV  FileFormat = "csv"
	FormatTXT  FileFormat = "txt"
)

// ParseFileFormat validates a file format flag value
func ParseFileFormat(s string) (FileFormat, error) {
	switch FileFormat(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatTXT:
		return FormatTXT, nil
	default:
		return "", fmt.Errorf("unknown file format %q (want json, csv or txt)", s)
	}
}

// FormatFromPath infers the file format from the output file extension
func FormatFromPath(path string) (FileFormat, bool) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", false
	}
	f, err := ParseFileFormat(ext)
	if err != nil {
		return "", false
	}
	return f, true
}

// Extension returns the file extension for a format, without the dot
func (f FileFormat) Extension() string {
	return string(f)
}

type replyJSON struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	LikeCount int    `json:"like_count"`
	CreatedAt int64  `json:"created_at"`
}

type recordJSON struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Text      string      `json:"text"`
	LikeCount int         `json:"like_count"`
	CreatedAt int64       `json:"created_at"`
	Replies   []replyJSON `json:"replies"`
}

// Export renders rs in the given file format
func Export(rs *comments.ResultSet, format FileFormat) ([]byte, error) {
	if rs == nil {
		return nil, fmt.Errorf("nothing to export")
	}

	var buf bytes.Buffer
	var err error

	switch rs.Format {
	case comments.FormatUsernames:
		err = writeUsernames(&buf, rs.Usernames, format)
	case comments.FormatDetailed:
		err = writeDetailed(&buf, rs.Records, format)
	default:
		err = fmt.Errorf("unknown data format %q", rs.Format)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo renders rs and writes it to w in one call
func WriteTo(w io.Writer, rs *comments.ResultSet, format FileFormat) error {
	data, err := Export(rs, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// SortUsernames returns a case-insensitively sorted copy of names
func SortUsernames(names []string) []string {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := strings.ToLower(sorted[i]), strings.ToLower(sorted[j])
		if a == b {
			return sorted[i] < sorted[j]
		}
		return a < b
	})
	return sorted
}

func writeUsernames(buf *bytes.Buffer, names []string, format FileFormat) error {
	if names == nil {
		names = []string{}
	}

	switch format {
	case FormatJSON:
		return encodeJSON(buf, names)
	case FormatTXT:
		for _, name := range names {
			buf.WriteString(name)
			buf.WriteByte('\n')
		}
		return nil
	case FormatCSV:
		w := csv.NewWriter(buf)
		_ = w.Write([]string{"username"})
		for _, name := range names {
			_ = w.Write([]string{name})
		}
		w.Flush()
		return w.Error()
	default:
		return fmt.Errorf("unknown file format %q", format)
	}
}

func writeDetailed(buf *bytes.Buffer, records []comments.CommentRecord, format FileFormat) error {
	switch format {
	case FormatJSON:
		out := make([]recordJSON, 0, len(records))
		for _, r := range records {
			out = append(out, toJSON(r))
		}
		return encodeJSON(buf, out)
	case FormatTXT:
		for _, r := range records {
			fmt.Fprintf(buf, "@%s: %s (likes=%d)\n", r.Username, r.Text, r.LikeCount)
			for _, reply := range r.Replies {
				fmt.Fprintf(buf, "  ↳ @%s: %s (likes=%d)\n", reply.Username, reply.Text, reply.LikeCount)
			}
		}
		return nil
	case FormatCSV:
		w := csv.NewWriter(buf)
		_ = w.Write([]string{"id", "username", "text", "like_count", "created_at", "reply_count"})
		for _, r := range records {
			_ = w.Write([]string{
				r.ID,
				r.Username,
				flattenText(r.Text),
				strconv.Itoa(r.LikeCount),
				strconv.FormatInt(unixSeconds(r.CreatedAt), 10),
				strconv.Itoa(len(r.Replies)),
			})
		}
		w.Flush()
		return w.Error()
	default:
		return fmt.Errorf("unknown file format %q", format)
	}
}

func toJSON(r comments.CommentRecord) recordJSON {
	replies := make([]replyJSON, 0, len(r.Replies))
	for _, reply := range r.Replies {
		replies = append(replies, replyJSON{
			ID:        reply.ID,
			Username:  reply.Username,
			Text:      reply.Text,
			LikeCount: reply.LikeCount,
			CreatedAt: unixSeconds(reply.CreatedAt),
		})
	}
	return recordJSON{
		ID:        r.ID,
		Username:  r.Username,
		Text:      r.Text,
		LikeCount: r.LikeCount,
		CreatedAt: unixSeconds(r.CreatedAt),
		Replies:   replies,
	}
}

func encodeJSON(buf *bytes.Buffer, v interface{}) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// flattenText keeps one CSV row per comment
func flattenText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.TrimSpace(s)
}

func unixSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
