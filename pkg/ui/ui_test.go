package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"instacomments/pkg/comments"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	SetNoColor(true)
	t.Cleanup(func() {
		restore()
		SetNoColor(false)
	})
	return &buf
}

func TestPrintHelpers(t *testing.T) {
	buf := captureOutput(t)

	PrintError("Failed to write output", errors.New("disk full"))
	PrintWarning("Replies incomplete")
	PrintSuccess("Saved 3 records")
	PrintInfo("Output", "listComments.json")

	assert.Equal(t, "Failed to write output: disk full\nReplies incomplete\nSaved 3 records\nOutput: listComments.json\n", buf.String())
}

func TestPrintQuickStart(t *testing.T) {
	buf := captureOutput(t)
	PrintQuickStart()

	for _, want := range []string{"--url", "--data-format", "--no-dedupe", "SESSIONID", "auth guide"} {
		assert.Contains(t, buf.String(), want)
	}
}

func TestColorizeNoColor(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)
	assert.Equal(t, "plain", Cyan("plain"))
}

func TestProgressDisplayLines(t *testing.T) {
	var buf bytes.Buffer
	d := NewProgressDisplay(&buf, "Cabc", false)

	d.OnPage(comments.Progress{Shortcode: "Cabc", Page: 1, Comments: 2, HasNext: true})
	d.OnWarning(comments.Warning{ParentID: "17", Username: "bob", Fetched: 2, Err: errors.New("rate limited")})
	d.OnPage(comments.Progress{Shortcode: "Cabc", Page: 2, Comments: 5})
	d.OnDone(comments.Progress{Shortcode: "Cabc", Page: 2, Comments: 5}, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 5)
	assert.Contains(t, lines[0], "Cabc")
	assert.Contains(t, lines[0], "2 comments")
	assert.Contains(t, lines[0], "page 1")
	assert.Contains(t, lines[1], "comment 17")
	assert.Contains(t, lines[2], "1 warnings")
	assert.Contains(t, lines[2], "done")
	assert.Contains(t, lines[3], "Collected 5 comments from 2 pages")
	assert.Contains(t, lines[4], "1 parents with incomplete replies")
}

func TestProgressDisplayWithCap(t *testing.T) {
	var buf bytes.Buffer
	d := NewProgressDisplay(&buf, "Cabc", false)

	d.OnPage(comments.Progress{Page: 1, Comments: 3, Max: 10, HasNext: true})
	assert.Contains(t, buf.String(), "3/10")
	assert.Contains(t, buf.String(), "30%")
}

func TestProgressDisplayInteractiveRedraw(t *testing.T) {
	var buf bytes.Buffer
	d := NewProgressDisplay(&buf, "Cabc", true)

	d.OnPage(comments.Progress{Page: 1, Comments: 50, HasNext: true})
	d.OnPage(comments.Progress{Page: 2, Comments: 9, HasNext: true})
	assert.Equal(t, 2, strings.Count(buf.String(), "\r"))
	assert.NotContains(t, buf.String(), "\n")

	d.OnDone(comments.Progress{Page: 2, Comments: 9}, errors.New("rate limited"))
	assert.Contains(t, buf.String(), "\n")
	assert.Contains(t, buf.String(), "Stopped after 2 pages with 9 comments")
}

func TestProgressDisplayRedrawIgnoresColorCodes(t *testing.T) {
	var buf bytes.Buffer
	d := NewProgressDisplay(&buf, "Cabc", true)

	d.redraw(strings.Repeat("x", 30))
	assert.Equal(t, 30, d.lineWidth)

	colored := "\x1b[38;5;86m" + strings.Repeat("y", 20) + "\x1b[0m"
	buf.Reset()
	d.redraw(colored)

	assert.Equal(t, "\r"+colored+strings.Repeat(" ", 10), buf.String())
	assert.Equal(t, 20, d.lineWidth)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "5s", formatDuration(5*time.Second))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h1m", formatDuration(61*time.Minute))
}

func TestProgressDisplayIsSink(t *testing.T) {
	var _ comments.ProgressSink = NewProgressDisplay(&bytes.Buffer{}, "x", false)
}
