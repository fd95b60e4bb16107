package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ASCII logo for the application
const ASCIILogo = `
    ╔════════════════════════════════════════════╗
    ║   ┳┳┓┏┓┏┳┓┏┓  ┏┓┏┓┳┳┓┳┳┓┏┓┳┓┏┳┓┏┓           ║
    ║   ┃┃┃┗┓ ┃ ┣┫  ┃ ┃┃┃┃┃┃┃┃┣ ┃┃ ┃ ┗┓           ║
    ║   ┻┛┗┗┛ ┻ ┛┗  ┗┛┗┛┛ ┗┛ ┗┗┛┛┗ ┻ ┗┛           ║
    ║     comment export for reels and posts     ║
    ╚════════════════════════════════════════════╝
`

var (
	out     io.Writer = os.Stdout
	noColor bool

	cyanStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFFF"))
	yellowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00"))
	redStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF3131")).Bold(true)
	greenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#39FF14"))
	magentaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF00FF"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
)

// Color functions for terminal output
var (
	Cyan    = colorize(cyanStyle)
	Yellow  = colorize(yellowStyle)
	Red     = colorize(redStyle)
	Green   = colorize(greenStyle)
	Magenta = colorize(magentaStyle)
	Dim     = colorize(dimStyle)
)

func colorize(style lipgloss.Style) func(string) string {
	return func(text string) string {
		if noColor {
			return text
		}
		return style.Render(text)
	}
}

// SetOutput redirects all ui output and returns a func restoring the previous writer
func SetOutput(w io.Writer) func() {
	prev := out
	out = w
	return func() { out = prev }
}

// Output returns the writer ui output goes to
func Output() io.Writer {
	return out
}

// SetNoColor disables styling, e.g. for --no-color or non-terminal output
func SetNoColor(disabled bool) {
	noColor = disabled
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Fprint(out, Cyan(ASCIILogo))
}

// PrintQuickStart prints the usage guide shown when no URL was given
func PrintQuickStart() {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(out, line)
	fmt.Fprintln(out, " instacomments: Instagram comment exporter")
	fmt.Fprintln(out, line)
	fmt.Fprintln(out, `Quick start:
    instacomments --url https://www.instagram.com/reel/SHORT/

Popular options:
    --data-format usernames|detailed   Data shape to export (default: usernames)
    --file-format json|csv|txt         Output format (default: json or from --output)
    --output PATH                      Output file path (default: listComments.json)
    --per-page N                       Comments per page (default: 50)
    --max-comments N                   Stop after N parent comments
    --min-likes N                      Only include comments with at least N likes
    --include-replies                  Include replies for each parent comment
    --dedupe/--no-dedupe               Toggle duplicate removal (default: dedupe)
    --no-progress                      Disable progress output

Examples:
    instacomments --url https://www.instagram.com/p/SHORT/ --file-format csv --output out/usernames.csv
    instacomments --url https://www.instagram.com/reel/SHORT/ --data-format detailed --include-replies --min-likes 5 --max-comments 200

Credentials come from SESSIONID, DS_USER_ID, CSRFTOKEN and MID (a .env file works).
Run 'instacomments auth guide' to learn how to copy them from your browser.`)
	fmt.Fprintln(out, line)
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(out, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(out, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(out, Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	fmt.Fprintf(out, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(out, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(out, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(out, Magenta(msg))
}
