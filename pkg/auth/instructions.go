package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCookieExtractionGuide writes step-by-step instructions for copying the
// four session cookies out of a logged-in browser
func ShowCookieExtractionGuide(w io.Writer) {
	line := strings.Repeat("=", 80)
	p := func(s string) { fmt.Fprintln(w, s) }

	p(line)
	p("📚 INSTAGRAM COOKIE EXTRACTION GUIDE")
	p(line)
	p("")
	p("instacomments reads comments through your logged-in browser session.")
	p("Copy four cookies from your browser and expose them as environment variables.")
	p("")

	p("🌐 STEP 1: Open Instagram in your browser")
	p("   - Go to https://www.instagram.com and log in")
	p("")

	p("🔧 STEP 2: Open Developer Tools")
	p("   • Chrome/Edge/Brave/Firefox: F12 or Ctrl+Shift+I (Cmd+Option+I on Mac)")
	p("   • Safari: enable the Develop menu in Preferences, then Cmd+Option+I")
	p("")

	p("🍪 STEP 3: Open the cookie list")
	p("   1. Go to the 'Application' tab (Chrome) or 'Storage' tab (Firefox)")
	p("   2. Expand 'Cookies' and select 'https://www.instagram.com'")
	p("")

	p("🔑 STEP 4: Copy these values")
	p("   ┌─────────────┬─────────────┬──────────────────────────────────────┐")
	p("   │ Cookie      │ Variable    │ What it looks like                   │")
	p("   ├─────────────┼─────────────┼──────────────────────────────────────┤")
	p("   │ sessionid   │ SESSIONID   │ Long string with %3A in it           │")
	p("   │ ds_user_id  │ DS_USER_ID  │ Numeric account id                   │")
	p("   │ csrftoken   │ CSRFTOKEN   │ 32-character string                  │")
	p("   │ mid         │ MID         │ Short opaque device id               │")
	p("   └─────────────┴─────────────┴──────────────────────────────────────┘")
	p("")

	p("📝 STEP 5: Make them available")
	p("   • Put them in a .env file next to where you run the tool:")
	p("       SESSIONID=...")
	p("       DS_USER_ID=...")
	p("       CSRFTOKEN=...")
	p("       MID=...")
	p("   • Or save them once with: instacomments auth save")
	p("")

	p("⚠️  SECURITY WARNING:")
	p("   • These cookies give FULL access to your Instagram account")
	p("   • NEVER share them or commit your .env file")
	p("")
	p(line)
}

// ShowQuickExtractGuide writes a condensed version for experienced users
func ShowQuickExtractGuide(w io.Writer) {
	fmt.Fprintln(w, "\n🍪 Quick Guide: F12 → Application → Cookies → https://www.instagram.com")
	fmt.Fprintln(w, "   Need: sessionid, ds_user_id, csrftoken and mid")
	fmt.Fprintln(w, "   Run 'instacomments auth guide' for detailed instructions")
}
