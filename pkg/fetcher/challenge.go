package fetcher

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// interstitialTextLimit is the visible text size below which a page carrying
// a captcha widget is treated as a challenge rather than a normal page that
// happens to embed one (newsletter or login forms).
const interstitialTextLimit = 1500

// DetectChallenge reports the kind of anti-bot interstitial the document
// is, or "" for a normal page.
func DetectChallenge(html string) string {
	htmlLower := strings.ToLower(html)

	title := ""
	textLen := len(html)
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		title = strings.ToLower(strings.TrimSpace(doc.Find("title").First().Text()))
		textLen = len(strings.Join(strings.Fields(doc.Find("body").Text()), " "))
	}
	sparse := textLen < interstitialTextLimit

	switch {
	case strings.Contains(title, "just a moment"),
		strings.Contains(title, "attention required"),
		strings.Contains(htmlLower, "cf-challenge"),
		strings.Contains(htmlLower, "cf_chl_opt"):
		return "cloudflare"
	case sparse && (strings.Contains(htmlLower, "challenges.cloudflare.com/turnstile") ||
		strings.Contains(htmlLower, "cf-turnstile")):
		return "cloudflare-turnstile"
	case sparse && (strings.Contains(htmlLower, "hcaptcha.com") ||
		strings.Contains(htmlLower, "h-captcha")):
		return "hcaptcha"
	case sparse && (strings.Contains(htmlLower, "google.com/recaptcha") ||
		strings.Contains(htmlLower, "g-recaptcha")):
		return "recaptcha"
	case strings.Contains(title, "access denied"),
		strings.Contains(title, "acesso negado"),
		strings.Contains(title, "bot detection"),
		strings.Contains(htmlLower, "robot or human"):
		return "anti-bot"
	}
	return ""
}
