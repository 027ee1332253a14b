package synth

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// UnknownCompany is used when no company can be read from a request.
const UnknownCompany = "UnknownCompany"

var (
	notCompanyChar   = regexp.MustCompile(`[^A-Za-z0-9\-]`)
	pronounsAfterFor = map[string]struct{}{"me": {}, "us": {}, "that": {}, "this": {}}

	competitorHints = map[string][]string{
		"zoom":   {"Microsoft Teams", "Google Meet", "Cisco Webex"},
		"openai": {"Anthropic", "Cohere", "Google DeepMind"},
		"tesla":  {"Ford", "GM", "BYD"},
		"meta":   {"Google", "Snap", "TikTok"},
	}
)

// ExtractCompany takes the word after a literal "for" (unless it is a
// pronoun), else the last word, and keeps only letters, digits and hyphens.
func ExtractCompany(message string) string {
	words := strings.Fields(message)
	if len(words) == 0 {
		return UnknownCompany
	}
	for i, w := range words {
		if w != "for" {
			continue
		}
		if i+1 < len(words) {
			candidate := strings.Trim(words[i+1], ".,!?")
			if _, skip := pronounsAfterFor[strings.ToLower(candidate)]; !skip {
				return cleanCompany(candidate)
			}
		}
		break
	}
	return cleanCompany(strings.Trim(words[len(words)-1], ".,!?"))
}

func cleanCompany(word string) string {
	if c := notCompanyChar.ReplaceAllString(word, ""); c != "" {
		return c
	}
	return UnknownCompany
}

// Competitors returns known rivals of company, if any.
func Competitors(company string) []string {
	return competitorHints[strings.ToLower(company)]
}

func seedURLs(company string) []string {
	return []string{
		fmt.Sprintf("https://%s.com", company),
		fmt.Sprintf("https://www.%s.com", company),
		fmt.Sprintf("https://en.wikipedia.org/wiki/%s", company),
	}
}

func deeperURLs(topic, lastQuery string) []string {
	q := url.QueryEscape(topic) + "+" + url.QueryEscape(lastQuery)
	return []string{
		"https://www.google.com/search?q=" + q,
		"https://news.google.com/search?q=" + q,
	}
}
