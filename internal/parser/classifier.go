package parser

import (
	"regexp"

	"github.com/rxlab/tempmail/pkg/models"
)

// Classification is the outcome of inspecting a message's subject and body.
type Classification struct {
	Type string // models.TypeNormal or models.TypeOTP
	Code string // extracted code, empty unless Type is otp
}

// Classifier decides whether a message carries a one-time passcode.
// Implementations must be pure: identical inputs yield identical results.
type Classifier interface {
	Classify(subject, textBody, htmlBody string) Classification
}

// RegexClassifier classifies messages with keyword and digit-run heuristics.
type RegexClassifier struct {
	intentRegex *regexp.Regexp
	codeRegex   *regexp.Regexp
}

// NewRegexClassifier creates the default classifier
func NewRegexClassifier() *RegexClassifier {
	return &RegexClassifier{
		// OTP intent keywords, matched anywhere in subject+body
		intentRegex: regexp.MustCompile(`(?i)otp|verification|code|verify|confirm`),
		// A word of 4 to 8 decimal digits. Longer runs never match:
		// both \b anchors fall inside the run.
		codeRegex: regexp.MustCompile(`\b\d{4,8}\b`),
	}
}

// Classify picks the body (text preferred, HTML fallback), detects OTP
// intent over subject and body, and extracts the first 4-8 digit run from
// the body. A digit run without intent keywords is discarded.
func (c *RegexClassifier) Classify(subject, textBody, htmlBody string) Classification {
	body := textBody
	if body == "" {
		body = htmlBody
	}

	result := Classification{Type: models.TypeNormal}
	if !c.intentRegex.MatchString(subject + " " + body) {
		return result
	}

	result.Type = models.TypeOTP
	result.Code = c.codeRegex.FindString(body)
	return result
}
