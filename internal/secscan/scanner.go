// Package secscan detects credential-shaped substrings in snippet content.
//
// Detection is an ordered list of independent regular-expression patterns;
// each pattern contributes at most one finding kind regardless of how many
// times it matches. The result is deterministic: identical input always
// yields identical output. Findings are a best-effort advisory signal for
// the display layer's masking policy, never a confidentiality control, and
// the scanner never mutates content.
package secscan

import (
	"regexp"

	"github.com/snipvault/snipvault/internal/cryptox"
)

// Kind classifies a detected credential shape.
type Kind string

const (
	KindAPIKey       Kind = "api_key"
	KindAWSAccessKey Kind = "aws_access_key"
	KindGoogleAPIKey Kind = "google_api_key"
	KindGitHubToken  Kind = "github_token"
	KindSlackToken   Kind = "slack_token"
	KindDatabaseURL  Kind = "database_url"
	KindJWTToken     Kind = "jwt_token"
	KindPrivateKey   Kind = "private_key"
	KindBasicAuthURL Kind = "basic_auth_url"
	KindGenericToken Kind = "generic_secret"
)

type pattern struct {
	kind Kind
	re   *regexp.Regexp
}

// patterns is evaluated in order; order is stable so findings are too.
var patterns = []pattern{
	{KindAWSAccessKey, regexp.MustCompile(`\b(AKIA|ASIA)[0-9A-Z]{16}\b`)},
	{KindGoogleAPIKey, regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{35}\b`)},
	{KindGitHubToken, regexp.MustCompile(`\bgh[pousr]_[0-9A-Za-z]{36,}\b`)},
	{KindSlackToken, regexp.MustCompile(`\bxox[baprs]-[0-9A-Za-z\-]{10,}\b`)},
	{KindPrivateKey, regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY(?: BLOCK)?-----`)},
	{KindJWTToken, regexp.MustCompile(`\beyJ[0-9A-Za-z_\-]{8,}\.[0-9A-Za-z_\-]{8,}\.[0-9A-Za-z_\-]*\b`)},
	{KindDatabaseURL, regexp.MustCompile(`\b(?:postgres(?:ql)?|mysql|mongodb(?:\+srv)?|redis|amqps?)://[^:/\s]+:[^@\s]+@[^\s]+`)},
	{KindBasicAuthURL, regexp.MustCompile(`\bhttps?://[^:/\s]+:[^@\s]+@[^\s]+`)},
	{KindAPIKey, regexp.MustCompile(`(?i)\b(?:api[_\-]?key|apikey|access[_\-]?token)["'\s]*[:=]["'\s]*[0-9A-Za-z_\-]{16,}`)},
	{KindGenericToken, regexp.MustCompile(`(?i)\b(?:secret|password|passwd)["'\s]*[:=]["'\s]*\S{8,}`)},
}

// Result is the outcome of scanning one content version.
type Result struct {
	// Findings holds at most one entry per pattern, in pattern order.
	Findings []Kind

	// ContentHash is the hex SHA-256 of the scanned content. Version
	// counters bump only when this changes.
	ContentHash string
}

// ContainsSensitiveData reports whether any pattern matched.
func (r Result) ContainsSensitiveData() bool {
	return len(r.Findings) > 0
}

// Has reports whether the result contains the given finding kind.
func (r Result) Has(kind Kind) bool {
	for _, k := range r.Findings {
		if k == kind {
			return true
		}
	}
	return false
}

// Scan classifies text against the pattern table and hashes it.
func Scan(text string) Result {
	r := Result{ContentHash: cryptox.Hash([]byte(text))}
	for _, p := range patterns {
		if p.re.MatchString(text) {
			r.Findings = append(r.Findings, p.kind)
		}
	}
	return r
}
