package redact

import "regexp"

// Rule is one built-in or user-supplied redaction rule: a compiled regex
// plus the name used in `[REDACTED_<RULE>]` markers and per-rule counts.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	// MinConfidence groups the rule into fast (always applied) vs
	// standard-or-above tiers, per spec.md §4.4's mode ladder.
	Tier RuleTier
}

// RuleTier orders rules by how confident a match is, mirroring the
// fast < standard < paranoid mode ladder in spec.md §4.4.
type RuleTier int

const (
	TierFast RuleTier = iota
	TierStandard
)

// builtinRules are applied in the fixed order given here — order is
// stable across runs, as spec.md §4.4 requires.
var builtinRules = []Rule{
	{Name: "AWS_ACCESS_KEY", Pattern: regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`), Tier: TierFast},
	{Name: "AWS_SECRET_KEY", Pattern: regexp.MustCompile(`(?i)aws_secret_access_key\s*[:=]\s*['"]?[A-Za-z0-9/+=]{40}['"]?`), Tier: TierFast},
	{Name: "GITHUB_TOKEN", Pattern: regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`), Tier: TierFast},
	{Name: "GOOGLE_API_KEY", Pattern: regexp.MustCompile(`\bAIza[0-9A-Za-z\-_]{35}\b`), Tier: TierFast},
	{Name: "SLACK_TOKEN", Pattern: regexp.MustCompile(`\bxox[baprs]-[0-9A-Za-z-]{10,48}\b`), Tier: TierFast},
	{Name: "STRIPE_KEY", Pattern: regexp.MustCompile(`\b(?:sk|pk|rk)_(?:live|test)_[0-9A-Za-z]{16,}\b`), Tier: TierFast},
	{Name: "PRIVATE_KEY_BLOCK", Pattern: regexp.MustCompile(`(?s)-----BEGIN (?:RSA |EC |OPENSSH |DSA |)PRIVATE KEY-----.*?-----END (?:RSA |EC |OPENSSH |DSA |)PRIVATE KEY-----`), Tier: TierFast},
	{Name: "JWT", Pattern: regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\b`), Tier: TierFast},
	{Name: "URL_CREDENTIALS", Pattern: regexp.MustCompile(`\b[a-zA-Z][a-zA-Z0-9+.-]*://[^\s/@]+:[^\s/@]+@`), Tier: TierFast},
	{Name: "GENERIC_BEARER_TOKEN", Pattern: regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._\-]{20,}\b`), Tier: TierStandard},
	{Name: "GENERIC_API_KEY_ASSIGNMENT", Pattern: regexp.MustCompile(`(?i)\b(api[_-]?key|secret|token|password)\b\s*[:=]\s*['"]([A-Za-z0-9_\-/+=]{16,})['"]`), Tier: TierStandard},
	{Name: "HIGH_ENTROPY_BASE64", Pattern: regexp.MustCompile(`\b[A-Za-z0-9+/]{32,}={0,2}\b`), Tier: TierStandard},
}
