package legalaudit

import "strings"

// LinkOptions tunes candidate link selection.
type LinkOptions struct {
	// SameHostOnly restricts candidates to the origin's hostname.
	SameHostOnly bool
}

// LinkFinder locates links to legal pages in a site's home page.
type LinkFinder interface {
	// FindCandidateLink returns the first anchor, in document order, whose
	// absolute URL matches one of tails. Relative hrefs are resolved
	// against origin. Returns "" when nothing matches.
	FindCandidateLink(html, origin string, tails []string, opts LinkOptions) (string, error)
}

// MatchesTails reports whether url, lower-cased, contains "/<tail>" for any
// of tails.
func MatchesTails(url string, tails []string) bool {
	low := strings.ToLower(url)
	for _, t := range tails {
		if t == "" {
			continue
		}
		if strings.Contains(low, "/"+strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// PolicyKind identifies a category of legal page.
type PolicyKind string

// Supported policy kinds.
const (
	PolicyPrivacy PolicyKind = "privacy"
	PolicyTerms   PolicyKind = "terms"
	PolicyCookies PolicyKind = "cookies"
)

// DefaultPolicyKinds lists the kinds audited when a caller names none.
func DefaultPolicyKinds() []PolicyKind {
	return []PolicyKind{PolicyPrivacy, PolicyTerms, PolicyCookies}
}

// Tails returns the URL path fragments that identify pages of this kind.
func (k PolicyKind) Tails() []string {
	switch k {
	case PolicyPrivacy:
		return []string{"privacy", "privacy-policy", "aviso-de-privacidad", "politica-de-privacidad", "privacidad"}
	case PolicyTerms:
		return []string{"terms", "terms-of-service", "terms-and-conditions", "tos", "terminos", "condiciones"}
	case PolicyCookies:
		return []string{"cookies", "cookie-policy", "politica-de-cookies"}
	}
	return nil
}

// Template returns the reference template file name for this kind.
func (k PolicyKind) Template() string {
	switch k {
	case PolicyPrivacy:
		return "PP.pdf"
	case PolicyTerms:
		return "TOS.pdf"
	case PolicyCookies:
		return "CS.pdf"
	}
	return ""
}

// Validate returns an error if the kind is not supported.
func (k PolicyKind) Validate() error {
	if k.Template() == "" {
		return Errorf(EINVALID, "unknown policy kind %q", string(k))
	}
	return nil
}
