package mock

import "github.com/fwojciec/legalaudit"

var _ legalaudit.LinkFinder = (*LinkFinder)(nil)

// LinkFinder is a mock implementation of legalaudit.LinkFinder.
type LinkFinder struct {
	FindCandidateLinkFn func(html, origin string, tails []string, opts legalaudit.LinkOptions) (string, error)
}

func (f *LinkFinder) FindCandidateLink(html, origin string, tails []string, opts legalaudit.LinkOptions) (string, error) {
	return f.FindCandidateLinkFn(html, origin, tails, opts)
}
