package smtpserver

import "strings"

// RecipientPolicy decides which destination addresses the intake accepts.
type RecipientPolicy struct {
	domains map[string]struct{}
}

// NewRecipientPolicy creates a policy from an allow-list of domains
func NewRecipientPolicy(domains []string) *RecipientPolicy {
	allowed := make(map[string]struct{}, len(domains))
	for _, domain := range domains {
		allowed[domain] = struct{}{}
	}
	return &RecipientPolicy{domains: allowed}
}

// Accept reports whether the domain portion of the address (after the last
// "@") exactly matches an allow-list entry. Matching is case-sensitive.
func (p *RecipientPolicy) Accept(address string) bool {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return false
	}
	_, ok := p.domains[address[at+1:]]
	return ok
}
