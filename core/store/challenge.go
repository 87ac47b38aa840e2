package store

// ChallengeInfo is one pending ACME challenge: the token the CA will
// request, the response that proves control, and the domains the parent
// order covers. For HTTP-01 the token is the raw challenge token; for
// DNS-01 it is the derived TXT record value.
type ChallengeInfo struct {
	Token    string   `json:"token"`
	Response string   `json:"response"`
	Domains  []string `json:"domains"`
}

// RemoveByToken returns the entries of haystack whose token does not
// appear in the removal set. Backends implement DeleteChallenges with it
// so delete semantics stay uniform across storage engines.
func RemoveByToken(haystack, remove []ChallengeInfo) []ChallengeInfo {
	removed := make(map[string]struct{}, len(remove))
	for _, c := range remove {
		removed[c.Token] = struct{}{}
	}

	kept := make([]ChallengeInfo, 0, len(haystack))
	for _, c := range haystack {
		if _, ok := removed[c.Token]; !ok {
			kept = append(kept, c)
		}
	}
	return kept
}
