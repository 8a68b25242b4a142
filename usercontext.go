package identitypool

// userContextData returns the advisory-security payload for username, or
// the empty string when the pool has no hook configured. Per the Open
// Question decision in DESIGN.md, the UserContextData field is omitted
// entirely from the request body in that case rather than sent empty —
// callers map "" to "don't set this field" when building the request body.
func (p *Pool) userContextData(username string) string {
	if p.UserContextDataHook == nil {
		return ""
	}
	data := p.UserContextDataHook(username)
	if len(data) == 0 {
		return ""
	}
	return string(data)
}
