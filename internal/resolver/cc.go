package resolver

import "strings"

// CCBuilder assembles the CC list for a draft: the standing CC addresses
// first, then the account handler's address when the handler is known.
type CCBuilder struct {
	always   []string
	handlers map[string]string
}

// NewCCBuilder takes the standing CC list and the handler-name to email map.
// Handler keys are matched case-insensitively.
func NewCCBuilder(always []string, handlerEmails map[string]string) *CCBuilder {
	b := &CCBuilder{handlers: make(map[string]string, len(handlerEmails))}
	for _, a := range always {
		if a = strings.TrimSpace(a); a != "" {
			b.always = append(b.always, a)
		}
	}
	for name, email := range handlerEmails {
		b.handlers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(email)
	}
	return b
}

// Build returns the CC list for the given handler plus any extras, deduped
// case-insensitively with first occurrence winning. Unexpanded template
// tokens (anything containing "{") are dropped rather than sent.
func (b *CCBuilder) Build(handler string, extra ...string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(addr string) {
		addr = strings.TrimSpace(addr)
		if addr == "" || strings.Contains(addr, "{") {
			return
		}
		key := strings.ToLower(addr)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, addr)
	}

	for _, a := range b.always {
		add(a)
	}
	if email, ok := b.handlers[strings.ToLower(strings.TrimSpace(handler))]; ok {
		add(email)
	}
	for _, a := range extra {
		add(a)
	}
	return out
}
