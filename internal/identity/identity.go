// Package identity resolves author emails to canonical person names.
package identity

import "strings"

// Resolver maps lowercased author emails to canonical person names.
// Built once from config; read-only thereafter.
type Resolver struct {
	emailToPerson map[string]string
}

// NewResolver builds a resolver from the config email mapping
// (person name -> list of emails). Emails are matched case-insensitively.
func NewResolver(mapping map[string][]string) *Resolver {
	emailToPerson := make(map[string]string)

	for person, emails := range mapping {
		for _, email := range emails {
			emailToPerson[strings.ToLower(email)] = person
		}
	}

	return &Resolver{emailToPerson: emailToPerson}
}

// Resolve returns the canonical person name for an author email. Unmapped
// emails fall back to the commit's original display name.
func (r *Resolver) Resolve(email, displayName string) string {
	if person, ok := r.emailToPerson[strings.ToLower(email)]; ok {
		return person
	}

	return displayName
}

// Mapped reports whether an email has a canonical person mapping.
func (r *Resolver) Mapped(email string) bool {
	_, ok := r.emailToPerson[strings.ToLower(email)]

	return ok
}

// Len returns the number of mapped emails.
func (r *Resolver) Len() int {
	return len(r.emailToPerson)
}
