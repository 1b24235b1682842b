// internal/middleware/policy.go
package middleware

import (
	"net/http"
	"strings"
)

// Access says how the auth gate treats a request.
type Access int

const (
	// AccessDefault: a Bearer token, if sent, must be valid or the request is
	// rejected; without one the request continues anonymously.
	AccessDefault Access = iota
	// AccessPublic: the token is never checked.
	AccessPublic
	// AccessOptional: never rejected by the gate, but a valid Bearer token
	// still attaches its identity.
	AccessOptional
	// AccessRequired: like AccessDefault, and the route itself refuses
	// requests that end up without an identity.
	AccessRequired
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessOptional:
		return "optional"
	case AccessRequired:
		return "required"
	default:
		return "default"
	}
}

// AnyMethod matches every HTTP method in a Rule.
const AnyMethod = "*"

// Rule maps (method, path pattern) to an access level. A pattern ending in
// "/**" matches the prefix and everything below it; "/**" alone matches all paths.
type Rule struct {
	Method  string
	Pattern string
	Access  Access
}

func (r Rule) matches(method, path string) bool {
	if r.Method != AnyMethod && !strings.EqualFold(r.Method, method) {
		return false
	}
	if prefix, ok := strings.CutSuffix(r.Pattern, "/**"); ok {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	return path == r.Pattern
}

// Policy is an ordered rule list; the first match wins.
type Policy struct {
	rules []Rule
}

func NewPolicy(rules ...Rule) *Policy {
	return &Policy{rules: append([]Rule(nil), rules...)}
}

// Lookup returns the access level for a request.
func (p *Policy) Lookup(method, path string) Access {
	for _, r := range p.rules {
		if r.matches(method, path) {
			return r.Access
		}
	}
	return AccessDefault
}

// Rules returns a copy of the rule list.
func (p *Policy) Rules() []Rule {
	return append([]Rule(nil), p.rules...)
}

// DefaultPolicy is the access table for the public API. Both the auth gate and
// the router read it.
func DefaultPolicy() *Policy {
	return NewPolicy(
		Rule{Method: http.MethodOptions, Pattern: "/**", Access: AccessPublic},
		Rule{Method: AnyMethod, Pattern: "/auth/**", Access: AccessPublic},
		Rule{Method: http.MethodPost, Pattern: "/api/cut/analyze", Access: AccessOptional},
		Rule{Method: http.MethodPost, Pattern: "/api/cut/grade", Access: AccessPublic},
		Rule{Method: http.MethodPost, Pattern: "/api/cut/save", Access: AccessOptional},
		Rule{Method: http.MethodGet, Pattern: "/api/cut/history", Access: AccessRequired},
		Rule{Method: http.MethodGet, Pattern: "/api/cut/results/**", Access: AccessRequired},
		Rule{Method: http.MethodGet, Pattern: "/api/member/**", Access: AccessRequired},
		Rule{Method: http.MethodGet, Pattern: "/healthz", Access: AccessPublic},
	)
}
