package ratelimit

import "time"

// Scope identifies the endpoint-specific rule a request is charged under.
type Scope string

const (
	// ScopeGlobal is the coarse per-identity-class layer every request
	// passes before its endpoint scope.
	ScopeGlobal Scope = "global"

	ScopeShareResolve Scope = "share:resolve"
	ScopeShareCreate  Scope = "share:create"
	ScopeSnippetWrite Scope = "snippet:write"
)

// Tier is the paid tier of an authenticated identity.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Class is the quota pool class an identity draws from.
type Class string

const (
	ClassAnonymous  Class = "anonymous"
	ClassFree       Class = "free"
	ClassPro        Class = "pro"
	ClassEnterprise Class = "enterprise"
)

// Rule is one fixed-window quota: Limit requests per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// RuleTable maps (scope, class) to a rule. Missing entries mean the layer
// does not apply for that combination.
type RuleTable map[Scope]map[Class]Rule

// Lookup returns the rule for (scope, class) if configured.
func (t RuleTable) Lookup(scope Scope, class Class) (Rule, bool) {
	byClass, ok := t[scope]
	if !ok {
		return Rule{}, false
	}
	r, ok := byClass[class]
	return r, ok
}

// DefaultRules returns the production rule table. Paid tiers get higher
// ceilings; anonymous callers get the tightest ones.
func DefaultRules() RuleTable {
	return RuleTable{
		ScopeGlobal: {
			ClassAnonymous:  {Limit: 60, Window: time.Minute},
			ClassFree:       {Limit: 120, Window: time.Minute},
			ClassPro:        {Limit: 600, Window: time.Minute},
			ClassEnterprise: {Limit: 3000, Window: time.Minute},
		},
		ScopeShareResolve: {
			ClassAnonymous:  {Limit: 30, Window: time.Minute},
			ClassFree:       {Limit: 60, Window: time.Minute},
			ClassPro:        {Limit: 300, Window: time.Minute},
			ClassEnterprise: {Limit: 1500, Window: time.Minute},
		},
		ScopeShareCreate: {
			ClassFree:       {Limit: 20, Window: time.Minute},
			ClassPro:        {Limit: 100, Window: time.Minute},
			ClassEnterprise: {Limit: 500, Window: time.Minute},
		},
		ScopeSnippetWrite: {
			ClassFree:       {Limit: 60, Window: time.Minute},
			ClassPro:        {Limit: 300, Window: time.Minute},
			ClassEnterprise: {Limit: 1500, Window: time.Minute},
		},
	}
}
