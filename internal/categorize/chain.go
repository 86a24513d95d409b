package categorize

import (
	"fmt"

	"github.com/cleared-dev/expense-tracker/internal/model"
)

// RuleConfigError reports a rule that could not be compiled.
type RuleConfigError struct {
	Index  int  // position of the spec within its tier
	Source Tier // which tier the spec belongs to
	Err    error
}

func (e *RuleConfigError) Error() string {
	return fmt.Sprintf("%s rule %d: %v", e.Source, e.Index+1, e.Err)
}

func (e *RuleConfigError) Unwrap() error { return e.Err }

// Chain is an ordered list of rules. User rules come before built-ins and
// each tier keeps its declared order. The first matching rule wins.
type Chain struct {
	rules []Rule
}

// NewChain compiles user and built-in specs into a chain.
// Any invalid spec fails the whole chain.
func NewChain(user, builtin []RuleSpec) (*Chain, error) {
	c := &Chain{}
	for _, tier := range []struct {
		specs []RuleSpec
		tier  Tier
	}{
		{user, UserDefined},
		{builtin, BuiltIn},
	} {
		for i, spec := range tier.specs {
			rules, err := spec.compile(tier.tier)
			if err != nil {
				return nil, &RuleConfigError{Index: i, Source: tier.tier, Err: err}
			}
			c.rules = append(c.rules, rules...)
		}
	}
	return c, nil
}

// Match returns the first rule matching txn.
func (c *Chain) Match(txn model.Transaction) (Rule, bool) {
	for _, r := range c.rules {
		if r.Matches(txn) {
			return r, true
		}
	}
	return Rule{}, false
}

// Categorize returns the category of the first matching rule, or
// model.Uncategorized when none match.
func (c *Chain) Categorize(txn model.Transaction) string {
	if r, ok := c.Match(txn); ok {
		return r.Category
	}
	return model.Uncategorized
}

// Rules returns the chain in evaluation order.
func (c *Chain) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Len returns the number of compiled rules.
func (c *Chain) Len() int { return len(c.rules) }
