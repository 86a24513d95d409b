// Package categorize assigns categories to transactions with an ordered,
// first-match-wins rule chain.
package categorize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/expense-tracker/internal/model"
)

// Kind is how a rule's pattern is matched against a description.
type Kind string

const (
	Keyword Kind = "keyword" // case-insensitive substring
	Regex   Kind = "regex"   // regular expression, anywhere in the description
)

// Tier records where a rule came from.
type Tier string

const (
	UserDefined Tier = "user"
	BuiltIn     Tier = "builtin"
)

// RuleSpec is a rule as written in a rules file.
// Patterns expands into one rule per pattern, in order.
type RuleSpec struct {
	Kind            string   `yaml:"kind"`
	Type            string   `yaml:"type,omitempty"` // older spelling of kind
	Pattern         string   `yaml:"pattern,omitempty"`
	Patterns        []string `yaml:"patterns,omitempty"`
	Category        string   `yaml:"category"`
	TransactionType string   `yaml:"transaction_type,omitempty"`
	Account         string   `yaml:"account,omitempty"`
	MinAmount       string   `yaml:"min_amount,omitempty"`
	MaxAmount       string   `yaml:"max_amount,omitempty"`
	CaseSensitive   bool     `yaml:"case_sensitive,omitempty"`
}

// Rule is a compiled predicate plus the category it assigns.
type Rule struct {
	Kind     Kind
	Pattern  string
	Category string
	Tier     Tier

	// Optional filters; zero values match everything.
	TransactionType model.TransactionType
	Account         string
	MinAmount       *decimal.Decimal
	MaxAmount       *decimal.Decimal

	keyword string
	re      *regexp.Regexp
}

// Matches reports whether the rule applies to txn.
func (r Rule) Matches(txn model.Transaction) bool {
	if r.TransactionType != "" && txn.Type != r.TransactionType {
		return false
	}
	if r.Account != "" && !strings.EqualFold(txn.Account, r.Account) {
		return false
	}
	if r.MinAmount != nil && txn.Amount.LessThan(*r.MinAmount) {
		return false
	}
	if r.MaxAmount != nil && txn.Amount.GreaterThan(*r.MaxAmount) {
		return false
	}
	switch r.Kind {
	case Keyword:
		return strings.Contains(strings.ToLower(txn.Description), r.keyword)
	case Regex:
		return r.re.MatchString(txn.Description)
	}
	return false
}

func (r Rule) String() string {
	var filters []string
	if r.TransactionType != "" {
		filters = append(filters, "type="+string(r.TransactionType))
	}
	if r.Account != "" {
		filters = append(filters, "account="+r.Account)
	}
	if r.MinAmount != nil {
		filters = append(filters, "min="+r.MinAmount.String())
	}
	if r.MaxAmount != nil {
		filters = append(filters, "max="+r.MaxAmount.String())
	}
	s := fmt.Sprintf("%s %s %q -> %s", r.Tier, r.Kind, r.Pattern, r.Category)
	if len(filters) > 0 {
		s += " [" + strings.Join(filters, " ") + "]"
	}
	return s
}

// compile validates spec and returns its rules.
func (spec RuleSpec) compile(tier Tier) ([]Rule, error) {
	kindName := spec.Kind
	if kindName == "" {
		kindName = spec.Type
	}
	if kindName == "" {
		kindName = string(Keyword)
	}
	kind := Kind(strings.ToLower(strings.TrimSpace(kindName)))
	if kind != Keyword && kind != Regex {
		return nil, fmt.Errorf("unknown kind %q (must be keyword or regex)", kindName)
	}

	category := strings.TrimSpace(spec.Category)
	if category == "" {
		return nil, errors.New("category is required")
	}

	patterns := spec.Patterns
	if spec.Pattern != "" {
		patterns = append([]string{spec.Pattern}, patterns...)
	}
	if len(patterns) == 0 {
		return nil, errors.New("pattern is required")
	}

	base := Rule{
		Kind:     kind,
		Category: category,
		Tier:     tier,
		Account:  strings.TrimSpace(spec.Account),
	}
	if spec.TransactionType != "" {
		typ, err := model.ParseTransactionType(spec.TransactionType)
		if err != nil {
			return nil, err
		}
		base.TransactionType = typ
	}
	var err error
	if base.MinAmount, err = parseBound("min_amount", spec.MinAmount); err != nil {
		return nil, err
	}
	if base.MaxAmount, err = parseBound("max_amount", spec.MaxAmount); err != nil {
		return nil, err
	}
	if base.MinAmount != nil && base.MaxAmount != nil && base.MinAmount.GreaterThan(*base.MaxAmount) {
		return nil, fmt.Errorf("min_amount %s is greater than max_amount %s", base.MinAmount, base.MaxAmount)
	}

	rules := make([]Rule, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return nil, errors.New("pattern cannot be empty")
		}
		r := base
		r.Pattern = p
		switch kind {
		case Keyword:
			r.keyword = strings.ToLower(model.NormalizeDescription(p))
		case Regex:
			expr := p
			if !spec.CaseSensitive {
				expr = "(?i)" + expr
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("invalid regex %q: %w", p, err)
			}
			r.re = re
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func parseBound(field, s string) (*decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", field, s, err)
	}
	return &d, nil
}
