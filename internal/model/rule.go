package model

import "github.com/shopspring/decimal"

// RuleKind selects how a bank import rule resolves a transaction.
type RuleKind string

const (
	// RuleDirect credits the full amount to the rule's member.
	RuleDirect RuleKind = "direct"
	// RuleSplit divides the amount across several members with a
	// remainder going to the rule's member.
	RuleSplit RuleKind = "split"
)

// SplitShare is one fixed allocation of a split rule.
type SplitShare struct {
	MemberID int64           `json:"member_id"`
	Amount   decimal.Decimal `json:"amount"`
}

// ImportRule maps a pseudonymized sender identity to a resolution
// strategy. Rules are created by the operator and read-only during
// reconciliation.
type ImportRule struct {
	IBANHash string
	MemberID int64 // direct target, or fallback for the split remainder
	Kind     RuleKind
	Splits   []SplitShare // ordered; split rules only
}
