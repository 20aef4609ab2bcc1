package core

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Field names used in violations and form payloads.
const (
	FieldID     = "id"
	FieldName   = "name"
	FieldAmount = "amount"
	FieldType   = "type"
)

const (
	NameMinLen = 1
	NameMaxLen = 100
)

const (
	MsgNameTooShort   = "Zadejte alespoň 1 znak."
	MsgNameTooLong    = "Zadejte nejvýše 100 znaků."
	MsgAmountNotANum  = "Zadejte kladné číslo."
	MsgAmountNegative = "Částka musí být kladná."
	MsgAmountTooLarge = "Částka je příliš vysoká."
)

// Violation is a single failed constraint on one field.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Rule checks one constraint. It returns an empty message when satisfied.
type Rule func(c Candidate) string

// FieldRules binds rules to a field; rules run in order and the first
// failure wins for that field.
type FieldRules struct {
	Field string
	Rules []Rule
}

// EntrySchema describes the constraints a Candidate must meet to be added.
var EntrySchema = []FieldRules{
	{Field: FieldName, Rules: []Rule{
		func(c Candidate) string {
			if utf8.RuneCountInString(strings.TrimSpace(c.Name)) < NameMinLen {
				return MsgNameTooShort
			}
			return ""
		},
		func(c Candidate) string {
			if utf8.RuneCountInString(strings.TrimSpace(c.Name)) > NameMaxLen {
				return MsgNameTooLong
			}
			return ""
		},
	}},
	{Field: FieldAmount, Rules: []Rule{
		func(c Candidate) string {
			if math.IsNaN(c.Amount) || math.IsInf(c.Amount, 0) {
				return MsgAmountNotANum
			}
			return ""
		},
		func(c Candidate) string {
			if c.Amount < 0 {
				return MsgAmountNegative
			}
			return ""
		},
		func(c Candidate) string {
			if RoundAmount(c.Amount).GreaterThan(MaxAmount) {
				return MsgAmountTooLarge
			}
			return ""
		},
	}},
}

// Validate evaluates schema against c and returns every violation found.
func Validate(schema []FieldRules, c Candidate) []Violation {
	var out []Violation
	for _, fr := range schema {
		for _, rule := range fr.Rules {
			if msg := rule(c); msg != "" {
				out = append(out, Violation{Field: fr.Field, Message: msg})
				break
			}
		}
	}
	return out
}

// ValidateCandidate checks c against EntrySchema.
func ValidateCandidate(c Candidate) error {
	if vs := Validate(EntrySchema, c); len(vs) > 0 {
		return &ValidationError{Violations: vs}
	}
	return nil
}

func checkName(name string) []Violation {
	return Validate(EntrySchema[:1], Candidate{Name: name})
}
