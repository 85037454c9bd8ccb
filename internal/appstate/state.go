// Package appstate holds the budgeting data that a transfer moves between devices.
package appstate

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// amounts travel as JSON numbers, the way every device writes them
	decimal.MarshalJSONWithoutQuotes = true
}

const DefaultCurrency = "INR"

type RecordType string

const (
	// Credit is money borrowed from someone.
	Credit RecordType = "credit"
	// Debit is money lent to someone.
	Debit RecordType = "debit"
)

type RecordStatus string

const (
	Pending RecordStatus = "pending"
	Settled RecordStatus = "settled"
)

// Spending is one expense. Like State, it carries fields it does not know
// about in Extra.
type Spending struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`

	Extra map[string]json.RawMessage `json:"-"`
}

var spendingKeys = map[string]bool{
	"id": true, "amount": true, "category": true, "description": true, "date": true,
}

func (sp Spending) MarshalJSON() ([]byte, error) {
	type plain Spending
	known, err := json.Marshal(plain(sp))
	if err != nil {
		return nil, err
	}
	return mergeExtra(known, sp.Extra)
}

func (sp *Spending) UnmarshalJSON(data []byte) error {
	type plain Spending
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := splitExtra(data, spendingKeys)
	if err != nil {
		return err
	}
	p.Extra = extra
	*sp = Spending(p)
	return nil
}

type LendBorrow struct {
	ID          string          `json:"id"`
	Type        RecordType      `json:"type"`
	Person      string          `json:"person"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Date        string          `json:"date"`
	Status      RecordStatus    `json:"status"`

	Extra map[string]json.RawMessage `json:"-"`
}

var lendBorrowKeys = map[string]bool{
	"id": true, "type": true, "person": true, "amount": true,
	"description": true, "date": true, "status": true,
}

func (lb LendBorrow) MarshalJSON() ([]byte, error) {
	type plain LendBorrow
	known, err := json.Marshal(plain(lb))
	if err != nil {
		return nil, err
	}
	return mergeExtra(known, lb.Extra)
}

func (lb *LendBorrow) UnmarshalJSON(data []byte) error {
	type plain LendBorrow
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := splitExtra(data, lendBorrowKeys)
	if err != nil {
		return err
	}
	p.Extra = extra
	*lb = LendBorrow(p)
	return nil
}

// State is the whole of a user's local data. Fields it does not know about
// are kept in Extra and written back unchanged.
type State struct {
	Name            string
	Income          decimal.Decimal
	Budget          decimal.Decimal
	Spendings       []Spending
	Currency        string
	LendBorrow      []LendBorrow
	IsSetupComplete bool

	Extra map[string]json.RawMessage
}

// Initial is the state of a device that has never been set up.
func Initial() State {
	return State{
		Currency:   DefaultCurrency,
		Spendings:  []Spending{},
		LendBorrow: []LendBorrow{},
	}
}

type wireState struct {
	Name            string          `json:"name"`
	Income          decimal.Decimal `json:"income"`
	Budget          decimal.Decimal `json:"budget"`
	Spendings       []Spending      `json:"spendings"`
	Currency        string          `json:"currency"`
	LendBorrow      []LendBorrow    `json:"lendBorrow"`
	IsSetupComplete *bool           `json:"isSetupComplete,omitempty"`
}

var knownKeys = map[string]bool{
	"name": true, "income": true, "budget": true, "spendings": true,
	"currency": true, "lendBorrow": true, "isSetupComplete": true,
}

// Hydrate builds a State from stored or transferred JSON. Missing fields take
// their initial values, except isSetupComplete which defaults to true: data
// saved before the flag existed belongs to users who already finished setup.
func Hydrate(data []byte) (State, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	if raw == nil {
		return State{}, fmt.Errorf("decode state: not an object")
	}

	var w wireState
	if err := json.Unmarshal(data, &w); err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}

	s := Initial()
	s.Name = w.Name
	s.Income = w.Income
	s.Budget = w.Budget
	if w.Spendings != nil {
		s.Spendings = w.Spendings
	}
	if w.Currency != "" {
		s.Currency = w.Currency
	}
	if w.LendBorrow != nil {
		s.LendBorrow = w.LendBorrow
	}
	s.IsSetupComplete = true
	if w.IsSetupComplete != nil {
		s.IsSetupComplete = *w.IsSetupComplete
	}

	s.Extra = unknownFields(raw, knownKeys)
	return s, nil
}

func (s State) MarshalJSON() ([]byte, error) {
	setup := s.IsSetupComplete
	w := wireState{
		Name:            s.Name,
		Income:          s.Income,
		Budget:          s.Budget,
		Spendings:       s.Spendings,
		Currency:        s.Currency,
		LendBorrow:      s.LendBorrow,
		IsSetupComplete: &setup,
	}
	if w.Spendings == nil {
		w.Spendings = []Spending{}
	}
	if w.LendBorrow == nil {
		w.LendBorrow = []LendBorrow{}
	}

	known, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	return mergeExtra(known, s.Extra)
}

func (s *State) UnmarshalJSON(data []byte) error {
	h, err := Hydrate(data)
	if err != nil {
		return err
	}
	*s = h
	return nil
}

// splitExtra returns the keys of the JSON object data that are not in known,
// or nil when there are none.
func splitExtra(data []byte, known map[string]bool) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return unknownFields(raw, known), nil
}

func unknownFields(raw map[string]json.RawMessage, known map[string]bool) map[string]json.RawMessage {
	var extra map[string]json.RawMessage
	for k, v := range raw {
		if known[k] {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[k] = v
	}
	return extra
}

// mergeExtra adds extra to the encoded object known. Declared fields win
// over extra entries with the same name.
func mergeExtra(known []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return known, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	merged := make(map[string]json.RawMessage, len(extra)+len(fields))
	for k, v := range extra {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// Summary is the at-a-glance view of a State.
type Summary struct {
	Name            string
	Currency        string
	Budget          decimal.Decimal
	MonthSpent      decimal.Decimal
	Remaining       decimal.Decimal
	TotalLent       decimal.Decimal
	TotalBorrowed   decimal.Decimal
	Net             decimal.Decimal
	Spendings       int
	IsSetupComplete bool
}

// Summarize totals spending in the calendar month of now and the pending
// lend/borrow records.
func (s State) Summarize(now time.Time) Summary {
	sum := Summary{
		Name:            s.Name,
		Currency:        s.Currency,
		Budget:          s.Budget,
		MonthSpent:      decimal.Zero,
		TotalLent:       decimal.Zero,
		TotalBorrowed:   decimal.Zero,
		Spendings:       len(s.Spendings),
		IsSetupComplete: s.IsSetupComplete,
	}

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for _, sp := range s.Spendings {
		at, ok := parseDate(sp.Date, now.Location())
		if !ok || at.Before(start) || at.After(now) {
			continue
		}
		sum.MonthSpent = sum.MonthSpent.Add(sp.Amount)
	}
	sum.Remaining = s.Budget.Sub(sum.MonthSpent)

	for _, r := range s.LendBorrow {
		if r.Status != Pending {
			continue
		}
		switch r.Type {
		case Debit:
			sum.TotalLent = sum.TotalLent.Add(r.Amount)
		case Credit:
			sum.TotalBorrowed = sum.TotalBorrowed.Add(r.Amount)
		}
	}
	sum.Net = sum.TotalLent.Sub(sum.TotalBorrowed)
	return sum
}

func parseDate(v string, loc *time.Location) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(time.DateOnly, v, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}
