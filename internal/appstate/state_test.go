package appstate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stusave.app/internal/transfer"
)

func TestHydrateDefaultsSetupCompleteToTrue(t *testing.T) {
	s, err := Hydrate([]byte(`{"name":"Asha","budget":5000,"spendings":[]}`))
	require.NoError(t, err)

	assert.True(t, s.IsSetupComplete)
	assert.Equal(t, "Asha", s.Name)
	assert.Equal(t, DefaultCurrency, s.Currency)
	assert.NotNil(t, s.LendBorrow)
	assert.True(t, s.Budget.Equal(decimal.NewFromInt(5000)))
}

func TestHydrateKeepsExplicitSetupFlag(t *testing.T) {
	s, err := Hydrate([]byte(`{"isSetupComplete":false,"currency":"USD"}`))
	require.NoError(t, err)
	assert.False(t, s.IsSetupComplete)
	assert.Equal(t, "USD", s.Currency)
	assert.Empty(t, s.Spendings)
}

func TestHydrateRejectsNonObjects(t *testing.T) {
	for _, in := range []string{`null`, `[]`, `"state"`, `{`} {
		_, err := Hydrate([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestMarshalKeepsUnknownFieldsAndNumbers(t *testing.T) {
	in := `{"name":"Ravi","income":30000,"budget":12000.5,"spendings":[{"id":"s1","amount":45.25,"category":"Food","description":"lunch","date":"2024-09-02T10:00:00.000Z"}],"goal":{"name":"Laptop","targetAmount":60000}}`
	s, err := Hydrate([]byte(in))
	require.NoError(t, err)

	out, err := json.Marshal(s)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.JSONEq(t, `{"name":"Laptop","targetAmount":60000}`, string(fields["goal"]))
	assert.Equal(t, "12000.5", string(fields["budget"]))
	assert.Equal(t, "true", string(fields["isSetupComplete"]))

	// what we send is what a receiver accepts
	require.NoError(t, transfer.ValidateShape(out))
}

func TestInitialStatePassesShapeCheck(t *testing.T) {
	out, err := json.Marshal(Initial())
	require.NoError(t, err)
	require.NoError(t, transfer.ValidateShape(out))
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 9, 15, 12, 0, 0, 0, time.UTC)
	s := Initial()
	s.Budget = decimal.NewFromInt(1000)
	s.Spendings = []Spending{
		{ID: "1", Amount: decimal.RequireFromString("120.50"), Date: "2024-09-02T09:00:00Z"},
		{ID: "2", Amount: decimal.NewFromInt(80), Date: "2024-09-10"},
		// last month
		{ID: "3", Amount: decimal.NewFromInt(500), Date: "2024-08-30T09:00:00Z"},
		// unreadable dates never count
		{ID: "4", Amount: decimal.NewFromInt(999), Date: "yesterday"},
	}
	s.LendBorrow = []LendBorrow{
		{ID: "a", Type: Debit, Amount: decimal.NewFromInt(200), Status: Pending},
		{ID: "b", Type: Credit, Amount: decimal.NewFromInt(50), Status: Pending},
		{ID: "c", Type: Debit, Amount: decimal.NewFromInt(700), Status: Settled},
	}

	sum := s.Summarize(now)
	assert.Equal(t, "200.5", sum.MonthSpent.String())
	assert.Equal(t, "799.5", sum.Remaining.String())
	assert.Equal(t, "200", sum.TotalLent.String())
	assert.Equal(t, "50", sum.TotalBorrowed.String())
	assert.Equal(t, "150", sum.Net.String())
	assert.Equal(t, 4, sum.Spendings)
}
