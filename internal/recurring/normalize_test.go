package recurring

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
)

func TestNormalizeRemote(t *testing.T) {
	raw := []byte(`[
		{"id":"a1","user_id":"u1","description":"Rent","amount":"900.00","category":"Rent","frequency":"Monthly","next_payment":"2023-07-01","active":true,"created_at":"2023-06-01T10:00:00Z"},
		{"id":"a2","user_id":"u1","description":"Streaming","amount":15.99,"category":null,"frequency":"monthly","next_payment":"2023-06-15","active":null},
		{"id":"a3","user_id":"u1","description":"Gym","amount":50,"category":"","frequency":"Weekly","next_payment":"2023-06-20","active":false}
	]`)

	got, err := Normalize(SourceRemote, raw)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, []string{"a1", "a2", "a3"}, []string{got[0].ID, got[1].ID, got[2].ID}, "input order is kept")
	assert.True(t, decimal.RequireFromString("900").Equal(got[0].Amount))
	assert.Equal(t, core.CategoryRent, got[0].Category)

	assert.Equal(t, core.CategoryOther, got[1].Category, "null category")
	assert.True(t, got[1].Active, "null active")
	assert.Equal(t, core.Monthly, got[1].Frequency)
	assert.True(t, decimal.RequireFromString("15.99").Equal(got[1].Amount))

	assert.Equal(t, core.CategoryOther, got[2].Category, "empty category")
	assert.False(t, got[2].Active)
	assert.Equal(t, "2023-06-20", got[2].NextPayment.String())
}

func TestNormalizeLocal(t *testing.T) {
	raw := []byte(`[
		{"id":"1","description":"Rent","amount":900,"category":"Rent","frequency":"Monthly","nextPayment":"2023-07-01","active":true},
		{"id":"2","description":"Lessons","amount":"120","category":"Hobbies","frequency":"Fortnightly","nextPayment":"2023-06-18"}
	]`)

	got, err := Normalize(SourceLocal, raw)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, core.CategoryOther, got[1].Category, "unknown category")
	assert.True(t, got[1].Active, "missing active")
	assert.Equal(t, core.Frequency("Fortnightly"), got[1].Frequency, "unknown frequency kept verbatim")
}

func TestBothShapesAgree(t *testing.T) {
	cat := "Utilities"
	remote, err := FromRemote(RemoteRecord{
		ID: "x", Description: "Electric", Amount: "120", Category: &cat,
		Frequency: "Monthly", NextPayment: "2023-06-25",
	})
	require.NoError(t, err)
	local, err := FromLocal(LocalRecord{
		ID: "x", Description: "Electric", Amount: "120", Category: "Utilities",
		Frequency: "Monthly", NextPayment: "2023-06-25",
	})
	require.NoError(t, err)
	assert.Equal(t, remote, local)
}

func TestNormalizeRejects(t *testing.T) {
	cases := []struct {
		name  string
		kind  SourceKind
		raw   string
		want  error
		index int
	}{
		{
			name: "non numeric amount",
			kind: SourceRemote,
			raw:  `[{"id":"ok","description":"a","amount":1,"frequency":"Monthly","next_payment":"2023-07-01"},{"id":"bad","description":"b","amount":"not-a-number","frequency":"Monthly","next_payment":"2023-07-01"}]`,
			want: core.ErrInvalidAmount, index: 1,
		},
		{
			name: "negative amount",
			kind: SourceLocal,
			raw:  `[{"id":"1","description":"a","amount":-5,"category":"Food","frequency":"Monthly","nextPayment":"2023-07-01"}]`,
			want: core.ErrInvalidAmount,
		},
		{
			name: "missing amount",
			kind: SourceRemote,
			raw:  `[{"id":"1","description":"a","amount":null,"frequency":"Monthly","next_payment":"2023-07-01"}]`,
			want: core.ErrInvalidAmount,
		},
		{
			name: "bad date",
			kind: SourceLocal,
			raw:  `[{"id":"1","description":"a","amount":5,"category":"Food","frequency":"Monthly","nextPayment":"soon"}]`,
			want: core.ErrInvalidDate,
		},
		{
			name: "thousands separator in stored amount",
			kind: SourceRemote,
			raw:  `[{"id":"1","description":"a","amount":"1,234","frequency":"Monthly","next_payment":"2023-07-01"}]`,
			want: core.ErrInvalidAmount,
		},
		{
			name: "amount too large",
			kind: SourceRemote,
			raw:  `[{"id":"1","description":"a","amount":1e7000000,"frequency":"Monthly","next_payment":"2023-07-01"}]`,
			want: core.ErrInvalidAmount,
		},
		{
			name: "empty description",
			kind: SourceRemote,
			raw:  `[{"id":"1","description":"","amount":5,"frequency":"Monthly","next_payment":"2023-07-01"}]`,
			want: core.ErrMissingField,
		},
		{
			name: "blank description",
			kind: SourceLocal,
			raw:  `[{"id":"ok","description":"a","amount":5,"category":"Food","frequency":"Monthly","nextPayment":"2023-07-01"},{"id":"2","description":"  ","amount":5,"category":"Food","frequency":"Monthly","nextPayment":"2023-07-01"}]`,
			want: core.ErrMissingField, index: 1,
		},
		{
			name: "duplicate id",
			kind: SourceLocal,
			raw:  `[{"id":"1","description":"a","amount":5,"category":"Food","frequency":"Monthly","nextPayment":"2023-07-01"},{"id":"1","description":"b","amount":6,"category":"Food","frequency":"Monthly","nextPayment":"2023-07-02"}]`,
			want: core.ErrDuplicateID, index: 1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.kind, []byte(tc.raw))
			require.Error(t, err)
			assert.Nil(t, got, "no partial result")
			assert.ErrorIs(t, err, tc.want)

			var recErr *RecordError
			require.True(t, errors.As(err, &recErr))
			assert.Equal(t, tc.index, recErr.Index)
		})
	}
}

func TestNormalizeAmountOfWrongType(t *testing.T) {
	_, err := Normalize(SourceRemote, []byte(`[{"id":"1","amount":true,"frequency":"Monthly","next_payment":"2023-07-01"}]`))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestNormalizeUnknownKind(t *testing.T) {
	_, err := Normalize(SourceKind("csv"), []byte(`[]`))
	assert.Error(t, err)

	_, err = ParseSourceKind("csv")
	assert.Error(t, err)
	k, err := ParseSourceKind("local")
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, k)
}
