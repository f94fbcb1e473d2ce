package labeling

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myfinances/internal/config"
	"myfinances/internal/core"
	"myfinances/internal/log"
)

func tx(day int, text string, amount float64) core.Transaction {
	return core.Transaction{Date: core.NewDate(2024, 1, day), Text: text, Amount: amount, Account: "Giro"}
}

func texts(rows []core.Transaction) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Text
	}
	return out
}

func TestRename(t *testing.T) {
	in := []core.Transaction{
		tx(1, "PAYPAL *SHOP", -5),
		tx(2, "PAYPAL *SHOP 2", -6),
		tx(3, "Old", -7),
	}
	rules := []config.RenameRule{
		{OldText: "PAYPAL *SHOP", NewText: "Shop"},
		{OldText: "Old", NewText: "Middle"},
		{OldText: "Middle", NewText: "New"},
	}

	out := Rename(in, rules)
	assert.Equal(t, []string{"Shop", "PAYPAL *SHOP 2", "New"}, texts(out))
	assert.Equal(t, "PAYPAL *SHOP", in[0].Text, "input is not modified")
}

func TestDrop(t *testing.T) {
	in := []core.Transaction{
		tx(1, "Rent", -800),
		tx(1, "Rent", -800),
		tx(1, "Rent", -801),
		tx(2, "Umbuchung auf Sparkonto", -100),
		tx(3, "Kreditkarte Abrechnung", -300),
		tx(4, "REWE", -20),
	}
	rules := []config.DropRule{
		{Reason: "transfer", Identifier: "Umbuchung"},
		{Reason: "card", Identifier: "Kreditkarte"},
		{Reason: "never", Identifier: "nothing matches"},
	}

	var buf bytes.Buffer
	logger := log.New(log.Config{Handler: slog.NewTextHandler(&buf, nil)})

	out := Drop(in, rules, logger)
	assert.Equal(t, []string{"Rent", "Rent", "REWE"}, texts(out))
	assert.Equal(t, -801.0, out[1].Amount)
	assert.Contains(t, buf.String(), "reason=transfer")
	assert.Contains(t, buf.String(), "Dropped duplicate transactions")
	assert.NotContains(t, buf.String(), "reason=never")
}

func TestDropWithoutRules(t *testing.T) {
	in := []core.Transaction{tx(1, "a", 1), tx(2, "b", 2)}
	assert.Equal(t, in, Drop(in, nil, nil))
}

func TestLabel(t *testing.T) {
	in := []core.Transaction{
		tx(1, "REWE Markt", -20),
		tx(2, "ALDI SUED", -15),
		tx(3, "Miete Januar", -800),
		tx(4, "Gehalt", 2500),
	}
	rules := []config.LabelRule{
		{Label: "Food", Sublabel: "Groceries", Identifier: "REWE"},
		{Label: "Food", Sublabel: "Groceries", Identifier: "ALDI"},
		{Label: "Home", Sublabel: "Rent", Identifier: "Miete"},
		{Label: "Income", Sublabel: "Salary", Identifier: "Gehalt"},
	}

	out, err := Label(in, rules)
	require.NoError(t, err)
	require.Len(t, out, 4)
	for i, want := range []core.LabelPair{
		{Label: "Food", Sublabel: "Groceries"},
		{Label: "Food", Sublabel: "Groceries"},
		{Label: "Home", Sublabel: "Rent"},
		{Label: "Income", Sublabel: "Salary"},
	} {
		assert.True(t, want.Matches(out[i]), "row %d labeled %s/%s", i, out[i].Label, out[i].Sublabel)
		assert.Equal(t, in[i], out[i].Transaction)
	}
}

func TestLabelIntegrity(t *testing.T) {
	tests := []struct {
		name      string
		rules     []config.LabelRule
		wantKind  core.LabelIntegrityKind
		wantTexts []string
	}{
		{
			name: "duplicate",
			rules: []config.LabelRule{
				{Label: "Food", Sublabel: "Groceries", Identifier: "REWE"},
				{Label: "Home", Sublabel: "Rent", Identifier: "Miete"},
				{Label: "Food", Sublabel: "Restaurant", Identifier: "Markt"},
			},
			wantKind:  core.LabelDuplicate,
			wantTexts: []string{"REWE Markt"},
		},
		{
			name: "overlap within one sublabel",
			rules: []config.LabelRule{
				{Label: "Food", Sublabel: "Groceries", Identifier: "REWE"},
				{Label: "Home", Sublabel: "Rent", Identifier: "Miete"},
				{Label: "Food", Sublabel: "Groceries", Identifier: "Markt"},
			},
			wantKind:  core.LabelDuplicate,
			wantTexts: []string{"REWE Markt"},
		},
		{
			name: "unlabeled",
			rules: []config.LabelRule{
				{Label: "Food", Sublabel: "Groceries", Identifier: "REWE"},
			},
			wantKind:  core.LabelMissing,
			wantTexts: []string{"Miete Januar"},
		},
	}
	in := []core.Transaction{tx(1, "REWE Markt", -20), tx(3, "Miete Januar", -800)}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Label(in, tt.rules)
			assert.Nil(t, out)
			require.ErrorIs(t, err, core.ErrLabelIntegrity)

			var integrity *core.LabelIntegrityError
			require.True(t, errors.As(err, &integrity))
			assert.Equal(t, tt.wantKind, integrity.Kind)
			assert.Equal(t, tt.wantTexts, integrity.Texts)
		})
	}
}

func TestLabelEmpty(t *testing.T) {
	out, err := Label(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
