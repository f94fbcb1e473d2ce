package monthly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myfinances/internal/core"
)

func TestLabels(t *testing.T) {
	e := newEngine(t, fixture(), 1)
	assert.Equal(t, []string{"Food", "Home", "Income"}, e.AllLabels())

	require.NoError(t, e.SetRange(d("2024-03-01"), d("2024-03-31")))
	assert.Equal(t, []string{"Food", "Income"}, e.ActiveLabels())

	assert.Equal(t, map[string][]string{
		"Food":   {"Groceries", "Restaurant"},
		"Home":   {"Rent"},
		"Income": {"Salary"},
	}, e.Sublabels())
}

func TestSetActiveLabels(t *testing.T) {
	e := newEngine(t, fixture(), 1)

	e.SetActiveLabels([]string{"Food"})
	txs := e.Transactions()
	require.Len(t, txs, 2)
	for _, tx := range txs {
		assert.Equal(t, "Food", tx.Label)
	}
	assert.Equal(t, []string{"Food"}, e.ActiveLabels())
	assert.Equal(t, []string{"Food", "Home", "Income"}, e.AllLabels())

	e.SetActiveLabels(nil)
	assert.Empty(t, e.Transactions())
}

func TestSetActiveSublabels(t *testing.T) {
	e := newEngine(t, fixture(), 1)

	e.SetActiveSublabels(map[string][]string{
		"Food": {"Restaurant"},
		"Home": {"Rent"},
	})
	txs := e.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, "Rent", txs[0].Sublabel)
	assert.Equal(t, "Restaurant", txs[1].Sublabel)
}

func TestEmptySublabelMappingClearsView(t *testing.T) {
	e := newEngine(t, fixture(), 1)

	e.SetActiveLabels([]string{"Food"})
	require.NotEmpty(t, e.Transactions())

	e.SetActiveSublabels(map[string][]string{})
	assert.Empty(t, e.Transactions())
}

func TestDropCosts(t *testing.T) {
	e := newEngine(t, fixture(), 1)
	before := len(e.Transactions())

	require.NoError(t, e.DropCosts("Home", "Rent"))
	txs := e.Transactions()
	assert.Len(t, txs, before-1)
	for _, tx := range txs {
		assert.NotEqual(t, "Rent", tx.Sublabel)
	}
	// Rows are masked, not removed.
	assert.Equal(t, 7, e.Len())

	// Nothing active is left to drop.
	err := e.DropCosts("Home", "Rent")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDropUnknownPairLeavesMaskUnchanged(t *testing.T) {
	e := newEngine(t, fixture(), 1)
	before := e.Transactions()
	version := e.Version()

	err := e.DropCosts("Food", "Sweets")
	var notFound *core.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Food", notFound.Label)
	assert.Equal(t, "Sweets", notFound.Sublabel)

	assert.Equal(t, before, e.Transactions())
	assert.Equal(t, version, e.Version())
}

func TestAddCosts(t *testing.T) {
	e := newEngine(t, fixture(), 1)
	minStart, maxEnd := e.MinStart(), e.MaxEnd()

	n, err := e.AddCosts([]core.AddLabel{
		{Label: "Home", Sublabel: "Insurance", Amount: -50},
		{Label: "Income", Sublabel: "Bonus", Amount: 100},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 11, e.Len())

	var forecasts []core.LabeledTransaction
	for _, tx := range e.Transactions() {
		if tx.IsForecast() {
			forecasts = append(forecasts, tx)
		}
	}
	require.Len(t, forecasts, 4)
	// Dated at the first transaction of each window.
	assert.Equal(t, "2024-02-10", forecasts[0].Date.String())
	assert.Equal(t, "2024-02-10", forecasts[1].Date.String())
	assert.Equal(t, "2024-03-05", forecasts[2].Date.String())
	assert.Equal(t, -50.0, forecasts[0].Amount)
	assert.Equal(t, "Bonus", forecasts[1].Sublabel)

	// Forecast rows carry no account and leave the extents alone.
	assert.Equal(t, minStart, e.MinStart())
	assert.Equal(t, maxEnd, e.MaxEnd())
	assertInvariants(t, e)

	// Forecast rows can be dropped like any other pair.
	require.NoError(t, e.DropCosts("Home", "Insurance"))
}

func TestAddCostsInEmptyWindowUsesWindowStart(t *testing.T) {
	e := newEngine(t, []core.LabeledTransaction{
		row("2024-01-03", "A", "Food", "Groceries", -1),
		row("2024-04-20", "A", "Food", "Groceries", -1),
	}, 1)

	n, err := e.AddCosts([]core.AddLabel{{Label: "Home", Sublabel: "Rent", Amount: -500}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	txs := e.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, "2024-02-01", txs[0].Date.String())
	assert.Equal(t, "2024-03-01", txs[1].Date.String())
}

func TestAddCostsValidatesDirectives(t *testing.T) {
	e := newEngine(t, fixture(), 1)

	_, err := e.AddCosts([]core.AddLabel{{Label: "", Sublabel: "x", Amount: 1}})
	assert.ErrorIs(t, err, core.ErrConfiguration)
	assert.Equal(t, 7, e.Len())

	n, err := e.AddCosts(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
