package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myfinances/internal/amqp"
	"myfinances/internal/config"
	"myfinances/internal/core"
	"myfinances/internal/log"
	"myfinances/internal/storage"
)

type fakeStore struct {
	mu      sync.Mutex
	imports []storage.Import
	rows    map[string][]core.LabeledTransaction
	saveErr error
}

func (f *fakeStore) SaveImport(_ context.Context, source string, txs []core.LabeledTransaction) (storage.Import, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return storage.Import{}, f.saveErr
	}
	imp := storage.Import{ID: uuid.NewString(), CreatedAt: time.Now(), Source: source, RowCount: len(txs)}
	f.imports = append(f.imports, imp)
	if f.rows == nil {
		f.rows = map[string][]core.LabeledTransaction{}
	}
	f.rows[imp.ID] = append([]core.LabeledTransaction(nil), txs...)
	return imp, nil
}

func (f *fakeStore) GetImport(_ context.Context, id string) (storage.Import, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, imp := range f.imports {
		if imp.ID == id {
			return imp, nil
		}
	}
	return storage.Import{}, storage.ErrNoImports
}

func (f *fakeStore) LatestImport(_ context.Context) (storage.Import, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.imports) == 0 {
		return storage.Import{}, storage.ErrNoImports
	}
	return f.imports[len(f.imports)-1], nil
}

func (f *fakeStore) LoadTransactions(_ context.Context, id string) ([]core.LabeledTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id], nil
}

type fakePublisher struct {
	msgs []*amqp.ImportCompletedMessage
	err  error
}

func (p *fakePublisher) PublishImportCompleted(_ context.Context, msg *amqp.ImportCompletedMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// setupBudget writes a complete budget configuration and one bank export.
// With split day 1 the analysed range is 2024-02-01..2024-03-31.
func setupBudget(t *testing.T, withDirectives bool) (*config.Paths, string) {
	t.Helper()
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "config")
	dataDir := filepath.Join(dir, "data")

	write(t, filepath.Join(dataDir, "giro", "2024.csv"),
		"Buchungstag;Empfaenger;Verwendungszweck;Betrag\n"+
			"03.01.2024;REWE;Einkauf;-10,00\n"+
			"01.02.2024;Employer;Gehalt;3.000,00\n"+
			"05.02.2024;REWE;Einkauf;-50,00\n"+
			"05.02.2024;REWE;Einkauf;-50,00\n"+
			"06.02.2024;Vermieter;Miete;-800,00\n"+
			"01.03.2024;Employer;Gehalt;3.000,00\n"+
			"05.03.2024;REWE;Einkauf;-70,00\n"+
			"06.03.2024;Vermieter;Miete;-800,00\n"+
			"07.03.2024;Sparkasse;Umbuchung;-500,00\n"+
			"20.04.2024;REWE;Einkauf;-5,00\n")

	write(t, filepath.Join(cfgDir, "inputs.yaml"), `
- Account: Giro
  Files: ["giro/*.csv"]
  Delimiter: ";"
  Decimal: ","
  DateKey: Buchungstag
  DateFormat: "%d.%m.%Y"
  AmountKey: Betrag
  TextKeys: [Empfaenger, Verwendungszweck]
`)
	write(t, filepath.Join(cfgDir, "labels", "food.yaml"), "label: Food\nsublabels:\n  Groceries: [REWE]\n")
	write(t, filepath.Join(cfgDir, "labels", "home.yaml"), "label: Home\nsublabels:\n  Rent: [Miete]\n")
	write(t, filepath.Join(cfgDir, "labels", "income.yaml"), "label: Income\nsublabels:\n  Salary: [Gehalt]\n")
	write(t, filepath.Join(cfgDir, "drop_transactions.yaml"), "transfer: [Umbuchung]\n")
	write(t, filepath.Join(cfgDir, "drop_rent.yaml"), "Home: [Rent]\n")
	write(t, filepath.Join(cfgDir, "add_phone.yaml"), "phone:\n  Label: Home\n  Sublabel: Phone\n  Amount: -20\n")

	main := "inputs_config: inputs.yaml\nlabel_config_root: labels\ndrop_transactions_config: drop_transactions.yaml\n"
	if withDirectives {
		main += "drop_configs: [drop_rent.yaml]\nadd_configs: [add_phone.yaml]\n"
	}
	write(t, filepath.Join(cfgDir, "budget.yaml"), main)

	paths, err := config.LoadPaths(filepath.Join(cfgDir, "budget.yaml"), cfgDir)
	require.NoError(t, err)
	return paths, dataDir
}

func TestBudgetService_Build(t *testing.T) {
	paths, dataDir := setupBudget(t, true)
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewBudgetService(log.Discard(), WithDataRoot(dataDir), WithStore(store), WithPublisher(pub))

	budget, err := svc.Build(context.Background(), paths, 1)
	require.NoError(t, err)

	mc := budget.Costs
	assert.Equal(t, core.NewDate(2024, 2, 1), mc.Engine().Start())
	assert.Equal(t, core.NewDate(2024, 3, 31), mc.Engine().End())
	assert.Equal(t, 2, mc.Engine().NumMonths())
	assert.InDelta(t, 6000.0, mc.Income(), 1e-9)
	// groceries -50 -70, rent dropped, two forecast phone rows
	assert.InDelta(t, -160.0, mc.Expenses(), 1e-9)

	require.NotNil(t, budget.Import)
	assert.Equal(t, 8, budget.Import.RowCount, "duplicate and transfer rows are dropped before storing")
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, budget.Import.ID, pub.msgs[0].ImportID)
	assert.Equal(t, 1, pub.msgs[0].SplitDay)
}

func TestBudgetService_BuildWithoutStore(t *testing.T) {
	paths, dataDir := setupBudget(t, false)
	svc := NewBudgetService(nil, WithDataRoot(dataDir))

	budget, err := svc.Build(context.Background(), paths, 1)
	require.NoError(t, err)
	assert.Nil(t, budget.Import)
	assert.InDelta(t, -1720.0, budget.Costs.Expenses(), 1e-9)
}

func TestBudgetService_PublishFailureIsNotFatal(t *testing.T) {
	paths, dataDir := setupBudget(t, false)
	pub := &fakePublisher{err: errors.New("connection refused")}
	svc := NewBudgetService(log.Discard(), WithDataRoot(dataDir), WithStore(&fakeStore{}), WithPublisher(pub))

	_, err := svc.Build(context.Background(), paths, 1)
	require.NoError(t, err)
	assert.Len(t, pub.msgs, 1)
}

func TestBudgetService_SaveFailureIsFatal(t *testing.T) {
	paths, dataDir := setupBudget(t, false)
	store := &fakeStore{saveErr: errors.New("disk full")}
	svc := NewBudgetService(log.Discard(), WithDataRoot(dataDir), WithStore(store))

	_, err := svc.Build(context.Background(), paths, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestBudgetService_UnlabeledTransactions(t *testing.T) {
	paths, dataDir := setupBudget(t, false)
	require.NoError(t, os.Remove(filepath.Join(paths.Dir, "labels", "home.yaml")))
	paths.LabelConfigs = paths.LabelConfigs[:0]
	for _, f := range []string{"food.yaml", "income.yaml"} {
		paths.LabelConfigs = append(paths.LabelConfigs, filepath.Join(paths.Dir, "labels", f))
	}

	_, err := NewBudgetService(log.Discard(), WithDataRoot(dataDir)).Build(context.Background(), paths, 1)
	var integrity *core.LabelIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, core.LabelMissing, integrity.Kind)
	assert.Equal(t, []string{"Vermieter;Miete", "Vermieter;Miete"}, integrity.Texts)
}

func TestBudgetService_MissingDropPair(t *testing.T) {
	paths, dataDir := setupBudget(t, true)
	write(t, paths.DropConfigs[0], "Home: [Rent]\nFood: [Restaurant]\n")

	_, err := NewBudgetService(log.Discard(), WithDataRoot(dataDir)).Build(context.Background(), paths, 1)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestBudgetService_BuildFromImport(t *testing.T) {
	paths, dataDir := setupBudget(t, true)
	store := &fakeStore{}
	svc := NewBudgetService(log.Discard(), WithDataRoot(dataDir), WithStore(store))

	built, err := svc.Build(context.Background(), paths, 1)
	require.NoError(t, err)

	rebuilt, err := svc.BuildFromImport(context.Background(), paths, "", 1)
	require.NoError(t, err)
	assert.Equal(t, built.Import.ID, rebuilt.Import.ID)
	assert.Equal(t, built.Costs.Report().ByLabel, rebuilt.Costs.Report().ByLabel)

	byID, err := svc.BuildFromImport(context.Background(), nil, built.Import.ID, 15)
	require.NoError(t, err)
	assert.Equal(t, 15, byID.Costs.Engine().MonthSplitDay())

	_, err = svc.BuildFromImport(context.Background(), paths, uuid.NewString(), 1)
	assert.ErrorIs(t, err, storage.ErrNoImports)

	_, err = NewBudgetService(log.Discard()).BuildFromImport(context.Background(), paths, "", 1)
	assert.Error(t, err)
}
