package services

import (
	"context"
	"errors"
	"fmt"

	"myfinances/internal/amqp"
	"myfinances/internal/config"
	"myfinances/internal/core"
	"myfinances/internal/costs"
	"myfinances/internal/ingest"
	"myfinances/internal/labeling"
	"myfinances/internal/log"
	"myfinances/internal/monthly"
	"myfinances/internal/storage"
)

// SnapshotStore persists labeled transactions between runs.
type SnapshotStore interface {
	SaveImport(ctx context.Context, source string, txs []core.LabeledTransaction) (storage.Import, error)
	GetImport(ctx context.Context, id string) (storage.Import, error)
	LatestImport(ctx context.Context) (storage.Import, error)
	LoadTransactions(ctx context.Context, importID string) ([]core.LabeledTransaction, error)
}

// EventPublisher announces stored snapshots.
type EventPublisher interface {
	PublishImportCompleted(ctx context.Context, msg *amqp.ImportCompletedMessage) error
}

// Budget is the outcome of a build: the aggregator and, when a store is
// configured, the snapshot it was built from.
type Budget struct {
	Costs  *costs.MonthlyCosts
	Import *storage.Import
}

// BudgetService runs the setup flow: parse, rename, drop, label, store,
// announce, then aggregate and apply the drop and add directives.
type BudgetService struct {
	dataRoot  string
	store     SnapshotStore
	publisher EventPublisher
	logger    *log.Logger
}

type Option func(*BudgetService)

// WithDataRoot sets the directory input file patterns are resolved in.
func WithDataRoot(root string) Option {
	return func(s *BudgetService) { s.dataRoot = root }
}

func WithStore(store SnapshotStore) Option {
	return func(s *BudgetService) { s.store = store }
}

func WithPublisher(p EventPublisher) Option {
	return func(s *BudgetService) { s.publisher = p }
}

func NewBudgetService(logger *log.Logger, opts ...Option) *BudgetService {
	if logger == nil {
		logger = log.Default(log.ComponentBudget)
	} else {
		logger = logger.WithComponent(log.ComponentBudget)
	}
	s := &BudgetService{dataRoot: ".", logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Label runs the pre-aggregation steps and returns labeled transactions.
func (s *BudgetService) Label(ctx context.Context, paths *config.Paths) ([]core.LabeledTransaction, error) {
	inputs, err := config.LoadInputs(paths.Inputs)
	if err != nil {
		return nil, fmt.Errorf("load inputs: %w", err)
	}
	renames, err := config.LoadRenameRules(paths.Rename)
	if err != nil {
		return nil, fmt.Errorf("load rename rules: %w", err)
	}
	drops, err := config.LoadDropRules(paths.DropTransactions)
	if err != nil {
		return nil, fmt.Errorf("load drop rules: %w", err)
	}
	labels, err := config.LoadLabelRules(paths.LabelConfigs)
	if err != nil {
		return nil, fmt.Errorf("load label rules: %w", err)
	}

	txs, err := ingest.NewLoader(s.dataRoot, s.logger).Load(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	txs = labeling.Rename(txs, renames)
	txs = labeling.Drop(txs, drops, s.logger.WithComponent(log.ComponentLabeling))

	labeled, err := labeling.Label(txs, labels)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Labeled transactions",
		log.FieldOperation, log.OpLabel,
		log.FieldRows, len(labeled))
	return labeled, nil
}

// Build runs the whole flow from the bank exports named in paths.
func (s *BudgetService) Build(ctx context.Context, paths *config.Paths, splitDay int) (*Budget, error) {
	labeled, err := s.Label(ctx, paths)
	if err != nil {
		return nil, err
	}

	var imp *storage.Import
	if s.store != nil {
		saved, err := s.store.SaveImport(ctx, paths.Dir, labeled)
		if err != nil {
			return nil, fmt.Errorf("save import: %w", err)
		}
		imp = &saved
		s.announce(ctx, saved, splitDay)
	}

	mc, err := s.Aggregate(labeled, splitDay, paths)
	if err != nil {
		return nil, err
	}
	return &Budget{Costs: mc, Import: imp}, nil
}

// BuildFromImport rebuilds the aggregator from a stored snapshot. An empty
// id means the latest one.
func (s *BudgetService) BuildFromImport(ctx context.Context, paths *config.Paths, importID string, splitDay int) (*Budget, error) {
	if s.store == nil {
		return nil, errors.New("no snapshot store configured")
	}
	var (
		imp storage.Import
		err error
	)
	if importID == "" {
		imp, err = s.store.LatestImport(ctx)
	} else {
		imp, err = s.store.GetImport(ctx, importID)
	}
	if err != nil {
		return nil, fmt.Errorf("find import: %w", err)
	}
	labeled, err := s.store.LoadTransactions(ctx, imp.ID)
	if err != nil {
		return nil, fmt.Errorf("load import %s: %w", imp.ID, err)
	}

	mc, err := s.Aggregate(labeled, splitDay, paths)
	if err != nil {
		return nil, err
	}
	return &Budget{Costs: mc, Import: &imp}, nil
}

// Aggregate builds the window engine over labeled and applies every drop
// directive file, then every add directive file. A nil paths applies none.
func (s *BudgetService) Aggregate(labeled []core.LabeledTransaction, splitDay int, paths *config.Paths) (*costs.MonthlyCosts, error) {
	engine, err := monthly.New(labeled, splitDay, monthly.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	mc := costs.New(engine, s.logger)
	if paths == nil {
		return mc, nil
	}

	for _, file := range paths.DropConfigs {
		pairs, err := config.LoadDropLabels(file)
		if err != nil {
			return nil, err
		}
		if err := mc.DropCostsByConfig(pairs); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}
	for _, file := range paths.AddConfigs {
		adds, err := config.LoadAddLabels(file)
		if err != nil {
			return nil, err
		}
		if err := mc.AddCostsByConfig(adds); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}
	return mc, nil
}

// announce publishes the snapshot event. The snapshot is already stored, so
// a publish failure is logged and the build goes on.
func (s *BudgetService) announce(ctx context.Context, imp storage.Import, splitDay int) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping import event")
		return
	}
	msg := amqp.NewImportCompletedMessage(imp.ID, imp.Source, imp.RowCount, splitDay)
	if err := s.publisher.PublishImportCompleted(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish import event",
			log.FieldImportID, imp.ID,
			log.FieldError, err)
	}
}
