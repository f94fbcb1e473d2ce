// Package ingest reads bank CSV exports into core transactions.
//
// Each input configuration names an account, the glob patterns of its
// export files and how to read them: delimiter, decimal separator, date
// layout (strftime), which columns hold the date, the amount and the text.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/itchyny/timefmt-go"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"myfinances/internal/config"
	"myfinances/internal/core"
	"myfinances/internal/log"
)

// TextSeparator joins the configured text columns.
const TextSeparator = ";"

// EmptyCell replaces empty text cells so joined texts keep their shape.
const EmptyCell = "-"

// maxParallelFiles bounds how many files are parsed at once.
const maxParallelFiles = 4

type fileJob struct {
	input config.InputConfig
	path  string
}

// Loader parses the input files below a data root.
type Loader struct {
	root   string
	logger *log.Logger
}

// NewLoader returns a loader resolving file patterns below root. An empty
// root means the working directory.
func NewLoader(root string, logger *log.Logger) *Loader {
	if root == "" {
		root = "."
	}
	if logger == nil {
		logger = log.Default(log.ComponentIngest)
	} else {
		logger = logger.WithComponent(log.ComponentIngest)
	}
	return &Loader{root: root, logger: logger}
}

// Load parses every file matched by inputs. Transactions keep input order,
// then file order (sorted paths), then row order.
func (l *Loader) Load(ctx context.Context, inputs []config.InputConfig) ([]core.Transaction, error) {
	var jobs []fileJob
	for _, in := range inputs {
		files, err := l.resolve(in.Files)
		if err != nil {
			return nil, fmt.Errorf("resolve files for %s: %w", in.Account, err)
		}
		if len(files) == 0 {
			l.logger.Warn("No files matched input patterns",
				log.FieldAccount, in.Account,
				"patterns", strings.Join(in.Files, ","))
		}
		for _, f := range files {
			jobs = append(jobs, fileJob{input: in, path: f})
		}
	}

	results := make([][]core.Transaction, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFiles)
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			txs, err := ReadFile(job.path, job.input)
			if err != nil {
				return err
			}
			results[i] = txs
			l.logger.Debug("Parsed input file",
				log.FieldFile, job.path,
				log.FieldAccount, job.input.Account,
				log.FieldRows, len(txs))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []core.Transaction
	for _, txs := range results {
		out = append(out, txs...)
	}
	l.logger.Info("Loaded transactions",
		log.FieldOperation, log.OpLoad,
		"files", len(jobs),
		log.FieldRows, len(out))
	return out, nil
}

// resolve walks the root once and returns the files whose path ends with
// one of the patterns, like a recursive glob.
func (l *Loader) resolve(patterns []string) ([]string, error) {
	for _, p := range patterns {
		if _, err := path.Match(filepath.ToSlash(p), ""); err != nil {
			return nil, &core.ConfigurationError{Field: "Files", Reason: fmt.Sprintf("bad pattern %q", p)}
		}
	}
	var files []string
	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return err
		}
		if matchAny(filepath.ToSlash(rel), patterns) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

func matchAny(rel string, patterns []string) bool {
	segments := strings.Split(rel, "/")
	for _, p := range patterns {
		p = strings.TrimPrefix(filepath.ToSlash(p), "./")
		n := strings.Count(p, "/") + 1
		if n > len(segments) {
			continue
		}
		tail := strings.Join(segments[len(segments)-n:], "/")
		if ok, _ := path.Match(p, tail); ok {
			return true
		}
	}
	return false
}

// ReadFile parses one export file.
func ReadFile(name string, in config.InputConfig) ([]core.Transaction, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	txs, err := Read(f, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return txs, nil
}

// Read parses CSV content with a header row according to in.
func Read(r io.Reader, in config.InputConfig) ([]core.Transaction, error) {
	if in.Encoding != "" {
		enc, err := htmlindex.Get(in.Encoding)
		if err != nil {
			return nil, &core.ConfigurationError{Field: "Encoding", Reason: fmt.Sprintf("unknown encoding %q", in.Encoding)}
		}
		r = transform.NewReader(r, enc.NewDecoder())
	}

	cr := csv.NewReader(r)
	if in.Delimiter != "" {
		cr.Comma = []rune(in.Delimiter)[0]
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := columns(header, in)
	if err != nil {
		return nil, err
	}

	var txs []core.Transaction
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		tx, err := cols.transaction(record, in)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

type columnIndex struct {
	date   int
	amount int
	text   []int
}

func columns(header []string, in config.InputConfig) (columnIndex, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, seen := index[h]; !seen {
			index[h] = i
		}
	}
	find := func(key string) (int, error) {
		i, ok := index[key]
		if !ok {
			return 0, &core.ConfigurationError{Field: in.Account, Reason: fmt.Sprintf("column %q not found in header", key)}
		}
		return i, nil
	}

	var (
		c   columnIndex
		err error
	)
	if c.date, err = find(in.DateKey); err != nil {
		return c, err
	}
	if c.amount, err = find(in.AmountKey); err != nil {
		return c, err
	}
	for _, key := range in.TextKeys {
		i, err := find(key)
		if err != nil {
			return c, err
		}
		c.text = append(c.text, i)
	}
	return c, nil
}

func (c columnIndex) transaction(record []string, in config.InputConfig) (core.Transaction, error) {
	cell := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	t, err := timefmt.Parse(cell(c.date), in.DateFormat)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q with %q: %w", cell(c.date), in.DateFormat, err)
	}
	amount, err := core.ParseAmount(cell(c.amount), in.Decimal)
	if err != nil {
		return core.Transaction{}, err
	}

	parts := make([]string, len(c.text))
	for i, col := range c.text {
		parts[i] = cell(col)
		if parts[i] == "" {
			parts[i] = EmptyCell
		}
	}
	return core.Transaction{
		Date:    core.DateOf(t),
		Text:    strings.Join(parts, TextSeparator),
		Amount:  amount,
		Account: in.Account,
	}, nil
}
