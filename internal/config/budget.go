package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"myfinances/internal/cache"
	"myfinances/internal/core"
)

// Budget is the main YAML file. Every path in it is relative to the budget
// configuration directory.
type Budget struct {
	InputsConfig             string   `yaml:"inputs_config"`
	LabelConfigRoot          string   `yaml:"label_config_root"`
	RenameTransactionsConfig string   `yaml:"rename_transactions_config"`
	DropTransactionsConfig   string   `yaml:"drop_transactions_config"`
	DropConfigs              []string `yaml:"drop_configs"`
	AddConfigs               []string `yaml:"add_configs"`
	MonthSplitDay            string   `yaml:"month_split_day"`
}

// Paths is a Budget with every file resolved against the config directory.
type Paths struct {
	Dir              string
	Inputs           string
	LabelConfigs     []string
	Rename           string
	DropTransactions string
	DropConfigs      []string
	AddConfigs       []string
	// MonthSplitDay is 0 when the budget file does not set one.
	MonthSplitDay int
}

// InputConfig describes one bank export format and where its files live.
type InputConfig struct {
	Account    string   `yaml:"Account"`
	Files      []string `yaml:"Files"`
	Delimiter  string   `yaml:"Delimiter"`
	Decimal    string   `yaml:"Decimal"`
	DateKey    string   `yaml:"DateKey"`
	DateFormat string   `yaml:"DateFormat"`
	AmountKey  string   `yaml:"AmountKey"`
	TextKeys   []string `yaml:"TextKeys"`
	Encoding   string   `yaml:"Encoding"`
}

// RenameRule replaces a transaction text that equals OldText.
type RenameRule struct {
	OldText string `yaml:"old_text"`
	NewText string `yaml:"new_text"`
}

// DropRule removes transactions whose text contains Identifier.
type DropRule struct {
	Reason     string
	Identifier string
}

// LabelRule labels transactions whose text contains Identifier.
type LabelRule struct {
	Label      string
	Sublabel   string
	Identifier string
	File       string
}

// LoadPaths reads the main budget file. An empty dir means ./config.
func LoadPaths(budgetFile, dir string) (*Paths, error) {
	if dir == "" {
		dir = "config"
	}
	var b Budget
	if err := decodeFile(budgetFile, &b); err != nil {
		return nil, err
	}
	if b.InputsConfig == "" {
		return nil, &core.ConfigurationError{Field: "inputs_config", Reason: "required"}
	}
	if b.LabelConfigRoot == "" {
		return nil, &core.ConfigurationError{Field: "label_config_root", Reason: "required"}
	}

	p := &Paths{
		Dir:    dir,
		Inputs: filepath.Join(dir, b.InputsConfig),
	}
	if b.RenameTransactionsConfig != "" {
		p.Rename = filepath.Join(dir, b.RenameTransactionsConfig)
	}
	if b.DropTransactionsConfig != "" {
		p.DropTransactions = filepath.Join(dir, b.DropTransactionsConfig)
	}
	for _, f := range b.DropConfigs {
		p.DropConfigs = append(p.DropConfigs, filepath.Join(dir, f))
	}
	for _, f := range b.AddConfigs {
		p.AddConfigs = append(p.AddConfigs, filepath.Join(dir, f))
	}
	if b.MonthSplitDay != "" {
		day, err := core.ParseMonthSplitDay(b.MonthSplitDay)
		if err != nil {
			return nil, err
		}
		p.MonthSplitDay = day
	}

	labels, err := findLabelConfigs(filepath.Join(dir, b.LabelConfigRoot))
	if err != nil {
		return nil, err
	}
	p.LabelConfigs = labels
	return p, nil
}

// findLabelConfigs returns every *.yaml below root, sorted.
func findLabelConfigs(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".yaml" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, &core.ConfigurationError{Field: "label_config_root", Reason: err.Error()}
	}
	if len(files) == 0 {
		return nil, &core.ConfigurationError{
			Field:  "label_config_root",
			Reason: fmt.Sprintf("found no label config files in %s", root),
		}
	}
	slices.Sort(files)
	return files, nil
}

// LoadInputs reads the list of input definitions.
func LoadInputs(path string) ([]InputConfig, error) {
	var inputs []InputConfig
	if err := decodeFile(path, &inputs); err != nil {
		return nil, err
	}
	for i := range inputs {
		in := &inputs[i]
		if err := in.validate(); err != nil {
			return nil, fmt.Errorf("%s: input %d: %w", path, i, err)
		}
		if in.Encoding == "" {
			in.Encoding = "iso-8859-1"
		}
	}
	return inputs, nil
}

func (in InputConfig) validate() error {
	required := map[string]string{
		"Account":    in.Account,
		"Delimiter":  in.Delimiter,
		"Decimal":    in.Decimal,
		"DateKey":    in.DateKey,
		"DateFormat": in.DateFormat,
		"AmountKey":  in.AmountKey,
	}
	for _, field := range []string{"Account", "Delimiter", "Decimal", "DateKey", "DateFormat", "AmountKey"} {
		if strings.TrimSpace(required[field]) == "" {
			return &core.ConfigurationError{Field: field, Reason: "required"}
		}
	}
	if len(in.Files) == 0 {
		return &core.ConfigurationError{Field: "Files", Reason: "at least one pattern required"}
	}
	if len(in.TextKeys) == 0 {
		return &core.ConfigurationError{Field: "TextKeys", Reason: "at least one column required"}
	}
	if len([]rune(in.Delimiter)) != 1 {
		return &core.ConfigurationError{Field: "Delimiter", Reason: "must be a single character"}
	}
	return nil
}

// LoadRenameRules reads the rename file. An empty path yields no rules.
func LoadRenameRules(path string) ([]RenameRule, error) {
	if path == "" {
		return nil, nil
	}
	var doc struct {
		Transactions []RenameRule `yaml:"transactions"`
	}
	if err := decodeFile(path, &doc); err != nil {
		return nil, err
	}
	for _, r := range doc.Transactions {
		if r.OldText == "" {
			return nil, &core.ConfigurationError{Field: "old_text", Reason: "required"}
		}
	}
	return doc.Transactions, nil
}

// LoadDropRules reads "reason: [identifier, ...]" in file order. An empty
// path yields no rules.
func LoadDropRules(path string) ([]DropRule, error) {
	if path == "" {
		return nil, nil
	}
	entries, err := decodeMapping[[]string](path)
	if err != nil {
		return nil, err
	}
	var rules []DropRule
	for _, e := range entries {
		for _, id := range e.value {
			rules = append(rules, DropRule{Reason: e.key, Identifier: id})
		}
	}
	return rules, nil
}

// LoadLabelRules reads every label file. Each file looks like
//
//	label: Food
//	sublabels:
//	  Groceries: [SUPERMARKET, BAKERY]
func LoadLabelRules(paths []string) ([]LabelRule, error) {
	var rules []LabelRule
	for _, path := range paths {
		var doc struct {
			Label     string    `yaml:"label"`
			Sublabels yaml.Node `yaml:"sublabels"`
		}
		if err := decodeFile(path, &doc); err != nil {
			return nil, err
		}
		if doc.Label == "" {
			return nil, &core.ConfigurationError{Field: path + ": label", Reason: "required"}
		}
		entries, err := mappingEntries[[]string](&doc.Sublabels)
		if err != nil {
			return nil, fmt.Errorf("%s: sublabels: %w", path, err)
		}
		for _, e := range entries {
			for _, id := range e.value {
				rules = append(rules, LabelRule{Label: doc.Label, Sublabel: e.key, Identifier: id, File: path})
			}
		}
	}
	return rules, nil
}

// LoadDropLabels reads "Label: [Sublabel, ...]" drop directives.
func LoadDropLabels(path string) ([]core.LabelPair, error) {
	entries, err := decodeMapping[[]string](path)
	if err != nil {
		return nil, err
	}
	var pairs []core.LabelPair
	for _, e := range entries {
		for _, sub := range e.value {
			pairs = append(pairs, core.LabelPair{Label: e.key, Sublabel: sub})
		}
	}
	return pairs, nil
}

// LoadAddLabels reads "name: {Label, Sublabel, Amount}" add directives.
func LoadAddLabels(path string) ([]core.AddLabel, error) {
	type addEntry struct {
		Label    string   `yaml:"Label"`
		Sublabel string   `yaml:"Sublabel"`
		Amount   *float64 `yaml:"Amount"`
	}
	entries, err := decodeMapping[addEntry](path)
	if err != nil {
		return nil, err
	}
	adds := make([]core.AddLabel, 0, len(entries))
	for _, e := range entries {
		if e.value.Label == "" || e.value.Sublabel == "" || e.value.Amount == nil {
			return nil, &core.ConfigurationError{
				Field:  path + ": " + e.key,
				Reason: "Label, Sublabel and Amount are required",
			}
		}
		adds = append(adds, core.AddLabel{Label: e.value.Label, Sublabel: e.value.Sublabel, Amount: *e.value.Amount})
	}
	return adds, nil
}

// documents holds parsed YAML files. The key carries the modification time
// and size, so an edited file is parsed again.
var documents = cache.NewLRU[*yaml.Node](128, 10*time.Minute)

func decodeFile(path string, out any) error {
	doc, err := readDocument(path)
	if err != nil {
		return err
	}
	if doc.Kind == 0 {
		return nil
	}
	if err := doc.Decode(out); err != nil {
		return &core.ConfigurationError{Field: path, Reason: err.Error()}
	}
	return nil
}

func readDocument(path string) (*yaml.Node, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &core.ConfigurationError{Field: path, Reason: err.Error()}
	}
	key := fmt.Sprintf("%s|%d|%d", path, info.ModTime().UnixNano(), info.Size())
	if doc, ok := documents.Get(key); ok {
		return doc, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.ConfigurationError{Field: path, Reason: err.Error()}
	}
	doc := new(yaml.Node)
	if err := yaml.Unmarshal(raw, doc); err != nil {
		return nil, &core.ConfigurationError{Field: path, Reason: err.Error()}
	}
	documents.Set(key, doc)
	return doc, nil
}

type entry[T any] struct {
	key   string
	value T
}

// decodeMapping reads a top-level mapping preserving document order.
func decodeMapping[T any](path string) ([]entry[T], error) {
	var node yaml.Node
	if err := decodeFile(path, &node); err != nil {
		return nil, err
	}
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.DocumentNode || len(node.Content) != 1 {
		return nil, &core.ConfigurationError{Field: path, Reason: "expected a single YAML document"}
	}
	entries, err := mappingEntries[T](node.Content[0])
	if err != nil {
		return nil, &core.ConfigurationError{Field: path, Reason: err.Error()}
	}
	return entries, nil
}

func mappingEntries[T any](node *yaml.Node) ([]entry[T], error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	out := make([]entry[T], 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var v T
		if err := node.Content[i+1].Decode(&v); err != nil {
			return nil, fmt.Errorf("%s: %w", node.Content[i].Value, err)
		}
		out = append(out, entry[T]{key: node.Content[i].Value, value: v})
	}
	return out, nil
}
