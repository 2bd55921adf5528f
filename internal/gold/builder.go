package gold

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-medallion/internal/engine"
	"github.com/askiada/go-medallion/internal/telemetry"
)

// Layer is the name of the gold layer in metrics.
const Layer = "gold"

// Tables of the catalog model.
const (
	CatalogDimension = "dim_table"
	CatalogFact      = "fact_table_profile"
)

// Recorder receives the row count of every table written.
type Recorder interface {
	SetTableRows(layer, table string, rows int64)
}

type Options struct {
	// Model takes precedence over ModelPath.
	Model *Model
	// ModelPath is read on every run. A missing file selects the catalog model.
	ModelPath string
	Recorder  Recorder
}

// Builder builds the gold layer from the silver layer.
type Builder struct {
	model     *Model
	modelPath string
	recorder  Recorder
}

func New(opts Options) *Builder {
	return &Builder{
		model:     opts.Model,
		modelPath: opts.ModelPath,
		recorder:  opts.Recorder,
	}
}

// Run writes the gold tables. Internal silver tables, prefixed with '_', are
// not part of the gold layer.
func (b *Builder) Run(ctx context.Context, sess *engine.Session, silverDir, goldDir string) error {
	logger := telemetry.FromContext(ctx)

	model, err := b.loadModel()
	if err != nil {
		return err
	}

	silverAlias, err := sess.Attach(ctx, silverDir)
	if err != nil {
		return err
	}
	goldAlias, err := sess.Attach(ctx, goldDir)
	if err != nil {
		return err
	}

	tables, err := silverTables(ctx, sess, silverAlias)
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		return errors.Wrap(ErrNoInputTables, silverDir)
	}

	w := &writer{sess: sess, silver: silverAlias, gold: goldAlias, recorder: b.recorder, logger: logger}
	if model == nil {
		logger.Info("no gold model, profiling silver tables", "model", b.modelPath)
		return w.catalog(ctx, tables)
	}

	err = model.Validate(tables)
	if err != nil {
		return err
	}

	for _, dim := range model.Dimensions {
		err = w.dimension(ctx, dim)
		if err != nil {
			return err
		}
	}
	dims := make(map[string]Dimension, len(model.Dimensions))
	for _, dim := range model.Dimensions {
		dims[dim.Name] = dim
	}
	for _, fact := range model.Facts {
		err = w.fact(ctx, fact, dims)
		if err != nil {
			return err
		}
	}

	return nil
}

func (b *Builder) loadModel() (*Model, error) {
	if b.model != nil || b.modelPath == "" {
		return b.model, nil
	}

	return LoadModel(b.modelPath)
}

// silverTables returns the columns of every public silver table.
func silverTables(ctx context.Context, sess *engine.Session, alias string) (map[string][]string, error) {
	names, err := sess.Tables(ctx, alias)
	if err != nil {
		return nil, err
	}

	res := make(map[string][]string, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, "_") {
			continue
		}
		cols, err := sess.Columns(ctx, alias, name)
		if err != nil {
			return nil, err
		}
		res[name] = cols
	}

	return res, nil
}

type writer struct {
	sess     *engine.Session
	silver   string
	gold     string
	recorder Recorder
	logger   *slog.Logger
}

func (w *writer) write(ctx context.Context, table, query string, args ...any) error {
	version, err := w.sess.WriteTable(ctx, w.gold, table, query, args...)
	if err != nil {
		return errors.Wrapf(err, "unable to build %s", table)
	}

	if w.recorder != nil {
		w.recorder.SetTableRows(Layer, table, version.Rows)
	}
	w.logger.Info("gold table written", "table", table, "version", version.Version, "rows", version.Rows)

	return nil
}

func quoteAll(prefix string, columns []string) []string {
	res := make([]string, len(columns))
	for i, col := range columns {
		res[i] = prefix + engine.QuoteIdent(col)
	}

	return res
}

func (w *writer) dimension(ctx context.Context, dim Dimension) error {
	cols := strings.Join(quoteAll("", dim.Columns), ", ")
	query := "SELECT ROW_NUMBER() OVER (ORDER BY " + cols + ") AS " + engine.QuoteIdent(dim.Key()) + ", " + cols +
		" FROM (SELECT DISTINCT " + cols + " FROM " + engine.Ref(w.silver, dim.Source) + ")"

	return w.write(ctx, dim.Table(), query)
}

// fact joins the dimensions on their natural columns. NULLs match NULLs; a
// row without a matching dimension member gets a NULL key.
func (w *writer) fact(ctx context.Context, fact Fact, dims map[string]Dimension) error {
	var selected, joins []string
	for i, name := range fact.Dimensions {
		dim := dims[name]
		alias := "d" + strconv.Itoa(i)
		selected = append(selected, alias+"."+engine.QuoteIdent(dim.Key())+" AS "+engine.QuoteIdent(dim.Key()))

		conds := make([]string, len(dim.Columns))
		for j, col := range dim.Columns {
			quoted := engine.QuoteIdent(col)
			conds[j] = "f." + quoted + " IS " + alias + "." + quoted
		}
		joins = append(joins, " LEFT JOIN "+engine.Ref(w.gold, dim.Table())+" AS "+alias+" ON "+strings.Join(conds, " AND "))
	}
	selected = append(selected, quoteAll("f.", fact.Measures)...)

	query := "SELECT " + strings.Join(selected, ", ") +
		" FROM " + engine.Ref(w.silver, fact.Source) + " AS f" + strings.Join(joins, "")

	return w.write(ctx, fact.Table(), query)
}

// catalog writes one dimension member per silver table and its profile.
func (w *writer) catalog(ctx context.Context, tables map[string][]string) error {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]string, len(names))
	args := make([]any, 0, 3*len(names))
	for i, name := range names {
		rows, err := w.sess.RowCount(ctx, w.silver, name)
		if err != nil {
			return err
		}
		values[i] = "(?, ?, ?)"
		args = append(args, name, rows, len(tables[name]))
	}
	profile := "(VALUES " + strings.Join(values, ", ") + ")"

	err := w.write(ctx, CatalogDimension,
		"SELECT ROW_NUMBER() OVER (ORDER BY column1) AS table_key, column1 AS table_name FROM "+profile, args...)
	if err != nil {
		return err
	}

	return w.write(ctx, CatalogFact,
		"SELECT d.table_key AS table_key, p.column2 AS row_count, p.column3 AS column_count FROM "+profile+
			" AS p JOIN "+engine.Ref(w.gold, CatalogDimension)+" AS d ON d.table_name = p.column1", args...)
}
