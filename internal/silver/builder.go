package silver

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-medallion/internal/bronze"
	"github.com/askiada/go-medallion/internal/engine"
	"github.com/askiada/go-medallion/internal/telemetry"
)

const (
	// Layer is the name of the silver layer in metrics.
	Layer = "silver"
	// ReconciliationTable holds the row counts of the last run.
	ReconciliationTable = "_reconciliation"
)

// Recorder receives the row count of every table written.
type Recorder interface {
	SetTableRows(layer, table string, rows int64)
}

type Options struct {
	Recorder Recorder
}

// Builder builds the silver layer from the bronze layer.
type Builder struct {
	recorder Recorder
}

func New(opts Options) *Builder {
	return &Builder{recorder: opts.Recorder}
}

// Reconciliation compares the rows of a bronze table and of its silver table.
type Reconciliation struct {
	Table      string
	BronzeRows int64
	SilverRows int64
}

func (r Reconciliation) Dropped() int64 {
	return r.BronzeRows - r.SilverRows
}

// Run writes one silver table per bronze table, then the reconciliation table.
func (b *Builder) Run(ctx context.Context, sess *engine.Session, bronzeDir, silverDir string) error {
	logger := telemetry.FromContext(ctx)

	bronzeAlias, err := sess.Attach(ctx, bronzeDir)
	if err != nil {
		return err
	}
	silverAlias, err := sess.Attach(ctx, silverDir)
	if err != nil {
		return err
	}

	tables, err := sess.Tables(ctx, bronzeAlias)
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		return errors.Wrap(ErrNoInputTables, bronzeDir)
	}

	recs := make([]Reconciliation, 0, len(tables))
	for _, table := range tables {
		rec, err := b.clean(ctx, sess, bronzeAlias, silverAlias, table)
		if err != nil {
			return errors.Wrapf(err, "unable to clean %s", table)
		}
		recs = append(recs, rec)
		logger.Info("silver table written",
			"table", table, "bronze_rows", rec.BronzeRows, "silver_rows", rec.SilverRows, "dropped_rows", rec.Dropped())
	}

	version, err := writeReconciliation(ctx, sess, silverAlias, recs)
	if err != nil {
		return err
	}
	b.record(ReconciliationTable, version.Rows)

	return nil
}

func (b *Builder) record(table string, rows int64) {
	if b.recorder != nil {
		b.recorder.SetTableRows(Layer, table, rows)
	}
}

func (b *Builder) clean(ctx context.Context, sess *engine.Session, bronzeAlias, silverAlias, table string) (Reconciliation, error) {
	rec := Reconciliation{Table: table}

	columns, err := sess.Columns(ctx, bronzeAlias, table)
	if err != nil {
		return rec, err
	}

	rec.BronzeRows, err = sess.RowCount(ctx, bronzeAlias, table)
	if err != nil {
		return rec, err
	}

	query, err := cleanQuery(engine.Ref(bronzeAlias, table), columns)
	if err != nil {
		return rec, err
	}

	version, err := sess.WriteTable(ctx, silverAlias, table, query)
	if err != nil {
		return rec, err
	}
	rec.SilverRows = version.Rows
	b.record(table, version.Rows)

	return rec, nil
}

// cleanQuery selects the cleaned rows of the bronze table ref. Duplicates are
// detected on the data columns; the first source file is kept.
func cleanQuery(ref string, columns []string) (string, error) {
	var data []string
	hasSource := false
	for _, col := range columns {
		switch col {
		case bronze.ColumnSourceFile:
			hasSource = true
		case bronze.ColumnIngestedAt:
		default:
			data = append(data, engine.QuoteIdent(col))
		}
	}
	if len(data) == 0 {
		return "", errors.Errorf("%s has no data column", ref)
	}

	trimmed := make([]string, len(data))
	isNull := make([]string, len(data))
	for i, col := range data {
		trimmed[i] = "NULLIF(TRIM(" + col + "), '') AS " + col
		isNull[i] = col + " IS NULL"
	}

	inner := strings.Join(trimmed, ", ")
	outer := strings.Join(data, ", ")
	if hasSource {
		source := engine.QuoteIdent(bronze.ColumnSourceFile)
		inner += ", " + source
		outer += ", MIN(" + source + ") AS " + source
	}

	return "SELECT " + outer +
		" FROM (SELECT " + inner + " FROM " + ref + ")" +
		" WHERE NOT (" + strings.Join(isNull, " AND ") + ")" +
		" GROUP BY " + strings.Join(data, ", "), nil
}

func writeReconciliation(ctx context.Context, sess *engine.Session, alias string, recs []Reconciliation) (engine.Version, error) {
	values := make([]string, len(recs))
	args := make([]any, 0, 4*len(recs))
	for i, rec := range recs {
		values[i] = "(?, ?, ?, ?)"
		args = append(args, rec.Table, rec.BronzeRows, rec.SilverRows, rec.Dropped())
	}

	query := "SELECT column1 AS table_name, column2 AS bronze_rows, column3 AS silver_rows, column4 AS dropped_rows" +
		" FROM (VALUES " + strings.Join(values, ", ") + ")"

	version, err := sess.WriteTable(ctx, alias, ReconciliationTable, query, args...)
	if err != nil {
		return version, errors.Wrap(err, "unable to write reconciliation")
	}

	return version, nil
}
