package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-medallion/internal/engine"
)

func queryStrings(t *testing.T, sess *engine.Session, query string) []string {
	t.Helper()

	rows, err := sess.Query(context.Background(), query)
	require.NoError(t, err)
	defer rows.Close()

	res := []string{}
	for rows.Next() {
		var v string
		require.NoError(t, rows.Scan(&v))
		res = append(res, v)
	}
	require.NoError(t, rows.Err())

	return res
}

func TestWriteRowsVersions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sess := newSession(t)
	alias, err := sess.Attach(ctx, t.TempDir())
	require.NoError(t, err)

	v1, err := sess.WriteRows(ctx, alias, "city", []string{"name"}, [][]string{{"dublin"}, {"cork"}}, engine.Overwrite)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1.Version)
	assert.Equal(t, int64(2), v1.Rows)

	v2, err := sess.WriteRows(ctx, alias, "city", []string{"name"}, [][]string{{"galway"}}, engine.Append)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2.Version)
	assert.Equal(t, int64(3), v2.Rows)

	v3, err := sess.WriteRows(ctx, alias, "city", []string{"name"}, [][]string{{"limerick"}}, engine.Overwrite)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v3.Version)

	assert.Equal(t, []string{"limerick"}, queryStrings(t, sess, "SELECT name FROM "+engine.Ref(alias, "city")))
	assert.Equal(t, []string{"cork", "dublin", "galway"},
		queryStrings(t, sess, "SELECT name FROM "+engine.VersionRef(alias, "city", 2)+" ORDER BY name"))

	history, err := sess.History(ctx, alias, "city")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []string{"overwrite", "append", "overwrite"},
		[]string{history[0].Operation, history[1].Operation, history[2].Operation})
	assert.Equal(t, int64(1), history[2].Rows)
	assert.False(t, history[0].CommittedAt.IsZero())
}

func TestAppendToMissingTableCreatesIt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sess := newSession(t)
	alias, err := sess.Attach(ctx, t.TempDir())
	require.NoError(t, err)

	v, err := sess.WriteRows(ctx, alias, "fresh", []string{"a", "b"}, [][]string{{"1", "2"}}, engine.Append)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Version)

	cols, err := sess.Columns(ctx, alias, "fresh")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cols)
}

func TestAppendSchemaMismatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sess := newSession(t)
	alias, err := sess.Attach(ctx, t.TempDir())
	require.NoError(t, err)

	_, err = sess.WriteRows(ctx, alias, "t", []string{"a"}, [][]string{{"1"}}, engine.Overwrite)
	require.NoError(t, err)

	_, err = sess.WriteRows(ctx, alias, "t", []string{"b"}, [][]string{{"1"}}, engine.Append)
	assert.ErrorIs(t, err, engine.ErrSchemaMismatch)
}

func TestWriteRowsRejectsBadInput(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sess := newSession(t)
	alias, err := sess.Attach(ctx, t.TempDir())
	require.NoError(t, err)

	_, err = sess.WriteRows(ctx, alias, "t", nil, nil, engine.Overwrite)
	require.ErrorIs(t, err, engine.ErrNoColumns)

	_, err = sess.WriteRows(ctx, alias, "t", []string{"a", "b"}, [][]string{{"only one"}}, engine.Overwrite)
	require.ErrorIs(t, err, engine.ErrRowWidth)

	// a failed write leaves no version behind
	_, err = sess.History(ctx, alias, "t")
	assert.ErrorIs(t, err, engine.ErrTableNotFound)
}

func TestWriteTableAcrossStores(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sess := newSession(t)
	src, err := sess.Attach(ctx, t.TempDir()+"/bronze")
	require.NoError(t, err)
	dst, err := sess.Attach(ctx, t.TempDir()+"/silver")
	require.NoError(t, err)

	_, err = sess.WriteRows(ctx, src, "n", []string{"v"}, [][]string{{"1"}, {"2"}, {"3"}}, engine.Overwrite)
	require.NoError(t, err)

	v, err := sess.WriteTable(ctx, dst, "big", "SELECT v FROM "+engine.Ref(src, "n")+" WHERE CAST(v AS INTEGER) >= ?", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.Rows)

	tables, err := sess.Tables(ctx, dst)
	require.NoError(t, err)
	assert.Equal(t, []string{"big"}, tables)
}

func TestColumnsUnknownTable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sess := newSession(t)
	alias, err := sess.Attach(ctx, t.TempDir())
	require.NoError(t, err)

	_, err = sess.Columns(ctx, alias, "missing")
	assert.ErrorIs(t, err, engine.ErrTableNotFound)
	_, err = sess.RowCount(ctx, alias, "missing")
	assert.ErrorIs(t, err, engine.ErrTableNotFound)
}

func TestIdentifier(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Customer Name":   "customer_name",
		"  order-ID  ":    "order_id",
		"2024 sales":      "_2024_sales",
		"__x__":           "x",
		"":                "col",
		"%%%":             "col",
		"Amount (EUR)":    "amount_eur",
		"already_snake_1": "already_snake_1",
	}
	for label, expected := range tests {
		assert.Equal(t, expected, engine.Identifier(label), label)
	}
	assert.Equal(t, `"a""b"`, engine.QuoteIdent(`a"b`))
	assert.Equal(t, `"s"."t"`, engine.Ref("s", "t"))
}
