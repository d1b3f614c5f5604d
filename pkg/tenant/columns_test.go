package tenant

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/solindex-labs/solindex/pkg/event"
	"github.com/solindex-labs/solindex/pkg/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordFor(c event.Category) normalize.Record {
	switch c {
	case event.CategorySale:
		return &normalize.SaleRecord{Signature: "sig"}
	case event.CategoryMint:
		return &normalize.MintRecord{Signature: "sig"}
	case event.CategoryListing:
		return &normalize.ListingRecord{Signature: "sig"}
	case event.CategoryCompressedMint:
		return &normalize.CompressedMintRecord{Signature: "sig"}
	default:
		return nil
	}
}

func TestColumnsMatchValues(t *testing.T) {
	for _, cat := range event.All() {
		cols := Columns(cat)
		require.NotEmpty(t, cols, cat.String())

		values, err := Values(recordFor(cat))
		require.NoError(t, err, cat.String())
		assert.Len(t, values, len(cols), "column/value count mismatch for %s", cat)
	}
}

func TestColumnsSignatureFirstAndUnique(t *testing.T) {
	for _, cat := range event.All() {
		cols := Columns(cat)
		require.NotEmpty(t, cols)
		assert.Equal(t, "signature", cols[0].Name, cat.String())
		assert.True(t, cols[0].Unique, cat.String())
	}
}

func TestColumnNamesUnique(t *testing.T) {
	for _, cat := range event.All() {
		seen := map[string]bool{}
		for _, name := range ColumnNames(Columns(cat)) {
			assert.False(t, seen[name], "duplicate column %s in %s", name, cat)
			seen[name] = true
		}
	}
}

func TestPgCreateTableSQL(t *testing.T) {
	sql := PgCreateTableSQL("nft_sales", Columns(event.CategorySale))

	assert.True(t, strings.HasPrefix(sql, "CREATE TABLE IF NOT EXISTS nft_sales"))
	assert.Contains(t, sql, "id BIGSERIAL PRIMARY KEY")
	assert.Contains(t, sql, "signature TEXT NOT NULL UNIQUE")
	assert.Contains(t, sql, "price DOUBLE PRECISION")
	assert.Contains(t, sql, "accounts TEXT[]")
	assert.Contains(t, sql, "metadata JSONB")
	assert.Contains(t, sql, "created_at TIMESTAMPTZ NOT NULL DEFAULT now()")
}

func TestChCreateTableSQL(t *testing.T) {
	sql := ChCreateTableSQL("nft_sales", Columns(event.CategorySale))

	assert.True(t, strings.HasPrefix(sql, "CREATE TABLE IF NOT EXISTS nft_sales"))
	assert.Contains(t, sql, "signature String")
	assert.Contains(t, sql, "price Float64")
	assert.Contains(t, sql, "accounts Array(String)")
	assert.Contains(t, sql, "ENGINE = ReplacingMergeTree ORDER BY signature")
	assert.NotContains(t, sql, "PRIMARY KEY")
}

func TestInsertSQLPlaceholders(t *testing.T) {
	cols := Columns(event.CategoryMint)

	pg := PgInsertSQL("nft_mints", cols)
	assert.True(t, strings.HasPrefix(pg, "INSERT INTO nft_mints ("))
	assert.Contains(t, pg, "$1")
	assert.Contains(t, pg, "$"+strconv.Itoa(len(cols)))
	assert.NotContains(t, pg, "$"+strconv.Itoa(len(cols)+1))

	ch := ChInsertSQL("nft_mints", cols)
	assert.Equal(t, len(cols), strings.Count(ch, "?"))
}

func TestValuesRendersEmptyJSONAsNull(t *testing.T) {
	values, err := Values(&normalize.MintRecord{Signature: "sig"})
	require.NoError(t, err)

	cols := ColumnNames(Columns(event.CategoryMint))
	for i, name := range cols {
		if name == "creators" || name == "metadata" {
			assert.Equal(t, "null", values[i], name)
		}
	}
}

func TestValuesPreservesRawJSON(t *testing.T) {
	rec := &normalize.SaleRecord{
		Signature: "sig",
		Events:    json.RawMessage(`{"nft":{"amount":1500000000}}`),
		Accounts:  nil,
	}
	values, err := Values(rec)
	require.NoError(t, err)

	cols := ColumnNames(Columns(event.CategorySale))
	for i, name := range cols {
		switch name {
		case "events":
			assert.JSONEq(t, `{"nft":{"amount":1500000000}}`, values[i].(string))
		case "accounts":
			assert.Equal(t, []string{}, values[i], "nil accounts must insert as empty array")
		}
	}
}

func TestValuesRejectsUnknownRecord(t *testing.T) {
	_, err := Values(nil)
	assert.Error(t, err)
}
