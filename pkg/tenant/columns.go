package tenant

import (
	"fmt"
	"strings"

	"github.com/solindex-labs/solindex/pkg/event"
)

// ColumnDef defines a single destination-table column. It is the single
// source of truth for schema generation across both database engines.
type ColumnDef struct {
	// Name is the column name in the destination table
	Name string

	// Pg is the PostgreSQL data type (e.g. "TEXT", "DOUBLE PRECISION")
	Pg string

	// Ch is the ClickHouse data type (e.g. "String", "Float64")
	Ch string

	// Unique marks the column as UNIQUE in PostgreSQL and as the
	// ReplacingMergeTree ordering key in ClickHouse
	Unique bool
}

func signature() ColumnDef { return ColumnDef{Name: "signature", Pg: "TEXT NOT NULL", Ch: "String", Unique: true} }

func text(name string) ColumnDef      { return ColumnDef{Name: name, Pg: "TEXT", Ch: "String"} }
func bigint(name string) ColumnDef    { return ColumnDef{Name: name, Pg: "BIGINT", Ch: "Int64"} }
func double(name string) ColumnDef    { return ColumnDef{Name: name, Pg: "DOUBLE PRECISION", Ch: "Float64"} }
func boolean(name string) ColumnDef   { return ColumnDef{Name: name, Pg: "BOOLEAN", Ch: "Bool"} }
func jsonb(name string) ColumnDef     { return ColumnDef{Name: name, Pg: "JSONB", Ch: "String"} }
func textArray(name string) ColumnDef { return ColumnDef{Name: name, Pg: "TEXT[]", Ch: "Array(String)"} }

// envelopeColumns are the raw-payload passthrough columns shared by every
// destination table.
func envelopeColumns(withAccountData, withInstructions bool) []ColumnDef {
	cols := []ColumnDef{text("description")}
	if withAccountData {
		cols = append(cols, jsonb("account_data"))
	}
	cols = append(cols, jsonb("events"), bigint("fee"))
	if withInstructions {
		cols = append(cols, jsonb("instructions"))
	}
	cols = append(cols,
		jsonb("native_transfers"),
		text("source"),
		bigint("timestamp"),
		jsonb("token_transfers"),
		jsonb("transaction_error"),
		text("type"),
	)
	return cols
}

func instructionColumns() []ColumnDef {
	return []ColumnDef{
		text("program_id"),
		textArray("accounts"),
		text("data"),
		jsonb("inner_instructions"),
	}
}

var saleColumns = append(append([]ColumnDef{
	signature(),
	text("mint"),
	text("seller"),
	text("buyer"),
	text("marketplace"),
	double("price"),
	text("currency"),
	text("auction_house"),
	bigint("slot"),
	bigint("block_time"),
	text("token_standard"),
	text("fee_payer"),
	text("sale_type"),
	double("tx_fee"),
	double("royalty_fee"),
	double("marketplace_fee"),
}, instructionColumns()...), append([]ColumnDef{jsonb("metadata")}, envelopeColumns(true, true)...)...)

var mintColumns = append(append([]ColumnDef{
	signature(),
	text("mint"),
	text("token_standard"),
	text("mint_authority"),
	text("owner"),
	bigint("slot"),
	bigint("block_time"),
	text("fee_payer"),
	text("collection"),
	boolean("collection_verified"),
	double("royalties"),
	text("name"),
	text("symbol"),
	text("uri"),
	double("tx_fee"),
	bigint("seller_fee_basis_points"),
	jsonb("creators"),
	jsonb("metadata"),
}, instructionColumns()...), envelopeColumns(false, false)...)

var listingColumns = append(append([]ColumnDef{
	signature(),
	text("mint"),
	text("seller"),
	text("marketplace"),
	double("price"),
	text("currency"),
	text("auction_house"),
	bigint("slot"),
	bigint("block_time"),
	text("fee_payer"),
	bigint("token_size"),
	bigint("expiry"),
	bigint("listing_time"),
	text("listing_state"),
	text("token_account"),
	jsonb("metadata"),
}, instructionColumns()...), envelopeColumns(true, true)...)

var compressedMintColumns = append(append([]ColumnDef{
	signature(),
	text("mint"),
	text("token_standard"),
	text("mint_authority"),
	text("owner"),
	text("merkle_tree"),
	bigint("leaf_index"),
	bigint("slot"),
	bigint("block_time"),
	text("fee_payer"),
	text("collection"),
	boolean("collection_verified"),
	double("royalties"),
	text("name"),
	text("symbol"),
	text("uri"),
	double("tx_fee"),
	bigint("seller_fee_basis_points"),
	text("tree_authority"),
	text("compression_program"),
	text("asset_id"),
	bigint("canopy_depth"),
	jsonb("creators"),
	jsonb("metadata"),
	jsonb("compressed_nft_metadata"),
	jsonb("proof_path"),
}, instructionColumns()...), envelopeColumns(true, true)...)

// Columns returns the destination-table column definitions for a category.
func Columns(c event.Category) []ColumnDef {
	switch c {
	case event.CategorySale:
		return saleColumns
	case event.CategoryMint:
		return mintColumns
	case event.CategoryListing:
		return listingColumns
	case event.CategoryCompressedMint:
		return compressedMintColumns
	default:
		return nil
	}
}

// ColumnNames extracts the column names for INSERT statements.
func ColumnNames(columns []ColumnDef) []string {
	names := make([]string, 0, len(columns))
	for _, col := range columns {
		names = append(names, col.Name)
	}
	return names
}

// PgCreateTableSQL builds the CREATE TABLE statement for a PostgreSQL
// destination table. Uniqueness of the signature column backs duplicate
// delivery detection.
func PgCreateTableSQL(table string, columns []ColumnDef) string {
	parts := make([]string, 0, len(columns)+2)
	parts = append(parts, "id BIGSERIAL PRIMARY KEY")
	for _, col := range columns {
		def := fmt.Sprintf("%s %s", col.Name, col.Pg)
		if col.Unique {
			def += " UNIQUE"
		}
		parts = append(parts, def)
	}
	parts = append(parts, "created_at TIMESTAMPTZ NOT NULL DEFAULT now()")
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", table, strings.Join(parts, ",\n\t"))
}

// ChCreateTableSQL builds the CREATE TABLE statement for a ClickHouse
// destination table. ReplacingMergeTree keyed on the unique column collapses
// duplicate deliveries at merge time.
func ChCreateTableSQL(table string, columns []ColumnDef) string {
	orderBy := "signature"
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		if col.Unique {
			orderBy = col.Name
		}
		parts = append(parts, fmt.Sprintf("%s %s", col.Name, col.Ch))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n) ENGINE = ReplacingMergeTree ORDER BY %s",
		table, strings.Join(parts, ",\n\t"), orderBy)
}

// PgInsertSQL builds a positional-placeholder INSERT for PostgreSQL.
func PgInsertSQL(table string, columns []ColumnDef) string {
	names := ColumnNames(columns)
	placeholders := make([]string, 0, len(names))
	for i := range names {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "), strings.Join(placeholders, ", "))
}

// ChInsertSQL builds a question-mark-placeholder INSERT for ClickHouse.
func ChInsertSQL(table string, columns []ColumnDef) string {
	names := ColumnNames(columns)
	placeholders := make([]string, 0, len(names))
	for range names {
		placeholders = append(placeholders, "?")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "), strings.Join(placeholders, ", "))
}
