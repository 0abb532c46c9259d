package repository

import (
	"context"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	TableDocuments    = "documents"
	TableTransactions = "transactions"
	TableExtractJobs  = "extract_jobs"
)

const textSize = 2147483647

var (
	// DocumentsColumns holds the columns for the "documents" table.
	DocumentsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "name", Type: field.TypeString},
		{Name: "media_type", Type: field.TypeString},
		{Name: "format", Type: field.TypeString},
		{Name: "size_bytes", Type: field.TypeInt64},
		{Name: "content_hash", Type: field.TypeString, Unique: true},
		{Name: "source_path", Type: field.TypeString, Size: textSize},
		{Name: "status", Type: field.TypeString},
		{Name: "kind", Type: field.TypeString, Nullable: true},
		{Name: "confidence", Type: field.TypeFloat64, Nullable: true},
		{Name: "low_quality", Type: field.TypeBool, Default: false},
		{Name: "annotated_text", Type: field.TypeString, Nullable: true, Size: textSize},
		{Name: "fields", Type: field.TypeJSON, Nullable: true},
		{Name: "error_message", Type: field.TypeString, Nullable: true, Size: textSize},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
	// DocumentsTable holds the schema information for the "documents" table.
	DocumentsTable = &schema.Table{
		Name:       TableDocuments,
		Columns:    DocumentsColumns,
		PrimaryKey: []*schema.Column{DocumentsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "document_status_created_at", Columns: []*schema.Column{DocumentsColumns[7], DocumentsColumns[14]}},
		},
	}
	// TransactionsColumns holds the columns for the "transactions" table.
	TransactionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "tx_date", Type: field.TypeTime},
		{Name: "description", Type: field.TypeString, Size: 255},
		{Name: "amount", Type: field.TypeFloat64},
		{Name: "category", Type: field.TypeString},
		{Name: "type", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "document_id", Type: field.TypeUUID},
	}
	// TransactionsTable holds the schema information for the "transactions" table.
	TransactionsTable = &schema.Table{
		Name:       TableTransactions,
		Columns:    TransactionsColumns,
		PrimaryKey: []*schema.Column{TransactionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "transactions_documents_transactions",
				Columns:    []*schema.Column{TransactionsColumns[7]},
				RefColumns: []*schema.Column{DocumentsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "transaction_document_id_tx_date", Columns: []*schema.Column{TransactionsColumns[7], TransactionsColumns[1]}},
		},
	}
	// ExtractJobsColumns holds the columns for the "extract_jobs" table.
	ExtractJobsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "format", Type: field.TypeString},
		{Name: "status", Type: field.TypeString},
		{Name: "path", Type: field.TypeString, Nullable: true},
		{Name: "confidence", Type: field.TypeFloat64, Nullable: true},
		{Name: "low_quality", Type: field.TypeBool, Default: false},
		{Name: "annotated_text", Type: field.TypeString, Nullable: true, Size: textSize},
		{Name: "analysis_json", Type: field.TypeJSON, Nullable: true},
		{Name: "model_name", Type: field.TypeString, Nullable: true},
		{Name: "error_code", Type: field.TypeString, Nullable: true},
		{Name: "error_message", Type: field.TypeString, Nullable: true, Size: textSize},
		{Name: "started_at", Type: field.TypeTime},
		{Name: "finished_at", Type: field.TypeTime, Nullable: true},
		{Name: "document_id", Type: field.TypeUUID},
	}
	// ExtractJobsTable holds the schema information for the "extract_jobs" table.
	ExtractJobsTable = &schema.Table{
		Name:       TableExtractJobs,
		Columns:    ExtractJobsColumns,
		PrimaryKey: []*schema.Column{ExtractJobsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "extract_jobs_documents_jobs",
				Columns:    []*schema.Column{ExtractJobsColumns[13]},
				RefColumns: []*schema.Column{DocumentsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "extractjob_document_id_started_at", Columns: []*schema.Column{ExtractJobsColumns[13], ExtractJobsColumns[11]}},
		},
	}
	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		DocumentsTable,
		TransactionsTable,
		ExtractJobsTable,
	}
)

func init() {
	TransactionsTable.ForeignKeys[0].RefTable = DocumentsTable
	ExtractJobsTable.ForeignKeys[0].RefTable = DocumentsTable
}

// Migrate creates or updates the tables.
func (db *DB) Migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(db.drv)
	if err != nil {
		return dbError("migrate", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return dbError("migrate", err)
	}
	db.logger.Info("repository.migrate.ok", "dialect", db.dialect, "tables", len(Tables))
	return nil
}
