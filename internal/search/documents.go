package search

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// ObjectURLSigner produces a time-limited download URL for a stored document
// file. Implemented by the MinIO blob store; nil disables presigned links.
type ObjectURLSigner interface {
	PresignGet(ctx context.Context, objectKey string) (string, error)
}

// DocumentsSource searches contract documents. When a Meilisearch backend is
// configured and healthy the candidate fetch goes there; otherwise (or on
// error) it falls back to the documents table. Both paths feed the same local
// scorer, so ranking semantics do not depend on the backend.
type DocumentsSource struct {
	db     *sql.DB
	meili  *MeiliDocs // may be nil
	signer ObjectURLSigner
}

// NewDocumentsSource creates the documents adapter. meili and signer may be
// nil.
func NewDocumentsSource(db *sql.DB, meili *MeiliDocs, signer ObjectURLSigner) *DocumentsSource {
	return &DocumentsSource{db: db, meili: meili, signer: signer}
}

func (s *DocumentsSource) Type() SourceType { return SourceDocuments }

func (s *DocumentsSource) Search(ctx context.Context, q Query, offset, limit int) ([]Hit, int, error) {
	if s.meili != nil && s.meili.Healthy() {
		records, total, err := s.meili.Search(ctx, q.Text, offset, limit)
		if err == nil {
			return s.toHits(ctx, records), total, nil
		}
		log.Printf("search: documents meilisearch error, falling back to postgres: %v", err)
	}
	return s.searchPostgres(ctx, q, offset, limit)
}

func (s *DocumentsSource) searchPostgres(ctx context.Context, q Query, offset, limit int) ([]Hit, int, error) {
	where := `(file_name ILIKE $1 OR account_name ILIKE $1 OR opportunity_name ILIKE $1
		OR notes ILIKE $1 OR extracted_text ILIKE $1)`
	args := []any{likePattern(q.Text)}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("documents count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT id, file_name, coalesce(account_name, ''), coalesce(opportunity_name, ''),
			coalesce(notes, ''), coalesce(extracted_text, ''), coalesce(storage_key, ''),
			coalesce(contract_id, '')
		FROM documents
		WHERE %s
		ORDER BY updated_at DESC, id
		LIMIT %d OFFSET %d`, where, limit, offset)

	rows, err := s.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("documents query: %w", err)
	}
	defer rows.Close()

	var records []DocumentRecord
	for rows.Next() {
		var d DocumentRecord
		if err := rows.Scan(&d.ID, &d.FileName, &d.AccountName, &d.OpportunityName,
			&d.Notes, &d.ExtractedText, &d.StorageKey, &d.ContractID); err != nil {
			return nil, 0, fmt.Errorf("documents scan: %w", err)
		}
		records = append(records, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return s.toHits(ctx, records), total, nil
}

func (s *DocumentsSource) toHits(ctx context.Context, records []DocumentRecord) []Hit {
	hits := make([]Hit, 0, len(records))
	for _, d := range records {
		url := "/documents/" + d.ID
		if d.StorageKey != "" && s.signer != nil {
			if signed, err := s.signer.PresignGet(ctx, d.StorageKey); err == nil {
				url = signed
			} else {
				log.Printf("search: presign document %s: %v", d.ID, err)
			}
		}
		hits = append(hits, Hit{
			ID: d.ID,
			Fields: []Field{
				{Name: "file_name", Display: "File Name", Value: d.FileName},
				{Name: "account_name", Display: "Account", Value: d.AccountName},
				{Name: "opportunity_name", Display: "Opportunity", Value: d.OpportunityName},
				{Name: "notes", Display: "Notes", Value: d.Notes},
				{Name: "extracted_text", Display: "Document Text", Value: d.ExtractedText},
			},
			Primary:  "file_name",
			URL:      url,
			Subtitle: d.AccountName,
			Metadata: map[string]any{"contractId": d.ContractID},
		})
	}
	return hits
}
