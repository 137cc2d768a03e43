package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxDocuments = "dealdesk_documents"

// DocumentRecord is the data indexed for a contract document.
type DocumentRecord struct {
	ID              string `json:"id"`
	FileName        string `json:"fileName"`
	AccountName     string `json:"accountName"`
	OpportunityName string `json:"opportunityName"`
	Notes           string `json:"notes"`
	ExtractedText   string `json:"extractedText"`
	StorageKey      string `json:"storageKey"`
	ContractID      string `json:"contractId"`
}

// MeiliDocs is the optional Meilisearch backend for the documents source. It
// is constructed once at startup and injected; the health loop flips between
// backends without mutating shared request state.
type MeiliDocs struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeiliDocs creates a Meilisearch client and configures the documents
// index. The caller should proceed with the Postgres path if the initial
// connection fails; the background health loop will pick Meilisearch back up
// when it recovers.
func NewMeiliDocs(url, apiKey string) *MeiliDocs {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &MeiliDocs{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *MeiliDocs) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxDocuments,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxDocuments, err)
	}

	index := m.client.Index(idxDocuments)
	searchable := []string{"fileName", "accountName", "opportunityName", "notes", "extractedText"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxDocuments, err)
	}
}

func (m *MeiliDocs) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *MeiliDocs) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *MeiliDocs) Healthy() bool {
	return m.healthy.Load()
}

// Search returns one page of candidate documents and the estimated total.
// Hits are re-scored locally by the aggregator, so only the stored fields are
// needed here, not Meilisearch's ranking metadata.
func (m *MeiliDocs) Search(ctx context.Context, text string, offset, limit int) ([]DocumentRecord, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	resp, err := m.client.Index(idxDocuments).SearchWithContext(ctx, text, &meili.SearchRequest{
		Limit:  int64(limit),
		Offset: int64(offset),
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	records := make([]DocumentRecord, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		raw, err := json.Marshal(hit)
		if err != nil {
			continue
		}
		var d DocumentRecord
		if err := json.Unmarshal(raw, &d); err != nil {
			continue
		}
		records = append(records, d)
	}
	return records, int(resp.EstimatedTotalHits), nil
}

// IndexDocuments bulk-indexes document records.
func (m *MeiliDocs) IndexDocuments(records []DocumentRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxDocuments).AddDocuments(records, nil)
	return err
}

// DeleteDocument removes a document from the index.
func (m *MeiliDocs) DeleteDocument(id string) error {
	_, err := m.client.Index(idxDocuments).DeleteDocument(id, nil)
	return err
}
