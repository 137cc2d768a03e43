// Package crm holds the thin HTTP clients for the external systems the
// dashboard proxies: Salesforce (CRM tasks) and Notion (deal-desk tasks).
// Both clients exist only to refresh the Redis task cache; nothing in the
// request path calls them directly.
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dealdesk/api/internal/taskcache"
)

const sfAPIVersion = "v59.0"

// taskSOQL pulls every open task in one query; related Who/What names come
// back inline so there are no per-record follow-up calls.
const taskSOQL = `SELECT Id, Subject, Status, ActivityDate, Who.Name, What.Name FROM Task WHERE IsClosed = false ORDER BY ActivityDate NULLS LAST LIMIT 500`

// Salesforce queries the Salesforce REST API.
type Salesforce struct {
	instanceURL string
	accessToken string
	client      *http.Client
}

// NewSalesforce creates a Salesforce client for the given instance.
func NewSalesforce(instanceURL, accessToken string) *Salesforce {
	return &Salesforce{
		instanceURL: strings.TrimRight(instanceURL, "/"),
		accessToken: accessToken,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

// Name identifies the client in sync logs and payloads.
func (s *Salesforce) Name() string { return "salesforce" }

type sfName struct {
	Name string `json:"Name"`
}

type sfTask struct {
	ID           string  `json:"Id"`
	Subject      string  `json:"Subject"`
	Status       string  `json:"Status"`
	ActivityDate string  `json:"ActivityDate"`
	Who          *sfName `json:"Who"`
	What         *sfName `json:"What"`
}

type sfQueryResponse struct {
	TotalSize int      `json:"totalSize"`
	Done      bool     `json:"done"`
	Records   []sfTask `json:"records"`
}

// ListOpenTasks fetches the open Salesforce tasks for the cache.
func (s *Salesforce) ListOpenTasks(ctx context.Context) ([]taskcache.Task, error) {
	endpoint := fmt.Sprintf("%s/services/data/%s/query?q=%s",
		s.instanceURL, sfAPIVersion, url.QueryEscape(taskSOQL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build salesforce request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("salesforce query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("salesforce query: unexpected status %d", resp.StatusCode)
	}

	var payload sfQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode salesforce response: %w", err)
	}

	tasks := make([]taskcache.Task, 0, len(payload.Records))
	for _, r := range payload.Records {
		t := taskcache.Task{
			ID:      "sf_" + r.ID,
			Subject: r.Subject,
			Status:  r.Status,
			DueDate: r.ActivityDate,
			Origin:  "salesforce",
			URL:     fmt.Sprintf("%s/lightning/r/Task/%s/view", s.instanceURL, r.ID),
		}
		if r.Who != nil {
			t.WhoName = r.Who.Name
		}
		if r.What != nil {
			t.RelatedTo = r.What.Name
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
