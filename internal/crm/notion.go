package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dealdesk/api/internal/taskcache"
)

const notionVersion = "2022-06-28"

// Notion queries a Notion task database.
type Notion struct {
	baseURL    string
	token      string
	databaseID string
	client     *http.Client
}

// NewNotion creates a Notion client for one task database. baseURL is
// overridable for tests; an empty value selects the public API.
func NewNotion(baseURL, token, databaseID string) *Notion {
	if baseURL == "" {
		baseURL = "https://api.notion.com"
	}
	return &Notion{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		databaseID: databaseID,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Name identifies the client in sync logs and payloads.
func (n *Notion) Name() string { return "notion" }

type notionText struct {
	PlainText string `json:"plain_text"`
}

type notionProperty struct {
	Title    []notionText `json:"title"`
	RichText []notionText `json:"rich_text"`
	Status   *struct {
		Name string `json:"name"`
	} `json:"status"`
	Date *struct {
		Start string `json:"start"`
	} `json:"date"`
	People []struct {
		Name string `json:"name"`
	} `json:"people"`
}

type notionPage struct {
	ID         string                    `json:"id"`
	URL        string                    `json:"url"`
	Properties map[string]notionProperty `json:"properties"`
}

type notionQueryResponse struct {
	Results    []notionPage `json:"results"`
	HasMore    bool         `json:"has_more"`
	NextCursor string       `json:"next_cursor"`
}

// ListOpenTasks fetches the not-done pages of the task database.
func (n *Notion) ListOpenTasks(ctx context.Context) ([]taskcache.Task, error) {
	body := map[string]any{
		"filter": map[string]any{
			"property": "Status",
			"status":   map[string]any{"does_not_equal": "Done"},
		},
		"page_size": 100,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal notion filter: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/databases/%s/query", n.baseURL, n.databaseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build notion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.token)
	req.Header.Set("Notion-Version", notionVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notion query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("notion query: unexpected status %d", resp.StatusCode)
	}

	var payload notionQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode notion response: %w", err)
	}

	tasks := make([]taskcache.Task, 0, len(payload.Results))
	for _, page := range payload.Results {
		t := taskcache.Task{
			ID:     "nt_" + page.ID,
			Origin: "notion",
			URL:    page.URL,
		}
		for name, prop := range page.Properties {
			switch {
			case len(prop.Title) > 0:
				t.Subject = joinPlainText(prop.Title)
			case name == "Related To" && len(prop.RichText) > 0:
				t.RelatedTo = joinPlainText(prop.RichText)
			case prop.Status != nil:
				t.Status = prop.Status.Name
			case prop.Date != nil:
				t.DueDate = prop.Date.Start
			case len(prop.People) > 0:
				t.WhoName = prop.People[0].Name
			}
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func joinPlainText(parts []notionText) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.PlainText)
	}
	return b.String()
}
