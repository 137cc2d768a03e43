package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"dealdesk/api/internal/auth"
	"dealdesk/api/internal/config"
	"dealdesk/api/internal/export"
	"dealdesk/api/internal/search"
	"dealdesk/api/internal/store"
	"dealdesk/api/internal/taskcache"
	"dealdesk/api/internal/util"
)

type Session struct {
	Token     string
	UserID    string
	Email     string
	UserName  string
	Role      string
	ExpiresAt time.Time
}

type CreateContractInput struct {
	Name            string  `json:"name"`
	AccountName     string  `json:"accountName"`
	OpportunityName string  `json:"opportunityName"`
	SalesRep        string  `json:"salesRep"`
	Status          string  `json:"status"`
	ContractValue   float64 `json:"contractValue"`
	EffectiveDate   string  `json:"effectiveDate"`
}

type UpdateContractInput struct {
	Name            *string  `json:"name"`
	AccountName     *string  `json:"accountName"`
	OpportunityName *string  `json:"opportunityName"`
	SalesRep        *string  `json:"salesRep"`
	Status          *string  `json:"status"`
	ContractValue   *float64 `json:"contractValue"`
	EffectiveDate   *string  `json:"effectiveDate"`
	IsClosed        *bool    `json:"isClosed"`
}

type CreateTaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Assignee    string `json:"assignee"`
	Status      string `json:"status"`
	DueDate     string `json:"dueDate"`
}

type dataStore interface {
	Ping(ctx context.Context) error
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, id string) (store.User, error)
	ListContracts(ctx context.Context, limit, offset int) ([]store.Contract, error)
	GetContract(ctx context.Context, id string) (store.Contract, error)
	InsertContract(ctx context.Context, c store.Contract) error
	UpdateContract(ctx context.Context, c store.Contract) error
	ListDocuments(ctx context.Context, limit, offset int) ([]store.Document, error)
	GetDocument(ctx context.Context, id string) (store.Document, error)
	ListDocumentsByContract(ctx context.Context, contractID string) ([]store.Document, error)
	ListAllDocuments(ctx context.Context) ([]store.Document, error)
	ListTasks(ctx context.Context, limit, offset int) ([]store.Task, error)
	GetTask(ctx context.Context, id string) (store.Task, error)
	InsertTask(ctx context.Context, t store.Task) error
	ListWorkOrders(ctx context.Context, limit, offset int) ([]store.WorkOrder, error)
	GetWorkOrder(ctx context.Context, id string) (store.WorkOrder, error)
	ListSalesOrders(ctx context.Context, limit, offset int) ([]store.SalesOrder, error)
	GetSalesOrder(ctx context.Context, id string) (store.SalesOrder, error)
}

type searcher interface {
	Aggregate(ctx context.Context, q search.Query) search.Envelope
}

type taskCache interface {
	Replace(ctx context.Context, tasks []taskcache.Task) error
	LastSyncedAt(ctx context.Context) (time.Time, error)
}

// TaskSyncSource is an external system the sync endpoint pulls open tasks
// from (Salesforce, Notion).
type TaskSyncSource interface {
	Name() string
	ListOpenTasks(ctx context.Context) ([]taskcache.Task, error)
}

type Service struct {
	cfg         config.Config
	store       dataStore
	search      searcher
	taskCache   taskCache
	syncSources []TaskSyncSource
	docsIndex   *search.MeiliDocs
}

func New(cfg config.Config, dataStore *store.PostgresStore, aggregator *search.Aggregator, cache *taskcache.Store, docsIndex *search.MeiliDocs, syncSources []TaskSyncSource) *Service {
	return &Service{
		cfg:         cfg,
		store:       dataStore,
		search:      aggregator,
		taskCache:   cache,
		syncSources: syncSources,
		docsIndex:   docsIndex,
	}
}

// Bootstrap rebuilds the documents search index from Postgres so Meilisearch
// catches up after downtime. A missing index backend is not an error.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.docsIndex == nil {
		return nil
	}
	documents, err := s.store.ListAllDocuments(ctx)
	if err != nil {
		return err
	}
	if len(documents) == 0 {
		return nil
	}
	records := make([]search.DocumentRecord, 0, len(documents))
	for _, doc := range documents {
		records = append(records, documentRecord(doc))
	}
	if err := s.docsIndex.IndexDocuments(records); err != nil {
		return err
	}
	log.Printf("bootstrap: indexed %d documents", len(records))
	return nil
}

func documentRecord(d store.Document) search.DocumentRecord {
	return search.DocumentRecord{
		ID:              d.ID,
		FileName:        d.FileName,
		AccountName:     d.AccountName,
		OpportunityName: d.OpportunityName,
		Notes:           d.Notes,
		ExtractedText:   d.ExtractedText,
		StorageKey:      d.StorageKey,
		ContractID:      d.ContractID,
	}
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "email and password are required", nil)
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
		}
		return Session{}, err
	}
	if user.PasswordHash == "" {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}

	expiresAt := time.Now().Add(s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.SessionSecret), auth.Claims{
		Sub:   user.ID,
		Email: user.Email,
		Name:  user.DisplayName,
		Role:  user.Role,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		UserName:  user.DisplayName,
		Role:      user.Role,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.SessionSecret), token)
	if err != nil {
		return Session{}, err
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		UserName:  user.DisplayName,
		Role:      user.Role,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// Search runs one aggregated query across the sources in scope.
func (s *Service) Search(ctx context.Context, q search.Query) (search.Envelope, error) {
	if q.Scope == "" {
		q.Scope = search.ScopeAll
	}
	if !search.ValidScope(q.Scope) {
		return search.Envelope{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "scope must be 'all' or a known source type", map[string]any{"scope": q.Scope})
	}
	return s.search.Aggregate(ctx, q), nil
}

func (s *Service) ListContracts(ctx context.Context, limit, offset int) ([]store.Contract, error) {
	return s.store.ListContracts(ctx, limit, offset)
}

func (s *Service) GetContract(ctx context.Context, id string) (store.Contract, error) {
	return s.store.GetContract(ctx, id)
}

func (s *Service) CreateContract(ctx context.Context, input CreateContractInput) (store.Contract, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return store.Contract{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	effectiveDate, err := parseDate(input.EffectiveDate)
	if err != nil {
		return store.Contract{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "effectiveDate must be YYYY-MM-DD", nil)
	}
	if effectiveDate.IsZero() {
		effectiveDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if input.ContractValue < 0 {
		return store.Contract{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "contractValue must not be negative", nil)
	}

	contract := store.Contract{
		ID:              util.NewID("ct"),
		Name:            name,
		AccountName:     strings.TrimSpace(input.AccountName),
		OpportunityName: strings.TrimSpace(input.OpportunityName),
		SalesRep:        strings.TrimSpace(input.SalesRep),
		Status:          strings.TrimSpace(input.Status),
		ContractValue:   input.ContractValue,
		EffectiveDate:   effectiveDate,
	}
	if contract.Status == "" {
		contract.Status = "Draft"
	}
	if err := s.store.InsertContract(ctx, contract); err != nil {
		return store.Contract{}, err
	}
	return s.store.GetContract(ctx, contract.ID)
}

func (s *Service) UpdateContract(ctx context.Context, id string, input UpdateContractInput) (store.Contract, error) {
	contract, err := s.store.GetContract(ctx, id)
	if err != nil {
		return store.Contract{}, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return store.Contract{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name must not be blank", nil)
		}
		contract.Name = name
	}
	if input.AccountName != nil {
		contract.AccountName = strings.TrimSpace(*input.AccountName)
	}
	if input.OpportunityName != nil {
		contract.OpportunityName = strings.TrimSpace(*input.OpportunityName)
	}
	if input.SalesRep != nil {
		contract.SalesRep = strings.TrimSpace(*input.SalesRep)
	}
	if input.Status != nil {
		contract.Status = strings.TrimSpace(*input.Status)
	}
	if input.ContractValue != nil {
		if *input.ContractValue < 0 {
			return store.Contract{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "contractValue must not be negative", nil)
		}
		contract.ContractValue = *input.ContractValue
	}
	if input.EffectiveDate != nil {
		parsed, err := parseDate(*input.EffectiveDate)
		if err != nil || parsed.IsZero() {
			return store.Contract{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "effectiveDate must be YYYY-MM-DD", nil)
		}
		contract.EffectiveDate = parsed
	}
	if input.IsClosed != nil {
		contract.IsClosed = *input.IsClosed
	}
	if err := s.store.UpdateContract(ctx, contract); err != nil {
		return store.Contract{}, err
	}
	return s.store.GetContract(ctx, id)
}

func (s *Service) ExportContract(ctx context.Context, id, format string) (*export.Result, error) {
	contract, err := s.store.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}
	documents, err := s.store.ListDocumentsByContract(ctx, id)
	if err != nil {
		return nil, err
	}
	refs := make([]export.DocumentRef, 0, len(documents))
	for _, doc := range documents {
		refs = append(refs, export.DocumentRef{FileName: doc.FileName, Notes: doc.Notes})
	}

	result, err := export.Export(export.Contract{
		ID:              contract.ID,
		Name:            contract.Name,
		AccountName:     contract.AccountName,
		OpportunityName: contract.OpportunityName,
		SalesRep:        contract.SalesRep,
		Status:          contract.Status,
		ContractValue:   contract.ContractValue,
		EffectiveDate:   contract.EffectiveDate.Format("2006-01-02"),
		IsClosed:        contract.IsClosed,
		Documents:       refs,
	}, export.Format(format))
	if err != nil {
		if errors.Is(err, export.ErrUnsupportedFormat) {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be 'pdf' or 'docx'", nil)
		}
		if errors.Is(err, export.ErrPDFDependencyMissing) || errors.Is(err, export.ErrDOCXDependencyMissing) {
			return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export renderer is not installed", nil)
		}
		return nil, err
	}
	return result, nil
}

func (s *Service) ListDocuments(ctx context.Context, limit, offset int) ([]store.Document, error) {
	return s.store.ListDocuments(ctx, limit, offset)
}

func (s *Service) GetDocument(ctx context.Context, id string) (store.Document, error) {
	return s.store.GetDocument(ctx, id)
}

func (s *Service) ListTasks(ctx context.Context, limit, offset int) ([]store.Task, error) {
	return s.store.ListTasks(ctx, limit, offset)
}

func (s *Service) GetTask(ctx context.Context, id string) (store.Task, error) {
	return s.store.GetTask(ctx, id)
}

func (s *Service) CreateTask(ctx context.Context, input CreateTaskInput) (store.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return store.Task{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	task := store.Task{
		ID:          util.NewID("tsk"),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Assignee:    strings.TrimSpace(input.Assignee),
		Status:      strings.TrimSpace(input.Status),
	}
	if task.Status == "" {
		task.Status = "Open"
	}
	if strings.TrimSpace(input.DueDate) != "" {
		due, err := parseDate(input.DueDate)
		if err != nil {
			return store.Task{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "dueDate must be YYYY-MM-DD", nil)
		}
		task.DueDate = &due
	}
	if err := s.store.InsertTask(ctx, task); err != nil {
		return store.Task{}, err
	}
	return s.store.GetTask(ctx, task.ID)
}

func (s *Service) ListWorkOrders(ctx context.Context, limit, offset int) ([]store.WorkOrder, error) {
	return s.store.ListWorkOrders(ctx, limit, offset)
}

func (s *Service) GetWorkOrder(ctx context.Context, id string) (store.WorkOrder, error) {
	return s.store.GetWorkOrder(ctx, id)
}

func (s *Service) ListSalesOrders(ctx context.Context, limit, offset int) ([]store.SalesOrder, error) {
	return s.store.ListSalesOrders(ctx, limit, offset)
}

func (s *Service) GetSalesOrder(ctx context.Context, id string) (store.SalesOrder, error) {
	return s.store.GetSalesOrder(ctx, id)
}

// SyncExternalTasks pulls open tasks from every configured CRM source and
// replaces the Redis snapshot. One source failing does not block the others;
// the sync fails only when no source delivered.
func (s *Service) SyncExternalTasks(ctx context.Context) (map[string]any, error) {
	if len(s.syncSources) == 0 {
		return nil, domainError(http.StatusServiceUnavailable, "SYNC_UNAVAILABLE", "No external task sources configured", nil)
	}

	tasks := make([]taskcache.Task, 0)
	counts := make(map[string]any, len(s.syncSources))
	succeeded := 0
	for _, source := range s.syncSources {
		pulled, err := source.ListOpenTasks(ctx)
		if err != nil {
			log.Printf("sync: source %s failed: %v", source.Name(), err)
			counts[source.Name()] = map[string]any{"ok": false, "error": err.Error()}
			continue
		}
		succeeded++
		counts[source.Name()] = map[string]any{"ok": true, "count": len(pulled)}
		tasks = append(tasks, pulled...)
	}
	if succeeded == 0 {
		return nil, domainError(http.StatusBadGateway, "SYNC_FAILED", "All external task sources failed", map[string]any{"sources": counts})
	}

	if err := s.taskCache.Replace(ctx, tasks); err != nil {
		return nil, err
	}

	return map[string]any{
		"ok":       true,
		"count":    len(tasks),
		"sources":  counts,
		"syncedAt": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// LastTaskSync reports when the external task cache was last replaced.
func (s *Service) LastTaskSync(ctx context.Context) (time.Time, error) {
	return s.taskCache.LastSyncedAt(ctx)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) SyncToken() string {
	return s.cfg.SyncToken
}

func parseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", trimmed)
}
