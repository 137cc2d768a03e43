package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"dealdesk/api/internal/config"
	"dealdesk/api/internal/search"
	"dealdesk/api/internal/store"
	"dealdesk/api/internal/taskcache"
)

type fakeStore struct {
	pingFn                    func(context.Context) error
	getUserByEmailFn          func(context.Context, string) (store.User, error)
	getUserByIDFn             func(context.Context, string) (store.User, error)
	listContractsFn           func(context.Context, int, int) ([]store.Contract, error)
	getContractFn             func(context.Context, string) (store.Contract, error)
	insertContractFn          func(context.Context, store.Contract) error
	updateContractFn          func(context.Context, store.Contract) error
	listDocumentsFn           func(context.Context, int, int) ([]store.Document, error)
	getDocumentFn             func(context.Context, string) (store.Document, error)
	listDocumentsByContractFn func(context.Context, string) ([]store.Document, error)
	listAllDocumentsFn        func(context.Context) ([]store.Document, error)
	listTasksFn               func(context.Context, int, int) ([]store.Task, error)
	getTaskFn                 func(context.Context, string) (store.Task, error)
	insertTaskFn              func(context.Context, store.Task) error
	listWorkOrdersFn          func(context.Context, int, int) ([]store.WorkOrder, error)
	getWorkOrderFn            func(context.Context, string) (store.WorkOrder, error)
	listSalesOrdersFn         func(context.Context, int, int) ([]store.SalesOrder, error)
	getSalesOrderFn           func(context.Context, string) (store.SalesOrder, error)
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}
func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if f.getUserByEmailFn != nil {
		return f.getUserByEmailFn(ctx, email)
	}
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) GetUserByID(ctx context.Context, id string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, id)
	}
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) ListContracts(ctx context.Context, limit, offset int) ([]store.Contract, error) {
	if f.listContractsFn != nil {
		return f.listContractsFn(ctx, limit, offset)
	}
	return nil, nil
}
func (f *fakeStore) GetContract(ctx context.Context, id string) (store.Contract, error) {
	if f.getContractFn != nil {
		return f.getContractFn(ctx, id)
	}
	return store.Contract{}, sql.ErrNoRows
}
func (f *fakeStore) InsertContract(ctx context.Context, c store.Contract) error {
	if f.insertContractFn != nil {
		return f.insertContractFn(ctx, c)
	}
	return nil
}
func (f *fakeStore) UpdateContract(ctx context.Context, c store.Contract) error {
	if f.updateContractFn != nil {
		return f.updateContractFn(ctx, c)
	}
	return nil
}
func (f *fakeStore) ListDocuments(ctx context.Context, limit, offset int) ([]store.Document, error) {
	if f.listDocumentsFn != nil {
		return f.listDocumentsFn(ctx, limit, offset)
	}
	return nil, nil
}
func (f *fakeStore) GetDocument(ctx context.Context, id string) (store.Document, error) {
	if f.getDocumentFn != nil {
		return f.getDocumentFn(ctx, id)
	}
	return store.Document{}, sql.ErrNoRows
}
func (f *fakeStore) ListDocumentsByContract(ctx context.Context, contractID string) ([]store.Document, error) {
	if f.listDocumentsByContractFn != nil {
		return f.listDocumentsByContractFn(ctx, contractID)
	}
	return nil, nil
}
func (f *fakeStore) ListAllDocuments(ctx context.Context) ([]store.Document, error) {
	if f.listAllDocumentsFn != nil {
		return f.listAllDocumentsFn(ctx)
	}
	return nil, nil
}
func (f *fakeStore) ListTasks(ctx context.Context, limit, offset int) ([]store.Task, error) {
	if f.listTasksFn != nil {
		return f.listTasksFn(ctx, limit, offset)
	}
	return nil, nil
}
func (f *fakeStore) GetTask(ctx context.Context, id string) (store.Task, error) {
	if f.getTaskFn != nil {
		return f.getTaskFn(ctx, id)
	}
	return store.Task{}, sql.ErrNoRows
}
func (f *fakeStore) InsertTask(ctx context.Context, t store.Task) error {
	if f.insertTaskFn != nil {
		return f.insertTaskFn(ctx, t)
	}
	return nil
}
func (f *fakeStore) ListWorkOrders(ctx context.Context, limit, offset int) ([]store.WorkOrder, error) {
	if f.listWorkOrdersFn != nil {
		return f.listWorkOrdersFn(ctx, limit, offset)
	}
	return nil, nil
}
func (f *fakeStore) GetWorkOrder(ctx context.Context, id string) (store.WorkOrder, error) {
	if f.getWorkOrderFn != nil {
		return f.getWorkOrderFn(ctx, id)
	}
	return store.WorkOrder{}, sql.ErrNoRows
}
func (f *fakeStore) ListSalesOrders(ctx context.Context, limit, offset int) ([]store.SalesOrder, error) {
	if f.listSalesOrdersFn != nil {
		return f.listSalesOrdersFn(ctx, limit, offset)
	}
	return nil, nil
}
func (f *fakeStore) GetSalesOrder(ctx context.Context, id string) (store.SalesOrder, error) {
	if f.getSalesOrderFn != nil {
		return f.getSalesOrderFn(ctx, id)
	}
	return store.SalesOrder{}, sql.ErrNoRows
}

type fakeSearcher struct {
	lastQuery search.Query
	envelope  search.Envelope
}

func (f *fakeSearcher) Aggregate(ctx context.Context, q search.Query) search.Envelope {
	f.lastQuery = q
	return f.envelope
}

type fakeTaskCache struct {
	replaceFn      func(context.Context, []taskcache.Task) error
	lastSyncedAtFn func(context.Context) (time.Time, error)
	replaced       []taskcache.Task
}

func (f *fakeTaskCache) Replace(ctx context.Context, tasks []taskcache.Task) error {
	f.replaced = tasks
	if f.replaceFn != nil {
		return f.replaceFn(ctx, tasks)
	}
	return nil
}
func (f *fakeTaskCache) LastSyncedAt(ctx context.Context) (time.Time, error) {
	if f.lastSyncedAtFn != nil {
		return f.lastSyncedAtFn(ctx)
	}
	return time.Time{}, nil
}

type fakeSyncSource struct {
	name    string
	tasksFn func(context.Context) ([]taskcache.Task, error)
}

func (f *fakeSyncSource) Name() string { return f.name }
func (f *fakeSyncSource) ListOpenTasks(ctx context.Context) ([]taskcache.Task, error) {
	return f.tasksFn(ctx)
}

func testConfig() config.Config {
	return config.Config{
		SessionSecret: "test-secret",
		SyncToken:     "sync-secret",
		AccessTTL:     time.Hour,
	}
}

func newTestService(fs *fakeStore, searcher *fakeSearcher, cache *fakeTaskCache, sources ...TaskSyncSource) *Service {
	if searcher == nil {
		searcher = &fakeSearcher{}
	}
	if cache == nil {
		cache = &fakeTaskCache{}
	}
	return &Service{
		cfg:         testConfig(),
		store:       fs,
		search:      searcher,
		taskCache:   cache,
		syncSources: sources,
	}
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func TestLoginAndSessionRoundTrip(t *testing.T) {
	user := store.User{
		ID:           "usr_1",
		Email:        "dana@acme.test",
		DisplayName:  "Dana",
		PasswordHash: hashPassword(t, "hunter2"),
		Role:         "member",
	}
	fs := &fakeStore{
		getUserByEmailFn: func(_ context.Context, email string) (store.User, error) {
			if email != "dana@acme.test" {
				return store.User{}, sql.ErrNoRows
			}
			return user, nil
		},
		getUserByIDFn: func(_ context.Context, id string) (store.User, error) {
			if id != "usr_1" {
				return store.User{}, sql.ErrNoRows
			}
			return user, nil
		},
	}
	svc := newTestService(fs, nil, nil)

	session, err := svc.Login(context.Background(), " Dana@Acme.test ", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.Token == "" {
		t.Fatal("expected a token")
	}
	if session.UserName != "Dana" || session.Role != "member" {
		t.Fatalf("unexpected session %+v", session)
	}

	parsed, err := svc.SessionFromToken(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("session from token: %v", err)
	}
	if parsed.UserID != "usr_1" || parsed.Email != "dana@acme.test" {
		t.Fatalf("unexpected parsed session %+v", parsed)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	fs := &fakeStore{
		getUserByEmailFn: func(_ context.Context, email string) (store.User, error) {
			if email == "dana@acme.test" {
				return store.User{ID: "usr_1", Email: email, PasswordHash: hashPassword(t, "hunter2")}, nil
			}
			return store.User{}, sql.ErrNoRows
		},
	}
	svc := newTestService(fs, nil, nil)

	cases := []struct {
		name     string
		email    string
		password string
		status   int
	}{
		{"wrong password", "dana@acme.test", "wrong", http.StatusUnauthorized},
		{"unknown email", "nobody@acme.test", "hunter2", http.StatusUnauthorized},
		{"blank password", "dana@acme.test", "", http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.email, tc.password)
			var domainErr *DomainError
			if !errors.As(err, &domainErr) {
				t.Fatalf("expected DomainError, got %v", err)
			}
			if domainErr.Status != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, domainErr.Status)
			}
		})
	}
}

func TestSearchDefaultsScopeAndRejectsUnknown(t *testing.T) {
	searcher := &fakeSearcher{envelope: search.Envelope{Query: "acme", Scope: "all"}}
	svc := newTestService(&fakeStore{}, searcher, nil)

	if _, err := svc.Search(context.Background(), search.Query{Text: "acme"}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if searcher.lastQuery.Scope != search.ScopeAll {
		t.Fatalf("expected scope defaulted to all, got %q", searcher.lastQuery.Scope)
	}

	_, err := svc.Search(context.Background(), search.Query{Text: "acme", Scope: "invoices"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown scope, got %v", err)
	}
}

func TestCreateContractValidatesAndFillsDefaults(t *testing.T) {
	var inserted store.Contract
	fs := &fakeStore{
		insertContractFn: func(_ context.Context, c store.Contract) error {
			inserted = c
			return nil
		},
		getContractFn: func(_ context.Context, id string) (store.Contract, error) {
			if id != inserted.ID {
				return store.Contract{}, sql.ErrNoRows
			}
			return inserted, nil
		},
	}
	svc := newTestService(fs, nil, nil)

	if _, err := svc.CreateContract(context.Background(), CreateContractInput{Name: "  "}); err == nil {
		t.Fatal("expected validation error for blank name")
	}
	if _, err := svc.CreateContract(context.Background(), CreateContractInput{Name: "MSA", EffectiveDate: "tomorrow"}); err == nil {
		t.Fatal("expected validation error for bad date")
	}
	if _, err := svc.CreateContract(context.Background(), CreateContractInput{Name: "MSA", ContractValue: -1}); err == nil {
		t.Fatal("expected validation error for negative value")
	}

	contract, err := svc.CreateContract(context.Background(), CreateContractInput{
		Name:          " Acme MSA ",
		AccountName:   "Acme Corp",
		ContractValue: 90000,
		EffectiveDate: "2025-03-01",
	})
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}
	if contract.Name != "Acme MSA" {
		t.Fatalf("expected trimmed name, got %q", contract.Name)
	}
	if contract.Status != "Draft" {
		t.Fatalf("expected default status Draft, got %q", contract.Status)
	}
	if contract.EffectiveDate.Format("2006-01-02") != "2025-03-01" {
		t.Fatalf("unexpected effective date %v", contract.EffectiveDate)
	}
	if contract.ID == "" || contract.ID[:3] != "ct_" {
		t.Fatalf("expected ct_ id, got %q", contract.ID)
	}
}

func TestUpdateContractPatchesOnlyProvidedFields(t *testing.T) {
	existing := store.Contract{
		ID:            "ct_1",
		Name:          "Acme MSA",
		AccountName:   "Acme Corp",
		Status:        "Active",
		ContractValue: 90000,
		EffectiveDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	var updated store.Contract
	fs := &fakeStore{
		getContractFn: func(_ context.Context, id string) (store.Contract, error) {
			if id != "ct_1" {
				return store.Contract{}, sql.ErrNoRows
			}
			if updated.ID != "" {
				return updated, nil
			}
			return existing, nil
		},
		updateContractFn: func(_ context.Context, c store.Contract) error {
			updated = c
			return nil
		},
	}
	svc := newTestService(fs, nil, nil)

	closed := true
	status := "Terminated"
	contract, err := svc.UpdateContract(context.Background(), "ct_1", UpdateContractInput{
		Status:   &status,
		IsClosed: &closed,
	})
	if err != nil {
		t.Fatalf("update contract: %v", err)
	}
	if contract.Status != "Terminated" || !contract.IsClosed {
		t.Fatalf("expected patched fields, got %+v", contract)
	}
	if contract.Name != "Acme MSA" || contract.ContractValue != 90000 {
		t.Fatalf("expected untouched fields preserved, got %+v", contract)
	}

	if _, err := svc.UpdateContract(context.Background(), "ct_missing", UpdateContractInput{}); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows for missing contract, got %v", err)
	}
}

func TestCreateTaskParsesDueDate(t *testing.T) {
	var inserted store.Task
	fs := &fakeStore{
		insertTaskFn: func(_ context.Context, task store.Task) error {
			inserted = task
			return nil
		},
		getTaskFn: func(_ context.Context, id string) (store.Task, error) {
			return inserted, nil
		},
	}
	svc := newTestService(fs, nil, nil)

	if _, err := svc.CreateTask(context.Background(), CreateTaskInput{Title: ""}); err == nil {
		t.Fatal("expected validation error for blank title")
	}
	if _, err := svc.CreateTask(context.Background(), CreateTaskInput{Title: "Review", DueDate: "soon"}); err == nil {
		t.Fatal("expected validation error for bad due date")
	}

	task, err := svc.CreateTask(context.Background(), CreateTaskInput{Title: "Review MSA", DueDate: "2025-09-15"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.DueDate == nil || task.DueDate.Format("2006-01-02") != "2025-09-15" {
		t.Fatalf("unexpected due date %v", task.DueDate)
	}
	if task.Status != "Open" {
		t.Fatalf("expected default status Open, got %q", task.Status)
	}
}

func TestSyncExternalTasksIsolatesSourceFailures(t *testing.T) {
	cache := &fakeTaskCache{}
	sf := &fakeSyncSource{name: "salesforce", tasksFn: func(context.Context) ([]taskcache.Task, error) {
		return []taskcache.Task{{ID: "sf_1", Subject: "Call Acme"}}, nil
	}}
	notion := &fakeSyncSource{name: "notion", tasksFn: func(context.Context) ([]taskcache.Task, error) {
		return nil, errors.New("rate limited")
	}}
	svc := newTestService(&fakeStore{}, nil, cache, sf, notion)

	payload, err := svc.SyncExternalTasks(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if payload["count"] != 1 {
		t.Fatalf("expected count 1, got %v", payload["count"])
	}
	if len(cache.replaced) != 1 || cache.replaced[0].ID != "sf_1" {
		t.Fatalf("expected cache replaced with salesforce task, got %+v", cache.replaced)
	}
}

func TestSyncExternalTasksFailsWhenAllSourcesFail(t *testing.T) {
	cache := &fakeTaskCache{}
	broken := &fakeSyncSource{name: "salesforce", tasksFn: func(context.Context) ([]taskcache.Task, error) {
		return nil, errors.New("boom")
	}}
	svc := newTestService(&fakeStore{}, nil, cache, broken)

	_, err := svc.SyncExternalTasks(context.Background())
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusBadGateway {
		t.Fatalf("expected 502 when every source fails, got %v", err)
	}
	if cache.replaced != nil {
		t.Fatal("cache must not be replaced on total failure")
	}
}

func TestSyncExternalTasksWithoutSources(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil, nil)
	_, err := svc.SyncExternalTasks(context.Background())
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without sources, got %v", err)
	}
}

func TestExportContractRejectsUnknownFormat(t *testing.T) {
	fs := &fakeStore{
		getContractFn: func(_ context.Context, id string) (store.Contract, error) {
			return store.Contract{ID: id, Name: "Acme MSA"}, nil
		},
	}
	svc := newTestService(fs, nil, nil)

	_, err := svc.ExportContract(context.Background(), "ct_1", "xlsx")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown format, got %v", err)
	}
}
