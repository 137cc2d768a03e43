package store

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Users

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, coalesce(password_hash, ''), role
		FROM users WHERE lower(email) = lower($1)
	`, email).Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Role)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, role FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// Contracts

func (s *PostgresStore) ListContracts(ctx context.Context, limit, offset int) ([]Contract, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, coalesce(account_name, ''), coalesce(opportunity_name, ''),
			coalesce(sales_rep, ''), coalesce(status, ''), coalesce(contract_value, 0),
			effective_date, is_closed, created_at, updated_at
		FROM contracts
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	items := make([]Contract, 0)
	for rows.Next() {
		var c Contract
		if err := rows.Scan(&c.ID, &c.Name, &c.AccountName, &c.OpportunityName, &c.SalesRep,
			&c.Status, &c.ContractValue, &c.EffectiveDate, &c.IsClosed, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetContract(ctx context.Context, id string) (Contract, error) {
	var c Contract
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, coalesce(account_name, ''), coalesce(opportunity_name, ''),
			coalesce(sales_rep, ''), coalesce(status, ''), coalesce(contract_value, 0),
			effective_date, is_closed, created_at, updated_at
		FROM contracts WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.AccountName, &c.OpportunityName, &c.SalesRep,
		&c.Status, &c.ContractValue, &c.EffectiveDate, &c.IsClosed, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Contract{}, err
	}
	return c, nil
}

func (s *PostgresStore) InsertContract(ctx context.Context, c Contract) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contracts (id, name, account_name, opportunity_name, sales_rep,
			status, contract_value, effective_date, is_closed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.ID, c.Name, c.AccountName, c.OpportunityName, c.SalesRep,
		c.Status, c.ContractValue, c.EffectiveDate, c.IsClosed)
	if err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateContract(ctx context.Context, c Contract) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE contracts
		SET name = $2, account_name = $3, opportunity_name = $4, sales_rep = $5,
			status = $6, contract_value = $7, effective_date = $8, is_closed = $9,
			updated_at = now()
		WHERE id = $1
	`, c.ID, c.Name, c.AccountName, c.OpportunityName, c.SalesRep,
		c.Status, c.ContractValue, c.EffectiveDate, c.IsClosed)
	if err != nil {
		return fmt.Errorf("update contract: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update contract: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Documents

func (s *PostgresStore) ListDocuments(ctx context.Context, limit, offset int) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_name, coalesce(account_name, ''), coalesce(opportunity_name, ''),
			coalesce(notes, ''), coalesce(storage_key, ''), coalesce(contract_id, ''),
			created_at, updated_at
		FROM documents
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.FileName, &d.AccountName, &d.OpportunityName,
			&d.Notes, &d.StorageKey, &d.ContractID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (Document, error) {
	var d Document
	err := s.db.QueryRowContext(ctx, `
		SELECT id, file_name, coalesce(account_name, ''), coalesce(opportunity_name, ''),
			coalesce(notes, ''), coalesce(extracted_text, ''), coalesce(storage_key, ''),
			coalesce(contract_id, ''), created_at, updated_at
		FROM documents WHERE id = $1
	`, id).Scan(&d.ID, &d.FileName, &d.AccountName, &d.OpportunityName, &d.Notes,
		&d.ExtractedText, &d.StorageKey, &d.ContractID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	return d, nil
}

// ListDocumentsByContract returns the documents attached to one contract,
// newest first.
func (s *PostgresStore) ListDocumentsByContract(ctx context.Context, contractID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_name, coalesce(account_name, ''), coalesce(opportunity_name, ''),
			coalesce(notes, ''), coalesce(storage_key, ''), coalesce(contract_id, ''),
			created_at, updated_at
		FROM documents
		WHERE contract_id = $1
		ORDER BY updated_at DESC
	`, contractID)
	if err != nil {
		return nil, fmt.Errorf("list contract documents: %w", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.FileName, &d.AccountName, &d.OpportunityName,
			&d.Notes, &d.StorageKey, &d.ContractID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// ListAllDocuments returns every document with its extracted text, used to
// rebuild the search index at startup.
func (s *PostgresStore) ListAllDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_name, coalesce(account_name, ''), coalesce(opportunity_name, ''),
			coalesce(notes, ''), coalesce(extracted_text, ''), coalesce(storage_key, ''),
			coalesce(contract_id, '')
		FROM documents
	`)
	if err != nil {
		return nil, fmt.Errorf("list all documents: %w", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.FileName, &d.AccountName, &d.OpportunityName,
			&d.Notes, &d.ExtractedText, &d.StorageKey, &d.ContractID); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// Tasks

func (s *PostgresStore) ListTasks(ctx context.Context, limit, offset int) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, coalesce(description, ''), coalesce(assignee, ''),
			coalesce(status, ''), due_date, created_at, updated_at
		FROM tasks
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	items := make([]Task, 0)
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Assignee,
			&t.Status, &t.DueDate, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetTask(ctx context.Context, id string) (Task, error) {
	var t Task
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, coalesce(description, ''), coalesce(assignee, ''),
			coalesce(status, ''), due_date, created_at, updated_at
		FROM tasks WHERE id = $1
	`, id).Scan(&t.ID, &t.Title, &t.Description, &t.Assignee,
		&t.Status, &t.DueDate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Task{}, err
	}
	return t, nil
}

func (s *PostgresStore) InsertTask(ctx context.Context, t Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, assignee, status, due_date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.Title, t.Description, t.Assignee, t.Status, t.DueDate)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// Work orders

func (s *PostgresStore) ListWorkOrders(ctx context.Context, limit, offset int) ([]WorkOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, coalesce(customer_name, ''), coalesce(description, ''),
			coalesce(status, ''), created_at, updated_at
		FROM work_orders
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list work orders: %w", err)
	}
	defer rows.Close()

	items := make([]WorkOrder, 0)
	for rows.Next() {
		var w WorkOrder
		if err := rows.Scan(&w.ID, &w.Number, &w.CustomerName, &w.Description,
			&w.Status, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan work order: %w", err)
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetWorkOrder(ctx context.Context, id string) (WorkOrder, error) {
	var w WorkOrder
	err := s.db.QueryRowContext(ctx, `
		SELECT id, number, coalesce(customer_name, ''), coalesce(description, ''),
			coalesce(status, ''), created_at, updated_at
		FROM work_orders WHERE id = $1
	`, id).Scan(&w.ID, &w.Number, &w.CustomerName, &w.Description,
		&w.Status, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return WorkOrder{}, err
	}
	return w, nil
}

// Sales orders

func (s *PostgresStore) ListSalesOrders(ctx context.Context, limit, offset int) ([]SalesOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, coalesce(account_name, ''), coalesce(description, ''),
			coalesce(total_amount, 0), coalesce(status, ''), created_at, updated_at
		FROM sales_orders
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sales orders: %w", err)
	}
	defer rows.Close()

	items := make([]SalesOrder, 0)
	for rows.Next() {
		var so SalesOrder
		if err := rows.Scan(&so.ID, &so.Number, &so.AccountName, &so.Description,
			&so.TotalAmount, &so.Status, &so.CreatedAt, &so.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan sales order: %w", err)
		}
		items = append(items, so)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetSalesOrder(ctx context.Context, id string) (SalesOrder, error) {
	var so SalesOrder
	err := s.db.QueryRowContext(ctx, `
		SELECT id, number, coalesce(account_name, ''), coalesce(description, ''),
			coalesce(total_amount, 0), coalesce(status, ''), created_at, updated_at
		FROM sales_orders WHERE id = $1
	`, id).Scan(&so.ID, &so.Number, &so.AccountName, &so.Description,
		&so.TotalAmount, &so.Status, &so.CreatedAt, &so.UpdatedAt)
	if err != nil {
		return SalesOrder{}, err
	}
	return so, nil
}
