package store

import "time"

type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Contract struct {
	ID              string
	Name            string
	AccountName     string
	OpportunityName string
	SalesRep        string
	Status          string
	ContractValue   float64
	EffectiveDate   time.Time
	IsClosed        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Document struct {
	ID              string
	FileName        string
	AccountName     string
	OpportunityName string
	Notes           string
	ExtractedText   string
	StorageKey      string
	ContractID      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Task struct {
	ID          string
	Title       string
	Description string
	Assignee    string
	Status      string
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type WorkOrder struct {
	ID           string
	Number       string
	CustomerName string
	Description  string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type SalesOrder struct {
	ID          string
	Number      string
	AccountName string
	Description string
	TotalAmount float64
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
