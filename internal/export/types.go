// Package export renders contract summaries to PDF and DOCX for sharing
// outside the dashboard.
package export

import "errors"

// Format is the export output format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// Contract is the data rendered into an export.
type Contract struct {
	ID              string
	Name            string
	AccountName     string
	OpportunityName string
	SalesRep        string
	Status          string
	ContractValue   float64
	EffectiveDate   string
	IsClosed        bool
	Documents       []DocumentRef
}

// DocumentRef is a related document listed on the summary page.
type DocumentRef struct {
	FileName string
	Notes    string
}

// Result is the rendered export.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrUnsupportedFormat indicates the requested format is not pdf or docx.
	ErrUnsupportedFormat = errors.New("export format unsupported")
	// ErrPDFDependencyMissing indicates headless Chrome is not installed.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates pandoc is not installed.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
