package export

// Export renders a contract summary in the requested format.
func Export(c Contract, format Format) (*Result, error) {
	html, err := renderHTML(c)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatPDF:
		return exportPDF(html, c.Name)
	case FormatDOCX:
		return exportDOCX(html, c.Name)
	default:
		return nil, ErrUnsupportedFormat
	}
}
