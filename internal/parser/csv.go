package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/msgsplit/internal/doctree"
)

// CSVParser handles CSV files. The first row holds headers; every data row
// becomes a paragraph of "header: cell" pairs.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Node, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	root := doctree.Document()
	if len(records) == 0 {
		return root, nil
	}

	headers := records[0]
	for _, row := range records[1:] {
		para := doctree.Element("p", nil)
		for j, cell := range row {
			if j > 0 {
				para.Children = append(para.Children, doctree.Text(", "))
			}
			if j < len(headers) {
				para.Children = append(para.Children,
					doctree.Element("b", nil, doctree.Text(headers[j])),
					doctree.Text(": "+cell),
				)
			} else {
				para.Children = append(para.Children, doctree.Text(cell))
			}
		}
		root.Children = append(root.Children, para)
	}
	return root, nil
}
