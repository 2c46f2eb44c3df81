package load

import (
	"encoding/csv"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"
)

// paddedCSVReader tolerates the sloppy CSV many feeds ship: lazy
// quoting, a unicode BOM, and ragged rows. Rows shorter than the
// header are padded with empty trailing fields so feed-optional
// columns simply come through as zero values.
type paddedCSVReader struct {
	r     *csv.Reader
	width int
}

func newPaddedCSVReader(in io.Reader) gocsv.CSVReader {
	r := csv.NewReader(bom.NewReader(in))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return &paddedCSVReader{r: r}
}

func (p *paddedCSVReader) Read() ([]string, error) {
	record, err := p.r.Read()
	if err != nil {
		return record, err
	}

	// First row is the header; it defines the column list.
	if p.width == 0 {
		p.width = len(record)
	}
	for len(record) < p.width {
		record = append(record, "")
	}

	return record, nil
}

func (p *paddedCSVReader) ReadAll() ([][]string, error) {
	records := [][]string{}
	for {
		record, err := p.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
}
