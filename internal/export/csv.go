// Package export writes element records in tabular form.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/kailas-cloud/bimquery/internal/domain/element"
)

// Header is the CSV column order.
var Header = []string{"GlobalId", "IfcClass", "Name", "PredefinedType", "ObjectType", "Tag"}

// ContentType is the media type of CSV exports.
const ContentType = "text/csv; charset=utf-8"

// DefaultFilename is suggested to clients downloading an export.
const DefaultFilename = "filtered-elements.csv"

// WriteCSV writes a header row and one row per record.
func WriteCSV(w io.Writer, recs []*element.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range recs {
		row := []string{r.GlobalID(), r.IfcClass(), r.Name(), r.PredefinedType(), r.ObjectType(), r.Tag()}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", r.ExpressID(), err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
