package orders

import (
	"fmt"
	"strings"
)

// Headers is the master sheet header row. Agent sheets share it.
var Headers = []string{
	"DATE",
	"ORDER NUMBER",
	"FIRST NAME",
	"LAST NAME",
	"LOCATION",
	"PRODUCT",
	"QUANTITY",
	"PRICE",
	"PHONE NUMBER",
	"Status",
	"comments",
	"",
	"agent in charge",
	"",
	"shopify name id",
	"ADDRESS",
	"source",
	"SOURCE",
}

// Zero-based column positions within a row.
const (
	ColDate = iota
	ColOrderNumber
	ColFirstName
	ColLastName
	ColLocation
	ColProduct
	ColQuantity
	ColPrice
	ColPhone
	ColStatus
	ColComments
	ColBlank1
	ColAgentInCharge
	ColBlank2
	ColSecondaryID
	ColAddress
	ColSourceStore
	ColPlatform

	NumColumns
)

// Row is one line item of one order as it appears in the sheets.
type Row struct {
	Date          string
	OrderNumber   string
	FirstName     string
	LastName      string
	Location      string
	Product       string
	Quantity      string
	Price         string
	Phone         string
	Status        string
	Comments      string
	Blank1        string
	AgentInCharge string
	Blank2        string
	SecondaryID   string
	Address       string
	SourceStore   string
	Platform      string
}

// Strings returns the row in column order.
func (r Row) Strings() []string {
	out := make([]string, 0, NumColumns)
	for _, f := range r.fieldPtrs() {
		out = append(out, *f)
	}
	return out
}

// Values returns the row in the shape the Sheets API expects.
func (r Row) Values() []interface{} {
	out := make([]interface{}, 0, NumColumns)
	for _, f := range r.fieldPtrs() {
		out = append(out, *f)
	}
	return out
}

// RowFromValues reads a positional sheet row. Missing trailing cells are blank.
func RowFromValues(values []interface{}) Row {
	var r Row
	fields := r.fieldPtrs()
	for i := 0; i < NumColumns && i < len(values); i++ {
		*fields[i] = CellString(values[i])
	}
	return r
}

// RowFromRecord reads a row by header name, so a sheet with reordered columns still maps
// correctly. Header cells are compared after trimming; unknown headers are ignored.
func RowFromRecord(header []string, values []interface{}) Row {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			continue
		}
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	var r Row
	fields := r.fieldPtrs()
	for col, name := range Headers {
		if name == "" {
			continue
		}
		i, ok := index[name]
		if !ok || i >= len(values) {
			continue
		}
		*fields[col] = CellString(values[i])
	}
	return r
}

func (r *Row) fieldPtrs() [NumColumns]*string {
	return [NumColumns]*string{
		&r.Date, &r.OrderNumber, &r.FirstName, &r.LastName, &r.Location, &r.Product,
		&r.Quantity, &r.Price, &r.Phone, &r.Status, &r.Comments, &r.Blank1,
		&r.AgentInCharge, &r.Blank2, &r.SecondaryID, &r.Address, &r.SourceStore, &r.Platform,
	}
}

// PadValues extends values with blanks up to the full column count.
func PadValues(values []interface{}) []interface{} {
	out := make([]interface{}, 0, max(len(values), NumColumns))
	out = append(out, values...)
	for len(out) < NumColumns {
		out = append(out, "")
	}
	return out
}

// CellString renders a cell value read from the Sheets API.
func CellString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
