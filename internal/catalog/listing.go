package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
)

const (
	// NullText is what a missing or null source value turns into before any derivation.
	NullText = "nan"

	WorkModeRemote = "Remote"
	WorkModeOnSite = "On-site"

	// WorkFromHome is the location preference that selects remote listings only.
	WorkFromHome = "work from home"
	// AnyLocation disables location filtering.
	AnyLocation = "any"
)

// Column names of the source dataset.
const (
	ColumnTitle     = "internship_title"
	ColumnCompany   = "company_name"
	ColumnLocation  = "location"
	ColumnStartDate = "start_date"
	ColumnDuration  = "duration"
	ColumnStipend   = "stipend"
)

// Columns lists the source columns every row must supply.
var Columns = []string{
	ColumnTitle,
	ColumnCompany,
	ColumnLocation,
	ColumnStartDate,
	ColumnDuration,
	ColumnStipend,
}

var ErrRowSkipped = errors.New("row skipped")

// RawRow is one untouched source row.
type RawRow struct {
	Title     string `mapstructure:"internship_title"`
	Company   string `mapstructure:"company_name"`
	Location  string `mapstructure:"location"`
	StartDate string `mapstructure:"start_date"`
	Duration  string `mapstructure:"duration"`
	Stipend   string `mapstructure:"stipend"`

	// Malformed is set by readers when the record could not be read as a whole.
	Malformed error `mapstructure:"-"`
}

// Listing is a normalized internship record. It is never modified after Build.
type Listing struct {
	ID             int      `json:"id"`
	Title          string   `json:"title"`
	Company        string   `json:"company"`
	Location       string   `json:"location"`
	StartDate      string   `json:"start_date"`
	Duration       string   `json:"duration"`
	RawStipend     string   `json:"raw_stipend"`
	StipendAmount  int      `json:"stipend_amount"`
	IsPaid         bool     `json:"is_paid"`
	Skills         []string `json:"skills"`
	Domain         string   `json:"domain"`
	WorkMode       string   `json:"work_mode"`
	DurationMonths int      `json:"duration_months"`
}

func (l Listing) IsRemote() bool {
	return l.WorkMode == WorkModeRemote
}

// DecodeRow turns a column->value map into a RawRow. Missing and nil values become NullText,
// non-string scalars are stringified. A value that cannot be represented as text marks
// the row as malformed instead of failing the whole load.
func DecodeRow(values map[string]any) RawRow {
	prepared := make(map[string]any, len(Columns))
	for _, column := range Columns {
		value, ok := values[column]
		if !ok || value == nil {
			prepared[column] = NullText
			continue
		}
		prepared[column] = value
	}

	var row RawRow
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       textHook,
		WeaklyTypedInput: true,
		Result:           &row,
	})
	if err != nil {
		return RawRow{Malformed: err}
	}

	if err := decoder.Decode(prepared); err != nil {
		return RawRow{Malformed: err}
	}

	return row
}

// textHook renders values mapstructure cannot weakly convert on its own (timestamps, Stringers).
func textHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}

	switch v := data.(type) {
	case time.Time:
		return v.Format("2006-01-02"), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return data, nil
	}
}

// NormalizeRow derives a Listing from a raw row. Rows that cannot be used return an error
// wrapping ErrRowSkipped. Derivations run on the untrimmed source text, stored text fields are trimmed.
func NormalizeRow(id int, row RawRow) (Listing, error) {
	if row.Malformed != nil {
		return Listing{}, fmt.Errorf("%w: %v", ErrRowSkipped, row.Malformed)
	}

	fields := map[string]string{
		ColumnTitle:     row.Title,
		ColumnCompany:   row.Company,
		ColumnLocation:  row.Location,
		ColumnStartDate: row.StartDate,
		ColumnDuration:  row.Duration,
		ColumnStipend:   row.Stipend,
	}
	for _, column := range Columns {
		if !utf8.ValidString(fields[column]) {
			return Listing{}, fmt.Errorf("%w: %s is not valid UTF-8", ErrRowSkipped, column)
		}
	}

	return Listing{
		ID:             id,
		Title:          strings.TrimSpace(row.Title),
		Company:        strings.TrimSpace(row.Company),
		Location:       strings.TrimSpace(row.Location),
		StartDate:      strings.TrimSpace(row.StartDate),
		Duration:       strings.TrimSpace(row.Duration),
		RawStipend:     strings.TrimSpace(row.Stipend),
		StipendAmount:  ParseStipend(row.Stipend),
		IsPaid:         IsPaid(row.Stipend),
		Skills:         ExtractSkills(row.Title),
		Domain:         CategorizeDomain(row.Title),
		WorkMode:       DetermineWorkMode(row.Location),
		DurationMonths: DurationMonths(row.Duration),
	}, nil
}
