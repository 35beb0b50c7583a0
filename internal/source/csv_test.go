package source

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/spigell/internship-recommender/internal/catalog"
)

const header = "internship_title,company_name,location,start_date,duration,stipend\n"

func TestParseCSV(t *testing.T) {
	t.Parallel()

	input := "\ufeff" + header +
		"Java Development,SunbaseData,Work From Home,Immediately,6 Months,\"₹ 30,000 /month\"\n" +
		"Graphic Design,,Pune,N/A,6 Months,\n" +
		"Web Development,TechCorp,Mumbai\n" +
		"Too,Many,Fields,In,This,Row,Here\n"

	rows, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}

	want := []catalog.RawRow{
		{
			Title:     "Java Development",
			Company:   "SunbaseData",
			Location:  "Work From Home",
			StartDate: "Immediately",
			Duration:  "6 Months",
			Stipend:   "₹ 30,000 /month",
		},
		{
			Title:     "Graphic Design",
			Company:   catalog.NullText,
			Location:  "Pune",
			StartDate: catalog.NullText,
			Duration:  "6 Months",
			Stipend:   catalog.NullText,
		},
		{
			Title:     "Web Development",
			Company:   "TechCorp",
			Location:  "Mumbai",
			StartDate: catalog.NullText,
			Duration:  catalog.NullText,
			Stipend:   catalog.NullText,
		},
	}

	if diff := cmp.Diff(want, rows[:3]); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	if rows[3].Malformed == nil {
		t.Fatalf("expected the row with extra fields to be malformed")
	}
}

func TestParseCSVColumnOrder(t *testing.T) {
	t.Parallel()

	input := "stipend,internship_title,extra,company_name,location,start_date,duration\n" +
		"Unpaid,Content Writing,ignored,MediaHouse,Work From Home,Immediately,3 Months\n"

	rows, err := ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "Content Writing" || rows[0].Stipend != "Unpaid" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestParseCSVHeaderErrors(t *testing.T) {
	t.Parallel()

	if _, err := ParseCSV(strings.NewReader("")); !errors.Is(err, ErrEmptySource) {
		t.Fatalf("expected ErrEmptySource, got %v", err)
	}

	_, err := ParseCSV(strings.NewReader("internship_title,company_name,location\nA,B,C\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	if !strings.Contains(err.Error(), "start_date, duration, stipend") {
		t.Fatalf("expected the missing columns to be named, got %v", err)
	}
}

func TestParseCSVHeaderOnly(t *testing.T) {
	t.Parallel()

	rows, err := ParseCSV(strings.NewReader(header))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}
