package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"intakedash/internal/models"
)

func median(v float64) *float64 { return &v }

func TestWriteCSV(t *testing.T) {
	tests := []struct {
		name string
		resp interface{}
		want string
	}{
		{
			name: "categories",
			resp: models.CategoryResponse{Data: []models.CategoryRow{
				{Category: "order", Count: 8, Percentage: 80},
				{Category: "referral", Count: 2, Percentage: 20},
			}},
			want: "category,count,percentage\norder,8,80.00\nreferral,2,20.00\n",
		},
		{
			name: "productivity with missing median",
			resp: models.ProductivityResponse{Data: []models.ProductivityRow{
				{UserID: "u1", UserName: "Ann", TotalProcessed: 10, AvgPerDay: 5, MedianMinutes: median(42)},
				{UserID: "u2", UserName: "Bob, Jr", TotalProcessed: 3, AvgPerDay: 1},
			}},
			want: "user_id,user_name,total_processed,avg_per_day,median_minutes\n" +
				"u1,Ann,10,5.00,42.00\n" +
				"u2,\"Bob, Jr\",3,1.00,\n",
		},
		{
			name: "single aggregate",
			resp: models.PagesResponse{TotalDocuments: 15, TotalPages: 45},
			want: "total_documents,total_pages,avg_pages_per_fax\n15,45,\n",
		},
		{
			name: "empty series",
			resp: models.VolumeResponse{Data: []models.VolumeRow{}},
			want: "date,count\n",
		},
		{
			name: "suppliers",
			resp: models.SupplierListResponse{Data: []models.Supplier{{SupplierID: "A1", Name: "North", AIIntakeEnabled: true}}},
			want: "supplier_id,name,ai_intake_enabled\nA1,North,true\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := TableFor(tt.resp)
			if err != nil {
				t.Fatalf("TableFor: %v", err)
			}
			var buf bytes.Buffer
			if err := WriteCSV(&buf, table); err != nil {
				t.Fatalf("WriteCSV: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("CSV =\n%s\nwant\n%s", buf.String(), tt.want)
			}
		})
	}
}

func TestWriteXLSX(t *testing.T) {
	table, err := TableFor(models.StateResponse{Data: []models.StateRow{
		{State: "pushed", Label: "Pushed", Count: 6, Percentage: 75},
		{State: "discarded", Label: "Discarded", Count: 2, Percentage: 25},
	}})
	if err != nil {
		t.Fatalf("TableFor: %v", err)
	}

	data, err := WriteXLSX(table, "state_distribution")
	if err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("state_distribution")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if strings.Join(rows[0], ",") != "state,label,count,percentage" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "pushed" || rows[1][2] != "6" || rows[1][3] != "75" {
		t.Errorf("first row = %v", rows[1])
	}
	if sheets := f.GetSheetList(); len(sheets) != 1 {
		t.Errorf("sheets = %v, want one", sheets)
	}
}

func TestTableForUnknownType(t *testing.T) {
	if _, err := TableFor(struct{}{}); err == nil {
		t.Error("expected error for unknown response type")
	}
}

func TestFilename(t *testing.T) {
	f := models.FilterState{
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	if got := Filename("volume", f, FormatCSV); got != "volume_2026-01-01_to_2026-01-31.csv" {
		t.Errorf("Filename = %q", got)
	}
}
