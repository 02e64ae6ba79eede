package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nhle/mailsweep/internal/model"
)

func testDomains() map[string]*model.DomainRecord {
	updated := time.Date(2024, 5, 3, 14, 30, 0, 0, time.UTC)

	bank := model.NewDomainRecord("bank.com")
	bank.Categories["Finance"] = struct{}{}
	bank.UniqueSenders["alerts@bank.com"] = struct{}{}
	bank.UniqueSenders["promo@bank.com"] = struct{}{}
	bank.SenderList = []string{"alerts@bank.com", "promo@bank.com"}
	bank.TotalEmails = 3
	bank.LastUpdated = updated

	shop := model.NewDomainRecord("shopco.com")
	shop.Categories["Shopping"] = struct{}{}
	shop.UniqueSenders["news@shopco.com"] = struct{}{}
	shop.SenderList = []string{"news@shopco.com"}
	shop.TotalEmails = 2
	shop.Unsubscribe = &model.UnsubscribeInfo{
		URL:   "https://shopco.com/unsub?t=abc123",
		Token: "abc123",
	}
	shop.LastUpdated = updated

	// Below the reporting threshold.
	solo := model.NewDomainRecord("once.example")
	solo.UniqueSenders["hi@once.example"] = struct{}{}
	solo.SenderList = []string{"hi@once.example"}
	solo.TotalEmails = 1
	solo.LastUpdated = updated

	return map[string]*model.DomainRecord{
		"bank.com":     bank,
		"shopco.com":   shop,
		"once.example": solo,
	}
}

func parseCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	records, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatalf("parsing written CSV: %v", err)
	}
	return records
}

func TestWriteDomainAnalysis(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDomainAnalysis(&buf, testDomains()); err != nil {
		t.Fatalf("WriteDomainAnalysis: %v", err)
	}

	records := parseCSV(t, &buf)
	if len(records) != 3 {
		t.Fatalf("row count = %d, want header plus 2 domains", len(records))
	}
	if !reflect.DeepEqual(records[0], DomainHeader) {
		t.Errorf("header = %v, want %v", records[0], DomainHeader)
	}

	bank := records[1]
	want := []string{
		"bank.com", "Finance", "2", "3",
		"alerts@bank.com; promo@bank.com", "", "", "2024-05-03 14:30:00",
	}
	if !reflect.DeepEqual(bank, want) {
		t.Errorf("bank row = %v, want %v", bank, want)
	}

	shop := records[2]
	if shop[0] != "shopco.com" || shop[5] != "https://shopco.com/unsub?t=abc123" || shop[6] != "abc123" {
		t.Errorf("shop row = %v", shop)
	}

	// once.example has a single email and must be filtered out.
	for _, rec := range records[1:] {
		if rec[0] == "once.example" {
			t.Error("domain below the threshold was reported")
		}
	}
}

func TestWritePersonalized(t *testing.T) {
	var buf bytes.Buffer
	recs := []model.PersonalizedRecord{
		{SenderName: "Alice", SenderAddr: "alice@friendmail.example", RawHeader: "From: Alice\r\nSubject: hi"},
	}
	if err := WritePersonalized(&buf, recs); err != nil {
		t.Fatalf("WritePersonalized: %v", err)
	}

	records := parseCSV(t, &buf)
	if len(records) != 2 {
		t.Fatalf("row count = %d, want 2", len(records))
	}
	if !reflect.DeepEqual(records[0], PersonalizedHeader) {
		t.Errorf("header = %v, want %v", records[0], PersonalizedHeader)
	}
	if records[1][0] != "Alice" || records[1][1] != "alice@friendmail.example" {
		t.Errorf("row = %v", records[1])
	}
	if !strings.Contains(records[1][2], "Subject: hi") {
		t.Errorf("Full Header = %q", records[1][2])
	}
}

func TestWriteSelectionFlags(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSelection(&buf, testDomains()); err != nil {
		t.Fatalf("WriteSelection: %v", err)
	}

	records := parseCSV(t, &buf)
	if !reflect.DeepEqual(records[0], SelectionHeader) {
		t.Errorf("header = %v, want %v", records[0], SelectionHeader)
	}

	for _, rec := range records[1:] {
		if rec[colDelete] != "no" {
			t.Errorf("%s: Delete = %q, want no", rec[colDomain], rec[colDelete])
		}
		wantAvail := "no"
		if rec[colDomain] == "shopco.com" {
			wantAvail = "yes"
		}
		if rec[colListUnsubscribe] != wantAvail {
			t.Errorf("%s: List-Unsubscribe = %q, want %q",
				rec[colDomain], rec[colListUnsubscribe], wantAvail)
		}
	}
}

func TestReadSelectionRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSelection(&buf, testDomains()); err != nil {
		t.Fatalf("WriteSelection: %v", err)
	}

	rows, err := ReadSelection(&buf)
	if err != nil {
		t.Fatalf("ReadSelection: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("row count = %d, want 2", len(rows))
	}

	var shop *model.SelectionRow
	for i := range rows {
		if rows[i].Domain == "shopco.com" {
			shop = &rows[i]
		}
	}
	if shop == nil {
		t.Fatal("no row for shopco.com")
	}
	if shop.Token != "abc123" || shop.UnsubscribeURL != "https://shopco.com/unsub?t=abc123" {
		t.Errorf("shop row = %+v", shop)
	}
	if shop.Selected() {
		t.Error("freshly written row reports Selected() = true")
	}
}

func TestSelectionRowSelected(t *testing.T) {
	tests := []struct {
		delete, list string
		want         bool
	}{
		{"yes", "yes", true},
		{"YES", "Yes", true},
		{" yes ", "yes", true},
		{"yes", "no", false},
		{"no", "yes", false},
		{"", "yes", false},
		{"y", "yes", false},
	}

	for _, tt := range tests {
		row := model.SelectionRow{Delete: tt.delete, ListUnsubscribe: tt.list}
		if got := row.Selected(); got != tt.want {
			t.Errorf("Selected(%q, %q) = %v, want %v", tt.delete, tt.list, got, tt.want)
		}
	}
}

func TestReadSelectionInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty file", ""},
		{"wrong header", "Domain,Nope\nx.com,1\n"},
		{
			"empty domain",
			strings.Join(SelectionHeader, ",") + "\n" +
				",Finance,1,2,a@x.com,,,2024-05-03 14:30:00,no,no\n",
		},
		{
			"short row",
			strings.Join(SelectionHeader, ",") + "\n" +
				"x.com,Finance,1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSelection(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("ReadSelection accepted invalid input")
			}
			var invalid *InvalidSelectionError
			if !errors.As(err, &invalid) {
				t.Fatalf("error type = %T, want *InvalidSelectionError", err)
			}
		})
	}
}

func TestApplySelectionPreservesColumns(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSelection(&buf, testDomains()); err != nil {
		t.Fatalf("WriteSelection: %v", err)
	}

	records, err := ReadSelectionRecords(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadSelectionRecords: %v", err)
	}
	rows, err := ParseSelection(records)
	if err != nil {
		t.Fatalf("ParseSelection: %v", err)
	}

	for i := range rows {
		if rows[i].Domain == "shopco.com" {
			rows[i].Delete = "yes"
		}
	}

	var out bytes.Buffer
	if err := ApplySelection(&out, records, rows); err != nil {
		t.Fatalf("ApplySelection: %v", err)
	}

	rewritten := parseCSV(t, &out)
	if len(rewritten) != len(records) {
		t.Fatalf("rewritten rows = %d, want %d", len(rewritten), len(records))
	}
	for _, rec := range rewritten[1:] {
		wantDelete := "no"
		if rec[colDomain] == "shopco.com" {
			wantDelete = "yes"
		}
		if rec[colDelete] != wantDelete {
			t.Errorf("%s: Delete = %q, want %q", rec[colDomain], rec[colDelete], wantDelete)
		}
		// Informational columns must survive the rewrite.
		if rec[colDomain] == "bank.com" && rec[4] != "alerts@bank.com; promo@bank.com" {
			t.Errorf("bank.com Sender List = %q", rec[4])
		}
	}
}

func TestWriteOutcomeLog(t *testing.T) {
	var buf bytes.Buffer
	attempted := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)
	outcomes := []model.UnsubscribeOutcome{
		{Domain: "shopco.com", Token: "abc123", AttemptedAt: attempted, Result: model.OutcomeSuccess, Detail: "HTTP 200 after 1 attempt(s)"},
		{Domain: "lists.example", Token: "leave@lists.example", AttemptedAt: attempted, Result: model.OutcomeManualRequired, Detail: "mailto mechanism"},
	}

	if err := WriteOutcomeLog(&buf, outcomes); err != nil {
		t.Fatalf("WriteOutcomeLog: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("line count = %d, want 2", len(lines))
	}
	first := strings.Split(lines[0], "\t")
	if len(first) != 5 {
		t.Fatalf("field count = %d, want 5", len(first))
	}
	if first[0] != "2024-06-02T12:00:00Z" || first[1] != "shopco.com" || first[3] != "Success" {
		t.Errorf("first line = %v", first)
	}
}
