package patient

import (
	"bytes"
	"strings"
	"testing"
)

func TestCSV_RoundTrip(t *testing.T) {
	f := validForm()
	f.MiddleName = "Q"
	f.AddressLine1 = "1 Main St, Apt 2"
	f.EmergencyContactName = "John Doe"
	f.EmergencyContactPhone = "555-000-1111"
	f.EmergencyContactRelationship = "spouse"
	f.InsuranceProvider = "Aetna"
	f.PolicyNumber = "P-100"
	f.GroupNumber = "G-7"
	f.Allergies = []string{"penicillin", "latex"}
	f.Conditions = []string{"asthma"}
	f.RiskLevel = "high"
	orig := f.ToPatient()
	orig.AccountNumber = "PT-123456"

	var buf bytes.Buffer
	if err := WriteCSV(&buf, []*Patient{orig}); err != nil {
		t.Fatalf("write: %v", err)
	}

	rows, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if len(row.Errors) > 0 {
		t.Fatalf("unexpected row errors: %v", row.Errors)
	}
	if row.Row != 2 {
		t.Errorf("expected row 2, got %d", row.Row)
	}
	if row.AccountNumber != "PT-123456" {
		t.Errorf("account number lost: %q", row.AccountNumber)
	}

	got := row.Form.ToPatient()
	want := Record(orig)
	have := Record(got)
	for i, col := range CSVHeader {
		if col == "Account Number" {
			continue
		}
		if want[i] != have[i] {
			t.Errorf("%s: got %q, want %q", col, have[i], want[i])
		}
	}
}

func TestCSV_HeaderLookupIgnoresOrderAndCase(t *testing.T) {
	in := "\ufefflast_name,PHONE,first name,Date Of Birth,gender,Extra Column\n" +
		"Doe,(555) 123-4567,Jane,1990-01-15,female,ignored\n"
	rows, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 1 || len(rows[0].Errors) > 0 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[0].Form.FirstName != "Jane" || rows[0].Form.LastName != "Doe" {
		t.Errorf("names not mapped: %+v", rows[0].Form)
	}
}

func TestCSV_InvalidRowsReported(t *testing.T) {
	in := "First Name,Last Name,Date of Birth,Gender,Phone,Email\n" +
		",Doe,1990-01-15,female,(555) 123-4567,\n" +
		",,,,,\n" +
		"Sam,Lee,1980-02-02,male,abc,not-an-email\n"
	rows, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected blank row to be skipped, got %d rows", len(rows))
	}
	if !rows[0].Errors.Has("firstName") || rows[0].Row != 2 {
		t.Errorf("row 2: expected firstName error, got %+v", rows[0])
	}
	if !rows[1].Errors.Has("phone") || !rows[1].Errors.Has("email") || rows[1].Row != 4 {
		t.Errorf("row 4: expected phone and email errors, got %+v", rows[1])
	}
}

func TestCSV_MissingRequiredColumn(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("First Name,Phone\nJane,555\n")); err == nil {
		t.Fatal("expected error for missing Last Name column")
	}
	if _, err := ReadCSV(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty file")
	}
}

func TestWriteCSV_HeaderOrder(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	first := strings.SplitN(buf.String(), "\n", 2)[0]
	if first != strings.Join(CSVHeader, ",") {
		t.Errorf("unexpected header: %s", first)
	}
}

func TestCSV_ListEntriesKeepSeparators(t *testing.T) {
	p := validPatient()
	p.MedicalHistory.Medications = []string{"Tylenol 500mg; twice daily", `C:\notes`, "ibuprofen"}
	p.MedicalHistory.Allergies = []string{"peanuts"}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, []*Patient{p}); err != nil {
		t.Fatalf("write: %v", err)
	}
	rows, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 1 || len(rows[0].Errors) > 0 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	got := rows[0].Form.Medications
	want := p.MedicalHistory.Medications
	if len(got) != len(want) {
		t.Fatalf("medications = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("medication %d = %q, want %q", i, got[i], want[i])
		}
	}
	if len(rows[0].Form.Allergies) != 1 || rows[0].Form.Allergies[0] != "peanuts" {
		t.Errorf("allergies = %q", rows[0].Form.Allergies)
	}
}

func TestSplitList_PlainCells(t *testing.T) {
	got := splitList("asthma; diabetes ;; ")
	if len(got) != 2 || got[0] != "asthma" || got[1] != "diabetes" {
		t.Errorf("splitList = %q", got)
	}
	if splitList("  ") != nil {
		t.Error("expected nil for a blank cell")
	}
}
