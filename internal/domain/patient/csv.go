package patient

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/practicehub/practicehub/internal/platform/validate"
)

// listSeparator joins medical-history entries inside a single CSV cell.
// A separator or backslash inside an entry is escaped with a backslash.
const listSeparator = ';'

var listEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`)

// CSVHeader is the column order used for export. Import looks columns up
// by name, so files with reordered or extra columns still load.
var CSVHeader = []string{
	"Account Number",
	"First Name",
	"Middle Name",
	"Last Name",
	"Date of Birth",
	"Gender",
	"Email",
	"Phone",
	"Alt Phone",
	"Address Line 1",
	"Address Line 2",
	"City",
	"State",
	"ZIP Code",
	"Emergency Contact Name",
	"Emergency Contact Phone",
	"Emergency Contact Relationship",
	"Insurance Provider",
	"Policy Number",
	"Group Number",
	"Subscriber Name",
	"Subscriber Relationship",
	"Allergies",
	"Medications",
	"Conditions",
	"Surgeries",
	"Family History",
	"Status",
	"Risk Level",
}

var requiredColumns = []string{"First Name", "Last Name"}

// ImportRow is one parsed data row. Row is 1-based and counts the header,
// matching what a spreadsheet shows.
type ImportRow struct {
	Row           int
	AccountNumber string
	Form          RegistrationForm
	Errors        validate.Errors
}

func columnKey(name string) string {
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(name)))
}

func joinList(items []string) string {
	escaped := make([]string, len(items))
	for i, it := range items {
		escaped[i] = listEscaper.Replace(it)
	}
	return strings.Join(escaped, string(listSeparator)+" ")
}

func splitList(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	var (
		items   []string
		cur     strings.Builder
		escaped bool
	)
	for _, r := range cell {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == listSeparator:
			items = append(items, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if escaped {
		cur.WriteRune('\\')
	}
	items = append(items, cur.String())
	return cleanList(items)
}

// Record returns p's values in CSVHeader order.
func Record(p *Patient) []string {
	f := FormFromPatient(p)
	return []string{
		p.AccountNumber,
		f.FirstName,
		f.MiddleName,
		f.LastName,
		f.DateOfBirth,
		f.Gender,
		f.Email,
		f.Phone,
		f.AltPhone,
		f.AddressLine1,
		f.AddressLine2,
		f.City,
		f.State,
		f.ZipCode,
		f.EmergencyContactName,
		f.EmergencyContactPhone,
		f.EmergencyContactRelationship,
		f.InsuranceProvider,
		f.PolicyNumber,
		f.GroupNumber,
		f.SubscriberName,
		f.SubscriberRelationship,
		joinList(f.Allergies),
		joinList(f.Medications),
		joinList(f.Conditions),
		joinList(f.Surgeries),
		joinList(f.FamilyHistory),
		f.Status,
		f.RiskLevel,
	}
}

func WriteCSV(w io.Writer, patients []*Patient) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("patient csv: write header: %w", err)
	}
	for _, p := range patients {
		if err := cw.Write(Record(p)); err != nil {
			return fmt.Errorf("patient csv: write %s: %w", p.AccountNumber, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a patient CSV. Rows that fail validation are still returned
// with their Errors set; only unreadable files or a missing name column
// produce an error.
func ReadCSV(r io.Reader) ([]ImportRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("patient csv: file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("patient csv: read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[columnKey(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[columnKey(col)]; !ok {
			return nil, fmt.Errorf("patient csv: missing required column %q", col)
		}
	}

	var rows []ImportRow
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return rows, fmt.Errorf("patient csv: line %d: %w", line, err)
		}
		if blankRecord(rec) {
			continue
		}

		cell := func(name string) string {
			i, ok := index[columnKey(name)]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		form := RegistrationForm{
			FirstName:                    cell("First Name"),
			MiddleName:                   cell("Middle Name"),
			LastName:                     cell("Last Name"),
			DateOfBirth:                  cell("Date of Birth"),
			Gender:                       cell("Gender"),
			Email:                        cell("Email"),
			Phone:                        cell("Phone"),
			AltPhone:                     cell("Alt Phone"),
			AddressLine1:                 cell("Address Line 1"),
			AddressLine2:                 cell("Address Line 2"),
			City:                         cell("City"),
			State:                        cell("State"),
			ZipCode:                      cell("ZIP Code"),
			EmergencyContactName:         cell("Emergency Contact Name"),
			EmergencyContactPhone:        cell("Emergency Contact Phone"),
			EmergencyContactRelationship: cell("Emergency Contact Relationship"),
			InsuranceProvider:            cell("Insurance Provider"),
			PolicyNumber:                 cell("Policy Number"),
			GroupNumber:                  cell("Group Number"),
			SubscriberName:               cell("Subscriber Name"),
			SubscriberRelationship:       cell("Subscriber Relationship"),
			Allergies:                    splitList(cell("Allergies")),
			Medications:                  splitList(cell("Medications")),
			Conditions:                   splitList(cell("Conditions")),
			Surgeries:                    splitList(cell("Surgeries")),
			FamilyHistory:                splitList(cell("Family History")),
			Status:                       strings.ToLower(cell("Status")),
			RiskLevel:                    strings.ToLower(cell("Risk Level")),
		}
		rows = append(rows, ImportRow{
			Row:           line,
			AccountNumber: cell("Account Number"),
			Form:          form,
			Errors:        form.Validate(),
		})
	}
	return rows, nil
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
