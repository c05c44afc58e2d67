package patient

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/practicehub/practicehub/internal/platform/validate"
	"github.com/practicehub/practicehub/pkg/pagination"
)

const filterAll = "all"

// Filter is the patient list query: a free-text term, four AND-composed
// predicates, a sort key and a page.
type Filter struct {
	SearchTerm string `json:"search_term"`
	Status     string `json:"status"`
	Insurance  string `json:"insurance"`
	AgeRange   string `json:"age_range"`
	RiskLevel  string `json:"risk_level"`
	SortBy     string `json:"sort_by"`
	SortDir    string `json:"sort_dir"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
}

var SortKeys = []string{"name", "age", "last_visit", "risk_level", "created_at"}

// ParseFilter reads a Filter from query parameters. Both snake_case and the
// dashboard's camelCase spellings are accepted.
func ParseFilter(q url.Values) Filter {
	get := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(q.Get(k)); v != "" {
				return v
			}
		}
		return ""
	}
	f := Filter{
		SearchTerm: get("q", "search", "searchTerm"),
		Status:     get("status"),
		Insurance:  get("insurance"),
		AgeRange:   get("age_range", "ageRange"),
		RiskLevel:  get("risk_level", "riskLevel"),
		SortBy:     get("sort_by", "sortBy"),
		SortDir:    get("sort_dir", "sortDir"),
	}
	f.Page, _ = strconv.Atoi(get("page"))
	f.PageSize, _ = strconv.Atoi(get("page_size", "pageSize"))
	return f
}

// Result is one page of filtered patients.
type Result struct {
	Items      []*Patient `json:"items"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}

// Apply filters, sorts and pages patients in memory. The input slice is not
// modified.
func Apply(patients []*Patient, f Filter, today time.Time) Result {
	page, size := pagination.Normalize(f.Page, f.PageSize)

	matched := make([]*Patient, 0, len(patients))
	for _, p := range patients {
		if f.matches(p, today) {
			matched = append(matched, p)
		}
	}
	sortPatients(matched, f.SortBy, f.SortDir, today)

	return Result{
		Items:      pagination.Slice(matched, page, size),
		Total:      len(matched),
		Page:       page,
		PageSize:   size,
		TotalPages: pagination.TotalPages(len(matched), size),
	}
}

func active(v string) bool {
	return v != "" && !strings.EqualFold(v, filterAll)
}

func (f Filter) matches(p *Patient, today time.Time) bool {
	if active(f.Status) && !strings.EqualFold(string(p.Status), f.Status) {
		return false
	}
	if active(f.RiskLevel) && !strings.EqualFold(string(p.RiskLevel), f.RiskLevel) {
		return false
	}
	if active(f.Insurance) && !matchesInsurance(p, f.Insurance) {
		return false
	}
	if active(f.AgeRange) {
		r, ok := ageRangeFor(f.AgeRange)
		if !ok || !r.Contains(Age(p.DateOfBirth, today)) {
			return false
		}
	}
	return matchesTerm(p, f.SearchTerm)
}

func matchesInsurance(p *Patient, want string) bool {
	if strings.EqualFold(want, "none") {
		return len(p.Insurance) == 0
	}
	want = strings.ToLower(want)
	for _, ins := range p.Insurance {
		if strings.Contains(strings.ToLower(ins.ProviderName), want) {
			return true
		}
	}
	return false
}

// matchesTerm does a case-insensitive substring match against name, id,
// account number, email, phone and address. Phones also match on digits
// alone so "5551234" finds "(555) 123-4567".
func matchesTerm(p *Patient, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	fields := []string{
		p.FullName(),
		p.FirstName + " " + p.LastName,
		p.ID.String(),
		p.AccountNumber,
		p.Email,
		p.Phone,
		p.Address.String(),
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	if digits := stripPhonePunct(term); len(digits) >= 3 && digits == validate.Digits(term) {
		if strings.Contains(validate.Digits(p.Phone), digits) {
			return true
		}
	}
	return false
}

// stripPhonePunct removes the characters people type inside phone numbers.
func stripPhonePunct(s string) string {
	return strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "", "+", "").Replace(s)
}

func sortPatients(ps []*Patient, key, dir string, today time.Time) {
	desc := strings.EqualFold(dir, "desc")
	var less func(a, b *Patient) bool
	switch key {
	case "age":
		less = func(a, b *Patient) bool { return Age(a.DateOfBirth, today) < Age(b.DateOfBirth, today) }
	case "last_visit":
		less = func(a, b *Patient) bool { return visitTime(a).Before(visitTime(b)) }
	case "risk_level":
		less = func(a, b *Patient) bool { return riskOrder[a.RiskLevel] < riskOrder[b.RiskLevel] }
	case "created_at":
		less = func(a, b *Patient) bool { return a.CreatedAt.Before(b.CreatedAt) }
	default:
		less = func(a, b *Patient) bool { return nameKey(a) < nameKey(b) }
	}
	sort.SliceStable(ps, func(i, j int) bool {
		if desc {
			return less(ps[j], ps[i])
		}
		return less(ps[i], ps[j])
	})
}

func nameKey(p *Patient) string {
	return strings.ToLower(p.LastName + "\x00" + p.FirstName)
}

func visitTime(p *Patient) time.Time {
	if p.LastVisit == nil {
		return time.Time{}
	}
	return *p.LastVisit
}
