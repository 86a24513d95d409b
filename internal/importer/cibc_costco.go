package importer

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/ledongthuc/pdf"

	"github.com/cleared-dev/expense-tracker/internal/model"
)

// CIBCCostcoAccount is the registry identifier for CIBC Costco Mastercard PDFs.
const CIBCCostcoAccount = "cibc-costco-credit"

// cibcBonusMarker flags bonus-reward rows on the statement.
const cibcBonusMarker = "Ý"

// cibcSpendCategories are printed between the merchant and the amount.
var cibcSpendCategories = []string{
	"Retail and Grocery",
	"Home and Office Improvement",
	"Restaurants",
	"Transportation",
	"Health and Education",
	"Personal and Household Expenses",
	"Foreign Currency Transactions",
	"Hotel, Entertainment and Recreation",
	"Professional and Financial Services",
}

var cibcCreditKeywords = []string{"REFUND", "RETURN", "CREDIT", "REVERSAL"}

var cibcStatementIdentifiers = []string{"CIBC Costco World Mastercard", "Your account at a glance"}

var (
	cibcStatementDateRe = regexp.MustCompile(`(?i)Statement Date\D*?([A-Za-z]+)\.?\s+(\d{1,2}),?\s+(\d{4})`)
	cibcPeriodRe        = regexp.MustCompile(`([A-Za-z]+)\s+\d{1,2}\s+to\s+([A-Za-z]+)\s+\d{1,2},?\s+(\d{4})`)
	cibcCardRe          = regexp.MustCompile(`Card number\s+(\d{4}\s+X+\s+X+\s+\d{4})`)
	cibcSectionEndRe    = regexp.MustCompile(`(?i)^Total (payments|for)`)
	cibcDateStartRe     = regexp.MustCompile(`^[A-Za-z]{3}\s+\d{1,2}\s`)
	cibcPaymentRe       = regexp.MustCompile(`^([A-Za-z]{3}\s+\d{1,2})\s+[A-Za-z]{3}\s+\d{1,2}\s+(.+?)\s+([\d,]+\.\d{2})$`)
	cibcChargeRe        = regexp.MustCompile(`^([A-Za-z]{3}\s+\d{1,2})\s+[A-Za-z]{3}\s+\d{1,2}\s+(.+?)\s+(-?[\d,]+\.\d{2})$`)

	cibcSkipRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^Trans\s+Post`),
		regexp.MustCompile(`(?i)^date\s+date`),
		regexp.MustCompile(`(?i)^Page \d+`),
		regexp.MustCompile(`(?i)Identifies transactions`),
		regexp.MustCompile(`(?i)^Information about`),
	}
)

type cibcSection int

const (
	cibcNone cibcSection = iota
	cibcPayments
	cibcCharges
)

func (s cibcSection) String() string {
	switch s {
	case cibcPayments:
		return "payments"
	case cibcCharges:
		return "charges"
	}
	return ""
}

// CIBCCostcoParser parses CIBC Costco World Mastercard PDF statements.
//
// Transaction lines carry only month and day. The year comes from the
// statement date; lines dated in a later month than the statement belong to
// the previous year.
type CIBCCostcoParser struct{}

// Account returns the registry identifier.
func (p *CIBCCostcoParser) Account() string { return CIBCCostcoAccount }

// Parse extracts the text of every page and parses it.
func (p *CIBCCostcoParser) Parse(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading cibc statement: %w", err)
	}
	pages, err := pdfPages(data)
	if err != nil {
		return nil, fmt.Errorf("reading cibc statement: %w", err)
	}
	return parseCIBCCostcoPages(pages)
}

// pdfPages returns the text of each page, one line per visual row.
func pdfPages(data []byte) ([]string, error) {
	rd, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	var pages []string
	for i := 1; i <= rd.NumPage(); i++ {
		page := rd.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("extracting page %d: %w", i, err)
		}
		var sb strings.Builder
		for _, row := range rows {
			sb.WriteString(joinPDFRow(row.Content))
			sb.WriteByte('\n')
		}
		pages = append(pages, sb.String())
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	return pages, nil
}

// joinPDFRow concatenates text runs, inserting a space where runs are
// visibly apart.
func joinPDFRow(texts pdf.TextHorizontal) string {
	var sb strings.Builder
	for i, t := range texts {
		if i > 0 {
			prev := texts[i-1]
			if t.X-(prev.X+prev.W) > prev.FontSize*0.2 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(t.S)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

type cibcStatement struct {
	year  int
	month time.Month // zero when only the year is known
}

func parseCIBCStatementDate(text string) (cibcStatement, error) {
	if m := cibcStatementDateRe.FindStringSubmatch(text); m != nil {
		return newCIBCStatement(m[1], m[3])
	}
	if m := cibcPeriodRe.FindStringSubmatch(text); m != nil {
		return newCIBCStatement(m[2], m[3])
	}
	return cibcStatement{}, fmt.Errorf("cibc statement: no statement date found")
}

func newCIBCStatement(monthName, year string) (cibcStatement, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return cibcStatement{}, fmt.Errorf("parsing statement year %q: %w", year, err)
	}
	st := cibcStatement{year: y}
	for _, layout := range []string{"January", "Jan"} {
		if t, err := time.Parse(layout, monthName); err == nil {
			st.month = t.Month()
			break
		}
	}
	return st, nil
}

// date resolves a "Mon D" string against the statement period.
func (s cibcStatement) date(monthDay string) (civil.Date, error) {
	t, err := time.Parse("Jan 2", strings.Join(strings.Fields(monthDay), " "))
	if err != nil {
		return civil.Date{}, fmt.Errorf("parsing date %q: %w", monthDay, err)
	}
	year := s.year
	if s.month != 0 && t.Month() > s.month {
		year--
	}
	d := civil.Date{Year: year, Month: t.Month(), Day: t.Day()}
	if !d.IsValid() {
		return civil.Date{}, fmt.Errorf("parsing date %q: not a date in %d", monthDay, year)
	}
	return d, nil
}

// parseCIBCCostcoPages runs the section state machine over extracted page
// text. The first page holds the account summary and statement date only.
func parseCIBCCostcoPages(pages []string) (*Result, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("cibc statement: empty document")
	}
	first := strings.ToLower(pages[0])
	for _, id := range cibcStatementIdentifiers {
		if !strings.Contains(first, strings.ToLower(id)) {
			return nil, fmt.Errorf("not a CIBC Costco statement: missing %q", id)
		}
	}
	st, err := parseCIBCStatementDate(pages[0])
	if err != nil {
		return nil, err
	}

	// Single-page documents carry everything on that page.
	firstBody := 1
	if len(pages) == 1 {
		firstBody = 0
	}

	res := &Result{}
	section := cibcNone
	card := ""
	for pi := firstBody; pi < len(pages); pi++ {
		for li, line := range strings.Split(pages[pi], "\n") {
			line = strings.TrimSpace(line)

			switch {
			case line == "":
				continue
			case strings.Contains(strings.ToLower(line), "your payments"):
				section = cibcPayments
				continue
			case strings.Contains(strings.ToLower(line), "your new charges and credits"):
				section = cibcCharges
				continue
			}
			if m := cibcCardRe.FindStringSubmatch(line); m != nil {
				card = m[1]
				continue
			}
			if cibcSectionEndRe.MatchString(line) {
				section = cibcNone
				continue
			}
			if section == cibcNone {
				continue
			}

			txnLine := strings.TrimSpace(strings.ReplaceAll(line, cibcBonusMarker, ""))
			if txnLine == "" || skipCIBCLine(txnLine) || !cibcDateStartRe.MatchString(txnLine) {
				res.Skipped++
				continue
			}

			var txn model.Transaction
			if section == cibcPayments {
				txn, err = parseCIBCPaymentLine(st, txnLine)
			} else {
				txn, err = parseCIBCChargeLine(st, txnLine)
			}
			if err != nil {
				res.fail(CIBCCostcoAccount, li+1, fmt.Sprintf("page %d: %s", pi+1, line), err)
				continue
			}
			txn.RawData = model.RawData{
				"line":    line,
				"section": section.String(),
				"page":    strconv.Itoa(pi + 1),
			}
			if card != "" {
				txn.RawData["card"] = card
			}
			if strings.Contains(line, cibcBonusMarker) {
				txn.RawData["bonus"] = "true"
			}
			res.add(txn)
		}
	}
	return res, nil
}

func skipCIBCLine(line string) bool {
	for _, re := range cibcSkipRes {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func parseCIBCPaymentLine(st cibcStatement, line string) (model.Transaction, error) {
	m := cibcPaymentRe.FindStringSubmatch(line)
	if m == nil {
		return model.Transaction{}, fmt.Errorf("unrecognized payment line")
	}
	date, err := st.date(m[1])
	if err != nil {
		return model.Transaction{}, err
	}
	amount, err := parseAmount(m[3])
	if err != nil {
		return model.Transaction{}, err
	}
	return model.New(date, m[2], amount, model.Credit, CIBCCostcoAccount)
}

func parseCIBCChargeLine(st cibcStatement, line string) (model.Transaction, error) {
	m := cibcChargeRe.FindStringSubmatch(line)
	if m == nil {
		return model.Transaction{}, fmt.Errorf("unrecognized charge line")
	}
	date, err := st.date(m[1])
	if err != nil {
		return model.Transaction{}, err
	}
	amount, err := parseAmount(m[3])
	if err != nil {
		return model.Transaction{}, err
	}
	desc := stripSpendCategory(m[2])

	typ := model.Debit
	if amount.IsNegative() || hasCreditKeyword(desc) {
		typ = model.Credit
	}
	return model.New(date, desc, amount.Abs(), typ, CIBCCostcoAccount)
}

func stripSpendCategory(s string) string {
	s = strings.TrimSpace(s)
	for _, cat := range cibcSpendCategories {
		if strings.HasSuffix(s, cat) {
			return strings.TrimSpace(strings.TrimSuffix(s, cat))
		}
	}
	return s
}

func hasCreditKeyword(desc string) bool {
	upper := strings.ToUpper(desc)
	for _, kw := range cibcCreditKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}
