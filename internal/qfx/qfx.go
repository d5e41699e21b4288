// Package qfx reads transactions out of QFX/OFX bank exports.
//
// The format is SGML-like and banks are loose with it (unclosed leaf tags, stray whitespace,
// mixed line endings), so the parser splits on <STMTTRN> blocks and tag delimiters rather
// than using an XML decoder.
package qfx

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	blockOpen  = "<STMTTRN>"
	blockClose = "</STMTTRN>"
	dateLayout = "20060102"
)

var hundred = decimal.NewFromInt(100)

// Record is one parsed <STMTTRN> block. Amount is in cents.
type Record struct {
	FITID  string
	Date   string
	Amount int64
	Name   string
	Memo   string
	Type   string
}

// RecordError describes a block that was skipped. Index is the block's position in the file, from 0.
type RecordError struct {
	Index  int
	FITID  string
	Reason string
}

func (e RecordError) Error() string {
	if e.FITID != "" {
		return fmt.Sprintf("record %d (FITID %s): %s", e.Index+1, e.FITID, e.Reason)
	}
	return fmt.Sprintf("record %d: %s", e.Index+1, e.Reason)
}

// Parse extracts every transaction block. Malformed blocks are reported in the error list and do not
// stop the rest of the file from parsing.
func Parse(contents string) ([]Record, []RecordError) {
	var (
		records []Record
		errs    []RecordError
	)
	for i, block := range splitBlocks(contents) {
		rec, err := parseBlock(block)
		if err != nil {
			errs = append(errs, RecordError{Index: i, FITID: rec.FITID, Reason: err.Error()})
			continue
		}
		records = append(records, rec)
	}
	return records, errs
}

// splitBlocks returns the body of each <STMTTRN> block. A block ends at its closing tag,
// the next opening tag, or end of input.
func splitBlocks(contents string) []string {
	upper := asciiUpper(contents)
	var blocks []string
	pos := 0
	for {
		start := strings.Index(upper[pos:], blockOpen)
		if start < 0 {
			return blocks
		}
		start += pos + len(blockOpen)

		end := len(contents)
		if i := strings.Index(upper[start:], blockClose); i >= 0 {
			end = start + i
		}
		if i := strings.Index(upper[start:end], blockOpen); i >= 0 {
			end = start + i
		}
		blocks = append(blocks, contents[start:end])
		pos = end
	}
}

// asciiUpper upper-cases ASCII letters only, so byte offsets match the input.
func asciiUpper(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r - ('a' - 'A')
		}
		return r
	}, s)
}

// fields maps each leaf tag in block to its value. The first occurrence of a tag wins.
func fields(block string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(block, "<") {
		tag, value, ok := strings.Cut(part, ">")
		if !ok {
			continue
		}
		tag = strings.ToUpper(strings.TrimSpace(tag))
		if tag == "" || strings.HasPrefix(tag, "/") {
			continue
		}
		if _, seen := out[tag]; seen {
			continue
		}
		out[tag] = html.UnescapeString(strings.TrimSpace(value))
	}
	return out
}

func parseBlock(block string) (Record, error) {
	f := fields(block)
	rec := Record{
		FITID: f["FITID"],
		Name:  f["NAME"],
		Memo:  f["MEMO"],
		Type:  f["TRNTYPE"],
	}

	var missing []string
	for _, tag := range []string{"DTPOSTED", "TRNAMT", "NAME", "FITID"} {
		if f[tag] == "" {
			missing = append(missing, tag)
		}
	}
	if len(missing) > 0 {
		return rec, fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}

	date, err := ParseDate(f["DTPOSTED"])
	if err != nil {
		return rec, err
	}
	amount, err := ParseAmount(f["TRNAMT"])
	if err != nil {
		return rec, err
	}
	rec.Date = date
	rec.Amount = amount
	return rec, nil
}

// ParseDate turns a DTPOSTED value such as "20240115120000.000[-5:EST]" into "2024-01-15".
// Only the first eight characters are significant.
func ParseDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < len(dateLayout) {
		return "", fmt.Errorf("invalid DTPOSTED %q", raw)
	}
	t, err := time.Parse(dateLayout, raw[:len(dateLayout)])
	if err != nil {
		return "", fmt.Errorf("invalid DTPOSTED %q", raw)
	}
	return t.Format("2006-01-02"), nil
}

// ParseAmount converts a TRNAMT value in major units to cents, rounding half away from zero
// ("-12.005" is -1201).
func ParseAmount(raw string) (int64, error) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "+")
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid TRNAMT %q", raw)
	}
	return d.Mul(hundred).Round(0).IntPart(), nil
}

// APITransaction is a record in the shape accepted by POST /api/transactions.
type APITransaction struct {
	Amount             int64  `json:"amount"`
	Date               string `json:"date"`
	TransactionDetails string `json:"transactionDetails"`
	ExternalID         string `json:"externalId"`
	Notes              string `json:"notes,omitempty"`
}

func MapToAPIFormat(r Record) APITransaction {
	return APITransaction{
		Amount:             r.Amount,
		Date:               r.Date,
		TransactionDetails: r.Name,
		ExternalID:         r.FITID,
		Notes:              r.Memo,
	}
}

func MapAll(records []Record) []APITransaction {
	out := make([]APITransaction, len(records))
	for i, r := range records {
		out[i] = MapToAPIFormat(r)
	}
	return out
}
