// Package qif reads Quicken Interchange Format exports. QIF is line
// oriented: each line is a one-letter field code plus its value, a caret
// terminates a record, and a !Type header opens a section.
package qif

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	enc "github.com/we-promise/sure-sub001/internal/encoding"
	"github.com/we-promise/sure-sub001/internal/provider"
)

type Parser struct{}

func New() *Parser {
	return &Parser{}
}

// sections whose records are transactions.
var transactionSections = map[string]struct{}{
	"bank":  {},
	"cash":  {},
	"ccard": {},
}

// record accumulates one QIF record's fields until the ^ terminator.
type record struct {
	date     string
	amount   string
	payee    string
	memo     string
	number   string
	category string
}

func (r record) empty() bool {
	return r.date == "" && r.amount == "" && r.payee == ""
}

// Parse reads all transaction records from the file. Banks export QIF in a
// variety of 8-bit encodings, so input goes through encoding detection first.
//
// A record whose payee is "Opening Balance" is Quicken's dedicated
// opening-balance pseudo-transaction: its amount is returned as the file's
// opening balance instead of producing a transaction record.
func (p *Parser) Parse(r io.Reader) ([]provider.NormalizedRecord, *decimal.Decimal, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("detect encoding: %w", err)
	}

	var (
		records        []provider.NormalizedRecord
		openingBalance *decimal.Decimal
		current        record
		inTransactions bool
		sawSection     bool
		line           int
	)

	scanner := bufio.NewScanner(utf8r)

	for scanner.Scan() {
		line++

		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "!") {
			section := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(text)), "!type:")
			_, inTransactions = transactionSections[section]
			sawSection = sawSection || inTransactions
			current = record{}

			continue
		}

		if !inTransactions {
			continue
		}

		code, value := text[:1], strings.TrimSpace(text[1:])

		switch code {
		case "D":
			current.date = value
		case "T", "U":
			current.amount = value
		case "P":
			current.payee = value
		case "M":
			current.memo = value
		case "N":
			current.number = value
		case "L":
			current.category = value
		case "^":
			if current.empty() {
				current = record{}
				continue
			}

			rec, opening, err := normalizeRecord(current)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: %w", line, err)
			}

			if opening != nil {
				openingBalance = opening
			} else {
				records = append(records, rec)
			}

			current = record{}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading qif: %w", err)
	}

	if !sawSection {
		return nil, nil, fmt.Errorf("no transaction section found: expected a !Type:Bank, !Type:Cash or !Type:CCard header")
	}

	return records, openingBalance, nil
}

func normalizeRecord(r record) (provider.NormalizedRecord, *decimal.Decimal, error) {
	date, err := parseDate(r.date)
	if err != nil {
		return provider.NormalizedRecord{}, nil, err
	}

	amount, err := parseAmount(r.amount)
	if err != nil {
		return provider.NormalizedRecord{}, nil, err
	}

	if strings.EqualFold(r.payee, "Opening Balance") {
		// The amount of the pseudo-transaction is the balance itself,
		// not a flow; keep its sign as written.
		return provider.NormalizedRecord{}, &amount, nil
	}

	description := r.payee
	if description == "" {
		description = r.memo
	}

	if description == "" {
		return provider.NormalizedRecord{}, nil, fmt.Errorf("record has no payee or memo")
	}

	return provider.NormalizedRecord{
		Amount:      amount.Neg(), // QIF: negative = outflow; ledger: positive = outflow
		Date:        date,
		Description: description,
		FallbackID:  r.number,
		Category:    r.category,
	}, nil, nil
}

// parseDate handles the common QIF date spellings, including the Quicken
// apostrophe year separator ("1/30'05").
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("record has no date")
	}

	clean := strings.ReplaceAll(s, "'", "/")
	clean = strings.ReplaceAll(clean, " ", "")

	for _, layout := range []string{"1/2/2006", "1/2/06", "2006-01-02", "2.1.2006"} {
		if t, err := time.Parse(layout, clean); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("record has no amount")
	}

	clean := strings.ReplaceAll(s, ",", "")

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparseable amount %q: %w", s, err)
	}

	return d, nil
}
