package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/eris-dev/eris/internal/banking"
	"github.com/eris-dev/eris/internal/model"
)

// DeutscheBankParser parses semicolon-delimited Deutsche Bank account
// exports. Header and footer lines carry no parseable booking date and
// are skipped, as are outbound transfers (empty inbound amount column).
type DeutscheBankParser struct {
	// Encoding is the IANA charset name of the export; empty means
	// ISO 8859-1, the bank's default.
	Encoding string
}

const (
	dbDateLayout      = "2.1.2006" // dd.mm.yyyy, tolerant of missing zero padding
	dbDefaultEncoding = "ISO-8859-1"

	dbColDate        = 0
	dbColAccountName = 3
	dbColDescription = 4
	dbColIBAN        = 5
	dbColBIC         = 6
	dbColAmount      = 16
)

// Format returns the parser name.
func (p *DeutscheBankParser) Format() string { return "deutsche-bank" }

// Parse reads a Deutsche Bank CSV and returns transaction candidates
// with their identity hash precomputed.
func (p *DeutscheBankParser) Parse(r io.Reader) ([]model.BankTransaction, error) {
	decoded, err := decodeReader(r, p.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(decoded)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var txns []model.BankTransaction
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading statement CSV: %w", err)
		}

		txn, err := parseStatementRow(rec)
		if err != nil {
			return nil, err
		}
		if txn == nil {
			continue
		}
		txns = append(txns, *txn)
	}
	return txns, nil
}

// parseStatementRow decodes one export row. A nil result without error
// means the row is not a bookable inbound transaction.
func parseStatementRow(rec []string) (*model.BankTransaction, error) {
	if len(rec) <= dbColAmount {
		return nil, nil
	}
	date, err := time.Parse(dbDateLayout, rec[dbColDate])
	if err != nil {
		return nil, nil
	}
	if rec[dbColAmount] == "" {
		return nil, nil
	}

	amount, err := parseStatementAmount(rec[dbColAmount])
	if err != nil {
		return nil, fmt.Errorf("parsing amount %q: %w", rec[dbColAmount], err)
	}

	name := rec[dbColAccountName]
	iban := rec[dbColIBAN]
	return &model.BankTransaction{
		Date:        date,
		AccountName: name,
		Description: rec[dbColDescription],
		IBAN:        iban,
		BIC:         rec[dbColBIC],
		IBANHash:    banking.HashIBAN(name, iban),
		Amount:      amount,
	}, nil
}

// parseStatementAmount decodes a localized amount: "." separates
// thousands, "," is the decimal point.
func parseStatementAmount(value string) (decimal.Decimal, error) {
	value = strings.ReplaceAll(value, ".", "")
	value = strings.ReplaceAll(value, ",", ".")
	return decimal.NewFromString(value)
}

func decodeReader(r io.Reader, name string) (io.Reader, error) {
	if name == "" {
		name = dbDefaultEncoding
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported statement encoding %q", name)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}
