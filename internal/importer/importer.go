package importer

import (
	"io"

	"github.com/shopspring/decimal"

	"github.com/we-promise/sure-sub001/internal/provider"
)

type Format string

const (
	FormatQIF Format = "qif"
)

// Parsed is the outcome of reading one import file: normalized records plus
// the file's explicit opening balance, when it declares one.
type Parsed struct {
	Records        []provider.NormalizedRecord
	OpeningBalance *decimal.Decimal
}

// Importer turns a flat file into the same normalized shape the provider
// mappers produce, so file imports flow through the identity matcher
// unchanged. The second return is the file's explicit opening balance, nil
// when the file declares none.
type Importer interface {
	Parse(r io.Reader) ([]provider.NormalizedRecord, *decimal.Decimal, error)
}
