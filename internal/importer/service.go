package importer

import (
	"fmt"
	"io"

	"github.com/we-promise/sure-sub001/internal/importer/qif"
)

type Service struct {
	qifImporter Importer
}

func NewService() *Service {
	return &Service{
		qifImporter: qif.New(),
	}
}

// Import parses r in the given format. currency is stamped onto every record,
// since flat files carry no currency of their own.
func (s *Service) Import(format Format, r io.Reader, currency string) (*Parsed, error) {
	var imp Importer

	switch format {
	case FormatQIF:
		imp = s.qifImporter
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}

	records, openingBalance, err := imp.Parse(r)
	if err != nil {
		return nil, err
	}

	for i := range records {
		records[i].Currency = currency
	}

	return &Parsed{Records: records, OpeningBalance: openingBalance}, nil
}
