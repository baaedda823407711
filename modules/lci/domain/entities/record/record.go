package record

import "fmt"

type ExchangeType string

const (
	Production   ExchangeType = "production"
	Technosphere ExchangeType = "technosphere"
	Biosphere    ExchangeType = "biosphere"
)

func ParseExchangeType(s string) (ExchangeType, error) {
	switch ExchangeType(s) {
	case Production, Technosphere, Biosphere:
		return ExchangeType(s), nil
	}
	return "", fmt.Errorf("invalid exchange type: %q", s)
}

// RawExchangeRow is one exchange line as read from a workbook. It exists only
// between parsing and resolution.
type RawExchangeRow struct {
	ProcessName string
	Name        string
	Type        ExchangeType
	Amount      float64
	Unit        string

	// Biosphere rows: compartment path, e.g. ["air", "urban air close to ground"].
	Categories []string

	// Technosphere rows: optional filters against the background database.
	Location         string
	ReferenceProduct string

	Sheet string
	Row   int
}

// Process is a parsed process block: header fields plus its exchange rows in
// file order.
type Process struct {
	Name             string
	Location         string
	Unit             string
	ReferenceProduct string
	Sheet            string
	Exchanges        []RawExchangeRow
}

// ProductionRows returns the production exchanges declared for the process.
func (p *Process) ProductionRows() []RawExchangeRow {
	var out []RawExchangeRow
	for _, ex := range p.Exchanges {
		if ex.Type == Production {
			out = append(out, ex)
		}
	}
	return out
}
