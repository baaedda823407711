package excel

import "github.com/weloop/lci-importer/modules/lci/domain/entities/record"

// Reader adapts the package-level parsing functions to the service layer's
// WorkbookReader interface.
type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

func (Reader) ReadFile(path string) ([]record.Process, error) {
	return ReadFile(path)
}
