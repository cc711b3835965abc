package extract

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLExtractor resolves Selector and Derive fields against an HTML body.
// Path fields resolve to Missing; they only make sense for JSON.
type HTMLExtractor struct {
	Fields []FieldSpec
}

func (e HTMLExtractor) Extract(identifier string, body []byte) (*Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode html body: %w", err)
	}

	record := NewRecord(identifier)
	for _, field := range e.Fields {
		switch field := field.(type) {
		case Selector:
			record.Set(field.Name, lookupSelector(doc, field))
		case Derive:
			record.Set(field.Name, runDerive(field.Fn, record))
		default:
			record.Set(field.FieldName(), Missing)
		}
	}
	return record, nil
}

func lookupSelector(doc *goquery.Document, field Selector) Value {
	node := doc.Find(field.Selector).First()
	if node.Length() == 0 {
		return Missing
	}
	text := strings.TrimSpace(node.Text())
	if field.Numeric {
		return parseNumberText(text)
	}
	return String(text)
}

// parseNumberText handles price/population style text like "$1,299.00".
func parseNumberText(text string) Value {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', ' ':
			return -1
		}
		return r
	}, text)

	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return Missing
	}
	return Number(n)
}
