// Package importer reads broker exports into unsaved transactions for the
// user to review before they are persisted.
package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/marcusaleks/Portfolio-Manager/internal/money"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// B3 trade export columns.
const (
	ColDate        = "Data do Negócio"
	ColMovement    = "Tipo de Movimentação"
	ColTicker      = "Código de Negociação"
	ColQuantity    = "Quantidade"
	ColPrice       = "Preço"
	ColInstitution = "Instituição"

	DefaultInstitution = "B3"
	b3DateLayout       = "02/01/2006"
)

var requiredColumns = []string{ColDate, ColMovement, ColTicker, ColQuantity, ColPrice}

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing column")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SkippedRow describes a line that could not be converted.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Preview is the parse outcome of one file.
type Preview struct {
	Transactions []models.Transaction `json:"transactions"`
	Skipped      []SkippedRow         `json:"skipped,omitempty"`
}

type B3Importer struct {
	logger *logrus.Entry
}

func NewB3Importer(logger *logrus.Logger) *B3Importer {
	return &B3Importer{logger: logger.WithField("component", "importer.b3")}
}

func (i *B3Importer) ParseFile(path string) (Preview, error) {
	f, err := os.Open(path)
	if err != nil {
		return Preview{}, err
	}
	defer f.Close()
	return i.Parse(f)
}

// Parse reads a ;-separated B3 export. Rows that fail to convert are skipped
// and reported; only a malformed header fails the whole file.
func (i *B3Importer) Parse(r io.Reader) (Preview, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return Preview{Transactions: []models.Transaction{}}, nil
	}
	if err != nil {
		return Preview{}, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for pos, name := range header {
		index[strings.TrimSpace(name)] = pos
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return Preview{}, fmt.Errorf("%w %q", ErrMissingColumn, col)
		}
	}

	preview := Preview{Transactions: []models.Transaction{}}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return Preview{}, err
			}
			i.skip(&preview, pe.Line, pe.Err.Error())
			continue
		}
		line, _ := cr.FieldPos(0)
		if blank(record) {
			continue
		}
		tx, err := rowToTransaction(record, index)
		if err != nil {
			i.skip(&preview, line, err.Error())
			continue
		}
		preview.Transactions = append(preview.Transactions, tx)
	}
	return preview, nil
}

func (i *B3Importer) skip(p *Preview, line int, reason string) {
	i.logger.WithFields(logrus.Fields{"line": line, "reason": reason}).Warn("skipping csv row")
	p.Skipped = append(p.Skipped, SkippedRow{Line: line, Reason: reason})
}

func rowToTransaction(record []string, index map[string]int) (models.Transaction, error) {
	field := func(col string) string {
		pos, ok := index[col]
		if !ok || pos >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[pos])
	}

	date, err := time.Parse(b3DateLayout, field(ColDate))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("invalid date %q", field(ColDate))
	}
	ticker := strings.ToUpper(field(ColTicker))
	if ticker == "" {
		return models.Transaction{}, fmt.Errorf("empty ticker")
	}
	qty, err := money.ParseBR(field(ColQuantity))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("quantity: %w", err)
	}
	if !qty.IsPositive() {
		return models.Transaction{}, fmt.Errorf("quantity must be positive")
	}
	price, err := money.ParseBR(field(ColPrice))
	if err != nil {
		return models.Transaction{}, fmt.Errorf("price: %w", err)
	}

	txType := models.TxSell
	if strings.Contains(strings.ToUpper(field(ColMovement)), "COMPRA") {
		txType = models.TxBuy
	}
	institution := field(ColInstitution)
	if institution == "" {
		institution = DefaultInstitution
	}

	return models.Transaction{
		Ticker:      ticker,
		AssetClass:  models.AssetStock,
		Type:        txType,
		TradeType:   models.SwingTrade,
		Date:        date,
		Quantity:    qty,
		Price:       price,
		Currency:    models.BRL,
		FXRate:      decimal.NewFromInt(1),
		Institution: institution,
	}.Normalized(), nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
