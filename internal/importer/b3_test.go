package importer

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImporter() *B3Importer {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewB3Importer(logger)
}

const export = "\ufeffData do Negócio;Tipo de Movimentação;Código de Negociação;Quantidade;Preço;Valor;Instituição\n" +
	"15/01/2025;Compra;petr4;1.000;30,50;30.500,00;XP INVESTIMENTOS\n" +
	"20/01/2025;Venda;PETR4;200;32,10;6.420,00;\n" +
	"31/02/2025;Compra;VALE3;10;60,00;600,00;XP\n" +
	"21/01/2025;Compra;VALE3;abc;60,00;600,00;XP\n" +
	"\n" +
	"22/01/2025;COMPRA;ITSA4;50;10,25;512,50;BTG\n"

func TestParseB3Export(t *testing.T) {
	t.Parallel()

	preview, err := newImporter().Parse(strings.NewReader(export))
	require.NoError(t, err)
	require.Len(t, preview.Transactions, 3)

	buy := preview.Transactions[0]
	assert.Equal(t, "PETR4", buy.Ticker)
	assert.Equal(t, models.TxBuy, buy.Type)
	assert.Equal(t, "2025-01-15", buy.DateKey())
	assert.True(t, buy.Quantity.Equal(decimal.NewFromInt(1000)))
	assert.True(t, buy.Price.Equal(decimal.RequireFromString("30.50")))
	assert.Equal(t, "XP INVESTIMENTOS", buy.Institution)
	assert.Equal(t, models.AssetStock, buy.AssetClass)
	assert.Equal(t, models.SwingTrade, buy.TradeType)
	assert.Equal(t, models.BRL, buy.Currency)
	assert.True(t, buy.FXRate.Equal(decimal.NewFromInt(1)))

	sell := preview.Transactions[1]
	assert.Equal(t, models.TxSell, sell.Type)
	assert.Equal(t, DefaultInstitution, sell.Institution)

	assert.Equal(t, "ITSA4", preview.Transactions[2].Ticker)

	require.Len(t, preview.Skipped, 2)
	assert.Equal(t, 4, preview.Skipped[0].Line)
	assert.Contains(t, preview.Skipped[0].Reason, "date")
	assert.Equal(t, 5, preview.Skipped[1].Line)
}

func TestParseRequiresColumns(t *testing.T) {
	t.Parallel()

	_, err := newImporter().Parse(strings.NewReader("Data do Negócio;Quantidade\n01/01/2025;10\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestParseEmptyFile(t *testing.T) {
	t.Parallel()

	preview, err := newImporter().Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, preview.Transactions)
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "negociacao.csv")
	require.NoError(t, os.WriteFile(path, []byte(export), 0o600))

	preview, err := newImporter().ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, preview.Transactions, 3)

	_, err = newImporter().ParseFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
