package importer

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eris-dev/eris/internal/banking"
)

func TestDeutscheBankParser_Parse(t *testing.T) {
	f, err := os.Open("testdata/deutschebank.csv")
	require.NoError(t, err)
	defer f.Close()

	p := &DeutscheBankParser{}
	txns, err := p.Parse(f)
	require.NoError(t, err)
	require.Len(t, txns, 2, "headers, footer and outbound rows are skipped")

	first := txns[0]
	assert.Equal(t, "Müller, Eva", first.AccountName, "latin1 umlauts decoded")
	assert.Equal(t, "Mitgliedsbeitrag Februar", first.Description)
	assert.Equal(t, "DE02500105170137075030", first.IBAN)
	assert.Equal(t, "INGDDEFFXXX", first.BIC)
	assert.Equal(t, "1234.56", first.Amount.String(), "thousands separator stripped")
	assert.Equal(t, "2024-02-05", first.Date.Format("2006-01-02"))
	assert.Equal(t, banking.HashIBAN("Müller, Eva", "DE02500105170137075030"), first.IBANHash)

	second := txns[1]
	assert.Equal(t, "MUSTERMANN, MAX", second.AccountName)
	assert.Equal(t, "20", second.Amount.String())
}

func TestDeutscheBankParser_BadAmount(t *testing.T) {
	input := "05.02.2024;;;NAME;desc;IBAN;BIC;;;;;;;;;;garbage;EUR\n"
	p := &DeutscheBankParser{Encoding: "UTF-8"}
	_, err := p.Parse(strings.NewReader(input))
	require.Error(t, err, "a bookable row with an unparseable amount is a hard error")
}

func TestDeutscheBankParser_UnsupportedEncoding(t *testing.T) {
	p := &DeutscheBankParser{Encoding: "no-such-charset"}
	_, err := p.Parse(strings.NewReader(""))
	require.Error(t, err)
}

func TestDeutscheBankParser_Empty(t *testing.T) {
	p := &DeutscheBankParser{}
	txns, err := p.Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, txns)
}
