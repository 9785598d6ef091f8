package banking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashIBAN(t *testing.T) {
	h := HashIBAN("MUSTERMANN, MAX", "DE02120300000000202051")
	assert.Equal(t, "c77d5abe66bd", h)
	assert.Len(t, h, 12)
}

func TestHashIBANLatin1(t *testing.T) {
	// Umlauts are encoded as ISO 8859-1, matching the bank export charset.
	assert.Equal(t, "aac3ae9d3454", HashIBAN("Müller, Eva", "DE02500105170137075030"))
}

func TestHashIBANStable(t *testing.T) {
	a := HashIBAN("MUSTERMANN, MAX", "DE02120300000000202051")
	b := HashIBAN("MUSTERMANN, MAX", "DE02120300000000202051")
	assert.Equal(t, a, b, "same pair always yields the same hash")
}

func TestHashIBANDistinguishesIBAN(t *testing.T) {
	a := HashIBAN("MUSTERMANN, MAX", "DE02120300000000202051")
	b := HashIBAN("MUSTERMANN, MAX", "DE02500105170137075030")
	assert.NotEqual(t, a, b, "same name with a different IBAN must differ")
}
