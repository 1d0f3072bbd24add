package venue

import (
	"bytes"

	"github.com/yanun0323/decimal"
)

// Decimal decodes a JSON price field into a decimal. Venues disagree on
// whether prices travel as numbers or quoted strings; both decode here,
// and the digits reach the scaled integer without a float round-trip.
type Decimal decimal.Decimal

var _null = []byte("null")

func (d *Decimal) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || bytes.Equal(b, _null) {
		*d = ""
		return nil
	}
	v, err := decimal.New(string(b))
	if err != nil {
		return err
	}
	*d = Decimal(v)
	return nil
}

// Value returns the underlying decimal.
func (d Decimal) Value() decimal.Decimal {
	return decimal.Decimal(d)
}

// IsZero reports whether the field is absent or zero.
func (d Decimal) IsZero() bool {
	return decimal.Decimal(d).IsZero()
}
