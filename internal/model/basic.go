package model

import (
	"math"
	"strconv"
	"strings"

	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
)

var ErrMalformedDecimal = errors.New("malformed decimal string")

// Price is a scaled integer. The scale is defined by configuration.
type Price int64

func (p Price) AppendString(priceScale int, buf []byte) []byte {
	return appendScaledInt(buf, int64(p), priceScale)
}

// Text renders the price as a decimal string at the given scale.
func (p Price) Text(priceScale int) string {
	return string(p.AppendString(priceScale, nil))
}

// Float converts the scaled price into a float64 at the given scale.
func (p Price) Float(priceScale int) float64 {
	return float64(p) / math.Pow10(priceScale)
}

// Quantity is a scaled integer. The scale is defined by configuration.
type Quantity int64

func (q Quantity) AppendString(quantityScale int, buf []byte) []byte {
	return appendScaledInt(buf, int64(q), quantityScale)
}

func (q Quantity) Text(quantityScale int) string {
	return string(q.AppendString(quantityScale, nil))
}

func appendScaledInt(buf []byte, value int64, scale int) []byte {
	if scale <= 0 {
		return strconv.AppendInt(buf, value, 10)
	}

	neg := value < 0
	u := uint64(value)
	if neg {
		u = uint64(^value) + 1
	}

	var tmp [32]byte
	digits := strconv.AppendUint(tmp[:0], u, 10)

	if neg {
		buf = append(buf, '-')
	}

	if len(digits) <= scale {
		buf = append(buf, '0', '.')
		for i := 0; i < scale-len(digits); i++ {
			buf = append(buf, '0')
		}
		buf = append(buf, digits...)
		return buf
	}

	idx := len(digits) - scale
	buf = append(buf, digits[:idx]...)
	buf = append(buf, '.')
	buf = append(buf, digits[idx:]...)
	return buf
}

// ParsePrice parses a decimal string into a scaled price.
// Fractional digits beyond the scale are rejected, not rounded.
func ParsePrice(s string, priceScale int) (Price, error) {
	v, err := parseScaledInt(s, priceScale)
	if err != nil {
		return 0, errors.Wrapf(err, "parse price %q", s)
	}
	return Price(v), nil
}

// ParseQuantity parses a decimal string into a scaled quantity.
func ParseQuantity(s string, quantityScale int) (Quantity, error) {
	v, err := parseScaledInt(s, quantityScale)
	if err != nil {
		return 0, errors.Wrapf(err, "parse quantity %q", s)
	}
	return Quantity(v), nil
}

// PriceFromFloat converts a float quote into a scaled price, rounding
// half away from zero.
func PriceFromFloat(v float64, priceScale int) Price {
	scaled := v * math.Pow10(priceScale)
	if scaled < 0 {
		return Price(scaled - 0.5)
	}
	return Price(scaled + 0.5)
}

// PriceFromDecimal converts a feed decimal into a scaled price.
func PriceFromDecimal(d decimal.Decimal, priceScale int) (Price, error) {
	return ParsePrice(d.String(), priceScale)
}

func parseScaledInt(s string, scale int) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMalformedDecimal
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPart, fracPart := s, ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart, fracPart = s[:idx], s[idx+1:]
	}
	if intPart == "" && fracPart == "" {
		return 0, ErrMalformedDecimal
	}
	fracPart = strings.TrimRight(fracPart, "0")
	if len(fracPart) > scale {
		return 0, errors.Wrapf(ErrMalformedDecimal, "fraction %q exceeds scale %d", fracPart, scale)
	}

	v := int64(0)
	for i := 0; i < len(intPart); i++ {
		c := intPart[i]
		if c < '0' || c > '9' {
			return 0, ErrMalformedDecimal
		}
		d := int64(c - '0')
		if v > (math.MaxInt64-d)/10 {
			return 0, errors.Wrap(ErrMalformedDecimal, "value overflows int64")
		}
		v = v*10 + d
	}
	for i := 0; i < scale; i++ {
		d := int64(0)
		if i < len(fracPart) {
			c := fracPart[i]
			if c < '0' || c > '9' {
				return 0, ErrMalformedDecimal
			}
			d = int64(c - '0')
		}
		if v > (math.MaxInt64-d)/10 {
			return 0, errors.Wrap(ErrMalformedDecimal, "value overflows int64")
		}
		v = v*10 + d
	}
	if neg {
		v = -v
	}
	return v, nil
}
