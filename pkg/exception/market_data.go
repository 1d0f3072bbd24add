package exception

import "errors"

var (
	ErrMarketDataUnavailable = errors.New("market data: quote unavailable")
	ErrUnknownSymbol         = errors.New("market data: unknown symbol")
	ErrNilQuoter             = errors.New("market data: nil quoter")
)
