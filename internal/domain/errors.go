package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTicker     = errors.New("invalid ticker")
	ErrMarketUnavailable = errors.New("market unavailable")
)
