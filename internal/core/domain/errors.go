package domain

import "errors"

var (
	// ErrQuoteNotFound is returned when no quote exists for the given id.
	ErrQuoteNotFound = errors.New("quote not found")
	// ErrQuoteExpired is returned when the expiry time of a quote has passed.
	ErrQuoteExpired = errors.New("quote is expired")
	// ErrQuoteInvalidExpiryTime is returned when creating a quote whose expiry
	// time does not come after its creation time.
	ErrQuoteInvalidExpiryTime = errors.New("quote expiry time must be after creation time")
	// ErrQuoteInvalidNetAmount is returned when the net amount of a quote does
	// not match the gross amount minus all the accounted fees and costs.
	ErrQuoteInvalidNetAmount = errors.New("quote net amount does not match gross amount minus fees")
	// ErrTradeAlreadyExists is returned when attempting to persist a second
	// trade referencing the same quote.
	ErrTradeAlreadyExists = errors.New("a trade already exists for the given quote")
	// ErrTradeNotFound ...
	ErrTradeNotFound = errors.New("trade not found")
	// ErrTradeTerminalStatus is returned when attempting to transition a trade
	// that already reached a terminal status.
	ErrTradeTerminalStatus = errors.New("trade reached a terminal status")
	// ErrDepositAddressNotFound ...
	ErrDepositAddressNotFound = errors.New("deposit address not found")
	// ErrDepositAlreadyConfirmed is returned when confirming a deposit address
	// that was already confirmed by a previous observation.
	ErrDepositAlreadyConfirmed = errors.New("deposit address is already confirmed")
)
