package session

import "errors"

// Sentinel errors for session and slot operations. The transport layer
// maps these onto API error codes.
var (
	ErrNotFound       = errors.New("session not found")
	ErrStoreFull      = errors.New("session limit reached")
	ErrSlotOutOfRange = errors.New("slot index out of range")
	ErrInvalidCount   = errors.New("slot count out of range")
	ErrInvalidField   = errors.New("unknown spec field")
	ErrUnknownDataset = errors.New("dataset not found")
	ErrUnknownColumn  = errors.New("column not present in source dataset")
	ErrInvalidMode    = errors.New("unsupported plot mode")
)
