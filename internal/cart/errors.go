package cart

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHeader means the ROM is truncated or declares a size code
	// no cartridge uses.
	ErrInvalidHeader = errors.New("invalid cartridge header")
	// ErrUnsupportedMBC means the cartridge-type byte names a controller
	// this package does not implement.
	ErrUnsupportedMBC = errors.New("unsupported memory bank controller")
	// ErrSaveSize is returned when battery RAM data does not match the
	// cartridge's RAM (plus clock block, for MBC3 with a timer).
	ErrSaveSize = errors.New("save data size mismatch")
)

// LoadError reports why a ROM could not be turned into a cartridge.
type LoadError struct {
	Err      error
	CartType byte
	Detail   string
}

func (e *LoadError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("cart type %#02x: %v", e.CartType, e.Err)
	}
	return fmt.Sprintf("cart type %#02x: %v: %s", e.CartType, e.Err, e.Detail)
}

func (e *LoadError) Unwrap() error { return e.Err }
