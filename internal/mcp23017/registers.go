package mcp23017

// Register addresses, IOCON.BANK=0 layout (the power-on default). Port A
// and port B registers are interleaved, so a two-byte sequential access
// starting at the A register covers both ports.
const (
	IODIRA   = 0x00
	IODIRB   = 0x01
	IPOLA    = 0x02
	IPOLB    = 0x03
	GPINTENA = 0x04
	GPINTENB = 0x05
	GPPUA    = 0x0C
	GPPUB    = 0x0D
	GPIOA    = 0x12
	GPIOB    = 0x13
	OLATA    = 0x14
	OLATB    = 0x15
)

// DefaultAddress is the 7-bit bus address with all address straps low.
const DefaultAddress = 0x20

// PinCount is the number of GPIO pins per chip (two 8-bit ports).
const PinCount = 16
