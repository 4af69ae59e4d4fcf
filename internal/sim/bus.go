package sim

// Bus implements the drivers.I2C interface over the simulated chips.
// Tx models a write-then-read transaction: the first written byte
// selects the register, further written bytes and all read bytes walk
// sequential addresses, like the real chip's address pointer in its
// default mode.
type Bus struct {
	w *World
}

func (b *Bus) takeFailure() error {
	if err := b.w.failNext; err != nil {
		b.w.failNext = nil
		return err
	}
	return nil
}

func (b *Bus) Tx(addr uint16, wbuf, rbuf []byte) error {
	b.w.mu.Lock()
	defer b.w.mu.Unlock()
	if err := b.takeFailure(); err != nil {
		return err
	}
	if len(wbuf) == 0 {
		return nil
	}
	reg := wbuf[0]
	for i, v := range wbuf[1:] {
		if err := b.w.writeReg(addr, reg+uint8(i), v); err != nil {
			return err
		}
	}
	for i := range rbuf {
		v, err := b.w.readReg(addr, reg+uint8(i))
		if err != nil {
			return err
		}
		rbuf[i] = v
	}
	return nil
}
