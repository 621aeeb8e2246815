package playback

// render is the driver callback. It runs on the driver's real-time thread:
// no allocation, no locks, no logging.
func (e *Engine) render(out []int16, info CallbackInfo) (result CallbackResult) {
	defer func() {
		if r := recover(); r != nil {
			e.stats.callbackFaults.Add(1)
			clear(out)
			result = Continue
		}
	}()

	e.stats.callbacks.Add(1)
	if info.Status&StatusOutputUnderflow != 0 {
		e.stats.driverUnderflows.Add(1)
	}
	if info.Status&StatusOutputOverflow != 0 {
		e.stats.driverOverflows.Add(1)
	}

	if e.stopping.Load() {
		clear(out)
		return Complete
	}

	slotLen := e.pool.slotLen
	region := out
	for len(region) >= slotLen {
		e.consumeSlot(region[:slotLen])
		region = region[slotLen:]
	}
	if len(region) > 0 {
		e.stats.formatMismatches.Add(1)
		clear(region)
	}

	return Continue
}

// consumeSlot copies the slot under the read cursor into dst, or synthesizes
// underrun output when nothing is ready. After a drain an empty pool plays
// silence without counting an underrun. The read cursor only advances on a
// successful copy.
func (e *Engine) consumeSlot(dst []int16) {
	if e.ready.load() == 0 {
		if e.drained.Load() {
			clear(dst)
			return
		}
		e.stats.underruns.Add(1)
		e.filler.fill(dst)
		return
	}

	copy(dst, e.pool.slot(e.readSlot))
	e.ready.decrement()
	e.readSlot = e.pool.next(e.readSlot)
	e.readSlotPub.Store(int32(e.readSlot))
}
