package oracle

// MaxPeriods is the number of snapshots retained per protocol: 24 hours at
// one period every ten minutes.
const MaxPeriods uint64 = 144

type periodHeader struct {
	Head  uint64
	Count uint64
}

// PeriodLedger is a fixed-capacity ring of period snapshots per protocol.
// Appending to a full ring overwrites the oldest slot.
type PeriodLedger struct {
	st       oracleState
	capacity uint64
}

func newPeriodLedger(st oracleState, capacity uint64) *PeriodLedger {
	if capacity == 0 {
		capacity = MaxPeriods
	}
	return &PeriodLedger{st: st, capacity: capacity}
}

func (l *PeriodLedger) header(protocol string) (periodHeader, error) {
	var h periodHeader
	_, err := l.st.KVGet(periodHeaderKey(protocol), &h)
	return h, err
}

// Append stores p as the newest snapshot of protocol.
func (l *PeriodLedger) Append(protocol string, p Period) error {
	h, err := l.header(protocol)
	if err != nil {
		return err
	}
	var slot uint64
	if h.Count < l.capacity {
		slot = (h.Head + h.Count) % l.capacity
		h.Count++
	} else {
		slot = h.Head
		h.Head = (h.Head + 1) % l.capacity
	}
	if err := l.st.KVPut(periodSlotKey(protocol, slot), p); err != nil {
		return err
	}
	return l.st.KVPut(periodHeaderKey(protocol), h)
}

// Len returns the number of retained snapshots.
func (l *PeriodLedger) Len(protocol string) (int, error) {
	h, err := l.header(protocol)
	return int(h.Count), err
}

// List returns the retained snapshots, oldest first.
func (l *PeriodLedger) List(protocol string) ([]Period, error) {
	h, err := l.header(protocol)
	if err != nil {
		return nil, err
	}
	out := make([]Period, 0, h.Count)
	for i := uint64(0); i < h.Count; i++ {
		var p Period
		if _, err := l.st.KVGet(periodSlotKey(protocol, (h.Head+i)%l.capacity), &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Last returns the newest snapshot.
func (l *PeriodLedger) Last(protocol string) (Period, bool, error) {
	h, err := l.header(protocol)
	if err != nil || h.Count == 0 {
		return Period{}, false, err
	}
	var p Period
	_, err = l.st.KVGet(periodSlotKey(protocol, (h.Head+h.Count-1)%l.capacity), &p)
	return p, err == nil, err
}

// Clear drops every snapshot of protocol.
func (l *PeriodLedger) Clear(protocol string) error {
	h, err := l.header(protocol)
	if err != nil {
		return err
	}
	for i := uint64(0); i < h.Count; i++ {
		if err := l.st.KVDelete(periodSlotKey(protocol, (h.Head+i)%l.capacity)); err != nil {
			return err
		}
	}
	return l.st.KVDelete(periodHeaderKey(protocol))
}
