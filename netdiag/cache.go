package netdiag

// Cache tracks the most recent and previous Info snapshot for each tracked
// socket, keyed by its kernel cookie. It is NOT threadsafe; callers
// (Monitor) serialize access to it themselves.
type Cache struct {
	current  map[uint64]Info
	previous map[uint64]Info
	cycles   int64
}

// NewCache creates an empty Cache with room for 1000 sockets; the map
// sizes are re-tuned on every EndCycle call.
func NewCache() *Cache {
	return &Cache{
		current:  make(map[uint64]Info, 1000),
		previous: make(map[uint64]Info),
	}
}

// Update records info as the current snapshot for cookie, returning the
// previous-cycle snapshot it supersedes, if any.
func (c *Cache) Update(cookie uint64, info Info) (evicted Info, hadPrevious bool) {
	c.current[cookie] = info
	evicted, hadPrevious = c.previous[cookie]
	if hadPrevious {
		delete(c.previous, cookie)
	}
	return evicted, hadPrevious
}

// EndCycle marks the completion of one polling round: the current
// generation becomes the previous one, and any cookies left in the
// previous map after the round's updates have run belong to sockets that
// were not seen this round (closed, or evicted from tracking) and are
// returned to the caller.
func (c *Cache) EndCycle() map[uint64]Info {
	stale := c.previous
	c.previous = c.current
	c.current = make(map[uint64]Info, len(c.previous)+len(c.previous)/10+10)
	c.cycles++
	return stale
}

// CycleCount returns the number of times EndCycle has been called.
func (c *Cache) CycleCount() int64 { return c.cycles }
