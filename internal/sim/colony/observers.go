package colony

import "context"

type observerJoin struct {
	id  string
	out chan TickLogEntry
}

// Subscribe registers out to receive every tick entry from the next tick on.
// Entries are dropped, oldest first, when out is full. The colony closes out
// on Unsubscribe or shutdown.
func (c *Colony) Subscribe(ctx context.Context, id string, out chan TickLogEntry) error {
	select {
	case c.observerJoin <- observerJoin{id: id, out: out}:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Colony) Unsubscribe(id string) {
	select {
	case c.observerLeave <- id:
	case <-c.done:
	}
}

func (c *Colony) handleObserverJoin(req observerJoin) {
	if req.id == "" || req.out == nil {
		return
	}
	if old := c.observers[req.id]; old != nil {
		close(old)
	}
	c.observers[req.id] = req.out
	c.log.Debug("observer joined", "id", req.id, "observers", len(c.observers))
}

func (c *Colony) handleObserverLeave(id string) {
	out := c.observers[id]
	if out == nil {
		return
	}
	delete(c.observers, id)
	close(out)
	c.log.Debug("observer left", "id", id, "observers", len(c.observers))
}

func (c *Colony) stepObservers(entry TickLogEntry) {
	for _, out := range c.observers {
		sendLatest(out, entry)
	}
}

func sendLatest(ch chan TickLogEntry, entry TickLogEntry) {
	select {
	case ch <- entry:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- entry:
	default:
	}
}
