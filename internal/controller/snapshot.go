package controller

import "sync"

// State is the controller's lifecycle state.
type State string

const (
	StateIdle      State = "IDLE"
	StateRecording State = "RECORDING"
	StateStopping  State = "STOPPING"
	StatePlaying   State = "PLAYING"
	StatePaused    State = "PAUSED"
)

// Snapshot is a consistent view of the controller at one instant.
type Snapshot struct {
	State          State
	NoteID         string
	PositionMillis int64
	DurationMillis int64
	Paused         bool
	ElapsedMillis  int64
}

// Loaded reports whether a playback stream is loaded.
func (s Snapshot) Loaded() bool {
	return s.State == StatePlaying || s.State == StatePaused
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel that receives a snapshot after every change,
// starting with the current one. Slow readers only see the latest value.
// The channel is closed by cancel or by Close.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	ch <- c.snapshotLocked()
	c.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{State: c.state}
	if c.rec != nil {
		snap.ElapsedMillis = c.rec.elapsed
	}
	if c.play != nil {
		snap.NoteID = c.play.noteID
		snap.PositionMillis = c.play.position
		snap.DurationMillis = c.play.duration
		snap.Paused = c.play.paused
	}
	return snap
}

func (c *Controller) publishLocked() {
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		// Replace an unread value so the reader always sees the latest.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
