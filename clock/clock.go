package clock

import "fmt"

// Frame is a simulation frame number. It increases monotonically once per tick.
type Frame uint64

// FramesPerSecond is the simulation tick rate.
const FramesPerSecond = 10

// Seconds converts the given amount of seconds to frames.
func Seconds(s int) Frame {
	if s <= 0 {
		return 0
	}
	return Frame(s) * FramesPerSecond
}

// Direction is the counting direction of a Clock.
type Direction int

const (
	// CountDown decrements the value until the end value is reached.
	CountDown Direction = iota
	// CountUp increments the value until the end value is reached.
	CountUp
)

// State is the run state of a Clock.
type State int

const (
	// Stopped clocks ignore Clock.Tick.
	Stopped State = iota
	// Running clocks advance in Clock.Tick.
	Running
)

// TickHook is called after each advance of a Clock.
type TickHook interface {
	ClockTicked(c *Clock)
}

// DoneHook is called exactly once when a Clock reaches its end value.
type DoneHook interface {
	ClockDone(c *Clock, owner any)
}

// TickFunc adapts a function to TickHook.
type TickFunc func(c *Clock)

// ClockTicked calls f(c).
func (f TickFunc) ClockTicked(c *Clock) {
	f(c)
}

// DoneFunc adapts a function to DoneHook.
type DoneFunc func(c *Clock, owner any)

// ClockDone calls f(c, owner).
func (f DoneFunc) ClockDone(c *Clock, owner any) {
	f(c, owner)
}

// Clock is a cooperative countdown or count-up timer. It does not run on its
// own but advances when Tick is called with the current frame and the next
// tick deadline was reached.
type Clock struct {
	// Name is used for logging and display.
	Name string
	// owner is an opaque, non-owning reference passed to the DoneHook.
	owner any
	// interval is the amount of frames between two advances.
	interval Frame
	direction Direction
	state     State
	start     int
	end       int
	value     int
	// nextTick is the frame at which the next advance happens while running.
	nextTick Frame
	display  string
	// OnTick is an optional hook called after every advance.
	OnTick TickHook
	// OnDone is an optional hook called when the end value is reached.
	OnDone DoneHook
}

// New creates a stopped Clock. The interval is the amount of frames between
// two advances and is at least one.
func New(name string, owner any, interval Frame) *Clock {
	if interval < 1 {
		interval = 1
	}
	c := &Clock{
		Name:     name,
		owner:    owner,
		interval: interval,
	}
	c.updateDisplay()
	return c
}

// Init sets start, end and current value as well as the direction and stops
// the Clock. It does not start ticking.
func (c *Clock) Init(start int, end int, direction Direction) {
	c.start = start
	c.end = end
	c.value = start
	c.direction = direction
	c.state = Stopped
	c.nextTick = 0
	c.updateDisplay()
}

// Start the Clock. The first advance happens on the next call to Tick with a
// frame not before now.
func (c *Clock) Start(now Frame) {
	c.state = Running
	c.nextTick = now
}

// Stop freezes the Clock at the current value. It can be resumed with Start.
func (c *Clock) Stop() {
	c.state = Stopped
	c.nextTick = 0
}

// Reset stops the Clock and rewinds it to the start value.
func (c *Clock) Reset() {
	c.Stop()
	c.value = c.start
	c.updateDisplay()
}

// SetValue sets the current value. Values beyond the end value are clamped to
// it. Reaching the end value this way does not fire the done hook until the
// next Tick.
func (c *Clock) SetValue(v int) {
	switch c.direction {
	case CountDown:
		if v < c.end {
			v = c.end
		}
	case CountUp:
		if v > c.end {
			v = c.end
		}
	}
	c.value = v
	c.updateDisplay()
}

// Tick advances the Clock by one unit if it is running and the next tick
// deadline was reached. When the end value is reached, the Clock stops and the
// done hook is called.
func (c *Clock) Tick(now Frame) {
	if c.state != Running || now < c.nextTick {
		return
	}
	if c.value != c.end {
		if c.direction == CountDown {
			c.value--
		} else {
			c.value++
		}
	}
	c.updateDisplay()
	c.nextTick = now + c.interval
	if c.OnTick != nil {
		c.OnTick.ClockTicked(c)
	}
	// The tick hook might have stopped or reinitialized us.
	if c.state != Running || c.value != c.end {
		return
	}
	c.state = Stopped
	c.nextTick = 0
	if c.OnDone != nil {
		c.OnDone.ClockDone(c, c.owner)
	}
}

func (c *Clock) updateDisplay() {
	v := c.value
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	c.display = fmt.Sprintf("%s%d:%02d", sign, v/60, v%60)
}

// Value is the current value.
func (c *Clock) Value() int {
	return c.value
}

// StartValue is the value set with Init.
func (c *Clock) StartValue() int {
	return c.start
}

// EndValue is the value at which the Clock stops.
func (c *Clock) EndValue() int {
	return c.end
}

// Direction of the Clock.
func (c *Clock) Direction() Direction {
	return c.direction
}

// Running describes whether the Clock is currently running.
func (c *Clock) Running() bool {
	return c.state == Running
}

// State of the Clock.
func (c *Clock) State() State {
	return c.state
}

// NextTick is the frame of the next advance. It is zero when stopped.
func (c *Clock) NextTick() Frame {
	return c.nextTick
}

// Interval is the amount of frames between two advances.
func (c *Clock) Interval() Frame {
	return c.interval
}

// Display is the value formatted as minutes and seconds.
func (c *Clock) Display() string {
	return c.display
}

// Owner is the opaque owner reference passed to New.
func (c *Clock) Owner() any {
	return c.owner
}
