package clock

import (
	"github.com/stretchr/testify/suite"
	"testing"
)

type ClockSuite struct {
	suite.Suite
	c         *Clock
	owner     *struct{ name string }
	ticks     int
	done      int
	doneOwner any
}

func (suite *ClockSuite) SetupTest() {
	suite.owner = &struct{ name string }{name: "arena"}
	suite.c = New("test", suite.owner, 1)
	suite.ticks = 0
	suite.done = 0
	suite.doneOwner = nil
	suite.c.OnTick = TickFunc(func(_ *Clock) {
		suite.ticks++
	})
	suite.c.OnDone = DoneFunc(func(_ *Clock, owner any) {
		suite.done++
		suite.doneOwner = owner
	})
}

func (suite *ClockSuite) TestInitDoesNotStart() {
	suite.c.Init(10, 0, CountDown)
	suite.c.Tick(0)
	suite.False(suite.c.Running(), "should not run")
	suite.Equal(10, suite.c.Value(), "should not advance")
	suite.Equal("0:10", suite.c.Display(), "should format display")
}

func (suite *ClockSuite) TestCountDownCompletesOnce() {
	suite.c.Init(10, 0, CountDown)
	suite.c.Start(0)
	for frame := Frame(0); frame < 10; frame++ {
		suite.c.Tick(frame)
	}
	suite.Equal(0, suite.c.Value(), "should reach end value after 10 ticks")
	suite.Equal(1, suite.done, "should fire done hook")
	suite.Equal(suite.owner, suite.doneOwner, "should pass owner")
	suite.False(suite.c.Running(), "should be stopped")
	for frame := Frame(10); frame < 15; frame++ {
		suite.c.Tick(frame)
	}
	suite.Equal(1, suite.done, "should not fire done hook again")
	suite.Equal(10, suite.ticks, "should not tick after completion")
}

func (suite *ClockSuite) TestCountUp() {
	suite.c.Init(0, 3, CountUp)
	suite.c.Start(5)
	suite.c.Tick(4)
	suite.Equal(0, suite.c.Value(), "should not advance before deadline")
	suite.c.Tick(5)
	suite.c.Tick(6)
	suite.c.Tick(7)
	suite.Equal(3, suite.c.Value())
	suite.Equal(1, suite.done)
}

func (suite *ClockSuite) TestInterval() {
	c := New("interval", nil, 10)
	c.Init(2, 0, CountDown)
	c.Start(100)
	c.Tick(100)
	suite.Equal(1, c.Value(), "first advance on start frame")
	suite.Equal(Frame(110), c.NextTick(), "should reschedule by interval")
	c.Tick(105)
	suite.Equal(1, c.Value(), "should wait for interval")
	c.Tick(110)
	suite.Equal(0, c.Value())
	suite.False(c.Running())
}

func (suite *ClockSuite) TestStopAndResume() {
	suite.c.Init(5, 0, CountDown)
	suite.c.Start(0)
	suite.c.Tick(0)
	suite.c.Tick(1)
	suite.c.Stop()
	suite.c.Tick(2)
	suite.Equal(3, suite.c.Value(), "should freeze when stopped")
	suite.c.Start(3)
	suite.c.Tick(3)
	suite.Equal(2, suite.c.Value(), "should resume from same value")
}

func (suite *ClockSuite) TestResetAllowsAnotherRun() {
	suite.c.Init(2, 0, CountDown)
	suite.c.Start(0)
	suite.c.Tick(0)
	suite.c.Tick(1)
	suite.Require().Equal(1, suite.done)
	suite.c.Reset()
	suite.Equal(2, suite.c.Value(), "should rewind")
	suite.False(suite.c.Running(), "should be stopped")
	suite.c.Start(2)
	suite.c.Tick(2)
	suite.c.Tick(3)
	suite.Equal(2, suite.done, "should fire once per run")
}

func (suite *ClockSuite) TestSetValueClamps() {
	suite.c.Init(60, 0, CountDown)
	suite.c.SetValue(-4)
	suite.Equal(0, suite.c.Value(), "should clamp to end value")
	suite.c.SetValue(5)
	suite.Equal(5, suite.c.Value())
	suite.Equal("0:05", suite.c.Display())
}

func (suite *ClockSuite) TestDisplayMinutes() {
	suite.c.Init(125, 0, CountDown)
	suite.Equal("2:05", suite.c.Display())
}

func TestClock(t *testing.T) {
	suite.Run(t, new(ClockSuite))
}

func TestSeconds(t *testing.T) {
	if got := Seconds(3); got != 30 {
		t.Errorf("Seconds(3) = %v, want %v", got, 30)
	}
	if got := Seconds(-1); got != 0 {
		t.Errorf("Seconds(-1) = %v, want %v", got, 0)
	}
}
