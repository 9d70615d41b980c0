package portal

import (
	"context"
	"encoding/json"
	"github.com/eclipse/paho.golang/paho"
	"github.com/lefinal/arena-server/errors"
	"github.com/lefinal/arena-server/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"runtime"
	"sync"
	"testing"
	"time"
)

const timeout = 5 * time.Second

func TestNewsletter_Unsubscribe(t *testing.T) {
	var wg sync.WaitGroup
	timeout, cancel := context.WithTimeout(context.Background(), timeout)
	n := &Newsletter[any]{
		unregisterFn: cancel,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		n.Unsubscribe()
	}()
	<-timeout.Done()
	assert.Equal(t, context.Canceled, timeout.Err(), "should not time out")
}

// subscribeSuite tests Subscribe.
type subscribeSuite struct {
	suite.Suite
	portal *Stub
}

func (suite *subscribeSuite) SetupTest() {
	suite.portal = &Stub{}
}

// TestParse assures that parsing into the wanted type does work as expected.
func (suite *subscribeSuite) TestParse() {
	fromPortal := make(chan event.Event[any])
	suite.portal.On("Subscribe", mock.Anything, TopicPlayerCommand).Return(&Newsletter[any]{
		unregisterFn: func() {},
		Receive:      fromPortal,
	})
	defer suite.portal.AssertExpectations(suite.T())
	timeout, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	newsletter := Subscribe[event.PlayerCommandEvent](timeout, suite.portal, TopicPlayerCommand)
	go func() {
		select {
		case <-timeout.Done():
		case fromPortal <- event.Event[any]{
			Publish: &paho.Publish{
				Topic:   string(TopicPlayerCommand),
				Payload: []byte(`{"player_id": "7f0c1c6e-7a51-4a36-9b53-0e1f4d3a9a01", "line": "ready"}`),
			},
		}:
		}
	}()
	select {
	case <-timeout.Done():
		suite.Fail("timeout", "should receive parsed event")
	case got := <-newsletter.Receive:
		suite.Equal("ready", got.Payload.Line)
		suite.Equal("7f0c1c6e-7a51-4a36-9b53-0e1f4d3a9a01", got.Payload.PlayerID.String())
	}
}

// TestDropInvalid makes sure that payloads that fail to parse are dropped.
func (suite *subscribeSuite) TestDropInvalid() {
	fromPortal := make(chan event.Event[any])
	suite.portal.On("Subscribe", mock.Anything, TopicDamage).Return(&Newsletter[any]{
		unregisterFn: func() {},
		Receive:      fromPortal,
	})
	timeout, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	newsletter := Subscribe[event.DamageEvent](timeout, suite.portal, TopicDamage)
	go func() {
		for _, raw := range []string{`{"amount": "lots"`, `{"amount": 12}`} {
			select {
			case <-timeout.Done():
				return
			case fromPortal <- event.Event[any]{Publish: &paho.Publish{Payload: []byte(raw)}}:
			}
		}
	}()
	select {
	case <-timeout.Done():
		suite.Fail("timeout", "should receive valid event")
	case got := <-newsletter.Receive:
		suite.Equal(12, got.Payload.Amount, "should skip invalid payload")
	}
}

// TestAutoClose makes sure that the Newsletter.Receive channel from the
// returned Newsletter is closed when the subscription using Portal.Subscribe is
// done.
func (suite *subscribeSuite) TestAutoClose() {
	receiveFromPortal := make(chan event.Event[any])
	suite.portal.On("Subscribe", mock.Anything, TopicLevelLoaded).Return(&Newsletter[any]{
		unregisterFn: func() {},
		Receive:      receiveFromPortal,
	})
	timeout, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	newsletter := Subscribe[event.LevelLoadedEvent](timeout, suite.portal, TopicLevelLoaded)
	go func() {
		runtime.Gosched()
		close(receiveFromPortal)
	}()
	select {
	case <-timeout.Done():
		suite.Fail("timeout", "should close")
	case _, more := <-newsletter.Receive:
		suite.False(more, "should read no values from channel")
	}
}

func TestSubscribe(t *testing.T) {
	suite.Run(t, new(subscribeSuite))
}

// publisherStub mocks publisher.
type publisherStub struct {
	mock.Mock
}

func (p *publisherStub) Publish(ctx context.Context, publish *paho.Publish) (*paho.PublishResponse, error) {
	args := p.Called(ctx, publish)
	res, _ := args.Get(0).(*paho.PublishResponse)
	return res, args.Error(1)
}

// portalPublishSuite tests portal.Publish.
type portalPublishSuite struct {
	suite.Suite
	publisher *publisherStub
	portal    *portal
}

func (suite *portalPublishSuite) SetupTest() {
	suite.publisher = &publisherStub{}
	suite.portal = &portal{
		logger:    zap.New(zapcore.NewNopCore()),
		router:    newRouter(zap.New(zapcore.NewNopCore()), &mqttRouterStub{}),
		publisher: suite.publisher,
	}
}

func (suite *portalPublishSuite) TestMarshal() {
	var published *paho.Publish
	suite.publisher.On("Publish", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		published = args.Get(1).(*paho.Publish)
	}).Return(&paho.PublishResponse{}, nil)
	defer suite.publisher.AssertExpectations(suite.T())
	suite.portal.Publish(context.Background(), TopicChangeMap, event.ChangeMapEvent{Map: "q2dm1"})
	suite.Require().NotNil(published)
	suite.Equal(string(TopicChangeMap), published.Topic)
	var got event.ChangeMapEvent
	suite.Require().NoError(json.Unmarshal(published.Payload, &got))
	suite.Equal("q2dm1", got.Map)
	suite.Equal(byte(1), published.QoS, "should deliver host commands at least once")
	suite.Equal("application/json", published.Properties.ContentType)
}

func (suite *portalPublishSuite) TestRetainSnapshot() {
	var published *paho.Publish
	suite.publisher.On("Publish", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		published = args.Get(1).(*paho.Publish)
	}).Return(&paho.PublishResponse{}, nil)
	defer suite.publisher.AssertExpectations(suite.T())
	suite.portal.Publish(context.Background(), TopicSnapshot, event.LevelSnapshot{Map: "q2dm1"})
	suite.Require().NotNil(published)
	suite.True(published.Retain, "should retain snapshots")
	suite.Equal(byte(mqttQOS), published.QoS)
}

func (suite *portalPublishSuite) TestPublishTimeout() {
	var deadline bool
	suite.publisher.On("Publish", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		_, deadline = args.Get(0).(context.Context).Deadline()
	}).Return(&paho.PublishResponse{}, nil)
	suite.portal.Publish(context.Background(), TopicPrint, event.PrintEvent{Message: "hi"})
	suite.True(deadline, "should publish with timeout")
}

func (suite *portalPublishSuite) TestPublishFail() {
	suite.publisher.On("Publish", mock.Anything, mock.Anything).
		Return(nil, errors.Error{Code: errors.ErrCommunication, Message: "sad life"})
	defer suite.publisher.AssertExpectations(suite.T())
	suite.NotPanics(func() {
		suite.portal.Publish(context.Background(), TopicPrint, event.PrintEvent{Message: "hi"})
	})
}

func (suite *portalPublishSuite) TestMarshalFail() {
	suite.NotPanics(func() {
		suite.portal.Publish(context.Background(), TopicPrint, func() {})
	})
	suite.publisher.AssertNotCalled(suite.T(), "Publish", mock.Anything, mock.Anything)
}

func TestPortal_Publish(t *testing.T) {
	suite.Run(t, new(portalPublishSuite))
}

func TestConnPublisher(t *testing.T) {
	p := &connPublisher{}
	_, err := p.Publish(context.Background(), &paho.Publish{Topic: "a"})
	assert.Error(t, err, "should fail without connection")
	conn := &publisherStub{}
	conn.On("Publish", mock.Anything, mock.Anything).Return(&paho.PublishResponse{}, nil)
	p.set(conn)
	_, err = p.Publish(context.Background(), &paho.Publish{Topic: "a"})
	assert.NoError(t, err, "should publish with connection")
	conn.AssertExpectations(t)
}

func TestNewBase(t *testing.T) {
	b, err := NewBase(zap.New(zapcore.NewNopCore()), Config{MQTTAddr: "mqtt://localhost:1883"})
	if !assert.NoError(t, err, "should not fail") {
		return
	}
	base := b.(*basePortal)
	assert.Equal(t, defaultClientID, base.config.ClientID, "should set default client id")
	assert.NotNil(t, base.router, "should create router before opening")
	p := b.NewPortal("test").(*portal)
	assert.Same(t, base.router, p.router, "should share router")
	assert.NotNil(t, p.publisher, "should share publisher")
	_, err = NewBase(zap.New(zapcore.NewNopCore()), Config{MQTTAddr: "://nope"})
	assert.Error(t, err, "should fail for invalid address")
}

func TestEventTopic(t *testing.T) {
	assert.Equal(t, Topic("arena-server/events/round-ended"), EventTopic(event.TypeRoundEnded))
}
