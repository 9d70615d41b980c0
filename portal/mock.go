package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/eclipse/paho.golang/paho"
	"github.com/lefinal/arena-server/event"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"sync"
)

// Stub mocks Portal.
type Stub struct {
	mock.Mock
	// logger is the logger to use when calling Logger. If not set, this will always
	// default to a nop logger.
	logger *zap.Logger
}

// Subscribe to the given Topic. Calls mock.Mock.
func (s *Stub) Subscribe(ctx context.Context, topic Topic) *Newsletter[any] {
	return s.Called(ctx, topic).Get(0).(*Newsletter[any])
}

// Publish the given serializable payload to a topic. Calls mock.Mock.
func (s *Stub) Publish(ctx context.Context, topic Topic, payload interface{}) {
	s.Called(ctx, topic, payload)
}

// Logger returns the logger set for the Stub. If not set, a nop-logger will be
// returned.
func (s *Stub) Logger() *zap.Logger {
	if s.logger == nil {
		return zap.New(zapcore.NewNopCore())
	}
	return s.logger
}

// Recorder is a Portal that records publishes and serves subscriptions from
// Inject. Unlike Stub, it needs no expectations.
type Recorder struct {
	m             sync.Mutex
	published     map[Topic][]interface{}
	subscriptions map[Topic][]chan event.Event[any]
	// subscribed receives the topic of each new subscription.
	subscribed chan Topic
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		published:     make(map[Topic][]interface{}),
		subscriptions: make(map[Topic][]chan event.Event[any]),
		subscribed:    make(chan Topic, 64),
	}
}

// Subscribe registers a subscription that receives injected payloads until the
// given context.Context is done.
func (r *Recorder) Subscribe(ctx context.Context, topic Topic) *Newsletter[any] {
	forward := make(chan event.Event[any])
	r.m.Lock()
	r.subscriptions[topic] = append(r.subscriptions[topic], forward)
	r.m.Unlock()
	select {
	case r.subscribed <- topic:
	default:
	}
	return NewSelfClosingReceivingMockNewsletter(ctx, forward)
}

// AwaitSubscribed blocks until the given amount of subscriptions was made or
// the context.Context is done.
func (r *Recorder) AwaitSubscribed(ctx context.Context, count int) bool {
	for i := 0; i < count; i++ {
		select {
		case <-ctx.Done():
			return false
		case <-r.subscribed:
		}
	}
	return true
}

// Inject delivers the payload to all subscriptions of the given topic.
func (r *Recorder) Inject(ctx context.Context, topic Topic, payload interface{}) {
	r.m.Lock()
	subs := append([]chan event.Event[any](nil), r.subscriptions[topic]...)
	r.m.Unlock()
	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return
		case sub <- event.Event[any]{Publish: &paho.Publish{Topic: string(topic)}, Payload: payload}:
		}
	}
}

// Publish records the payload.
func (r *Recorder) Publish(_ context.Context, topic Topic, payload interface{}) {
	r.m.Lock()
	defer r.m.Unlock()
	r.published[topic] = append(r.published[topic], payload)
}

// Published returns all payloads published to the given topic.
func (r *Recorder) Published(topic Topic) []interface{} {
	r.m.Lock()
	defer r.m.Unlock()
	return append([]interface{}(nil), r.published[topic]...)
}

// Logger returns a nop logger.
func (r *Recorder) Logger() *zap.Logger {
	return zap.New(zapcore.NewNopCore())
}

// NewSelfClosingMockNewsletter returns a Newsletter that closes itself after
// the given context.Context is done. Of course manually unsubscribing is
// supported, too.
func NewSelfClosingMockNewsletter(ctx context.Context) *Newsletter[any] {
	lifetime, cancel := context.WithCancel(ctx)
	receive := make(chan event.Event[any])
	go func() {
		<-lifetime.Done()
		close(receive)
	}()
	return &Newsletter[any]{
		unregisterFn: cancel,
		Receive:      receive,
	}
}

// NewSelfClosingReceivingMockNewsletter returns a Newsletter that closes
// Newsletter.Receive after the given context.Context is done or the given
// forward channel is closed. While active, it receives from the given channel,
// marshals the event-payload into the publish-payload and forwards the result
// to the returned Newsletter.Receive.
func NewSelfClosingReceivingMockNewsletter(ctx context.Context, forward <-chan event.Event[any]) *Newsletter[any] {
	lifetime, cancel := context.WithCancel(ctx)
	receive := make(chan event.Event[any])
	go func() {
		defer close(receive)
		for {
			select {
			case <-lifetime.Done():
				return
			case e, more := <-forward:
				if !more {
					return
				}
				raw, err := json.Marshal(e.Payload)
				if err != nil {
					panic(fmt.Sprintf("marshal payload: %v", err))
				}
				if e.Publish == nil {
					e.Publish = &paho.Publish{}
				}
				e.Publish.Payload = raw
				e.Payload = nil
				select {
				case <-lifetime.Done():
					return
				case receive <- e:
				}
			}
		}
	}()
	return &Newsletter[any]{
		unregisterFn: cancel,
		Receive:      receive,
	}
}
