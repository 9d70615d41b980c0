package portal

import (
	"context"
	"github.com/eclipse/paho.golang/paho"
	"github.com/lefinal/arena-server/errors"
	"github.com/lefinal/arena-server/event"
	"go.uber.org/zap"
	"sync"
	"time"
)

// kioskTimeout is the timeout for subscribing and unsubscribing at the MQTT
// server.
const kioskTimeout = 5 * time.Second

// mqttRouter abstracts paho.Router with only stuff that is needed for router.
type mqttRouter interface {
	RegisterHandler(topic string, handler paho.MessageHandler)
	UnregisterHandler(topic string)
}

// mqttKiosk manages subscriptions at the MQTT server.
type mqttKiosk interface {
	Subscribe(ctx context.Context, s *paho.Subscribe) (*paho.Suback, error)
	Unsubscribe(ctx context.Context, u *paho.Unsubscribe) (*paho.Unsuback, error)
}

// subscription is a container for the lifetime context.Context and the channel
// to forward the received paho.Publish message to.
type subscription struct {
	lifetime context.Context
	forward  chan<- event.Event[any]
}

// registeredHandler is a container for subscriptions to serve.
type registeredHandler struct {
	// subscriptions contains all active subscriptions that are served by the
	// handler.
	subscriptions map[*subscription]struct{}
	// subscriptionsMutex locks subscriptions. It is read-locked while forwarding
	// so that removed subscriptions are never sent to.
	subscriptionsMutex sync.RWMutex
}

// Handler returns a paho.MessageHandler that forwards to all subscriptions for
// the handler.
func (handler *registeredHandler) Handler() paho.MessageHandler {
	return func(publish *paho.Publish) {
		var allForwarded sync.WaitGroup
		handler.subscriptionsMutex.RLock()
		defer handler.subscriptionsMutex.RUnlock()
		for sub := range handler.subscriptions {
			allForwarded.Add(1)
			go func(sub *subscription) {
				defer allForwarded.Done()
				select {
				case <-sub.lifetime.Done():
				case sub.forward <- event.Event[any]{Publish: publish}:
				}
			}(sub)
		}
		allForwarded.Wait()
	}
}

// router is used for multiplexing MQTT subscriptions and forwarding received
// messages according to them.
type router struct {
	logger *zap.Logger
	// mqtt is the actual router that performs the matching.
	mqtt mqttRouter
	// kiosk is set while connected to the MQTT server.
	kiosk mqttKiosk
	// registeredHandlers holds all handlers by subscribed topics.
	registeredHandlers map[Topic]*registeredHandler
	// registeredHandlersMutex locks kiosk and registeredHandlers.
	registeredHandlersMutex sync.Mutex
}

func newRouter(logger *zap.Logger, mqtt mqttRouter) *router {
	return &router{
		logger:             logger,
		mqtt:               mqtt,
		registeredHandlers: make(map[Topic]*registeredHandler),
	}
}

// setKiosk sets the kiosk to use for server-side subscriptions. All topics with
// registered handlers are subscribed.
func (router *router) setKiosk(kiosk mqttKiosk) {
	router.registeredHandlersMutex.Lock()
	defer router.registeredHandlersMutex.Unlock()
	router.kiosk = kiosk
	if kiosk == nil || len(router.registeredHandlers) == 0 {
		return
	}
	topics := make([]Topic, 0, len(router.registeredHandlers))
	for topic := range router.registeredHandlers {
		topics = append(topics, topic)
	}
	go router.subscribeAtServer(kiosk, topics)
}

// subscribeAtServer subscribes the given topics at the MQTT server.
func (router *router) subscribeAtServer(kiosk mqttKiosk, topics []Topic) {
	s := &paho.Subscribe{Subscriptions: make(map[string]paho.SubscribeOptions)}
	for _, topic := range topics {
		s.Subscriptions[string(topic)] = paho.SubscribeOptions{QoS: mqttQOS}
	}
	ctx, cancel := context.WithTimeout(context.Background(), kioskTimeout)
	defer cancel()
	_, err := kiosk.Subscribe(ctx, s)
	if err != nil {
		errors.Log(router.logger, errors.Error{
			Code:    errors.ErrCommunication,
			Err:     err,
			Message: "subscribe at mqtt server",
			Details: errors.Details{"topics": topics},
		})
		return
	}
	router.logger.Debug("subscribed at mqtt server", zap.Any("topics", topics))
}

// unsubscribeAtServer unsubscribes the given topic at the MQTT server.
func (router *router) unsubscribeAtServer(kiosk mqttKiosk, topic Topic) {
	ctx, cancel := context.WithTimeout(context.Background(), kioskTimeout)
	defer cancel()
	_, err := kiosk.Unsubscribe(ctx, &paho.Unsubscribe{Topics: []string{string(topic)}})
	if err != nil {
		errors.Log(router.logger, errors.Error{
			Code:    errors.ErrCommunication,
			Err:     err,
			Message: "unsubscribe at mqtt server",
			Details: errors.Details{"topic": topic},
		})
	}
}

// subscribe for the given Topic and forward messages to the given channel until
// the context.Context is done. The channel is closed after unsubscribing.
func (router *router) subscribe(lifetime context.Context, topic Topic, forward chan<- event.Event[any]) {
	router.registeredHandlersMutex.Lock()
	defer router.registeredHandlersMutex.Unlock()
	handlerRef, ok := router.registeredHandlers[topic]
	if !ok {
		handlerRef = &registeredHandler{subscriptions: make(map[*subscription]struct{})}
		router.registeredHandlers[topic] = handlerRef
		router.mqtt.RegisterHandler(string(topic), handlerRef.Handler())
		if router.kiosk != nil {
			go router.subscribeAtServer(router.kiosk, []Topic{topic})
		}
		router.logger.Debug("subscribed to topic", zap.Any("topic", topic))
	}
	sub := &subscription{
		lifetime: lifetime,
		forward:  forward,
	}
	handlerRef.subscriptionsMutex.Lock()
	handlerRef.subscriptions[sub] = struct{}{}
	handlerRef.subscriptionsMutex.Unlock()
	go func() {
		<-lifetime.Done()
		router.unsubscribe(topic, sub)
		close(forward)
	}()
}

// unsubscribe the given subscription for the Topic. Only router should call this!
func (router *router) unsubscribe(topic Topic, sub *subscription) {
	router.registeredHandlersMutex.Lock()
	defer router.registeredHandlersMutex.Unlock()
	handler, ok := router.registeredHandlers[topic]
	if !ok {
		errors.Log(router.logger, errors.NewInternalError("unsubscribe called for unknown registered handler",
			errors.Details{"topic": topic}))
		return
	}
	handler.subscriptionsMutex.Lock()
	defer handler.subscriptionsMutex.Unlock()
	if _, ok := handler.subscriptions[sub]; !ok {
		errors.Log(router.logger, errors.NewInternalError("unsubscribe with unknown subscription for handler",
			errors.Details{"topic": topic}))
		return
	}
	delete(handler.subscriptions, sub)
	if len(handler.subscriptions) > 0 {
		return
	}
	delete(router.registeredHandlers, topic)
	router.mqtt.UnregisterHandler(string(topic))
	if router.kiosk != nil {
		go router.unsubscribeAtServer(router.kiosk, topic)
	}
}
