package portal

import (
	"fmt"
	"github.com/lefinal/arena-server/event"
)

// Topic is an MQTT topic.
type Topic string

const baseTopic = "arena-server"

// Topics the engine publishes to.
const (
	TopicLevelLoaded        Topic = baseTopic + "/engine/level-loaded"
	TopicPlayerConnected    Topic = baseTopic + "/engine/player-connected"
	TopicPlayerDisconnected Topic = baseTopic + "/engine/player-disconnected"
	TopicPlayerConnState    Topic = baseTopic + "/engine/player-conn-state"
	TopicPlayerCommand      Topic = baseTopic + "/engine/player-command"
	TopicPlayerKilled       Topic = baseTopic + "/engine/player-killed"
	TopicDamage             Topic = baseTopic + "/engine/damage"
)

// Topics the engine subscribes to.
const (
	TopicPrint     Topic = baseTopic + "/host/print"
	TopicRespawn   Topic = baseTopic + "/host/respawn"
	TopicSpectate  Topic = baseTopic + "/host/spectate"
	TopicSkin      Topic = baseTopic + "/host/skin"
	TopicStatus    Topic = baseTopic + "/host/status"
	TopicKick      Topic = baseTopic + "/host/kick"
	TopicMute      Topic = baseTopic + "/host/mute"
	TopicChangeMap Topic = baseTopic + "/host/change-map"
)

// TopicSnapshot is where level snapshots are published.
const TopicSnapshot Topic = baseTopic + "/status"

// TopicLog is where log entries are published.
const TopicLog Topic = baseTopic + "/log/next"

// delivery holds MQTT publish options for a topic.
type delivery struct {
	qos    byte
	retain bool
}

// deliveries holds the options for topics that differ from the default
// fire-and-forget delivery. Host commands that change the game must arrive.
// Snapshots are retained so that new subscribers see the current state.
var deliveries = map[Topic]delivery{
	TopicKick:      {qos: 1},
	TopicMute:      {qos: 1},
	TopicChangeMap: {qos: 1},
	TopicSnapshot:  {retain: true},
}

// deliveryFor returns the publish options for the given Topic.
func deliveryFor(topic Topic) delivery {
	d, ok := deliveries[topic]
	if !ok {
		return delivery{qos: mqttQOS}
	}
	return d
}

// EventTopic is the topic arena events of the given type are published to.
func EventTopic(t event.Type) Topic {
	return Topic(fmt.Sprintf("%s/events/%s", baseTopic, t))
}
