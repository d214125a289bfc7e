package eventbus

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/wukrit/fightrise-bot-sub001/pkg/handlerwrapper"
)

// ScopedTopic appends a guild id to a base topic so gateway shards can
// subscribe to their own guilds only.
//
// Example:
//   - baseTopic: "match.checkin.succeeded.v1"
//   - guildID: "123456789"
//   - result: "match.checkin.succeeded.v1.123456789"
//
// Consumers subscribe with wildcards:
//   - "match.checkin.succeeded.v1.*" catches all guilds
//   - "match.checkin.succeeded.v1.123456789" catches one guild
func ScopedTopic(baseTopic, guildID string) string {
	if guildID == "" {
		return baseTopic
	}
	return fmt.Sprintf("%s.%s", baseTopic, guildID)
}

// PublishResolved publishes msg to the topic named in its metadata, scoped by
// its guild id when one is present.
func PublishResolved(pub message.Publisher, msg *message.Message) error {
	base := msg.Metadata.Get(handlerwrapper.MetadataTopic)
	if base == "" {
		return fmt.Errorf("message %s has no topic metadata", msg.UUID)
	}
	topic := ScopedTopic(base, msg.Metadata.Get(handlerwrapper.MetadataGuildID))
	return pub.Publish(topic, msg)
}
