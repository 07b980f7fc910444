package bot

import (
	"fmt"

	"guildwar/application"
	"guildwar/bot/features/warroom"
	"guildwar/domain/events"

	log "github.com/sirupsen/logrus"
)

// announcedEvents are the event types posted to the war channel
var announcedEvents = []events.EventType{
	events.EventTypeRaidDeclared,
	events.EventTypeRaidRosterChanged,
	events.EventTypeRaidPhaseChanged,
	events.EventTypeRaidSettled,
	events.EventTypeRaidAborted,
	events.EventTypeFactionDestroyed,
	events.EventTypeWarDispatch,
	events.EventTypeDiplomacyChanged,
	events.EventTypeBountyPlaced,
	events.EventTypeShieldPurchased,
}

// RegisterBotSubscriptions routes every announced event type to the war room announcer
func RegisterBotSubscriptions(subscriber application.EventSubscriber, announcer *warroom.Announcer) error {
	for _, eventType := range announcedEvents {
		if err := subscriber.Subscribe(eventType, announcer.Handle); err != nil {
			return fmt.Errorf("failed to subscribe to %s events: %w", eventType, err)
		}
	}

	log.WithField("count", len(announcedEvents)).Info("Bot event subscriptions registered successfully")
	return nil
}
