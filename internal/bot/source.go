package bot

import "github.com/line/line-bot-sdk-go/v8/linebot/webhook"

// GetChatID extracts the chat ID from a LINE source.
// Returns user ID for personal chats, group ID for groups, room ID for rooms.
// Returns empty string if source type is unknown.
func GetChatID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.GroupId
	case webhook.RoomSource:
		return s.RoomId
	}
	return ""
}

// GetUserID extracts the user ID from a LINE source.
// Returns the user ID regardless of chat type (personal, group, or room).
// Returns empty string if source type is unknown or user ID is not available.
func GetUserID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}

// SourceKind names the chat type of a source: user, group or room.
func SourceKind(source webhook.SourceInterface) string {
	switch source.(type) {
	case webhook.UserSource:
		return "user"
	case webhook.GroupSource:
		return "group"
	case webhook.RoomSource:
		return "room"
	}
	return "unknown"
}

// eventMeta is the routing information shared by the event kinds the router handles.
type eventMeta struct {
	kind       string
	source     webhook.SourceInterface
	replyToken string
	eventID    string
	redelivery *bool
}

func extractEventMeta(event webhook.EventInterface) eventMeta {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return eventMeta{kind: "message", source: e.Source, replyToken: e.ReplyToken, eventID: e.WebhookEventId, redelivery: redelivery(e.DeliveryContext)}
	case webhook.PostbackEvent:
		return eventMeta{kind: "postback", source: e.Source, replyToken: e.ReplyToken, eventID: e.WebhookEventId, redelivery: redelivery(e.DeliveryContext)}
	case nil:
		return eventMeta{kind: "unknown"}
	default:
		return eventMeta{kind: event.GetType()}
	}
}

func redelivery(ctx *webhook.DeliveryContext) *bool {
	if ctx == nil {
		return nil
	}
	val := ctx.IsRedelivery
	return &val
}

// EventType returns the LINE event type name used in results, logs and metrics.
func EventType(event webhook.EventInterface) string {
	return extractEventMeta(event).kind
}
