package catalog

import (
	"net/url"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/line-replybot/internal/lineutil"
)

// Selector answers reply lookups against an immutable catalog.
// It is safe for concurrent use.
type Selector struct {
	replies          map[string][]Part
	triggers         []string
	postbacks        []PostbackRule
	acknowledgements map[string][]Part
	postbackFallback string
}

// NewSelector indexes a validated catalog.
func NewSelector(c *Catalog) *Selector {
	s := &Selector{
		replies:          make(map[string][]Part, len(c.Replies)),
		triggers:         c.Triggers(),
		postbacks:        c.Postbacks,
		acknowledgements: c.Acknowledgements,
		postbackFallback: c.PostbackFallback,
	}
	for _, r := range c.Replies {
		s.replies[r.Trigger] = r.Parts
	}
	return s
}

// Select returns the payload for an exact, case-sensitive trigger match.
// Unmatched text is echoed back unchanged as a single text message.
func (s *Selector) Select(text string) ([]messaging_api.MessageInterface, error) {
	if parts, ok := s.replies[text]; ok {
		return Build(parts)
	}
	return []messaging_api.MessageInterface{&messaging_api.TextMessage{Text: text}}, nil
}

// Acknowledge returns the configured reply for a non-text message kind,
// or nil when none is configured.
func (s *Selector) Acknowledge(kind string) ([]messaging_api.MessageInterface, error) {
	parts, ok := s.acknowledgements[kind]
	if !ok {
		return nil, nil
	}
	return Build(parts)
}

// MatchPostback returns the payload of the first rule whose pairs all appear
// in values exactly once with the expected value.
func (s *Selector) MatchPostback(values url.Values) ([]messaging_api.MessageInterface, bool, error) {
	for _, rule := range s.postbacks {
		if !matches(rule.Match, values) {
			continue
		}
		msgs, err := Build(rule.Parts)
		return msgs, true, err
	}
	return nil, false, nil
}

// PostbackFallback returns the reply for postback data that cannot be parsed.
func (s *Selector) PostbackFallback() []messaging_api.MessageInterface {
	return []messaging_api.MessageInterface{lineutil.NewTextMessage(s.postbackFallback)}
}

// Triggers returns the text triggers in catalog order.
func (s *Selector) Triggers() []string {
	return append([]string(nil), s.triggers...)
}

// Len returns the number of text triggers.
func (s *Selector) Len() int {
	return len(s.triggers)
}

func matches(want map[string]string, values url.Values) bool {
	for key, value := range want {
		got := values[key]
		if len(got) != 1 || got[0] != value {
			return false
		}
	}
	return true
}
