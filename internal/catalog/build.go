package catalog

import (
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/line-replybot/internal/lineutil"
)

// Build converts parts into fresh SDK messages. Parts must have been validated.
func Build(parts []Part) ([]messaging_api.MessageInterface, error) {
	messages := make([]messaging_api.MessageInterface, 0, len(parts))
	for i := range parts {
		msg, err := parts[i].build()
		if err != nil {
			return nil, fmt.Errorf("part %d (%s): %w", i, parts[i].Kind, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (p *Part) build() (messaging_api.MessageInterface, error) {
	switch p.Kind {
	case KindText:
		return lineutil.NewTextMessage(p.Text), nil
	case KindSticker:
		return lineutil.NewStickerMessage(p.PackageID, p.StickerID), nil
	case KindImage:
		return lineutil.NewImageMessage(p.OriginalURL, p.PreviewURL), nil
	case KindVideo:
		return lineutil.NewVideoMessage(p.OriginalURL, p.PreviewURL), nil
	case KindAudio:
		return lineutil.NewAudioMessage(p.OriginalURL, p.Duration), nil
	case KindLocation:
		return lineutil.NewLocationMessage(p.Title, p.Address, p.Latitude, p.Longitude), nil
	case KindButtons:
		opts := lineutil.ButtonsOptions{
			AltText:              p.AltText,
			ThumbnailImageURL:    p.ThumbnailURL,
			ImageAspectRatio:     p.ImageAspectRatio,
			ImageSize:            p.ImageSize,
			ImageBackgroundColor: p.ImageBackgroundColor,
			Title:                p.Title,
			Text:                 p.Text,
			Actions:              buildActions(p.Actions),
		}
		if p.DefaultAction != nil {
			opts.DefaultAction = p.DefaultAction.build()
		}
		return lineutil.NewButtonsTemplate(opts), nil
	case KindConfirm:
		actions := buildActions(p.Actions)
		if len(actions) != 2 {
			return nil, fmt.Errorf("confirm needs exactly 2 actions, got %d", len(actions))
		}
		return lineutil.NewConfirmTemplate(p.AltText, p.Text, actions[0], actions[1]), nil
	case KindFlex:
		if p.flexJSON == nil {
			return nil, fmt.Errorf("flex contents not validated")
		}
		return lineutil.NewFlexMessageFromJSON(p.AltText, p.flexJSON)
	default:
		return nil, fmt.Errorf("unknown part kind %q", p.Kind)
	}
}

func buildActions(actions []Action) []lineutil.Action {
	built := make([]lineutil.Action, len(actions))
	for i := range actions {
		built[i] = actions[i].build()
	}
	return built
}

func (a *Action) build() lineutil.Action {
	switch a.Kind {
	case ActionPostback:
		return lineutil.NewPostbackActionWithDisplayText(a.Label, a.DisplayText, a.Data)
	case ActionMessage:
		return lineutil.NewMessageAction(a.Label, a.Text)
	default:
		return lineutil.NewURIActionWithDesktop(a.Label, a.URI, a.DesktopURI)
	}
}
