// Package lineutil provides utility functions for building LINE messages and actions.
package lineutil

import (
	"fmt"
	"unicode/utf8"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Action is an alias for the LINE SDK action interface for convenience.
type Action = messaging_api.ActionInterface

// NewTextMessage creates a simple text message without sender information.
// LINE API limits: max 5000 characters per text message
func NewTextMessage(text string) *messaging_api.TextMessage {
	return &messaging_api.TextMessage{
		Text: TruncateRunes(text, MaxTextMessageLength),
	}
}

// NewStickerMessage creates a sticker message from a LINE package and sticker ID.
func NewStickerMessage(packageID, stickerID string) *messaging_api.StickerMessage {
	return &messaging_api.StickerMessage{
		PackageId: packageID,
		StickerId: stickerID,
	}
}

// NewImageMessage creates an image message with the given URLs.
// The originalContentURL is the full-size image URL, and previewImageURL is the thumbnail.
// LINE API requires both URLs to be HTTPS.
func NewImageMessage(originalContentURL, previewImageURL string) *messaging_api.ImageMessage {
	return &messaging_api.ImageMessage{
		OriginalContentUrl: originalContentURL,
		PreviewImageUrl:    previewImageURL,
	}
}

// NewVideoMessage creates a video message with a preview image.
func NewVideoMessage(originalContentURL, previewImageURL string) *messaging_api.VideoMessage {
	return &messaging_api.VideoMessage{
		OriginalContentUrl: originalContentURL,
		PreviewImageUrl:    previewImageURL,
	}
}

// NewAudioMessage creates an audio message. Duration is in milliseconds.
func NewAudioMessage(originalContentURL string, durationMillis int64) *messaging_api.AudioMessage {
	return &messaging_api.AudioMessage{
		OriginalContentUrl: originalContentURL,
		Duration:           durationMillis,
	}
}

// NewLocationMessage creates a location message.
func NewLocationMessage(title, address string, latitude, longitude float64) *messaging_api.LocationMessage {
	return &messaging_api.LocationMessage{
		Title:     TruncateRunes(title, MaxLocationTitleLength),
		Address:   TruncateRunes(address, MaxLocationAddressLength),
		Latitude:  latitude,
		Longitude: longitude,
	}
}

// ButtonsOptions describes a buttons template. Only Text and Actions are required.
type ButtonsOptions struct {
	AltText              string
	ThumbnailImageURL    string
	ImageAspectRatio     string // rectangle | square
	ImageSize            string // cover | contain
	ImageBackgroundColor string
	Title                string
	Text                 string
	DefaultAction        Action
	Actions              []Action
}

// NewButtonsTemplate creates a buttons template message.
// LINE API limits: max 4 actions, text max 160 chars (no image or title) or 60 chars otherwise
func NewButtonsTemplate(opts ButtonsOptions) *messaging_api.TemplateMessage {
	actions := opts.Actions
	if len(actions) > MaxTemplateActionCount {
		actions = actions[:MaxTemplateActionCount]
	}

	maxTextLen := MaxTemplateTextNoImage
	if opts.ThumbnailImageURL != "" || opts.Title != "" {
		maxTextLen = MaxTemplateTextWithImage
	}

	template := &messaging_api.ButtonsTemplate{
		ThumbnailImageUrl:    opts.ThumbnailImageURL,
		ImageAspectRatio:     opts.ImageAspectRatio,
		ImageSize:            opts.ImageSize,
		ImageBackgroundColor: opts.ImageBackgroundColor,
		Title:                TruncateRunes(opts.Title, MaxTemplateTitleLength),
		Text:                 TruncateRunes(opts.Text, maxTextLen),
		DefaultAction:        opts.DefaultAction,
		Actions:              actions,
	}

	return &messaging_api.TemplateMessage{
		AltText:  TruncateRunes(opts.AltText, MaxAltTextLength),
		Template: template,
	}
}

// NewConfirmTemplate creates a confirmation template with two buttons.
// The altText is displayed in push notifications and chat lists.
func NewConfirmTemplate(altText, text string, yesAction, noAction Action) *messaging_api.TemplateMessage {
	return &messaging_api.TemplateMessage{
		AltText: TruncateRunes(altText, MaxAltTextLength),
		Template: &messaging_api.ConfirmTemplate{
			Text:    TruncateRunes(text, MaxConfirmTemplateText),
			Actions: []messaging_api.ActionInterface{yesAction, noAction},
		},
	}
}

// NewMessageAction creates a message action that sends a message when clicked.
// The label is displayed on the button, and text is the message that will be sent.
func NewMessageAction(label, text string) Action {
	return &messaging_api.MessageAction{
		Label: TruncateRunes(label, MaxActionLabelLength),
		Text:  text,
	}
}

// NewPostbackActionWithDisplayText creates a postback action with custom display text.
// The label is displayed on the button, displayText is shown when clicked, data is sent as postback.
func NewPostbackActionWithDisplayText(label, displayText, data string) Action {
	return &messaging_api.PostbackAction{
		Label:       TruncateRunes(label, MaxActionLabelLength),
		DisplayText: displayText,
		Data:        data,
	}
}

// NewURIActionWithDesktop creates a URI action with an alternative URL for LINE on desktop.
func NewURIActionWithDesktop(label, uri, desktopURI string) Action {
	action := &messaging_api.UriAction{
		Label: TruncateRunes(label, MaxActionLabelLength),
		Uri:   uri,
	}
	if desktopURI != "" {
		action.AltUri = &messaging_api.AltUri{Desktop: desktopURI}
	}
	return action
}

// NewFlexMessage creates a flex message with the given alt text and flex container.
func NewFlexMessage(altText string, contents messaging_api.FlexContainerInterface) *messaging_api.FlexMessage {
	return &messaging_api.FlexMessage{
		AltText:  TruncateRunes(altText, MaxAltTextLength),
		Contents: contents,
	}
}

// NewFlexMessageFromJSON decodes a bubble or carousel container and wraps it
// in a flex message.
func NewFlexMessageFromJSON(altText string, contents []byte) (*messaging_api.FlexMessage, error) {
	container, err := messaging_api.UnmarshalFlexContainer(contents)
	if err != nil {
		return nil, fmt.Errorf("decode flex container: %w", err)
	}
	if container == nil {
		return nil, fmt.Errorf("decode flex container: empty contents")
	}
	return NewFlexMessage(altText, container), nil
}

// TruncateRunes truncates text by rune count (not byte count) to properly handle UTF-8.
// Returns truncated string ending in "..." if text exceeds maxRunes.
func TruncateRunes(text string, maxRunes int) string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	if maxRunes <= 3 {
		return string(runes[:max(maxRunes, 0)])
	}
	return string(runes[:maxRunes-3]) + "..."
}
