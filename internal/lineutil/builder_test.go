package lineutil

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxRunes int
		want     string
	}{
		{"Short text", "hello", 10, "hello"},
		{"Exact length", "hello", 5, "hello"},
		{"ASCII truncation", "hello world", 8, "hello..."},
		{"CJK counted by rune", "營業時間營業時間", 8, "營業時間營業時間"},
		{"CJK truncation", "營業時間營業時間", 6, "營業時..."},
		{"Tiny limit", "hello", 2, "he"},
		{"Empty", "", 3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateRunes(tt.text, tt.maxRunes); got != tt.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.text, tt.maxRunes, got, tt.want)
			}
		})
	}
}

func TestNewTextMessage(t *testing.T) {
	msg := NewTextMessage("Hello")
	if msg.Text != "Hello" {
		t.Errorf("Expected text 'Hello', got %q", msg.Text)
	}

	// 2000 CJK runes is 6000 bytes but within the rune limit.
	cjk := strings.Repeat("字", 2000)
	if got := NewTextMessage(cjk).Text; got != cjk {
		t.Error("Text within the rune limit should not be truncated")
	}

	long := strings.Repeat("a", MaxTextMessageLength+10)
	got := NewTextMessage(long).Text
	if utf8.RuneCountInString(got) != MaxTextMessageLength {
		t.Errorf("Expected %d runes, got %d", MaxTextMessageLength, utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("Truncated text should end with ...")
	}
}

func TestNewMediaMessages(t *testing.T) {
	sticker := NewStickerMessage("1", "1")
	if sticker.PackageId != "1" || sticker.StickerId != "1" {
		t.Errorf("Unexpected sticker %+v", sticker)
	}

	image := NewImageMessage("https://example.com/full.jpg", "https://example.com/preview.jpg")
	if image.OriginalContentUrl != "https://example.com/full.jpg" || image.PreviewImageUrl != "https://example.com/preview.jpg" {
		t.Errorf("Unexpected image %+v", image)
	}

	video := NewVideoMessage("https://example.com/v.mp4", "https://example.com/v.jpg")
	if video.OriginalContentUrl != "https://example.com/v.mp4" || video.PreviewImageUrl != "https://example.com/v.jpg" {
		t.Errorf("Unexpected video %+v", video)
	}

	audio := NewAudioMessage("https://example.com/a.m4a", 27000)
	if audio.Duration != 27000 {
		t.Errorf("Expected duration 27000, got %d", audio.Duration)
	}

	loc := NewLocationMessage("my location", "Tokyo", 35.65910807942215, 139.70372892916203)
	if loc.Title != "my location" || loc.Latitude != 35.65910807942215 || loc.Longitude != 139.70372892916203 {
		t.Errorf("Unexpected location %+v", loc)
	}
}

func TestNewButtonsTemplate(t *testing.T) {
	msg := NewButtonsTemplate(ButtonsOptions{
		AltText:              "Buttons alt text",
		ThumbnailImageURL:    "https://example.com/thumb.png",
		ImageAspectRatio:     "rectangle",
		ImageSize:            "cover",
		ImageBackgroundColor: "#FFFFFF",
		Title:                "Menu",
		Text:                 "Please select",
		DefaultAction:        NewURIActionWithDesktop("View detail", "http://example.com/page/123", ""),
		Actions: []Action{
			NewPostbackActionWithDisplayText("Buy", "", "action=buy&itemid=123"),
			NewMessageAction("Say hello", "hello"),
			NewURIActionWithDesktop("View detail", "https://example.com/mobile", "https://example.com/desktop"),
			NewMessageAction("4", "4"),
			NewMessageAction("5", "5"),
		},
	})

	if msg.AltText != "Buttons alt text" {
		t.Errorf("Expected alt text 'Buttons alt text', got %q", msg.AltText)
	}
	buttons, ok := msg.Template.(*messaging_api.ButtonsTemplate)
	if !ok {
		t.Fatal("Expected *messaging_api.ButtonsTemplate")
	}
	if buttons.Title != "Menu" || buttons.Text != "Please select" {
		t.Errorf("Unexpected title/text %q/%q", buttons.Title, buttons.Text)
	}
	if buttons.ImageAspectRatio != "rectangle" || buttons.ImageSize != "cover" || buttons.ImageBackgroundColor != "#FFFFFF" {
		t.Errorf("Image options not applied: %+v", buttons)
	}
	if len(buttons.Actions) != MaxTemplateActionCount {
		t.Errorf("Expected actions capped at %d, got %d", MaxTemplateActionCount, len(buttons.Actions))
	}
	if _, ok := buttons.DefaultAction.(*messaging_api.UriAction); !ok {
		t.Errorf("Expected default uri action, got %T", buttons.DefaultAction)
	}
	uri, ok := buttons.Actions[2].(*messaging_api.UriAction)
	if !ok {
		t.Fatalf("Expected third action to be *messaging_api.UriAction, got %T", buttons.Actions[2])
	}
	if uri.AltUri == nil || uri.AltUri.Desktop != "https://example.com/desktop" {
		t.Errorf("Expected desktop alt uri, got %+v", uri.AltUri)
	}
}

func TestNewButtonsTemplate_TextLimit(t *testing.T) {
	long := strings.Repeat("x", 200)

	plain := NewButtonsTemplate(ButtonsOptions{Text: long}).Template.(*messaging_api.ButtonsTemplate)
	if n := utf8.RuneCountInString(plain.Text); n != MaxTemplateTextNoImage {
		t.Errorf("Expected %d runes without image, got %d", MaxTemplateTextNoImage, n)
	}

	titled := NewButtonsTemplate(ButtonsOptions{Title: "Menu", Text: long}).Template.(*messaging_api.ButtonsTemplate)
	if n := utf8.RuneCountInString(titled.Text); n != MaxTemplateTextWithImage {
		t.Errorf("Expected %d runes with title, got %d", MaxTemplateTextWithImage, n)
	}
}

func TestNewConfirmTemplate(t *testing.T) {
	msg := NewConfirmTemplate("Confirm alt text", "Are you sure?",
		NewMessageAction("Yes", "yes"),
		NewMessageAction("No", "no"),
	)

	confirm, ok := msg.Template.(*messaging_api.ConfirmTemplate)
	if !ok {
		t.Fatal("Expected *messaging_api.ConfirmTemplate")
	}
	if len(confirm.Actions) != 2 {
		t.Fatalf("Expected 2 actions, got %d", len(confirm.Actions))
	}
	yes, ok := confirm.Actions[0].(*messaging_api.MessageAction)
	if !ok || yes.Label != "Yes" || yes.Text != "yes" {
		t.Errorf("Unexpected yes action %+v", confirm.Actions[0])
	}
}

func TestNewPostbackActionWithDisplayText(t *testing.T) {
	action, ok := NewPostbackActionWithDisplayText("Buy", "Buying", "action=buy").(*messaging_api.PostbackAction)
	if !ok {
		t.Fatal("Expected *messaging_api.PostbackAction")
	}
	if action.DisplayText != "Buying" || action.Data != "action=buy" {
		t.Errorf("Unexpected postback action %+v", action)
	}
}

func TestNewFlexMessageFromJSON(t *testing.T) {
	raw := []byte(`{"type":"bubble","body":{"type":"box","layout":"vertical","contents":[{"type":"text","text":"hello"}]}}`)

	msg, err := NewFlexMessageFromJSON("Flex alt text", raw)
	if err != nil {
		t.Fatalf("NewFlexMessageFromJSON() error = %v", err)
	}
	if msg.AltText != "Flex alt text" {
		t.Errorf("Expected alt text 'Flex alt text', got %q", msg.AltText)
	}
	if msg.Contents == nil {
		t.Error("Expected decoded flex contents")
	}

	if _, err := NewFlexMessageFromJSON("bad", []byte(`{not json`)); err == nil {
		t.Error("Expected error for malformed flex JSON")
	}
}
