// Package catalog loads the canned reply catalog and selects reply payloads
// for inbound text, postback data and acknowledged message kinds.
//
// The catalog is plain YAML data. A default catalog is embedded in the binary
// and can be replaced at startup with CATALOG_PATH.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	apperrors "github.com/garyellow/line-replybot/internal/errors"
	"github.com/garyellow/line-replybot/internal/lineutil"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Part kinds
const (
	KindText     = "text"
	KindSticker  = "sticker"
	KindImage    = "image"
	KindVideo    = "video"
	KindAudio    = "audio"
	KindLocation = "location"
	KindButtons  = "buttons"
	KindConfirm  = "confirm"
	KindFlex     = "flex"
)

// Action kinds
const (
	ActionPostback = "postback"
	ActionMessage  = "message"
	ActionURI      = "uri"
)

// AcknowledgeableKinds are the inbound message kinds that may have an
// acknowledgement reply.
var AcknowledgeableKinds = []string{KindImage, KindVideo, KindAudio, KindLocation, KindSticker}

// Catalog is the decoded reply catalog.
type Catalog struct {
	Replies          []Reply           `yaml:"replies"`
	Postbacks        []PostbackRule    `yaml:"postbacks"`
	Acknowledgements map[string][]Part `yaml:"acknowledgements"`
	PostbackFallback string            `yaml:"postback_fallback"`
}

// Reply maps an exact text trigger to a multi-part payload.
type Reply struct {
	Trigger string `yaml:"trigger"`
	Parts   []Part `yaml:"parts"`
}

// PostbackRule maps postback key/value pairs to a payload.
type PostbackRule struct {
	Match map[string]string `yaml:"match"`
	Parts []Part            `yaml:"parts"`
}

// Part is one outbound message. Which fields apply depends on Kind.
type Part struct {
	Kind string `yaml:"kind"`

	// text
	Text string `yaml:"text,omitempty"`

	// sticker
	PackageID string `yaml:"package_id,omitempty"`
	StickerID string `yaml:"sticker_id,omitempty"`

	// image, video, audio
	OriginalURL string `yaml:"original_url,omitempty"`
	PreviewURL  string `yaml:"preview_url,omitempty"`
	Duration    int64  `yaml:"duration,omitempty"` // audio, milliseconds

	// location
	Title     string  `yaml:"title,omitempty"`
	Address   string  `yaml:"address,omitempty"`
	Latitude  float64 `yaml:"latitude,omitempty"`
	Longitude float64 `yaml:"longitude,omitempty"`

	// buttons, confirm, flex
	AltText              string         `yaml:"alt_text,omitempty"`
	ThumbnailURL         string         `yaml:"thumbnail_url,omitempty"`
	ImageAspectRatio     string         `yaml:"image_aspect_ratio,omitempty"`
	ImageSize            string         `yaml:"image_size,omitempty"`
	ImageBackgroundColor string         `yaml:"image_background_color,omitempty"`
	DefaultAction        *Action        `yaml:"default_action,omitempty"`
	Actions              []Action       `yaml:"actions,omitempty"`
	Contents             map[string]any `yaml:"contents,omitempty"`

	// flexJSON caches Contents encoded as JSON, filled in by Validate.
	flexJSON []byte
}

// Action is a template button.
type Action struct {
	Kind        string `yaml:"kind"`
	Label       string `yaml:"label,omitempty"`
	Text        string `yaml:"text,omitempty"`
	Data        string `yaml:"data,omitempty"`
	DisplayText string `yaml:"display_text,omitempty"`
	URI         string `yaml:"uri,omitempty"`
	DesktopURI  string `yaml:"desktop_uri,omitempty"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	c, err := Parse(defaultCatalog)
	if err != nil {
		return nil, fmt.Errorf("embedded catalog: %w", err)
	}
	return c, nil
}

// Load reads a catalog from path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Triggers returns the text triggers in catalog order.
func (c *Catalog) Triggers() []string {
	triggers := make([]string, len(c.Replies))
	for i, r := range c.Replies {
		triggers[i] = r.Trigger
	}
	return triggers
}

// Validate checks every reply, rule and part, and reports all problems together.
func (c *Catalog) Validate() error {
	var errs []error

	seen := make(map[string]bool, len(c.Replies))
	for i := range c.Replies {
		r := &c.Replies[i]
		field := fmt.Sprintf("replies[%d]", i)
		switch {
		case r.Trigger == "":
			errs = append(errs, apperrors.NewValidationError(field+".trigger", "must not be empty"))
		case seen[r.Trigger]:
			errs = append(errs, apperrors.NewValidationError(field+".trigger", fmt.Sprintf("duplicate trigger %q", r.Trigger)))
		}
		seen[r.Trigger] = true
		errs = append(errs, validateParts(field, r.Parts)...)
	}

	for i := range c.Postbacks {
		rule := &c.Postbacks[i]
		field := fmt.Sprintf("postbacks[%d]", i)
		if len(rule.Match) == 0 {
			errs = append(errs, apperrors.NewValidationError(field+".match", "must not be empty"))
		}
		errs = append(errs, validateParts(field, rule.Parts)...)
	}

	for kind, parts := range c.Acknowledgements {
		field := fmt.Sprintf("acknowledgements.%s", kind)
		if !slices.Contains(AcknowledgeableKinds, kind) {
			errs = append(errs, apperrors.NewValidationError(field, fmt.Sprintf("unknown message kind, want one of %s", strings.Join(AcknowledgeableKinds, ", "))))
			continue
		}
		errs = append(errs, validateParts(field, parts)...)
	}

	if c.PostbackFallback == "" {
		errs = append(errs, apperrors.NewValidationError("postback_fallback", "must not be empty"))
	} else if err := checkLength("postback_fallback", c.PostbackFallback, lineutil.MaxTextMessageLength); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func validateParts(field string, parts []Part) []error {
	var errs []error
	if len(parts) == 0 || len(parts) > lineutil.MaxMessagesPerReply {
		errs = append(errs, apperrors.NewValidationError(field+".parts", fmt.Sprintf("must have 1 to %d parts, got %d", lineutil.MaxMessagesPerReply, len(parts))))
	}
	for i := range parts {
		errs = append(errs, parts[i].validate(fmt.Sprintf("%s.parts[%d]", field, i))...)
	}
	return errs
}

func (p *Part) validate(field string) []error {
	var errs []error
	require := func(name, value string) {
		if value == "" {
			errs = append(errs, apperrors.NewValidationError(field+"."+name, "is required for "+p.Kind))
		}
	}
	limit := func(name, value string, maxLen int) {
		if err := checkLength(field+"."+name, value, maxLen); err != nil {
			errs = append(errs, err)
		}
	}

	switch p.Kind {
	case KindText:
		require("text", p.Text)
		limit("text", p.Text, lineutil.MaxTextMessageLength)
	case KindSticker:
		require("package_id", p.PackageID)
		require("sticker_id", p.StickerID)
	case KindImage, KindVideo:
		require("original_url", p.OriginalURL)
		require("preview_url", p.PreviewURL)
	case KindAudio:
		require("original_url", p.OriginalURL)
		if p.Duration <= 0 {
			errs = append(errs, apperrors.NewValidationError(field+".duration", "must be a positive number of milliseconds"))
		}
	case KindLocation:
		require("title", p.Title)
		require("address", p.Address)
		limit("title", p.Title, lineutil.MaxLocationTitleLength)
		limit("address", p.Address, lineutil.MaxLocationAddressLength)
		if p.Latitude < -90 || p.Latitude > 90 {
			errs = append(errs, apperrors.NewValidationError(field+".latitude", "must be between -90 and 90"))
		}
		if p.Longitude < -180 || p.Longitude > 180 {
			errs = append(errs, apperrors.NewValidationError(field+".longitude", "must be between -180 and 180"))
		}
	case KindButtons:
		require("alt_text", p.AltText)
		require("text", p.Text)
		limit("alt_text", p.AltText, lineutil.MaxAltTextLength)
		limit("title", p.Title, lineutil.MaxTemplateTitleLength)
		if p.ThumbnailURL != "" || p.Title != "" {
			limit("text", p.Text, lineutil.MaxTemplateTextWithImage)
		} else {
			limit("text", p.Text, lineutil.MaxTemplateTextNoImage)
		}
		if len(p.Actions) == 0 || len(p.Actions) > lineutil.MaxTemplateActionCount {
			errs = append(errs, apperrors.NewValidationError(field+".actions", fmt.Sprintf("buttons need 1 to %d actions, got %d", lineutil.MaxTemplateActionCount, len(p.Actions))))
		}
		if p.DefaultAction != nil {
			errs = append(errs, p.DefaultAction.validate(field+".default_action", false)...)
		}
		for i := range p.Actions {
			errs = append(errs, p.Actions[i].validate(fmt.Sprintf("%s.actions[%d]", field, i), true)...)
		}
	case KindConfirm:
		require("alt_text", p.AltText)
		require("text", p.Text)
		limit("alt_text", p.AltText, lineutil.MaxAltTextLength)
		limit("text", p.Text, lineutil.MaxConfirmTemplateText)
		if len(p.Actions) != 2 {
			errs = append(errs, apperrors.NewValidationError(field+".actions", fmt.Sprintf("confirm needs exactly 2 actions, got %d", len(p.Actions))))
		}
		for i := range p.Actions {
			errs = append(errs, p.Actions[i].validate(fmt.Sprintf("%s.actions[%d]", field, i), true)...)
		}
	case KindFlex:
		require("alt_text", p.AltText)
		limit("alt_text", p.AltText, lineutil.MaxAltTextLength)
		if len(p.Contents) == 0 {
			errs = append(errs, apperrors.NewValidationError(field+".contents", "is required for flex"))
			break
		}
		if kind, _ := p.Contents["type"].(string); kind != "bubble" && kind != "carousel" {
			errs = append(errs, apperrors.NewValidationError(field+".contents.type", fmt.Sprintf("must be bubble or carousel, got %v", p.Contents["type"])))
			break
		}
		raw, err := json.Marshal(p.Contents)
		if err != nil {
			errs = append(errs, apperrors.NewValidationError(field+".contents", err.Error()))
			break
		}
		if _, err := lineutil.NewFlexMessageFromJSON(p.AltText, raw); err != nil {
			errs = append(errs, apperrors.NewValidationError(field+".contents", err.Error()))
			break
		}
		p.flexJSON = raw
	case "":
		errs = append(errs, apperrors.NewValidationError(field+".kind", "is required"))
	default:
		errs = append(errs, apperrors.NewValidationError(field+".kind", fmt.Sprintf("unknown part kind %q", p.Kind)))
	}
	return errs
}

func (a *Action) validate(field string, needLabel bool) []error {
	var errs []error
	if needLabel && a.Label == "" {
		errs = append(errs, apperrors.NewValidationError(field+".label", "must not be empty"))
	}
	if err := checkLength(field+".label", a.Label, lineutil.MaxActionLabelLength); err != nil {
		errs = append(errs, err)
	}
	switch a.Kind {
	case ActionPostback:
		if a.Data == "" {
			errs = append(errs, apperrors.NewValidationError(field+".data", "is required for postback"))
		} else if err := checkLength(field+".data", a.Data, lineutil.MaxPostbackData); err != nil {
			errs = append(errs, err)
		}
	case ActionMessage:
		if a.Text == "" {
			errs = append(errs, apperrors.NewValidationError(field+".text", "is required for message"))
		}
	case ActionURI:
		if a.URI == "" {
			errs = append(errs, apperrors.NewValidationError(field+".uri", "is required for uri"))
		}
	default:
		errs = append(errs, apperrors.NewValidationError(field+".kind", fmt.Sprintf("unknown action kind %q, want postback, message or uri", a.Kind)))
	}
	return errs
}

// checkLength rejects values the LINE API would refuse or the builders would cut.
func checkLength(field, value string, maxLen int) error {
	if n := utf8.RuneCountInString(value); n > maxLen {
		return apperrors.NewValidationError(field, fmt.Sprintf("exceeds %d characters, got %d", maxLen, n))
	}
	return nil
}
