package lineutil

// LINE API Character Limits (Rune count)
// References: https://developers.line.biz/en/reference/messaging-api/
const (
	MaxTextMessageLength = 5000 // Text message max content length
	MaxAltTextLength     = 400  // Template/Flex message alt text length
	MaxPostbackData      = 300  // Postback action data length
	MaxActionLabelLength = 20   // Action label length

	// Template Message Limits
	MaxTemplateTitleLength   = 40  // Buttons template title
	MaxTemplateTextNoImage   = 160 // Buttons template text without image or title
	MaxTemplateTextWithImage = 60  // Buttons template text with image or title
	MaxConfirmTemplateText   = 240 // Confirm template text
	MaxTemplateActionCount   = 4   // Max actions per buttons template

	// Location Message Limits
	MaxLocationTitleLength   = 100
	MaxLocationAddressLength = 100

	// Reply Limits
	MaxMessagesPerReply = 5
)
