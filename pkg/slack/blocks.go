package slack

// Block Kit types, limited to the fields this bot emits. See
// https://docs.slack.dev/reference/block-kit.

// View is an App Home tab view, published with "views.publish".
type View struct {
	Type   string  `json:"type"` // Always "home" for this bot.
	Blocks []Block `json:"blocks"`
}

// Block is a Block Kit layout block ("header", "section",
// "actions", or "context").
type Block struct {
	Type     string `json:"type"`
	Text     *Text  `json:"text,omitempty"`
	Elements []any  `json:"elements,omitempty"`
}

// Text is a Block Kit text object, either "plain_text" or "mrkdwn".
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// PlainText returns a "plain_text" text object.
func PlainText(s string) *Text {
	return &Text{Type: "plain_text", Text: s}
}

// Markdown returns a "mrkdwn" text object.
func Markdown(s string) *Text {
	return &Text{Type: "mrkdwn", Text: s}
}

// Option is a selectable option of a checkbox element.
type Option struct {
	Text  *Text  `json:"text"`
	Value string `json:"value"`
}

// CheckboxElement is a Block Kit checkbox group, used inside an
// "actions" block. InitialOptions must be omitted entirely when empty:
// Slack rejects views containing an empty "initial_options" array.
type CheckboxElement struct {
	Type           string   `json:"type"` // Always "checkboxes".
	ActionID       string   `json:"action_id"`
	Options        []Option `json:"options"`
	InitialOptions []Option `json:"initial_options,omitempty"`
}

// HeaderBlock returns a "header" block with plain text.
func HeaderBlock(text string) Block {
	return Block{Type: "header", Text: PlainText(text)}
}

// SectionBlock returns a "section" block with markdown text.
func SectionBlock(mrkdwn string) Block {
	return Block{Type: "section", Text: Markdown(mrkdwn)}
}

// ActionsBlock returns an "actions" block wrapping interactive elements.
func ActionsBlock(elements ...any) Block {
	return Block{Type: "actions", Elements: elements}
}

// ContextBlock returns a "context" block with a single markdown element.
func ContextBlock(mrkdwn string) Block {
	return Block{Type: "context", Elements: []any{Markdown(mrkdwn)}}
}
