package model

// Markup describes the buttons attached to an outgoing message. Transports
// render it; the core only computes the rows.
type Markup struct {
	Inline         [][]InlineButton
	Keyboard       [][]string
	RemoveKeyboard bool
}

type InlineButton struct {
	Text string
	URL  string
	Data string
}

func (m *Markup) Empty() bool {
	return m == nil || (len(m.Inline) == 0 && len(m.Keyboard) == 0 && !m.RemoveKeyboard)
}

type RenderedReply struct {
	Text     string
	ImageURL string
	Inline   [][]InlineButton
	Keyboard [][]string
	// KeyboardSeparate is set when Keyboard has to go out as its own message.
	KeyboardSeparate bool
}
