package msg

// Status is the normalized form of an add/del reply. Servers answer in
// one of two shapes: an integer code followed by a message, or a legacy
// ASCII line whose first character is 'A' or 'R' on success. Callers
// only ever see this normalized form.
type Status struct {
	Ok     bool
	Text   string
	Legacy bool
}

// ParseStatus normalizes an add/del reply.
func ParseStatus(reply *Message) Status {
	if reply == nil || reply.Size() == 0 {
		return Status{}
	}
	first := reply.Get(0)
	if first.IsInt() {
		return Status{
			Ok:   first.AsInt() == 0,
			Text: reply.Get(1).AsString(),
		}
	}
	text := first.AsString()
	ok := len(text) > 0 && (text[0] == 'A' || text[0] == 'R')
	return Status{Ok: ok, Text: text, Legacy: true}
}
