package markdown

// NewWithStage builds an Extra parser with one more stage in the given
// gamut. A nil fn registers the name without a function.
func NewWithStage(opts Options, gamut, name string, priority int, fn func(string) string) *Parser {
	d := extraDialect()
	if fn != nil {
		d.registry[name] = func(_ *conversion, text string) string { return fn(text) }
	}

	s := stage{name: name, priority: priority}
	switch gamut {
	case "document":
		d.document = append(d.document, s)
	case "block":
		d.block = append(d.block, s)
	default:
		d.span = append(d.span, s)
	}

	return newParser(d, opts)
}
