package llm

import "context"

// Part is one piece of a multimodal prompt: either text or inline bytes.
type Part struct {
	Text     string
	Data     []byte
	MIMEType string
}

// TextPart wraps prompt text.
func TextPart(s string) Part { return Part{Text: s} }

// ImagePart wraps inline image bytes.
func ImagePart(data []byte, mimeType string) Part {
	return Part{Data: data, MIMEType: mimeType}
}

// IsImage reports whether the part carries inline bytes.
func (p Part) IsImage() bool { return len(p.Data) > 0 }

// Request is a single logical model call.
type Request struct {
	Parts       []Part
	Temperature float32
	// JSON asks the backend for a JSON-only response when it supports that.
	JSON bool
}

// Generator is implemented by each model backend. Failures should be returned as *ModelError
// so the Invoker can tell "model not found" apart from everything else.
type Generator interface {
	Generate(ctx context.Context, model string, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, model string, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, model string, req Request) (string, error) {
	return f(ctx, model, req)
}
