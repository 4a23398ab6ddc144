package engine

import (
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// TypingEntry is one (node, shape) verdict in serialisable form:
// plain JSON-tagged structs so a thin host can emit the result as a
// structured tool response without further mapping.
type TypingEntry struct {
	Node     string   `json:"node"`
	Shape    string   `json:"shape"`
	Idx      int      `json:"idx"`
	Conforms bool     `json:"conforms"`
	Reasons  []Reason `json:"reasons,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// Result is the full outcome of a validation run.
type Result struct {
	Entries []TypingEntry `json:"typing"`
}

// Result snapshots the typing: positives in proof order followed by
// negatives in refutation order.
func (e *Engine) Result() Result {
	var out Result
	for _, entry := range e.typing.Positives() {
		label, _ := e.labelOf(entry.Atom.Idx)
		out.Entries = append(out.Entries, TypingEntry{
			Node:     entry.Atom.Node.String(),
			Shape:    label,
			Idx:      int(entry.Atom.Idx),
			Conforms: true,
			Reasons:  entry.Reasons,
		})
	}
	for _, entry := range e.typing.Negatives() {
		label, _ := e.labelOf(entry.Atom.Idx)
		msgs := make([]string, len(entry.Errors))
		for i, err := range entry.Errors {
			msgs[i] = err.Error()
		}
		out.Entries = append(out.Entries, TypingEntry{
			Node:     entry.Atom.Node.String(),
			Shape:    label,
			Idx:      int(entry.Atom.Idx),
			Conforms: false,
			Errors:   msgs,
		})
	}
	return out
}

// WriteTo streams the result to w as a JSON array of typing entries,
// without buffering the whole document. It implements io.WriterTo.
func (r Result) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	enc := jsontext.NewEncoder(cw)

	if err := enc.WriteToken(jsontext.BeginArray); err != nil {
		return cw.count, err
	}
	for _, entry := range r.Entries {
		if err := json.MarshalEncode(enc, entry); err != nil {
			return cw.count, err
		}
	}
	if err := enc.WriteToken(jsontext.EndArray); err != nil {
		return cw.count, err
	}
	return cw.count, nil
}

// countingWriter wraps an io.Writer and counts bytes written.
type countingWriter struct {
	w     io.Writer
	count int64
}

func (cw *countingWriter) Write(p []byte) (n int, err error) {
	n, err = cw.w.Write(p)
	cw.count += int64(n)
	return n, err
}
