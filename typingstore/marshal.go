package typingstore

import (
	"fmt"
	"io"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/mangle/ast"
)

// verdictJSON is the streaming JSON form of one verdict row:
// {"verdict": "conforms", "node": "<iri>", "shape": 3}. It implements
// json.MarshalerTo and json.UnmarshalerFrom so WriteTo/ReadFrom can
// stream large typings token by token.
type verdictJSON struct {
	row
}

func (vj verdictJSON) MarshalJSONTo(enc *jsontext.Encoder) error {
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	if err := enc.WriteToken(jsontext.String("verdict")); err != nil {
		return err
	}
	if err := enc.WriteToken(jsontext.String(vj.verdict)); err != nil {
		return err
	}
	if err := enc.WriteToken(jsontext.String("node")); err != nil {
		return err
	}
	if err := enc.WriteToken(jsontext.String(vj.node)); err != nil {
		return err
	}
	if err := enc.WriteToken(jsontext.String("shape")); err != nil {
		return err
	}
	if err := enc.WriteToken(jsontext.Int(vj.shape)); err != nil {
		return err
	}
	return enc.WriteToken(jsontext.EndObject)
}

func (vj *verdictJSON) UnmarshalJSONFrom(dec *jsontext.Decoder) error {
	tok, err := dec.ReadToken()
	if err != nil {
		return err
	}
	if tok.Kind() != '{' {
		return fmt.Errorf("expected verdict object, got %c", tok.Kind())
	}
	for dec.PeekKind() != '}' {
		keyTok, err := dec.ReadToken()
		if err != nil {
			return err
		}
		key := keyTok.String()
		valTok, err := dec.ReadToken()
		if err != nil {
			return err
		}
		switch key {
		case "verdict":
			vj.verdict = valTok.String()
		case "node":
			vj.node = valTok.String()
		case "shape":
			vj.shape = valTok.Int()
		default:
			return fmt.Errorf("unknown verdict field %q", key)
		}
	}
	if _, err := dec.ReadToken(); err != nil { // consume '}'
		return err
	}
	switch vj.verdict {
	case ConformsPredicate.Symbol, ViolatesPredicate.Symbol:
	default:
		return fmt.Errorf("unknown verdict %q", vj.verdict)
	}
	return nil
}

// atom rebuilds the ast.Atom for a decoded verdict row.
func (vj verdictJSON) atom() ast.Atom {
	if vj.verdict == ViolatesPredicate.Symbol {
		return ViolatesAtom(vj.node, int(vj.shape))
	}
	return ConformsAtom(vj.node, int(vj.shape))
}

// writeVerdicts streams every row as a JSON array, conforms first, in
// database scan order within each verdict.
func (s *Store) writeVerdicts(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	enc := jsontext.NewEncoder(cw)

	if err := enc.WriteToken(jsontext.BeginArray); err != nil {
		return cw.count, err
	}
	for _, pred := range []ast.PredicateSym{ConformsPredicate, ViolatesPredicate} {
		if err := s.GetFacts(ast.NewQuery(pred), func(atom ast.Atom) error {
			r, err := atomToRow(atom)
			if err != nil {
				return err
			}
			return verdictJSON{r}.MarshalJSONTo(enc)
		}); err != nil {
			return cw.count, fmt.Errorf("failed to stream %v verdicts: %w", pred, err)
		}
	}
	if err := enc.WriteToken(jsontext.EndArray); err != nil {
		return cw.count, err
	}
	return cw.count, nil
}

// readVerdicts decodes a JSON array of verdict objects, bulk-inserting
// in batches that match batchInsert's batch size.
func (s *Store) readVerdicts(r io.Reader) (int64, error) {
	cr := &countingReader{r: r}
	dec := jsontext.NewDecoder(cr)

	tok, err := dec.ReadToken()
	if err != nil {
		return cr.count, fmt.Errorf("failed to read opening token: %w", err)
	}
	if tok.Kind() != '[' {
		return cr.count, fmt.Errorf("expected JSON array start '[', got %c", tok.Kind())
	}

	const batchSize = 500
	var batch []ast.Atom
	for dec.PeekKind() != ']' {
		var vj verdictJSON
		if err := vj.UnmarshalJSONFrom(dec); err != nil {
			return cr.count, fmt.Errorf("failed to unmarshal verdict from stream: %w", err)
		}
		batch = append(batch, vj.atom())
		if len(batch) >= batchSize {
			if err := s.batchInsert(batch); err != nil {
				return cr.count, fmt.Errorf("failed to insert batch: %w", err)
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := s.batchInsert(batch); err != nil {
			return cr.count, fmt.Errorf("failed to insert final batch: %w", err)
		}
	}

	tok, err = dec.ReadToken()
	if err != nil {
		return cr.count, fmt.Errorf("failed to read closing token: %w", err)
	}
	if tok.Kind() != ']' {
		return cr.count, fmt.Errorf("expected JSON array end ']', got %c", tok.Kind())
	}
	return cr.count, nil
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

// countingReader wraps an io.Reader and counts bytes read.
type countingReader struct {
	r     io.Reader
	count int64
}

func (cr *countingReader) Read(p []byte) (n int, err error) {
	n, err = cr.r.Read(p)
	cr.count += int64(n)
	return n, err
}
