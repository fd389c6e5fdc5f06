package sink

import (
	"encoding/json"
	"strings"

	"github.com/tinytelemetry/mongoperf/internal/model"
)

// Payload caches the serialized forms of one Document so each sink encodes
// it at most once per form.
type Payload struct {
	Doc     model.Document
	flatten bool
	indent  int

	out    []byte
	pretty []byte
}

func newPayload(doc model.Document, flatten bool, indent int) *Payload {
	if indent <= 0 {
		indent = model.DefaultIndent
	}
	return &Payload{Doc: doc, flatten: flatten, indent: indent}
}

// Output returns the document in the run's configured form: compact when
// flattened, indented otherwise.
func (p *Payload) Output() ([]byte, error) {
	if p.out != nil {
		return p.out, nil
	}
	if !p.flatten {
		return p.Pretty()
	}
	data, err := json.Marshal(p.Doc)
	if err != nil {
		return nil, err
	}
	p.out = data
	return data, nil
}

// Pretty returns the indented form regardless of the flatten setting.
func (p *Payload) Pretty() ([]byte, error) {
	if p.pretty != nil {
		return p.pretty, nil
	}
	data, err := json.MarshalIndent(p.Doc, "", strings.Repeat(" ", p.indent))
	if err != nil {
		return nil, err
	}
	p.pretty = data
	return data, nil
}
