package request

import (
	"encoding/xml"
	"errors"
	"io"
)

var newline = xml.CharData("\n")

// Writer emits a document one element at a time. It never looks back:
// starting an element closes a still-open leaf sibling, StartChildren turns
// the last element into a container and EndChildren closes that container.
//
// The first error is sticky; later calls are no-ops and Close reports it.
type Writer struct {
	enc      *xml.Encoder
	tags     []string
	leafOpen bool
	err      error
}

// NewWriter writes an XML declaration to w and returns a Writer for the body.
func NewWriter(w io.Writer) *Writer {
	x := &Writer{enc: xml.NewEncoder(w)}
	x.emit(xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="UTF-8"`)})
	x.emit(newline)
	return x
}

// Element starts a new element named tag.
func (x *Writer) Element(tag string) *Writer {
	if x.leafOpen {
		x.closeTag()
		x.emit(newline)
	}
	x.tags = append(x.tags, tag)
	x.emit(xml.StartElement{Name: xml.Name{Local: tag}})
	x.leafOpen = true
	return x
}

// StartChildren makes the most recently started element a container.
func (x *Writer) StartChildren() *Writer {
	if !x.leafOpen {
		x.fail(errors.New("request: StartChildren without an open element"))
		return x
	}
	x.leafOpen = false
	x.emit(newline)
	return x
}

// Text writes s as the content of the open leaf and closes it.
func (x *Writer) Text(s string) *Writer {
	if !x.leafOpen {
		x.fail(errors.New("request: Text without an open element"))
		return x
	}
	x.emit(xml.CharData(s))
	x.closeTag()
	x.emit(newline)
	x.leafOpen = false
	return x
}

// EndChildren closes the innermost container.
func (x *Writer) EndChildren() *Writer {
	if x.leafOpen {
		x.closeTag()
		x.emit(newline)
		x.leafOpen = false
	}
	if len(x.tags) == 0 {
		x.fail(errors.New("request: EndChildren without an open container"))
		return x
	}
	x.closeTag()
	x.emit(newline)
	return x
}

// Close ends every open element and flushes the output.
func (x *Writer) Close() error {
	for len(x.tags) > 0 && x.err == nil {
		x.closeTag()
	}
	x.leafOpen = false
	if x.err != nil {
		return x.err
	}
	if err := x.enc.Close(); err != nil {
		return err
	}
	return x.err
}

func (x *Writer) closeTag() {
	if len(x.tags) == 0 {
		return
	}
	tag := x.tags[len(x.tags)-1]
	x.tags = x.tags[:len(x.tags)-1]
	x.emit(xml.EndElement{Name: xml.Name{Local: tag}})
}

func (x *Writer) emit(tok xml.Token) {
	if x.err != nil {
		return
	}
	x.fail(x.enc.EncodeToken(tok))
}

func (x *Writer) fail(err error) {
	if x.err == nil && err != nil {
		x.err = err
	}
}
