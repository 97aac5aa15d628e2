package errstream

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformed wraps every syntax or content error of the stream.
var ErrMalformed = errors.New("malformed diagnostic stream")

// Handler receives records in stream order. A non-nil error stops decoding
// and is returned unchanged from Decode.
type Handler func(Record) error

// State is the decoder's view of the error element being read.
//
// File survives from one error element to the next until a non-empty file
// replaces it; Line is reset at the start of every error element.
type State struct {
	File    string
	Line    int
	Message string

	text strings.Builder
}

// Decode reads error elements from r as they arrive and passes each one to
// handle when its closing tag is seen. It returns nil at a clean end of
// stream. The stream may hold a single root container or a bare sequence of
// error elements.
func Decode(r io.Reader, handle Handler) error {
	var st State
	return st.Decode(r, handle)
}

// Decode continues decoding with st as the starting state.
func (st *State) Decode(r io.Reader, handle Handler) error {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		rec, ready, err := st.step(tok)
		if err != nil {
			return fmt.Errorf("%w at offset %d: %w", ErrMalformed, dec.InputOffset(), err)
		}
		if !ready {
			continue
		}
		if err := handle(rec); err != nil {
			return err
		}
	}
}

func (st *State) step(tok xml.Token) (Record, bool, error) {
	switch tok := tok.(type) {
	case xml.StartElement:
		st.text.Reset()
		if tok.Name.Local == TagError {
			st.Line = DefaultLine
		}
	case xml.CharData:
		st.text.Write(tok)
	case xml.EndElement:
		text := strings.TrimSpace(st.text.String())
		st.text.Reset()
		switch tok.Name.Local {
		case TagMessage:
			st.Message = text
		case TagFile:
			if text != "" {
				st.File = text
			}
		case TagLine:
			line, err := parseLine(text)
			if err != nil {
				return Record{}, false, err
			}
			st.Line = line
		case TagError:
			return Record{File: st.File, Line: st.Line, Message: st.Message}, true, nil
		}
	}
	return Record{}, false, nil
}

func parseLine(text string) (int, error) {
	if text == "" {
		return DefaultLine, nil
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("invalid line %q", text)
	}
	if n <= 0 {
		return DefaultLine, nil
	}
	return n, nil
}
