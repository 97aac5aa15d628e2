package request_test

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xbuild/internal/request"
)

type leaf struct {
	Name string
	Text string
}

// readLeaves decodes a request document into its ordered leaf elements.
func readLeaves(t *testing.T, doc []byte) (string, []leaf) {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader(doc))
	var (
		root   string
		leaves []leaf
		depth  int
		text   string
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		switch tok := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				root = tok.Name.Local
			}
			text = ""
		case xml.CharData:
			text = string(tok)
		case xml.EndElement:
			if depth == 2 {
				leaves = append(leaves, leaf{Name: tok.Name.Local, Text: text})
			}
			depth--
		}
	}
	return root, leaves
}

func sampleRequest() *request.BuildRequest {
	return &request.BuildRequest{
		WorkspacePath: "/ws",
		ProjectPath:   "/ws/proj",
		OutputPath:    "/ws/proj/bin",
		Classpath:     []string{"/ws/proj/lib/a.jar"},
		Resources:     []string{"/ws/proj/src/A.java"},
	}
}

func TestEncode_ElementOrder(t *testing.T) {
	doc, err := request.Bytes(sampleRequest())
	require.NoError(t, err)

	root, leaves := readLeaves(t, doc)
	assert.Equal(t, request.TagRoot, root)
	assert.Equal(t, []leaf{
		{request.TagWorkspace, "/ws"},
		{request.TagProject, "/ws/proj"},
		{request.TagOutput, "/ws/proj/bin"},
		{request.TagClasspath, "/ws/proj/lib/a.jar"},
		{request.TagResource, "/ws/proj/src/A.java"},
	}, leaves)
}

func TestEncode_ExactDocument(t *testing.T) {
	doc, err := request.Bytes(sampleRequest())
	require.NoError(t, err)

	want := `<?xml version="1.0" encoding="UTF-8"?>
<builder-options>
<workspace-path>/ws</workspace-path>
<project-path>/ws/proj</project-path>
<output-path>/ws/proj/bin</output-path>
<classpath>/ws/proj/lib/a.jar</classpath>
<resource>/ws/proj/src/A.java</resource>
</builder-options>
`
	assert.Equal(t, want, string(doc))
}

func TestEncode_EscapesText(t *testing.T) {
	req := sampleRequest()
	req.Resources = []string{"/ws/proj/src/R&D<1>.java"}
	doc, err := request.Bytes(req)
	require.NoError(t, err)

	assert.Contains(t, string(doc), "R&amp;D&lt;1&gt;.java")
	_, leaves := readLeaves(t, doc)
	assert.Equal(t, "/ws/proj/src/R&D<1>.java", leaves[len(leaves)-1].Text)
}

func TestEncode_EmptyLists(t *testing.T) {
	req := sampleRequest()
	req.Classpath = nil
	req.Resources = nil
	doc, err := request.Bytes(req)
	require.NoError(t, err)

	_, leaves := readLeaves(t, doc)
	assert.Len(t, leaves, 3)
}

func TestEncode_Deterministic(t *testing.T) {
	a, err := request.Bytes(sampleRequest())
	require.NoError(t, err)
	b, err := request.Bytes(sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestValidate(t *testing.T) {
	require.NoError(t, sampleRequest().Validate())

	req := sampleRequest()
	req.Classpath = append(req.Classpath, "proj/lib/b.jar")
	require.Error(t, req.Validate())

	var nilReq *request.BuildRequest
	require.Error(t, nilReq.Validate())
}

func TestWriter_LeafAutoTerminates(t *testing.T) {
	var buf bytes.Buffer
	x := request.NewWriter(&buf)
	x.Element("a").StartChildren()
	x.Element("empty")
	x.Element("b").Text("1")
	x.Element("nested").StartChildren()
	x.Element("c").Text("2")
	x.EndChildren()
	x.EndChildren()
	require.NoError(t, x.Close())

	want := `<?xml version="1.0" encoding="UTF-8"?>
<a>
<empty></empty>
<b>1</b>
<nested>
<c>2</c>
</nested>
</a>
`
	assert.Equal(t, want, buf.String())
}

func TestWriter_CloseEndsOpenElements(t *testing.T) {
	var buf bytes.Buffer
	x := request.NewWriter(&buf)
	x.Element("a").StartChildren()
	x.Element("b")
	require.NoError(t, x.Close())
	assert.Contains(t, buf.String(), "<a>\n<b></b></a>")
}

func TestWriter_MisuseIsSticky(t *testing.T) {
	var buf bytes.Buffer
	x := request.NewWriter(&buf)
	x.Text("orphan")
	x.Element("a")
	require.Error(t, x.Close())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEncode_WriteError(t *testing.T) {
	err := request.Encode(failingWriter{}, sampleRequest())
	require.ErrorContains(t, err, "disk full")
}
