package changelog

import (
	"io"
	"strings"

	"github.com/beevik/etree"
)

// RootElement is the name of the changelog root element
const RootElement = "databaseChangeLog"

// Document is a generated changelog
type Document struct {
	doc  *etree.Document
	root *etree.Element
}

func newDocument() *Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0"`)
	root := doc.CreateElement(RootElement)
	return &Document{doc: doc, root: root}
}

// Root returns the databaseChangeLog element
func (d *Document) Root() *etree.Element {
	return d.root
}

// ChangeSets returns the change-set elements in document order
func (d *Document) ChangeSets() []*etree.Element {
	return d.root.SelectElements("changeSet")
}

// FindElements evaluates an etree path against the document
func (d *Document) FindElements(path string) []*etree.Element {
	return d.doc.FindElements(path)
}

// WriteTo writes the indented XML to w
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	d.doc.Indent(2)
	return d.doc.WriteTo(w)
}

// String returns the indented XML. The document is rendered into memory,
// which cannot fail; use WriteTo when the destination can.
func (d *Document) String() string {
	var sb strings.Builder
	_, _ = d.WriteTo(&sb)
	return sb.String()
}
