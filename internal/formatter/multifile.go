package formatter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/beevik/etree"

	"github.com/tordrt/liquischema/internal/changelog"
)

// MasterFile is the name of the changelog that includes every change-set file
const MasterFile = "db.changelog-master.xml"

// MultiFileFormatter writes a changelog to a directory, one file per change
// set plus a master changelog including them in order
type MultiFileFormatter struct {
	OutputDir string
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir string) *MultiFileFormatter {
	return &MultiFileFormatter{OutputDir: outputDir}
}

// Format writes the change sets of doc and returns the written file names,
// master file last
func (f *MultiFileFormatter) Format(doc *changelog.Document) ([]string, error) {
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	master := newChangelogDocument()
	var written []string

	for i, cs := range doc.ChangeSets() {
		name := changeSetFileName(i, cs.SelectAttrValue("id", "changeset"))

		part := newChangelogDocument()
		part.Root().AddChild(cs.Copy())
		if err := f.writeFile(name, part); err != nil {
			return nil, fmt.Errorf("failed to write change set %s: %w", name, err)
		}
		written = append(written, name)

		include := master.Root().CreateElement("include")
		include.CreateAttr("file", name)
		include.CreateAttr("relativeToChangelogFile", "true")
	}

	if err := f.writeFile(MasterFile, master); err != nil {
		return nil, fmt.Errorf("failed to write master changelog: %w", err)
	}
	return append(written, MasterFile), nil
}

func (f *MultiFileFormatter) writeFile(name string, doc *etree.Document) error {
	file, err := os.Create(filepath.Join(f.OutputDir, name))
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	doc.Indent(2)
	_, err = doc.WriteTo(file)
	return err
}

func newChangelogDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0"`)
	doc.CreateElement(changelog.RootElement)
	return doc
}

func changeSetFileName(position int, id string) string {
	return fmt.Sprintf("%03d-%s.xml", position+1, id)
}
