package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

const documentXMLPath = "word/document.xml"

// Load parses a DOCX byte stream into an ordered paragraph list. Every
// other ZIP entry (styles, media, relationships, headers/footers,
// [Content_Types].xml) is kept as opaque bytes for the Serializer.
// Empty documents are legal: a package with no <w:p> elements at all
// produces a Document with zero Paragraphs.
func Load(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("docx: not a valid zip package: %w", err)
	}

	rawEntries := make(map[string][]byte, len(zr.File))
	entryMethod := make(map[string]uint16, len(zr.File))
	entryOrder := make([]string, 0, len(zr.File))
	var docXML []byte

	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("docx: open entry %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("docx: read entry %s: %w", f.Name, err)
		}
		entryOrder = append(entryOrder, f.Name)
		entryMethod[f.Name] = f.Method
		if f.Name == documentXMLPath {
			docXML = content
			continue
		}
		rawEntries[f.Name] = content
	}

	if docXML == nil {
		return nil, errUnsupportedPackage
	}

	paragraphs, err := parseParagraphs(docXML)
	if err != nil {
		return nil, fmt.Errorf("docx: parse document.xml: %w", err)
	}

	return &Document{
		Paragraphs:  paragraphs,
		entryOrder:  entryOrder,
		rawEntries:  rawEntries,
		entryMethod: entryMethod,
		docXMLName:  documentXMLPath,
		docXMLRaw:   docXML,
	}, nil
}

func parseParagraphs(docXML []byte) ([]*Paragraph, error) {
	dec := xml.NewDecoder(bytes.NewReader(docXML))
	var paragraphs []*Paragraph

	w := &walker{dec: dec}
	w.onParagraphEnd = func(p *Paragraph) {
		paragraphs = append(paragraphs, p)
	}
	w.onRunStart = func() {
		// curRun already allocated by the walker; nothing extra to do.
	}
	w.onRunEnd = func(r *Run) {
		if w.curPara != nil {
			w.curPara.Runs = append(w.curPara.Runs, r)
		}
	}
	w.onRunProp = func(se xml.StartElement) {
		if w.curRun != nil {
			applyRunProp(&w.curRun.Formatting, se)
		}
	}
	w.onParaProp = func(se xml.StartElement) {
		if w.curPara != nil {
			applyParaProp(&w.curPara.Props, se)
		}
	}
	w.onText = func(_, _ int, orig string) (string, bool) {
		if w.curRun != nil {
			w.curRun.Text += orig
		}
		return orig, false
	}

	if err := w.run(); err != nil {
		return nil, err
	}
	return paragraphs, nil
}
