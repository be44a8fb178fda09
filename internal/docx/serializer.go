package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
)

// Serialize emits the mutated Document back to DOCX bytes. Every other ZIP
// entry is copied verbatim, in its original order. word/document.xml is
// produced by replaying the original XML token stream: <w:t> character
// data of paragraphs still in the Document is written from the current run
// text, <w:p> elements of paragraphs removed from the Document are dropped,
// and overridden paragraph style values are written in place of the
// original ones.
func Serialize(doc *Document) ([]byte, error) {
	newDocXML, err := rewriteParagraphs(doc)
	if err != nil {
		return nil, fmt.Errorf("docx: rewrite document.xml: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, name := range doc.entryOrder {
		method := doc.entryMethod[name]
		var content []byte
		if name == doc.docXMLName {
			content = newDocXML
		} else {
			content = doc.rawEntries[name]
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		if err != nil {
			return nil, fmt.Errorf("docx: create entry %s: %w", name, err)
		}
		if _, err := w.Write(content); err != nil {
			return nil, fmt.Errorf("docx: write entry %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("docx: close package: %w", err)
	}
	return buf.Bytes(), nil
}

func rewriteParagraphs(doc *Document) ([]byte, error) {
	var out bytes.Buffer
	dec := xml.NewDecoder(bytes.NewReader(doc.docXMLRaw))
	enc := xml.NewEncoder(&out)

	// doc.Paragraphs may have had entries physically removed (the filter's
	// orphan-initial rule) and no longer lines up positionally with the
	// raw XML's paragraph ordinals, so paragraphs are looked up by their
	// stable Index rather than by slice position. An ordinal with no
	// entry in this map was removed and its <w:p> element is dropped
	// from the rewritten XML entirely, not just left with stale text.
	byIndex := make(map[int]*Paragraph, len(doc.Paragraphs))
	for _, p := range doc.Paragraphs {
		byIndex[p.Index] = p
	}

	written := make(map[[2]int]bool)
	w := &walker{dec: dec, enc: enc}
	w.shouldDropParagraph = func(paraIdx int) bool {
		_, ok := byIndex[paraIdx]
		return !ok
	}
	w.onParaStyleVal = func(paraIdx int) (string, bool) {
		p, ok := byIndex[paraIdx]
		if !ok {
			return "", false
		}
		newVal, ok := doc.StyleOverrides[p.Index]
		return newVal, ok
	}
	w.onText = func(paraIdx, runIdx int, orig string) (string, bool) {
		p, ok := byIndex[paraIdx]
		if !ok {
			return orig, false
		}
		if runIdx < 0 || runIdx >= len(p.Runs) {
			return orig, false
		}
		// Within a single run, <w:t> normally appears once; if a run's
		// text was split across multiple text nodes at load time, the
		// first node carries the full mutated text and the rest are
		// blanked so content is not duplicated.
		key := [2]int{paraIdx, runIdx}
		if written[key] {
			return "", true
		}
		written[key] = true
		return p.Runs[runIdx].Text, true
	}

	if err := w.run(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
