package docx

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

const minimalDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:rPr><w:b/></w:rPr><w:t>Hello</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">world </w:t></w:r><w:r><w:t>two</w:t></w:r></w:p>
<w:p><w:r><w:t></w:t></w:r></w:p>
</w:body>
</w:document>`

func buildPackage(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	write("[Content_Types].xml", `<?xml version="1.0"?><Types/>`)
	write("_rels/.rels", `<?xml version="1.0"?><Relationships/>`)
	write("word/document.xml", documentXML)
	write("word/styles.xml", `<?xml version="1.0"?><w:styles/>`)

	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestLoadParsesParagraphsAndRuns(t *testing.T) {
	pkg := buildPackage(t, minimalDocumentXML)
	doc, err := Load(pkg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Paragraphs) != 3 {
		t.Fatalf("want 3 paragraphs, got %d", len(doc.Paragraphs))
	}

	p0 := doc.Paragraphs[0]
	if p0.Text() != "Hello" {
		t.Errorf("p0 text = %q", p0.Text())
	}
	if p0.Props.StyleID != "Heading1" {
		t.Errorf("p0 style = %q", p0.Props.StyleID)
	}
	if len(p0.Runs) != 1 || p0.Runs[0].Formatting.Bold != Set {
		t.Errorf("p0 run formatting not bold: %+v", p0.Runs)
	}

	p1 := doc.Paragraphs[1]
	if p1.Text() != "world two" {
		t.Errorf("p1 text = %q", p1.Text())
	}
	if len(p1.Runs) != 2 {
		t.Fatalf("p1 want 2 runs, got %d", len(p1.Runs))
	}

	p2 := doc.Paragraphs[2]
	if p2.Text() != "" {
		t.Errorf("p2 text = %q, want empty", p2.Text())
	}
}

func TestLoadRejectsNonZip(t *testing.T) {
	if _, err := Load([]byte("not a zip")); err == nil {
		t.Fatal("expected error for non-zip input")
	}
}

func TestLoadRejectsMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/styles.xml")
	w.Write([]byte("<w:styles/>"))
	zw.Close()

	if _, err := Load(buf.Bytes()); err == nil {
		t.Fatal("expected error for package without word/document.xml")
	}
}

func TestSerializeRoundTripsUnmutatedText(t *testing.T) {
	pkg := buildPackage(t, minimalDocumentXML)
	doc, err := Load(pkg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	out, err := Serialize(doc)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	doc2, err := Load(out)
	if err != nil {
		t.Fatalf("reload serialized package: %v", err)
	}
	if len(doc2.Paragraphs) != len(doc.Paragraphs) {
		t.Fatalf("paragraph count changed: %d vs %d", len(doc2.Paragraphs), len(doc.Paragraphs))
	}
	for i, p := range doc.Paragraphs {
		if doc2.Paragraphs[i].Text() != p.Text() {
			t.Errorf("paragraph %d text changed: %q vs %q", i, doc2.Paragraphs[i].Text(), p.Text())
		}
	}
}

func TestSerializePreservesNonDocumentEntries(t *testing.T) {
	pkg := buildPackage(t, minimalDocumentXML)
	doc, err := Load(pkg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	out, err := Serialize(doc)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("reopen zip: %v", err)
	}
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"[Content_Types].xml", "_rels/.rels", "word/styles.xml", "word/document.xml"} {
		if !names[want] {
			t.Errorf("missing entry %s in serialized package", want)
		}
	}
}

func TestSerializeAppliesMutatedRunText(t *testing.T) {
	pkg := buildPackage(t, minimalDocumentXML)
	doc, err := Load(pkg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	doc.Paragraphs[0].Runs[0].Text = "Bonjour"
	doc.Paragraphs[1].Runs[0].Text = "monde "
	doc.Paragraphs[1].Runs[1].Text = "deux"

	out, err := Serialize(doc)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	doc2, err := Load(out)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if doc2.Paragraphs[0].Text() != "Bonjour" {
		t.Errorf("p0 text = %q", doc2.Paragraphs[0].Text())
	}
	if doc2.Paragraphs[1].Text() != "monde deux" {
		t.Errorf("p1 text = %q", doc2.Paragraphs[1].Text())
	}
	// Formatting on untouched runs must survive the text mutation.
	if doc2.Paragraphs[0].Runs[0].Formatting.Bold != Set {
		t.Errorf("bold formatting lost after text mutation")
	}
	if doc2.Paragraphs[0].Props.StyleID != "Heading1" {
		t.Errorf("paragraph style lost after text mutation")
	}
}

func TestSerializeDropsPhysicallyRemovedParagraphAndKeepsAlignment(t *testing.T) {
	documentXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>First</w:t></w:r></w:p>
<w:p><w:r><w:t>Second</w:t></w:r></w:p>
<w:p><w:r><w:t>Third</w:t></w:r></w:p>
</w:body>
</w:document>`
	pkg := buildPackage(t, documentXML)
	doc, err := Load(pkg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Paragraphs) != 3 {
		t.Fatalf("want 3 paragraphs, got %d", len(doc.Paragraphs))
	}

	// Simulate a filter physically removing the middle paragraph, the way
	// the orphan-initial rule does: the slice shrinks but the survivors'
	// Index fields are left exactly as the loader assigned them (0 and 2,
	// not 0 and 1).
	doc.Paragraphs = []*Paragraph{doc.Paragraphs[0], doc.Paragraphs[2]}

	out, err := Serialize(doc)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	doc2, err := Load(out)
	if err != nil {
		t.Fatalf("reload serialized package: %v", err)
	}
	if len(doc2.Paragraphs) != 2 {
		t.Fatalf("removed paragraph's <w:p> should be dropped from output, got %d paragraphs", len(doc2.Paragraphs))
	}
	if doc2.Paragraphs[0].Text() != "First" {
		t.Errorf("paragraph 0 text = %q, want %q", doc2.Paragraphs[0].Text(), "First")
	}
	if doc2.Paragraphs[1].Text() != "Third" {
		t.Errorf("paragraph 1 text = %q, want %q (got wrong text means alignment shifted)", doc2.Paragraphs[1].Text(), "Third")
	}
}

func TestTextConcatenatesRunsWithoutNormalization(t *testing.T) {
	p := &Paragraph{Runs: []*Run{{Text: "  leading"}, {Text: " and trailing  "}}}
	if got, want := p.Text(), "  leading and trailing  "; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestTriFromBool(t *testing.T) {
	if TriFromBool(true) != Set {
		t.Error("TriFromBool(true) != Set")
	}
	if TriFromBool(false) != Unset {
		t.Error("TriFromBool(false) != Unset")
	}
	if !Set.Bool() || Unset.Bool() || Inherit.Bool() {
		t.Error("Bool() mapping incorrect")
	}
}

func TestSerializeAppliesStyleOverride(t *testing.T) {
	documentXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:pPr><w:pStyle w:val="Normal"/></w:pPr><w:r><w:t>Chapter One</w:t></w:r></w:p>
<w:p><w:r><w:t>no style element here</w:t></w:r></w:p>
</w:body>
</w:document>`
	pkg := buildPackage(t, documentXML)
	doc, err := Load(pkg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	doc.StyleOverrides = map[int]string{0: "Heading2", 1: "Heading2"}

	out, err := Serialize(doc)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	doc2, err := Load(out)
	if err != nil {
		t.Fatalf("reload serialized package: %v", err)
	}
	if doc2.Paragraphs[0].Props.StyleID != "Heading2" {
		t.Errorf("p0 style = %q, want %q", doc2.Paragraphs[0].Props.StyleID, "Heading2")
	}
	// Paragraph 1 never had a <w:pStyle> element, so the override is a
	// no-op: nothing is inserted.
	if doc2.Paragraphs[1].Props.StyleID != "" {
		t.Errorf("p1 style = %q, want empty (override must not insert pStyle)", doc2.Paragraphs[1].Props.StyleID)
	}
	if doc2.Paragraphs[1].Text() != "no style element here" {
		t.Errorf("p1 text = %q, want unchanged", doc2.Paragraphs[1].Text())
	}
}

func TestLoadEmptyDocumentIsLegal(t *testing.T) {
	empty := `<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body></w:body></w:document>`
	pkg := buildPackage(t, empty)
	doc, err := Load(pkg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Paragraphs) != 0 {
		t.Errorf("want 0 paragraphs, got %d", len(doc.Paragraphs))
	}
	out, err := Serialize(doc)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !strings.Contains(string(out), "PK") {
		t.Error("serialized output does not look like a zip")
	}
}
