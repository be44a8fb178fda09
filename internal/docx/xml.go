package docx

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

func attr(se xml.StartElement, local string) (string, bool) {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// walker replays word/document.xml, tracking the current paragraph/run
// index exactly the way the loader assigned them. onText is invoked for
// every <w:t> character-data node with the indices it belongs to; its
// return value becomes the text written back out. Parse-only callers (the
// loader) leave enc nil, so nothing is written, and capture structure via
// the onParagraphStart/onParagraphEnd/onRunStart/onRunEnd/onRunProp/
// onParaProp callbacks.
type walker struct {
	dec *xml.Decoder
	enc *xml.Encoder

	paraIdx     int
	runIdx      int
	inRun       bool
	inRPr       bool
	inPPr       bool
	suppressing bool

	curPara *Paragraph
	curRun  *Run

	onParagraphStart func()
	onParagraphEnd   func(p *Paragraph)
	onRunStart       func()
	onRunEnd         func(r *Run)
	onRunProp        func(se xml.StartElement)
	onParaProp       func(se xml.StartElement)
	onText           func(paraIdx, runIdx int, orig string) (string, bool)

	// onParaStyleVal, when set, is consulted for every <w:pStyle> start
	// tag; if it returns ok, the element's w:val attribute is rewritten
	// in place. It never inserts a <w:pStyle> into a paragraph that
	// lacks one: only the value of an existing element is mutated.
	onParaStyleVal func(paraIdx int) (newVal string, ok bool)

	// shouldDropParagraph, when set, is consulted the moment a <w:p>'s
	// start tag is seen; if it returns true, every token belonging to
	// that paragraph (including its own start/end tags) is consumed from
	// the decoder but never written to enc, so the paragraph is removed
	// from the output rather than merely left with unmutated text.
	shouldDropParagraph func(paraIdx int) bool
}

func (w *walker) run() error {
	for {
		tok, err := w.dec.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				w.runIdx = 0
				w.curPara = &Paragraph{Index: w.paraIdx}
				w.suppressing = w.shouldDropParagraph != nil && w.shouldDropParagraph(w.paraIdx)
				if !w.suppressing && w.onParagraphStart != nil {
					w.onParagraphStart()
				}
			case "pPr":
				w.inPPr = true
			case "r":
				w.inRun = true
				w.curRun = &Run{}
				if !w.suppressing && w.onRunStart != nil {
					w.onRunStart()
				}
			case "rPr":
				w.inRPr = true
			default:
				if !w.suppressing {
					if w.inRPr && w.onRunProp != nil {
						w.onRunProp(t)
					} else if w.inPPr && w.onParaProp != nil {
						w.onParaProp(t)
					}
					if t.Name.Local == "pStyle" && w.inPPr && w.onParaStyleVal != nil {
						if newVal, ok := w.onParaStyleVal(w.paraIdx); ok {
							for i := range t.Attr {
								if t.Attr[i].Name.Local == "val" {
									t.Attr[i].Value = newVal
								}
							}
						}
					}
				}
			}
			if w.enc != nil && !w.suppressing {
				if err := w.enc.EncodeToken(t); err != nil {
					return err
				}
			}
		case xml.EndElement:
			wasSuppressing := w.suppressing
			switch t.Name.Local {
			case "p":
				if !wasSuppressing && w.onParagraphEnd != nil {
					w.onParagraphEnd(w.curPara)
				}
				w.paraIdx++
				w.curPara = nil
			case "pPr":
				w.inPPr = false
			case "r":
				if !wasSuppressing && w.onRunEnd != nil {
					w.onRunEnd(w.curRun)
				}
				w.runIdx++
				w.curRun = nil
				w.inRun = false
			case "rPr":
				w.inRPr = false
			}
			if w.enc != nil && !wasSuppressing {
				if err := w.enc.EncodeToken(t); err != nil {
					return err
				}
			}
			if t.Name.Local == "p" {
				w.suppressing = false
			}
		case xml.CharData:
			if w.inRun && !w.inRPr && !w.suppressing && w.onText != nil {
				replacement, changed := w.onText(w.paraIdx, w.runIdx, string(t))
				if changed {
					if w.enc != nil {
						if err := w.enc.EncodeToken(xml.CharData([]byte(replacement))); err != nil {
							return err
						}
					}
					continue
				}
			}
			if w.enc != nil && !w.suppressing {
				if err := w.enc.EncodeToken(t); err != nil {
					return err
				}
			}
		default:
			if w.enc != nil && !w.suppressing {
				if err := w.enc.EncodeToken(t); err != nil {
					return err
				}
			}
		}
	}
	if w.enc != nil {
		return w.enc.Flush()
	}
	return nil
}

func parseIntAttr(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func applyRunProp(f *Formatting, se xml.StartElement) {
	val, _ := attr(se, "val")
	switch se.Name.Local {
	case "b":
		f.Bold = triFromFlag(val)
	case "i":
		f.Italic = triFromFlag(val)
	case "u":
		if val == "none" {
			f.Underline = Unset
		} else {
			f.Underline = Set
		}
	case "strike":
		f.Strike = triFromFlag(val)
	case "dstrike":
		f.DoubleStrike = triFromFlag(val)
	case "caps":
		f.AllCaps = triFromFlag(val)
	case "smallCaps":
		f.SmallCaps = triFromFlag(val)
	case "vertAlign":
		switch val {
		case "subscript":
			f.Subscript = Set
		case "superscript":
			f.Superscript = Set
		}
	case "rFonts":
		if ascii, ok := attr(se, "ascii"); ok {
			f.FontName = ascii
		}
	case "sz":
		f.FontSizeHalfPt = parseIntAttr(val)
	case "color":
		f.ColorHex = val
	case "highlight":
		f.HighlightName = val
	}
}

func triFromFlag(val string) Tri {
	switch val {
	case "0", "false", "off":
		return Unset
	default:
		return Set
	}
}

func applyParaProp(p *ParagraphProperties, se xml.StartElement) {
	switch se.Name.Local {
	case "pStyle":
		val, _ := attr(se, "val")
		p.StyleID = val
		p.StyleName = val
	case "jc":
		val, _ := attr(se, "val")
		p.Alignment = val
	case "ind":
		if v, ok := attr(se, "left"); ok {
			p.IndentLeft = parseIntAttr(v)
		}
		if v, ok := attr(se, "right"); ok {
			p.IndentRight = parseIntAttr(v)
		}
		if v, ok := attr(se, "firstLine"); ok {
			p.IndentFirstLine = parseIntAttr(v)
		}
	case "spacing":
		if v, ok := attr(se, "before"); ok {
			p.SpacingBefore = parseIntAttr(v)
		}
		if v, ok := attr(se, "after"); ok {
			p.SpacingAfter = parseIntAttr(v)
		}
	}
}

var errUnsupportedPackage = fmt.Errorf("docx: word/document.xml not found in package")
