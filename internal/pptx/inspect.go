package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

// SlideData holds extracted text and structure for a slide.
type SlideData struct {
	SlideNumber        int      `json:"slide_number"`
	Text               string   `json:"text"`
	Shapes             []Shape  `json:"shapes"`
	Notes              []string `json:"notes,omitempty"`
	BackgroundImage    string   `json:"background_image,omitempty"`
	BackgroundColor    string   `json:"background_color,omitempty"`
	Links              []string `json:"links,omitempty"`
	relationshipTarget map[string]string
}

type Shape struct {
	Runs []TextRun `json:"runs"`
}

type TextRun struct {
	Text   string `json:"text"`
	Bold   bool   `json:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty"`
	Size   int    `json:"size,omitempty"` // pt
	Font   string `json:"font,omitempty"`
	Color  string `json:"color,omitempty"`
	Link   string `json:"link,omitempty"`
}

// Deck is the inspected content of a PPTX package.
type Deck struct {
	Title   string      `json:"title,omitempty"`
	Subject string      `json:"subject,omitempty"`
	Width   int64       `json:"width"`
	Height  int64       `json:"height"`
	Slides  []SlideData `json:"slides"`
}

// Inspect reads a PPTX file from disk.
func Inspect(pptxPath string) (*Deck, error) {
	r, err := zip.OpenReader(pptxPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return inspect(&r.Reader)
}

func InspectBytes(data []byte) (*Deck, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return inspect(r)
}

func inspect(r *zip.Reader) (*Deck, error) {
	files := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		files[f.Name] = f
	}

	deck := &Deck{}
	if f, ok := files["ppt/presentation.xml"]; ok {
		if err := withFile(f, func(rc io.Reader) error { return parsePresentationSize(rc, deck) }); err != nil {
			return nil, fmt.Errorf("presentation.xml: %w", err)
		}
	} else {
		return nil, fmt.Errorf("not a presentation: ppt/presentation.xml missing")
	}
	if f, ok := files["docProps/core.xml"]; ok {
		_ = withFile(f, func(rc io.Reader) error {
			deck.Title = firstElementText(rc, "title")
			return nil
		})
		_ = withFile(f, func(rc io.Reader) error {
			deck.Subject = firstElementText(rc, "subject")
			return nil
		})
	}

	for name, f := range files {
		// Proper check for slide files: ppt/slides/slideN.xml
		if !strings.HasPrefix(name, "ppt/slides/slide") || !strings.HasSuffix(name, ".xml") {
			continue
		}
		numStr := strings.TrimSuffix(strings.TrimPrefix(path.Base(name), "slide"), ".xml")
		slideNum, err := strconv.Atoi(numStr)
		if err != nil {
			continue
		}

		data := SlideData{SlideNumber: slideNum}
		if rf, ok := files[fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", slideNum)]; ok {
			_ = withFile(rf, func(rc io.Reader) error {
				data.relationshipTarget = parseRelationships(rc)
				return nil
			})
		}
		if err := withFile(f, func(rc io.Reader) error { return parseSlideXML(rc, &data) }); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if nf, ok := files[fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", slideNum)]; ok {
			_ = withFile(nf, func(rc io.Reader) error {
				data.Notes = parseNotes(rc)
				return nil
			})
		}
		data.relationshipTarget = nil
		deck.Slides = append(deck.Slides, data)
	}

	sort.Slice(deck.Slides, func(i, j int) bool { return deck.Slides[i].SlideNumber < deck.Slides[j].SlideNumber })
	return deck, nil
}

func withFile(f *zip.File, fn func(io.Reader) error) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return fn(rc)
}

func parsePresentationSize(r io.Reader, deck *Deck) error {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if el, ok := tok.(xml.StartElement); ok && el.Name.Local == "sldSz" {
			for _, a := range el.Attr {
				switch a.Name.Local {
				case "cx":
					deck.Width, _ = strconv.ParseInt(a.Value, 10, 64)
				case "cy":
					deck.Height, _ = strconv.ParseInt(a.Value, 10, 64)
				}
			}
			return nil
		}
	}
}

func firstElementText(r io.Reader, local string) string {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		if el, ok := tok.(xml.StartElement); ok && el.Name.Local == local {
			var t string
			if err := dec.DecodeElement(&t, &el); err == nil {
				return t
			}
			return ""
		}
	}
}

// parseRelationships maps relationship ids to their targets.
func parseRelationships(r io.Reader) map[string]string {
	out := make(map[string]string)
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		if el, ok := tok.(xml.StartElement); ok && el.Name.Local == "Relationship" {
			var id, target string
			for _, a := range el.Attr {
				switch a.Name.Local {
				case "Id":
					id = a.Value
				case "Target":
					target = a.Value
				}
			}
			if id != "" {
				out[id] = target
			}
		}
	}
}

// parseNotes returns the non-empty paragraphs of the notes body.
func parseNotes(r io.Reader) []string {
	var notes []string
	dec := xml.NewDecoder(r)
	var para strings.Builder
	inPara := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return notes
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "p":
				inPara = true
				para.Reset()
			case "t":
				var t string
				if err := dec.DecodeElement(&t, &el); err == nil && inPara {
					para.WriteString(t)
				}
			}
		case xml.EndElement:
			if el.Name.Local == "p" {
				if s := strings.TrimSpace(para.String()); s != "" {
					notes = append(notes, s)
				}
				inPara = false
			}
		}
	}
}

func parseSlideXML(r io.Reader, data *SlideData) error {
	dec := xml.NewDecoder(r)
	var textBuilder strings.Builder

	var currentShape *Shape
	var currentRun *TextRun
	inBackground := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		switch el := tok.(type) {

		case xml.StartElement:
			switch el.Name.Local {

			case "bg":
				inBackground = true

			case "blip":
				if inBackground {
					if id := attr(el, "embed"); id != "" {
						data.BackgroundImage = path.Base(data.relationshipTarget[id])
					}
				}

			case "sp": // shape
				currentShape = &Shape{}

			case "r": // text run
				currentRun = &TextRun{}

			case "rPr": // run formatting
				if currentRun != nil {
					for _, a := range el.Attr {
						switch a.Name.Local {
						case "b":
							currentRun.Bold = a.Value == "1"
						case "i":
							currentRun.Italic = a.Value == "1"
						case "sz":
							if sz, err := strconv.Atoi(a.Value); err == nil {
								currentRun.Size = sz / 100 // 1/100 pt
							}
						}
					}
				}

			case "latin": // font family
				if currentRun != nil {
					currentRun.Font = attr(el, "typeface")
				}

			case "srgbClr": // color
				switch {
				case inBackground:
					data.BackgroundColor = "#" + attr(el, "val")
				case currentRun != nil && currentRun.Color == "":
					currentRun.Color = "#" + attr(el, "val")
				}

			case "hlinkClick":
				if currentRun != nil {
					currentRun.Link = data.relationshipTarget[attr(el, "id")]
				}

			case "t": // actual text
				if currentRun != nil {
					var text string
					if err := dec.DecodeElement(&text, &el); err == nil {
						currentRun.Text = text
					}
				}
			}

		case xml.EndElement:
			switch el.Name.Local {

			case "bg":
				inBackground = false

			case "r":
				if currentShape != nil && currentRun != nil && currentRun.Text != "" {
					currentShape.Runs = append(currentShape.Runs, *currentRun)
					textBuilder.WriteString(currentRun.Text)
					textBuilder.WriteString(" ")
					if currentRun.Link != "" {
						data.Links = append(data.Links, currentRun.Link)
					}
				}
				currentRun = nil

			case "sp":
				if currentShape != nil && len(currentShape.Runs) > 0 {
					data.Shapes = append(data.Shapes, *currentShape)
				}
				currentShape = nil
			}
		}
	}

	data.Text = strings.TrimSpace(textBuilder.String())
	return nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
