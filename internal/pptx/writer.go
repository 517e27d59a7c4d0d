package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Widescreen 13.333in x 7.5in.
const (
	EMUPerInch  = 914400
	EMUPerPoint = 12700
	SlideWidth  = 12192000
	SlideHeight = 6858000
)

const (
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsP   = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsRel = "http://schemas.openxmlformats.org/package/2006/relationships"

	relSlide        = nsR + "/slide"
	relSlideLayout  = nsR + "/slideLayout"
	relSlideMaster  = nsR + "/slideMaster"
	relNotesMaster  = nsR + "/notesMaster"
	relNotesSlide   = nsR + "/notesSlide"
	relTheme        = nsR + "/theme"
	relImage        = nsR + "/image"
	relHyperlink    = nsR + "/hyperlink"
	relPresProps    = nsR + "/presProps"
	relViewProps    = nsR + "/viewProps"
	relTableStyles  = nsR + "/tableStyles"
	relOfficeDoc    = nsR + "/officeDocument"
	relExtendedProp = nsR + "/extended-properties"
	relCoreProps    = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"

	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
)

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/bmp":  "bmp",
}

var ErrUnsupportedImage = errors.New("unsupported image type")

// Inch converts inches to EMU.
func Inch(in float64) int64 {
	return int64(in*EMUPerInch + 0.5)
}

// Presentation accumulates slides in memory and serializes them as a PPTX
// package on Write.
type Presentation struct {
	Title   string
	Subject string
	Author  string
	Created time.Time

	slides []*Slide
	media  []mediaPart
}

type mediaPart struct {
	name        string
	ext         string
	contentType string
	data        []byte
}

func New(title string) *Presentation {
	return &Presentation{Title: title, Author: "LessonForge", Created: time.Now().UTC()}
}

func (p *Presentation) NumSlides() int { return len(p.slides) }

func (p *Presentation) AddSlide() *Slide {
	s := &Slide{p: p, number: len(p.slides) + 1}
	p.slides = append(p.slides, s)
	return s
}

func (p *Presentation) addMedia(data []byte, contentType string) (string, error) {
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}
	name := fmt.Sprintf("image%d.%s", len(p.media)+1, ext)
	p.media = append(p.media, mediaPart{name: name, ext: ext, contentType: contentType, data: data})
	return name, nil
}

// Box is a position and size in EMU.
type Box struct {
	X, Y, W, H int64
}

// Run is a span of uniformly formatted text. Size is in points; Color is a
// hex RGB value without '#'.
type Run struct {
	Text   string
	Size   float64
	Bold   bool
	Italic bool
	Color  string
	Font   string
	Link   string
	Shadow bool
}

type Paragraph struct {
	Runs        []Run
	Bullet      bool
	SpaceBefore float64
	Align       string
}

type TextBox struct {
	Box
	Paragraphs []Paragraph
	Anchor     string
}

// Rect is a filled rectangle. Alpha is the fill opacity in percent; zero
// means opaque.
type Rect struct {
	Box
	Fill      string
	Alpha     int
	Line      string
	LineWidth float64
}

type Slide struct {
	p      *Presentation
	number int

	bgColor string
	bgMedia string
	shapes  []string
	notes   string
	rels    []relationship
}

type relationship struct {
	id, typ, target string
	external        bool
}

func (s *Slide) Number() int { return s.number }

func (s *Slide) addRel(typ, target string, external bool) string {
	// rId1 is the layout; rId2 is reserved for the notes slide.
	id := fmt.Sprintf("rId%d", len(s.rels)+3)
	s.rels = append(s.rels, relationship{id: id, typ: typ, target: target, external: external})
	return id
}

func (s *Slide) SetBackgroundColor(hex string) {
	s.bgColor = hex
}

// SetBackgroundImage stretches the image over the whole slide.
func (s *Slide) SetBackgroundImage(data []byte, contentType string) error {
	name, err := s.p.addMedia(data, contentType)
	if err != nil {
		return err
	}
	s.bgMedia = s.addRel(relImage, "../media/"+name, false)
	return nil
}

func (s *Slide) AddNotes(text string) {
	s.notes = text
}

func (s *Slide) nextShapeID() int {
	return len(s.shapes) + 2
}

func (s *Slide) AddRect(r Rect) {
	id := s.nextShapeID()
	var b strings.Builder
	fmt.Fprintf(&b, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Rectangle %d"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>`, id, id-1)
	b.WriteString(`<p:spPr>`)
	writeXfrm(&b, r.Box)
	b.WriteString(`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom>`)
	writeFill(&b, r.Fill, r.Alpha)
	if r.Line != "" {
		w := r.LineWidth
		if w <= 0 {
			w = 1
		}
		fmt.Fprintf(&b, `<a:ln w="%d"><a:solidFill><a:srgbClr val="%s"/></a:solidFill></a:ln>`, int64(w*EMUPerPoint), r.Line)
	} else {
		b.WriteString(`<a:ln><a:noFill/></a:ln>`)
	}
	b.WriteString(`</p:spPr></p:sp>`)
	s.shapes = append(s.shapes, b.String())
}

func (s *Slide) AddText(t TextBox) {
	id := s.nextShapeID()
	anchor := t.Anchor
	if anchor == "" {
		anchor = "t"
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="Text %d"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`, id, id-1)
	b.WriteString(`<p:spPr>`)
	writeXfrm(&b, t.Box)
	b.WriteString(`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr>`)
	fmt.Fprintf(&b, `<p:txBody><a:bodyPr wrap="square" lIns="91440" tIns="45720" rIns="91440" bIns="45720" rtlCol="0" anchor="%s"><a:normAutofit/></a:bodyPr><a:lstStyle/>`, anchor)
	for _, para := range t.Paragraphs {
		s.writeParagraph(&b, para)
	}
	if len(t.Paragraphs) == 0 {
		b.WriteString(`<a:p><a:endParaRPr lang="en-US" dirty="0"/></a:p>`)
	}
	b.WriteString(`</p:txBody></p:sp>`)
	s.shapes = append(s.shapes, b.String())
}

func (s *Slide) writeParagraph(b *strings.Builder, para Paragraph) {
	b.WriteString(`<a:p><a:pPr`)
	if para.Bullet {
		b.WriteString(` marL="342900" indent="-342900"`)
	} else {
		b.WriteString(` marL="0" indent="0"`)
	}
	if para.Align != "" {
		fmt.Fprintf(b, ` algn="%s"`, para.Align)
	}
	b.WriteString(`>`)
	if para.SpaceBefore > 0 {
		fmt.Fprintf(b, `<a:spcBef><a:spcPts val="%d"/></a:spcBef>`, int(para.SpaceBefore*100))
	}
	if para.Bullet {
		b.WriteString(`<a:buFont typeface="Arial"/><a:buChar char="&#8226;"/>`)
	} else {
		b.WriteString(`<a:buNone/>`)
	}
	b.WriteString(`</a:pPr>`)
	for _, r := range para.Runs {
		s.writeRun(b, r)
	}
	b.WriteString(`</a:p>`)
}

func (s *Slide) writeRun(b *strings.Builder, r Run) {
	b.WriteString(`<a:r><a:rPr lang="en-US"`)
	if r.Size > 0 {
		fmt.Fprintf(b, ` sz="%d"`, int(r.Size*100))
	}
	if r.Bold {
		b.WriteString(` b="1"`)
	}
	if r.Italic {
		b.WriteString(` i="1"`)
	}
	b.WriteString(` dirty="0">`)
	if r.Color != "" {
		fmt.Fprintf(b, `<a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, r.Color)
	}
	if r.Shadow {
		b.WriteString(`<a:effectLst><a:outerShdw blurRad="38100" dist="25400" dir="2700000" algn="tl" rotWithShape="0"><a:srgbClr val="000000"><a:alpha val="60000"/></a:srgbClr></a:outerShdw></a:effectLst>`)
	}
	if r.Font != "" {
		fmt.Fprintf(b, `<a:latin typeface="%s"/><a:cs typeface="%s"/>`, escape(r.Font), escape(r.Font))
	}
	if r.Link != "" {
		id := s.addRel(relHyperlink, r.Link, true)
		fmt.Fprintf(b, `<a:hlinkClick r:id="%s"/>`, id)
	}
	b.WriteString(`</a:rPr><a:t>`)
	b.WriteString(escape(r.Text))
	b.WriteString(`</a:t></a:r>`)
}

func writeXfrm(b *strings.Builder, box Box) {
	fmt.Fprintf(b, `<a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`, box.X, box.Y, box.W, box.H)
}

func writeFill(b *strings.Builder, color string, alpha int) {
	if color == "" {
		b.WriteString(`<a:noFill/>`)
		return
	}
	if alpha > 0 && alpha < 100 {
		fmt.Fprintf(b, `<a:solidFill><a:srgbClr val="%s"><a:alpha val="%d"/></a:srgbClr></a:solidFill>`, color, alpha*1000)
		return
	}
	fmt.Fprintf(b, `<a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, color)
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// Bytes serializes the presentation.
func (p *Presentation) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *Presentation) Write(w io.Writer) error {
	if len(p.slides) == 0 {
		return errors.New("presentation has no slides")
	}

	slideXML := make([]string, len(p.slides))
	for i, s := range p.slides {
		slideXML[i] = s.xml()
	}

	zw := zip.NewWriter(w)
	parts := []struct {
		name, body string
	}{
		{"[Content_Types].xml", p.contentTypes()},
		{"_rels/.rels", rels([]relationship{
			{id: "rId1", typ: relOfficeDoc, target: "ppt/presentation.xml"},
			{id: "rId2", typ: relCoreProps, target: "docProps/core.xml"},
			{id: "rId3", typ: relExtendedProp, target: "docProps/app.xml"},
		})},
		{"docProps/core.xml", p.coreProps()},
		{"docProps/app.xml", p.appProps()},
		{"ppt/presentation.xml", p.presentationXML()},
		{"ppt/_rels/presentation.xml.rels", p.presentationRels()},
		{"ppt/presProps.xml", xmlHeader + `<p:presentationPr xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `"/>`},
		{"ppt/viewProps.xml", xmlHeader + `<p:viewPr xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `"><p:gridSpacing cx="76200" cy="76200"/></p:viewPr>`},
		{"ppt/tableStyles.xml", xmlHeader + `<a:tblStyleLst xmlns:a="` + nsA + `" def="{5C22544A-7EE6-4342-B048-85BDC9FD1C3A}"/>`},
		{"ppt/slideMasters/slideMaster1.xml", slideMasterXML},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", rels([]relationship{
			{id: "rId1", typ: relSlideLayout, target: "../slideLayouts/slideLayout1.xml"},
			{id: "rId2", typ: relTheme, target: "../theme/theme1.xml"},
		})},
		{"ppt/slideLayouts/slideLayout1.xml", slideLayoutXML},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", rels([]relationship{
			{id: "rId1", typ: relSlideMaster, target: "../slideMasters/slideMaster1.xml"},
		})},
		{"ppt/theme/theme1.xml", themeXML("Office Theme")},
		{"ppt/theme/theme2.xml", themeXML("Notes Theme")},
		{"ppt/notesMasters/notesMaster1.xml", notesMasterXML},
		{"ppt/notesMasters/_rels/notesMaster1.xml.rels", rels([]relationship{
			{id: "rId1", typ: relTheme, target: "../theme/theme2.xml"},
		})},
	}
	for i, s := range p.slides {
		parts = append(parts,
			struct{ name, body string }{fmt.Sprintf("ppt/slides/slide%d.xml", s.number), slideXML[i]},
			struct{ name, body string }{fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", s.number), s.relsXML()},
		)
		if s.notes != "" {
			parts = append(parts,
				struct{ name, body string }{fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", s.number), notesXML(s.notes)},
				struct{ name, body string }{fmt.Sprintf("ppt/notesSlides/_rels/notesSlide%d.xml.rels", s.number), rels([]relationship{
					{id: "rId1", typ: relNotesMaster, target: "../notesMasters/notesMaster1.xml"},
					{id: "rId2", typ: relSlide, target: fmt.Sprintf("../slides/slide%d.xml", s.number)},
				})},
			)
		}
	}

	for _, part := range parts {
		fw, err := zw.Create(part.name)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(fw, part.body); err != nil {
			return err
		}
	}
	for _, m := range p.media {
		// Images are already compressed.
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: "ppt/media/" + m.name, Method: zip.Store})
		if err != nil {
			return err
		}
		if _, err := fw.Write(m.data); err != nil {
			return err
		}
	}
	return zw.Close()
}

func rels(list []relationship) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	fmt.Fprintf(&b, `<Relationships xmlns="%s">`, nsRel)
	for _, r := range list {
		fmt.Fprintf(&b, `<Relationship Id="%s" Type="%s" Target="%s"`, r.id, r.typ, escape(r.target))
		if r.external {
			b.WriteString(` TargetMode="External"`)
		}
		b.WriteString(`/>`)
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

func (p *Presentation) contentTypes() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	seen := map[string]bool{}
	for _, m := range p.media {
		if seen[m.ext] {
			continue
		}
		seen[m.ext] = true
		fmt.Fprintf(&b, `<Default Extension="%s" ContentType="%s"/>`, m.ext, m.contentType)
	}
	const pml = "application/vnd.openxmlformats-officedocument.presentationml."
	overrides := [][2]string{
		{"/ppt/presentation.xml", pml + "presentation.main+xml"},
		{"/ppt/presProps.xml", pml + "presProps+xml"},
		{"/ppt/viewProps.xml", pml + "viewProps+xml"},
		{"/ppt/tableStyles.xml", pml + "tableStyles+xml"},
		{"/ppt/slideMasters/slideMaster1.xml", pml + "slideMaster+xml"},
		{"/ppt/slideLayouts/slideLayout1.xml", pml + "slideLayout+xml"},
		{"/ppt/notesMasters/notesMaster1.xml", pml + "notesMaster+xml"},
		{"/ppt/theme/theme1.xml", "application/vnd.openxmlformats-officedocument.theme+xml"},
		{"/ppt/theme/theme2.xml", "application/vnd.openxmlformats-officedocument.theme+xml"},
		{"/docProps/core.xml", "application/vnd.openxmlformats-package.core-properties+xml"},
		{"/docProps/app.xml", "application/vnd.openxmlformats-officedocument.extended-properties+xml"},
	}
	for _, s := range p.slides {
		overrides = append(overrides, [2]string{fmt.Sprintf("/ppt/slides/slide%d.xml", s.number), pml + "slide+xml"})
		if s.notes != "" {
			overrides = append(overrides, [2]string{fmt.Sprintf("/ppt/notesSlides/notesSlide%d.xml", s.number), pml + "notesSlide+xml"})
		}
	}
	for _, o := range overrides {
		fmt.Fprintf(&b, `<Override PartName="%s" ContentType="%s"/>`, o[0], o[1])
	}
	b.WriteString(`</Types>`)
	return b.String()
}

func (p *Presentation) coreProps() string {
	ts := p.Created.UTC().Format("2006-01-02T15:04:05Z")
	return xmlHeader + `<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:dcmitype="http://purl.org/dc/dcmitype/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">` +
		`<dc:title>` + escape(p.Title) + `</dc:title>` +
		`<dc:subject>` + escape(p.Subject) + `</dc:subject>` +
		`<dc:creator>` + escape(p.Author) + `</dc:creator>` +
		`<cp:lastModifiedBy>` + escape(p.Author) + `</cp:lastModifiedBy>` +
		`<cp:revision>1</cp:revision>` +
		`<dcterms:created xsi:type="dcterms:W3CDTF">` + ts + `</dcterms:created>` +
		`<dcterms:modified xsi:type="dcterms:W3CDTF">` + ts + `</dcterms:modified>` +
		`</cp:coreProperties>`
}

func (p *Presentation) appProps() string {
	notes := 0
	for _, s := range p.slides {
		if s.notes != "" {
			notes++
		}
	}
	return xmlHeader + fmt.Sprintf(`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties" xmlns:vt="http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes">`+
		`<Application>LessonForge</Application><PresentationFormat>Widescreen</PresentationFormat><Slides>%d</Slides><Notes>%d</Notes></Properties>`, len(p.slides), notes)
}

// Presentation relationships: rId1-rId6 are fixed parts, slides follow.
func (p *Presentation) presentationRels() string {
	list := []relationship{
		{id: "rId1", typ: relSlideMaster, target: "slideMasters/slideMaster1.xml"},
		{id: "rId2", typ: relNotesMaster, target: "notesMasters/notesMaster1.xml"},
		{id: "rId3", typ: relPresProps, target: "presProps.xml"},
		{id: "rId4", typ: relViewProps, target: "viewProps.xml"},
		{id: "rId5", typ: relTheme, target: "theme/theme1.xml"},
		{id: "rId6", typ: relTableStyles, target: "tableStyles.xml"},
	}
	for i, s := range p.slides {
		list = append(list, relationship{id: fmt.Sprintf("rId%d", i+7), typ: relSlide, target: fmt.Sprintf("slides/slide%d.xml", s.number)})
	}
	return rels(list)
}

func (p *Presentation) presentationXML() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	fmt.Fprintf(&b, `<p:presentation xmlns:a="%s" xmlns:r="%s" xmlns:p="%s" saveSubsetFonts="1">`, nsA, nsR, nsP)
	b.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	b.WriteString(`<p:notesMasterIdLst><p:notesMasterId r:id="rId2"/></p:notesMasterIdLst>`)
	b.WriteString(`<p:sldIdLst>`)
	for i := range p.slides {
		fmt.Fprintf(&b, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, i+7)
	}
	b.WriteString(`</p:sldIdLst>`)
	fmt.Fprintf(&b, `<p:sldSz cx="%d" cy="%d"/><p:notesSz cx="6858000" cy="9144000"/>`, SlideWidth, SlideHeight)
	b.WriteString(`</p:presentation>`)
	return b.String()
}

func (s *Slide) xml() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	fmt.Fprintf(&b, `<p:sld xmlns:a="%s" xmlns:r="%s" xmlns:p="%s"><p:cSld>`, nsA, nsR, nsP)
	switch {
	case s.bgMedia != "":
		fmt.Fprintf(&b, `<p:bg><p:bgPr><a:blipFill dpi="0" rotWithShape="1"><a:blip r:embed="%s"/><a:srcRect/><a:stretch><a:fillRect/></a:stretch></a:blipFill><a:effectLst/></p:bgPr></p:bg>`, s.bgMedia)
	case s.bgColor != "":
		fmt.Fprintf(&b, `<p:bg><p:bgPr><a:solidFill><a:srgbClr val="%s"/></a:solidFill><a:effectLst/></p:bgPr></p:bg>`, s.bgColor)
	}
	b.WriteString(`<p:spTree>` + groupProps)
	for _, sh := range s.shapes {
		b.WriteString(sh)
	}
	b.WriteString(`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`)
	return b.String()
}

func (s *Slide) relsXML() string {
	list := []relationship{{id: "rId1", typ: relSlideLayout, target: "../slideLayouts/slideLayout1.xml"}}
	if s.notes != "" {
		list = append(list, relationship{id: "rId2", typ: relNotesSlide, target: fmt.Sprintf("../notesSlides/notesSlide%d.xml", s.number)})
	}
	return rels(append(list, s.rels...))
}

func notesXML(notes string) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	fmt.Fprintf(&b, `<p:notes xmlns:a="%s" xmlns:r="%s" xmlns:p="%s"><p:cSld><p:spTree>`, nsA, nsR, nsP)
	b.WriteString(groupProps)
	b.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Slide Image Placeholder 1"/><p:cNvSpPr><a:spLocks noGrp="1" noRot="1" noChangeAspect="1"/></p:cNvSpPr><p:nvPr><p:ph type="sldImg"/></p:nvPr></p:nvSpPr><p:spPr/></p:sp>`)
	b.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Notes Placeholder 2"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/>`)
	for _, line := range strings.Split(notes, "\n") {
		if line == "" {
			b.WriteString(`<a:p><a:endParaRPr lang="en-US" dirty="0"/></a:p>`)
			continue
		}
		b.WriteString(`<a:p><a:r><a:rPr lang="en-US" dirty="0"/><a:t>` + escape(line) + `</a:t></a:r></a:p>`)
	}
	b.WriteString(`</p:txBody></p:sp></p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:notes>`)
	return b.String()
}
