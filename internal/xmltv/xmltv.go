// Package xmltv encodes Teamarr's Programme stream into a valid XMLTV
// document and consolidates the per-group fragments the EPG generators
// produce into one final output file. Grounded on
// internal/tuner/xmltv.go's encoding/xml token-level writer, DOCTYPE
// emission, and UTC " +0000" timestamp format, generalized from "remap one
// upstream feed" to "encode our own Programme stream and merge N
// fragments," and on original_source/epg/xmltv_generator.py for element
// order and flag semantics.
package xmltv

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/teamarr/teamarr/internal/core"
)

const xmltvTimeLayout = "20060102150405 -0700"

// doctype is emitted verbatim after the XML declaration: the required
// `<!DOCTYPE tv SYSTEM "xmltv.dtd">`.
const doctype = `<!DOCTYPE tv SYSTEM "xmltv.dtd">` + "\n"

// Channel is one XMLTV <channel> element: a guide channel with a display
// name and optional logo.
type Channel struct {
	ID          string
	DisplayName string
	IconURL     string
}

// Document is the full decoded/encoded shape of one XMLTV file: all
// channels first, then all programmes, matching the XMLTV-valid element
// order (no interleaving).
type Document struct {
	GeneratorName string
	Channels      []Channel
	Programmes    []core.Programme
}

// wire types carry the actual encoding/xml struct tags; Document/Channel/
// core.Programme stay free of XML tags so the rest of the pipeline doesn't
// carry a serialization concern.
type xmlDoc struct {
	XMLName       xml.Name        `xml:"tv"`
	GeneratorName string          `xml:"generator-info-name,attr,omitempty"`
	Channels      []xmlChannel    `xml:"channel"`
	Programmes    []xmlProgramme  `xml:"programme"`
}

type xmlChannel struct {
	ID          string    `xml:"id,attr"`
	DisplayName string    `xml:"display-name"`
	Icon        *xmlIcon  `xml:"icon,omitempty"`
}

type xmlIcon struct {
	Src string `xml:"src,attr"`
}

type xmlProgramme struct {
	Start       string        `xml:"start,attr"`
	Stop        string        `xml:"stop,attr"`
	Channel     string        `xml:"channel,attr"`
	Title       xmlLangText   `xml:"title"`
	SubTitle    *xmlLangText  `xml:"sub-title,omitempty"`
	Desc        *xmlLangText  `xml:"desc,omitempty"`
	Categories  []xmlLangText `xml:"category,omitempty"`
	EpisodeNum  *xmlEpisodeNum `xml:"episode-num,omitempty"`
	Icon        *xmlIcon      `xml:"icon,omitempty"`
	New         *struct{}     `xml:"new,omitempty"`
	Live        *struct{}     `xml:"live,omitempty"`
}

type xmlLangText struct {
	Lang string `xml:"lang,attr,omitempty"`
	Text string `xml:",chardata"`
}

type xmlEpisodeNum struct {
	System string `xml:"system,attr"`
	Text   string `xml:",chardata"`
}

// Encode writes a complete XMLTV document: declaration, DOCTYPE, all
// channels, then all programmes, in that order with no interleaving.
// Times are always serialized in UTC as "YYYYMMDDHHMMSS +0000".
func Encode(w io.Writer, doc Document) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if _, err := io.WriteString(w, doctype); err != nil {
		return err
	}

	out := xmlDoc{GeneratorName: doc.GeneratorName}
	for _, c := range doc.Channels {
		wc := xmlChannel{ID: c.ID, DisplayName: c.DisplayName}
		if c.IconURL != "" {
			wc.Icon = &xmlIcon{Src: c.IconURL}
		}
		out.Channels = append(out.Channels, wc)
	}
	for _, p := range doc.Programmes {
		out.Programmes = append(out.Programmes, toXMLProgramme(p))
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("xmltv: encode: %w", err)
	}
	return enc.Flush()
}

func toXMLProgramme(p core.Programme) xmlProgramme {
	wp := xmlProgramme{
		Start:   p.Start.UTC().Format(xmltvTimeLayout),
		Stop:    p.Stop.UTC().Format(xmltvTimeLayout),
		Channel: p.ChannelID,
		Title:   xmlLangText{Lang: "en", Text: p.Title},
	}
	if p.Subtitle != "" {
		wp.SubTitle = &xmlLangText{Lang: "en", Text: p.Subtitle}
	}
	if p.Description != "" {
		wp.Desc = &xmlLangText{Lang: "en", Text: p.Description}
	}
	for _, cat := range p.Category {
		if cat == "" {
			continue
		}
		wp.Categories = append(wp.Categories, xmlLangText{Lang: "en", Text: cat})
	}
	if p.EpisodeNum != "" {
		wp.EpisodeNum = &xmlEpisodeNum{System: "onscreen", Text: p.EpisodeNum}
	}
	if p.Icon != "" {
		wp.Icon = &xmlIcon{Src: p.Icon}
	}
	if p.New {
		wp.New = &struct{}{}
	}
	if p.Live {
		wp.Live = &struct{}{}
	}
	return wp
}

// Parse decodes an XMLTV document back into channels and programmes. Used
// for round-trip testing and by the consolidator to merge fragments.
func Parse(r io.Reader) (Document, error) {
	var parsed xmlDoc
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&parsed); err != nil {
		return Document{}, fmt.Errorf("xmltv: parse: %w", err)
	}

	doc := Document{GeneratorName: parsed.GeneratorName}
	for _, c := range parsed.Channels {
		ch := Channel{ID: c.ID, DisplayName: c.DisplayName}
		if c.Icon != nil {
			ch.IconURL = c.Icon.Src
		}
		doc.Channels = append(doc.Channels, ch)
	}
	for _, p := range parsed.Programmes {
		prog, err := fromXMLProgramme(p)
		if err != nil {
			return Document{}, err
		}
		doc.Programmes = append(doc.Programmes, prog)
	}
	return doc, nil
}

func fromXMLProgramme(p xmlProgramme) (core.Programme, error) {
	start, err := time.Parse(xmltvTimeLayout, p.Start)
	if err != nil {
		return core.Programme{}, fmt.Errorf("xmltv: parse start %q: %w", p.Start, err)
	}
	stop, err := time.Parse(xmltvTimeLayout, p.Stop)
	if err != nil {
		return core.Programme{}, fmt.Errorf("xmltv: parse stop %q: %w", p.Stop, err)
	}
	prog := core.Programme{
		ChannelID: p.Channel,
		Title:     p.Title.Text,
		Start:     start.UTC(),
		Stop:      stop.UTC(),
		New:       p.New != nil,
		Live:      p.Live != nil,
	}
	if p.SubTitle != nil {
		prog.Subtitle = p.SubTitle.Text
	}
	if p.Desc != nil {
		prog.Description = p.Desc.Text
	}
	for _, cat := range p.Categories {
		prog.Category = append(prog.Category, cat.Text)
	}
	if p.EpisodeNum != nil {
		prog.EpisodeNum = p.EpisodeNum.Text
	}
	if p.Icon != nil {
		prog.Icon = p.Icon.Src
	}
	return prog, nil
}
