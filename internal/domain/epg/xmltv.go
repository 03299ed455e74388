package epg

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/google/renameio/v2"
	"github.com/retrovue/core/internal/domain/model"
)

// TV is the XMLTV document root.
type TV struct {
	XMLName      xml.Name    `xml:"tv"`
	Generator    string      `xml:"generator-info-name,attr,omitempty"`
	GeneratorURL string      `xml:"generator-info-url,attr,omitempty"`
	Channels     []Channel   `xml:"channel"`
	Programs     []Programme `xml:"programme"`
}

// Channel is an XMLTV channel entry.
type Channel struct {
	ID          string   `xml:"id,attr"`
	DisplayName []string `xml:"display-name"`
}

// Programme is a single XMLTV programme entry, derived from one EPGEvent.
type Programme struct {
	Start   string `xml:"start,attr"`
	Stop    string `xml:"stop,attr"`
	Channel string `xml:"channel,attr"`
	Title   string `xml:"title"`
	Desc    string `xml:"desc,omitempty"`
}

const xmltvTimeLayout = "20060102150405 -0700"

// BuildTV turns a channel's derived events into an XMLTV document.
func BuildTV(channelID, displayName string, events []model.EPGEvent) TV {
	tv := TV{
		Generator:    "retrovue-core",
		GeneratorURL: "https://github.com/retrovue/core",
		Channels:     []Channel{{ID: channelID, DisplayName: []string{displayName}}},
	}
	for _, e := range events {
		tv.Programs = append(tv.Programs, Programme{
			Start:   formatXMLTVTime(e.UTCStartMs),
			Stop:    formatXMLTVTime(e.UTCEndMs),
			Channel: channelID,
			Title:   e.Title,
			Desc:    e.Synopsis,
		})
	}
	return tv
}

func formatXMLTVTime(utcMs int64) string {
	return msToTime(utcMs).Format(xmltvTimeLayout)
}

// WriteXMLTV serializes tv and writes it atomically (temp file + rename via
// renameio) so readers never observe a partially written guide.
func WriteXMLTV(tv TV, outputPath string) error {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<!DOCTYPE tv SYSTEM "xmltv.dtd">` + "\n")

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(tv); err != nil {
		return fmt.Errorf("epg: encode xmltv: %w", err)
	}

	if err := renameio.WriteFile(outputPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("epg: write %s: %w", outputPath, err)
	}
	return nil
}
