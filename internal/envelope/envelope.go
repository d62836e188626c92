// SPDX-License-Identifier: GPL-3.0-or-later

// Package envelope implements newline-delimited wire framing: an
// envelope header line, followed by one or more "item-header\npayload"
// frames, each terminated by a newline except the very last payload
// byte of the envelope.
package envelope

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ItemType identifies the kind of payload an [Item] carries.
type ItemType string

const (
	ItemEvent       ItemType = "event"
	ItemTransaction ItemType = "transaction"
	ItemSession     ItemType = "session"
	ItemAttachment  ItemType = "attachment"
	ItemCheckIn     ItemType = "check_in"
)

// Item is a single typed payload to frame into an envelope.
type Item struct {
	Type    ItemType
	Payload []byte

	// Attachment-only fields.
	Filename       string
	ContentType    string
	AttachmentType string
}

// Header is the envelope-level JSON document that precedes every item.
type Header struct {
	EventID    string // omitted when empty (session-only/check-in-only envelopes)
	DSN        string
	SentAt     string // RFC 3339
	SDKName    string
	SDKVersion string
}

type wireSDK struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type wireHeader struct {
	EventID string  `json:"event_id,omitempty"`
	DSN     string  `json:"dsn"`
	SentAt  string  `json:"sent_at"`
	SDK     wireSDK `json:"sdk"`
}

type wireItemHeader struct {
	Type           ItemType `json:"type"`
	Length         int      `json:"length"`
	Filename       string   `json:"filename,omitempty"`
	ContentType    string   `json:"content_type,omitempty"`
	AttachmentType string   `json:"attachment_type,omitempty"`
}

// Encode frames header and items into the wire format. The item-header
// "length" field always equals the UTF-8 byte length of its payload; the
// returned buffer ends exactly at the last payload byte (no trailing
// newline), and every prior frame is newline-terminated.
func Encode(header Header, items []Item) ([]byte, error) {
	if len(items) == 0 {
		return nil, errors.New("envelope: at least one item is required")
	}

	var buf bytes.Buffer

	hj, err := json.Marshal(wireHeader{
		EventID: header.EventID,
		DSN:     header.DSN,
		SentAt:  header.SentAt,
		SDK:     wireSDK{Name: header.SDKName, Version: header.SDKVersion},
	})
	if err != nil {
		return nil, fmt.Errorf("envelope: encode header: %w", err)
	}
	buf.Write(hj)
	buf.WriteByte('\n')

	for i, item := range items {
		ih := wireItemHeader{
			Type:           item.Type,
			Length:         len(item.Payload),
			Filename:       item.Filename,
			ContentType:    item.ContentType,
			AttachmentType: item.AttachmentType,
		}
		ihj, err := json.Marshal(ih)
		if err != nil {
			return nil, fmt.Errorf("envelope: encode item header: %w", err)
		}
		buf.Write(ihj)
		buf.WriteByte('\n')
		buf.Write(item.Payload)
		if i != len(items)-1 {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes(), nil
}

// DecodedItem is a parsed item frame, used by tests and diagnostics to
// verify the byte-exact framing invariant.
type DecodedItem struct {
	Header  wireItemHeader
	Payload []byte
}

// Decode parses an encoded envelope back into its header and item frames.
// It is not used on the hot path (the worker only ever moves opaque
// bytes) but exists so round-trip tests can assert framing invariants
// without re-implementing a parser per test.
func Decode(data []byte) (Header, []DecodedItem, error) {
	r := bufio.NewReaderSize(bytes.NewReader(data), 64*1024)

	headerLine, err := r.ReadString('\n')
	if err != nil {
		return Header{}, nil, fmt.Errorf("envelope: read header: %w", err)
	}
	var wh wireHeader
	if err := json.Unmarshal([]byte(trimNewline(headerLine)), &wh); err != nil {
		return Header{}, nil, fmt.Errorf("envelope: decode header: %w", err)
	}
	header := Header{EventID: wh.EventID, DSN: wh.DSN, SentAt: wh.SentAt, SDKName: wh.SDK.Name, SDKVersion: wh.SDK.Version}

	var items []DecodedItem
	for {
		itemHeaderLine, err := r.ReadString('\n')
		atEOF := err != nil
		line := trimNewline(itemHeaderLine)
		if line == "" && atEOF {
			break
		}
		var ih wireItemHeader
		if jerr := json.Unmarshal([]byte(line), &ih); jerr != nil {
			return header, nil, fmt.Errorf("envelope: decode item header: %w", jerr)
		}
		payload := make([]byte, ih.Length)
		if _, rerr := readFull(r, payload); rerr != nil {
			return header, nil, fmt.Errorf("envelope: read payload: %w", rerr)
		}
		items = append(items, DecodedItem{Header: ih, Payload: payload})

		// Consume the separating newline between this payload and the
		// next item header, if any; its absence signals the final item.
		if _, perr := r.Peek(1); perr != nil {
			break
		}
		if b, berr := r.ReadByte(); berr == nil && b != '\n' {
			if uerr := r.UnreadByte(); uerr != nil {
				return header, nil, uerr
			}
		}
	}
	return header, items, nil
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		return s[:n-1]
	}
	return s
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
