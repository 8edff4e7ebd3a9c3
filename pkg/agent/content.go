// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aperturehq/aperture/pkg/errors"
)

// Content block types.
const (
	BlockTypeText       = "text"
	BlockTypeThinking   = "thinking"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
	BlockTypeImage      = "image"
)

// Image attachment limits for user messages.
const (
	MaxImagesPerMessage = 5
	MaxImageBytes       = 10 << 20
)

var allowedImageMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// ContentBlock is one typed element of a block-list message. Which fields
// are populated depends on Type.
type ContentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// thinking
	Thinking string `json:"thinking,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string          `json:"toolUseId,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`

	// image, base64-encoded
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// MessageContent is either a plain string or an ordered list of typed
// blocks. The zero value is the empty string.
type MessageContent struct {
	Text   string
	Blocks []ContentBlock
}

// Text wraps a plain string as message content.
func Text(s string) MessageContent {
	return MessageContent{Text: s}
}

// Blocks wraps a block list as message content.
func Blocks(blocks ...ContentBlock) MessageContent {
	return MessageContent{Blocks: blocks}
}

// IsBlocks reports whether the content is a block list.
func (c MessageContent) IsBlocks() bool { return c.Blocks != nil }

// PlainText flattens the content to a single string, joining text blocks
// with newlines and ignoring non-text blocks.
func (c MessageContent) PlainText() string {
	if c.Blocks == nil {
		return c.Text
	}
	var parts []string
	for _, b := range c.Blocks {
		if b.Type == BlockTypeText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// MarshalJSON encodes block lists as arrays and plain text as a string.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Blocks != nil {
		return json.Marshal(c.Blocks)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts either wire shape.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	switch {
	case len(trimmed) == 0:
		return errors.NewValidationError("content must not be empty", nil)
	case trimmed[0] == '"':
		c.Blocks = nil
		return json.Unmarshal(data, &c.Text)
	case trimmed[0] == '[':
		c.Text = ""
		return json.Unmarshal(data, &c.Blocks)
	case bytes.Equal(trimmed, []byte("null")):
		*c = MessageContent{}
		return nil
	default:
		return errors.NewValidationError("content must be a string or a list of content blocks", nil)
	}
}

// ValidateUserContent enforces the attachment limits on a user message:
// at most MaxImagesPerMessage images, each at most MaxImageBytes decoded,
// with an allowed mime type. Plain text always passes.
func ValidateUserContent(c MessageContent) error {
	if c.Blocks == nil {
		return nil
	}
	images := 0
	for i, b := range c.Blocks {
		if b.Type != BlockTypeImage {
			continue
		}
		images++
		if images > MaxImagesPerMessage {
			return errors.NewValidationError(
				fmt.Sprintf("a message carries at most %d image attachments", MaxImagesPerMessage), nil)
		}
		mime := normalizeImageMime(b.MimeType)
		if _, ok := allowedImageMimeTypes[mime]; !ok {
			return errors.NewValidationError(
				fmt.Sprintf("image block %d has unsupported mime type %q", i, b.MimeType), nil)
		}
		if size := base64DecodedLen(b.Data); size > MaxImageBytes {
			return errors.NewValidationError(
				fmt.Sprintf("image block %d exceeds the %d byte attachment limit", i, MaxImageBytes), nil)
		}
	}
	return nil
}

// normalizeImageMime accepts both "png" and "image/png" spellings.
func normalizeImageMime(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime != "" && !strings.Contains(mime, "/") {
		mime = "image/" + mime
	}
	return mime
}

// base64DecodedLen computes the decoded size of standard base64 data
// without decoding it.
func base64DecodedLen(data string) int {
	n := len(data)
	if n == 0 {
		return 0
	}
	padding := 0
	for i := n - 1; i >= 0 && data[i] == '='; i-- {
		padding++
	}
	return (n/4)*3 - padding + (n%4*3)/4
}
