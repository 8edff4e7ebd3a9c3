// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aperturehq/aperture/pkg/errors"
)

func TestMessageContent_StringWire(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Text("hello"))
	require.NoError(t, err)
	assert.JSONEq(t, `"hello"`, string(data))

	var c MessageContent
	require.NoError(t, json.Unmarshal([]byte(`"hi there"`), &c))
	assert.False(t, c.IsBlocks())
	assert.Equal(t, "hi there", c.Text)
	assert.Equal(t, "hi there", c.PlainText())
}

func TestMessageContent_BlockWire(t *testing.T) {
	t.Parallel()

	in := `[
		{"type":"text","text":"look at this"},
		{"type":"image","mimeType":"image/png","data":"aGVsbG8=","filename":"shot.png"},
		{"type":"tool_result","toolUseId":"tu-1","content":{"ok":true}}
	]`
	var c MessageContent
	require.NoError(t, json.Unmarshal([]byte(in), &c))
	require.True(t, c.IsBlocks())
	require.Len(t, c.Blocks, 3)
	assert.Equal(t, BlockTypeText, c.Blocks[0].Type)
	assert.Equal(t, "image/png", c.Blocks[1].MimeType)
	assert.Equal(t, "shot.png", c.Blocks[1].Filename)
	assert.Equal(t, "tu-1", c.Blocks[2].ToolUseID)
	assert.Equal(t, "look at this", c.PlainText())

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestMessageContent_RejectsOtherShapes(t *testing.T) {
	t.Parallel()

	var c MessageContent
	err := json.Unmarshal([]byte(`42`), &c)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err), "numbers are neither wire shape")

	require.NoError(t, json.Unmarshal([]byte(`null`), &c))
	assert.Empty(t, c.Text)
	assert.Nil(t, c.Blocks)
}

func TestValidateUserContent_ImageCount(t *testing.T) {
	t.Parallel()

	blocks := make([]ContentBlock, 0, MaxImagesPerMessage+1)
	for i := 0; i <= MaxImagesPerMessage; i++ {
		blocks = append(blocks, ContentBlock{Type: BlockTypeImage, MimeType: "image/png", Data: "aGVsbG8="})
	}

	err := ValidateUserContent(Blocks(blocks...))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "at most 5 image attachments")

	require.NoError(t, ValidateUserContent(Blocks(blocks[:MaxImagesPerMessage]...)))
}

func TestValidateUserContent_ImageSize(t *testing.T) {
	t.Parallel()

	// Unpadded base64 whose decoded size lands just over the limit.
	oversized := strings.Repeat("A", 4*(MaxImageBytes/3+1))
	err := ValidateUserContent(Blocks(ContentBlock{
		Type: BlockTypeImage, MimeType: "image/jpeg", Data: oversized,
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestValidateUserContent_MimeTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mime string
		ok   bool
	}{
		{"image/png", true},
		{"png", true},
		{"IMAGE/JPEG", true},
		{"webp", true},
		{"image/tiff", false},
		{"application/pdf", false},
		{"", false},
	}
	for _, tc := range tests {
		err := ValidateUserContent(Blocks(ContentBlock{
			Type: BlockTypeImage, MimeType: tc.mime, Data: "aGVsbG8=",
		}))
		if tc.ok {
			assert.NoError(t, err, "mime %q should be accepted", tc.mime)
		} else {
			assert.Error(t, err, "mime %q should be rejected", tc.mime)
		}
	}
}

func TestValidateUserContent_IgnoresNonImageBlocks(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateUserContent(Text("plain text")))
	require.NoError(t, ValidateUserContent(Blocks(
		ContentBlock{Type: BlockTypeText, Text: "hi"},
		ContentBlock{Type: BlockTypeToolResult, ToolUseID: "tu-1", Content: json.RawMessage(`"done"`)},
	)))
}

func TestBase64DecodedLen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		data string
		want int
	}{
		{"", 0},
		{"aGVsbG8=", 5},     // "hello"
		{"aGVsbG8h", 6},     // "hello!"
		{"aGVsbG9vbw==", 7}, // "hellooo"
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, base64DecodedLen(tc.data), "data %q", tc.data)
	}
}
