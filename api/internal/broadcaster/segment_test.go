package broadcaster

import (
	"bufio"
	"bytes"
	"io"
	"mime/multipart"
	"testing"

	"camRelay/api/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame(seq uint64, payload string, meta map[string]string) *entity.Frame {
	return &entity.Frame{
		FrameMeta: entity.FrameMeta{Sequence: seq, Metadata: meta},
		Payload:   []byte(payload),
	}
}

func TestWriteSegmentFraming(t *testing.T) {
	var buf bytes.Buffer

	frame := testFrame(1, "JPEG", map[string]string{
		entity.MetaFPS:     "5",
		entity.MetaQuality: "0.7",
		entity.MetaWidth:   "640",
		entity.MetaHeight:  "480",
	})

	require.NoError(t, WriteSegment(&buf, frame))

	expected := "--frameboundary\r\n" +
		"Content-Type: image/jpeg\r\n" +
		"Content-Length: 4\r\n" +
		"X-FPS: 5\r\n" +
		"X-QUALITY: 0.7\r\n" +
		"X-RES: 640x480\r\n" +
		"\r\n" +
		"JPEG\r\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriteSegmentWithoutMetadata(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteSegment(&buf, testFrame(1, "img", map[string]string{entity.MetaWidth: "640"})))

	expected := "--frameboundary\r\n" +
		"Content-Type: image/jpeg\r\n" +
		"Content-Length: 3\r\n" +
		"\r\n" +
		"img\r\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriteSegmentStripsLineBreaks(t *testing.T) {
	var buf bytes.Buffer

	frame := testFrame(1, "img", map[string]string{entity.MetaFPS: "5\r\nX-Injected: 1"})
	require.NoError(t, WriteSegment(&buf, frame))

	seg, err := ReadSegment(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, "5X-Injected: 1", seg.Header.Get(HeaderFPS))
	assert.Empty(t, seg.Header.Get("X-Injected"))
	assert.Equal(t, []byte("img"), seg.Payload)
}

func TestSegmentsParseAsMultipart(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteSegment(&buf, testFrame(1, "first", map[string]string{entity.MetaFPS: "10"})))
	require.NoError(t, WriteSegment(&buf, testFrame(2, "second", nil)))
	buf.WriteString("--" + Boundary + "--\r\n")

	mr := multipart.NewReader(&buf, Boundary)

	var bodies []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", part.Header.Get("Content-Type"))

		body, err := io.ReadAll(part)
		require.NoError(t, err)
		bodies = append(bodies, string(body))
	}

	assert.Equal(t, []string{"first", "second"}, bodies)
}

func TestReadSegmentErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"wrong boundary", "--other\r\nContent-Length: 1\r\n\r\na\r\n"},
		{"missing length", "--frameboundary\r\nContent-Type: image/jpeg\r\n\r\na\r\n"},
		{"short payload", "--frameboundary\r\nContent-Length: 10\r\n\r\nabc"},
		{"missing crlf", "--frameboundary\r\nContent-Length: 1\r\n\r\nabc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSegment(bufio.NewReader(bytes.NewBufferString(tt.input)))
			assert.Error(t, err)
		})
	}
}
