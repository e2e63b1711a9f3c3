package broadcaster

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"strings"

	"camRelay/api/internal/entity"
)

const (
	// Boundary separates segments of the /stream response. Image payloads are
	// not escaped, so the token must not occur inside them.
	Boundary = "frameboundary"

	ContentType = "multipart/x-mixed-replace; boundary=" + Boundary

	segmentContentType = "image/jpeg"
)

// Per-frame diagnostic headers.
const (
	HeaderFPS     = "X-FPS"
	HeaderQuality = "X-QUALITY"
	HeaderRes     = "X-RES"
)

// WriteSegment writes one boundary-delimited part carrying frame.
func WriteSegment(w io.Writer, frame *entity.Frame) error {
	var hdr bytes.Buffer

	hdr.WriteString("--" + Boundary + "\r\n")
	hdr.WriteString("Content-Type: " + segmentContentType + "\r\n")
	hdr.WriteString("Content-Length: " + strconv.Itoa(len(frame.Payload)) + "\r\n")

	writeHeader(&hdr, HeaderFPS, frame.Meta(entity.MetaFPS))
	writeHeader(&hdr, HeaderQuality, frame.Meta(entity.MetaQuality))

	width, height := headerValue(frame.Meta(entity.MetaWidth)), headerValue(frame.Meta(entity.MetaHeight))
	if width != "" && height != "" {
		writeHeader(&hdr, HeaderRes, width+"x"+height)
	}

	hdr.WriteString("\r\n")

	if _, err := w.Write(hdr.Bytes()); err != nil {
		return err
	}

	if _, err := w.Write(frame.Payload); err != nil {
		return err
	}

	_, err := io.WriteString(w, "\r\n")

	return err
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	value = headerValue(value)
	if value == "" {
		return
	}

	buf.WriteString(name + ": " + value + "\r\n")
}

// headerValue drops CR and LF so metadata cannot break the part framing.
func headerValue(v string) string {
	v = strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return -1
		}
		return r
	}, v)

	return strings.TrimSpace(v)
}

// Segment is one part read back from a /stream response.
type Segment struct {
	Header  textproto.MIMEHeader
	Payload []byte
}

// ReadSegment reads the next part written by WriteSegment. It relies on
// Content-Length, so it returns as soon as the part is complete instead of
// waiting for the next boundary.
func ReadSegment(r *bufio.Reader) (*Segment, error) {
	tp := textproto.NewReader(r)

	line, err := tp.ReadLine()
	if err != nil {
		return nil, err
	}
	if line != "--"+Boundary {
		return nil, fmt.Errorf("unexpected boundary line %q", line)
	}

	hdr, err := tp.ReadMIMEHeader()
	if err != nil {
		return nil, fmt.Errorf("read segment header: %w", err)
	}

	n, err := strconv.Atoi(hdr.Get("Content-Length"))
	if err != nil || n < 0 {
		return nil, fmt.Errorf("bad content length %q", hdr.Get("Content-Length"))
	}

	payload := make([]byte, n+2)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read segment payload: %w", err)
	}
	if string(payload[n:]) != "\r\n" {
		return nil, fmt.Errorf("segment %d bytes not terminated by CRLF", n)
	}

	return &Segment{Header: hdr, Payload: payload[:n]}, nil
}
