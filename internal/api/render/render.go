// Package render writes dataset records and errors as JSON or XML.
package render

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/good-yellow-bee/jpapi/internal/metrics"
	"github.com/good-yellow-bee/jpapi/internal/models"
)

// Format is a response serialization selected by URL extension.
type Format string

const (
	JSON Format = "json"
	XML  Format = "xml"
)

// ParseFormat maps a URL extension to a Format.
func ParseFormat(ext string) (Format, error) {
	switch Format(strings.ToLower(ext)) {
	case JSON:
		return JSON, nil
	case XML:
		return XML, nil
	}
	return "", fmt.Errorf("unsupported format %q", ext)
}

// SplitExtension splits "US.json" into "US" and "json" at the last dot.
func SplitExtension(s string) (base, ext string) {
	i := strings.LastIndexByte(s, '.')
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+1:]
}

// FormatFromPath returns the format named by the extension of the last path
// segment, falling back to JSON.
func FormatFromPath(p string) Format {
	_, ext := SplitExtension(path.Base(p))
	if f, err := ParseFormat(ext); err == nil {
		return f
	}
	return JSON
}

// Tags names the XML wrapper elements of a record list.
type Tags struct {
	Parent string
	Child  string
}

// Records writes records with a 200 status.
func Records(w http.ResponseWriter, f Format, tags Tags, records []models.Record) error {
	var (
		body []byte
		err  error
	)
	switch f {
	case XML:
		body, err = encodeXML(tags, records)
	default:
		f = JSON
		body, err = encodeJSON(records)
	}
	if err != nil {
		return err
	}

	metrics.HTTPResponsesByFormat.WithLabelValues(string(f)).Inc()
	w.Header().Set("Content-Type", contentType(f))
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(body)
	return err
}

// Error writes an error body in the requested format.
func Error(w http.ResponseWriter, f Format, status int, code, message string) {
	var body []byte
	if f == XML {
		var buf bytes.Buffer
		buf.WriteString(xml.Header)
		enc := xml.NewEncoder(&buf)
		start := xml.StartElement{Name: xml.Name{Local: "api"}}
		errEl := xml.StartElement{Name: xml.Name{Local: "error"}}
		enc.EncodeToken(start)
		enc.EncodeToken(errEl)
		writeElement(enc, "code", code)
		writeElement(enc, "message", message)
		enc.EncodeToken(errEl.End())
		enc.EncodeToken(start.End())
		enc.Flush()
		body = stripNewlines(buf.Bytes())
	} else {
		f = JSON
		body, _ = json.Marshal(map[string]any{
			"error": map[string]string{"code": code, "message": message},
		})
	}

	w.Header().Set("Content-Type", contentType(f))
	w.WriteHeader(status)
	w.Write(body)
}

func contentType(f Format) string {
	if f == XML {
		return "application/xml; charset=utf-8"
	}
	return "application/json"
}

// encodeJSON renders a bare array of objects, keeping column order.
func encodeJSON(records []models.Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range records {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, f := range r {
			if j > 0 {
				buf.WriteByte(',')
			}
			name, err := json.Marshal(f.Name)
			if err != nil {
				return nil, err
			}
			value, err := json.Marshal(normalize(f.Value))
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", f.Name, err)
			}
			buf.Write(name)
			buf.WriteByte(':')
			buf.Write(value)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func encodeXML(tags Tags, records []models.Record) ([]byte, error) {
	if tags.Parent == "" || tags.Child == "" {
		return nil, fmt.Errorf("xml tags are required")
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)

	api := xml.StartElement{Name: xml.Name{Local: "api"}}
	parent := xml.StartElement{Name: xml.Name{Local: tags.Parent}}
	child := xml.StartElement{Name: xml.Name{Local: tags.Child}}

	if err := enc.EncodeToken(api); err != nil {
		return nil, err
	}
	if err := enc.EncodeToken(parent); err != nil {
		return nil, err
	}
	for _, r := range records {
		if err := enc.EncodeToken(child); err != nil {
			return nil, err
		}
		for _, f := range r {
			if err := writeElement(enc, f.Name, text(f.Value)); err != nil {
				return nil, fmt.Errorf("encode %s: %w", f.Name, err)
			}
		}
		if err := enc.EncodeToken(child.End()); err != nil {
			return nil, err
		}
	}
	if err := enc.EncodeToken(parent.End()); err != nil {
		return nil, err
	}
	if err := enc.EncodeToken(api.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return stripNewlines(buf.Bytes()), nil
}

var newlines = strings.NewReplacer("\n", "", "\r", "")

func writeElement(enc *xml.Encoder, name, value string) error {
	value = newlines.Replace(value)
	start := xml.StartElement{Name: xml.Name{Local: name}}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if value != "" {
		if err := enc.EncodeToken(xml.CharData(value)); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// stripNewlines removes \n and \r from the document, including the header.
func stripNewlines(b []byte) []byte {
	b = bytes.ReplaceAll(b, []byte("\n"), nil)
	return bytes.ReplaceAll(b, []byte("\r"), nil)
}

func normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.DateTime)
	}
	return v
}

func text(v any) string {
	switch t := normalize(v).(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}
