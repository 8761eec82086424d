// Package feed decodes the ARPANSA UV index XML document into readings.
package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/uv-feed-service/internal/domain"
	"golang.org/x/net/html/charset"
)

// Element names recognised inside a location entry.
const (
	elemLocation     = "location"
	elemLocationName = "locationName"
	elemIndex        = "index"
	elemFullTime     = "fullTime"
	attrID           = "id"
)

var errNoRootElement = errors.New("document has no root element")

// Result is the outcome of decoding one feed document.
type Result struct {
	Readings []domain.Reading

	// Dropped counts location entries skipped for lacking a name.
	Dropped int
	// Defaulted counts emitted readings whose index fell back to 0.0.
	Defaulted int
}

// Parse decodes a feed held in memory. See [Decode].
func Parse(data []byte) ([]domain.Reading, error) {
	res, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return res.Readings, nil
}

// Decode tokenizes the feed and emits one reading per named location entry,
// in document order. Only a tokenizer failure (or an empty document) is an
// error; bad fields degrade individually.
func Decode(r io.Reader) (Result, error) {
	dec := xml.NewDecoder(r)
	// Honour declared non-UTF-8 encodings such as ISO-8859-1.
	dec.CharsetReader = charset.NewReaderLabel

	var (
		res     Result
		st      entryState
		scratch strings.Builder
		sawRoot bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, &domain.MalformedFeedError{Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			sawRoot = true
			scratch.Reset()
			if t.Name.Local == elemLocation {
				st = entryState{code: attrValue(t, attrID)}
			}
		case xml.CharData:
			scratch.Write(t)
		case xml.EndElement:
			text := strings.TrimSpace(scratch.String())
			scratch.Reset()
			switch t.Name.Local {
			case elemLocationName:
				st.name = text
			case elemIndex:
				st.index = text
			case elemFullTime:
				st.fullTime = text
			case elemLocation:
				if st.name == "" {
					res.Dropped++
					continue
				}
				reading, defaulted := st.reading()
				if defaulted {
					res.Defaulted++
				}
				res.Readings = append(res.Readings, reading)
			}
		}
	}

	if !sawRoot {
		return Result{}, &domain.MalformedFeedError{Err: errNoRootElement}
	}
	return res, nil
}

// entryState accumulates the fields of the location entry being decoded.
type entryState struct {
	code     string
	name     string
	index    string
	fullTime string
}

func (s entryState) reading() (domain.Reading, bool) {
	key := s.code
	if key == "" {
		key = s.name
	}
	index, ok := parseIndex(s.index)
	return domain.Reading{
		ID:           domain.LocationID(key),
		LocationName: s.name,
		Index:        index,
		FullTime:     s.fullTime,
	}, !ok
}

// parseIndex parses a UV index, reporting false when it had to fall back to 0.
func parseIndex(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

func attrValue(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}
