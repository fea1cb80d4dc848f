package table

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodingReader wraps r so that the named charset is decoded to UTF-8.
// Supported names: "", "utf-8", "gbk", "utf-16le", "utf-16be", "latin-1".
func DecodingReader(r io.Reader, name string) (io.Reader, error) {
	var dec *encoding.Decoder
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return r, nil
	case "gbk":
		dec = simplifiedchinese.GBK.NewDecoder()
	case "utf-16le":
		dec = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	case "utf-16be":
		dec = unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
	case "latin-1", "iso-8859-1":
		dec = charmap.ISO8859_1.NewDecoder()
	default:
		return nil, fmt.Errorf("table: unsupported encoding %q", name)
	}
	return transform.NewReader(r, dec), nil
}
