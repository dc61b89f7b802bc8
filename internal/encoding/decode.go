package encoding

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	xcharset "golang.org/x/net/html/charset"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeSample decodes a byte sample with the named encoding, returning
// ok=false when the sample cannot plausibly be in that encoding.
func decodeSample(sample []byte, enc string) (string, bool) {
	switch enc {
	case EncodingUTF8:
		if !utf8.Valid(sample) {
			return "", false
		}
		return string(sample), true

	case EncodingUTF8Sig:
		if !bytes.HasPrefix(sample, utf8BOM) {
			return "", false
		}
		stripped := bytes.TrimPrefix(sample, utf8BOM)
		if !utf8.Valid(stripped) {
			return "", false
		}
		return string(stripped), true

	case EncodingASCII:
		for _, b := range sample {
			if b >= 0x80 {
				return "", false
			}
		}
		return string(sample), true

	case EncodingUTF16:
		if !plausibleUTF16(sample) {
			return "", false
		}
		dec := xunicode.UTF16(xunicode.LittleEndian, xunicode.UseBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, sample)
		if err != nil {
			return "", false
		}
		return string(out), true

	default:
		e, _ := xcharset.Lookup(enc)
		if e == nil {
			return "", false
		}
		out, _, err := transform.Bytes(e.NewDecoder(), sample)
		if err != nil {
			return "", false
		}
		return string(out), true
	}
}

// plausibleUTF16 requires either a BOM or an even byte count with a
// substantial share of NUL bytes, which single-byte text never has.
func plausibleUTF16(sample []byte) bool {
	if bytes.HasPrefix(sample, []byte{0xFF, 0xFE}) || bytes.HasPrefix(sample, []byte{0xFE, 0xFF}) {
		return true
	}
	if len(sample)%2 != 0 || len(sample) == 0 {
		return false
	}
	nuls := 0
	for _, b := range sample {
		if b == 0 {
			nuls++
		}
	}
	return float64(nuls)/float64(len(sample)) > 0.2
}

// NewReader wraps r so that its contents are decoded from the named encoding
// into UTF-8.
func NewReader(r io.Reader, enc string) (io.Reader, error) {
	switch enc {
	case EncodingUTF8, EncodingASCII, "":
		return r, nil
	case EncodingUTF8Sig:
		return transform.NewReader(r, xunicode.UTF8BOM.NewDecoder()), nil
	case EncodingUTF16:
		dec := xunicode.UTF16(xunicode.LittleEndian, xunicode.UseBOM).NewDecoder()
		return transform.NewReader(r, dec), nil
	default:
		e, _ := xcharset.Lookup(enc)
		if e == nil {
			return nil, fmt.Errorf("unknown encoding: %s", enc)
		}
		return transform.NewReader(r, e.NewDecoder()), nil
	}
}

// DecodeFile reads the whole file at path decoded from the named encoding.
func DecodeFile(path, enc string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Warn("Failed to close file")
		}
	}()

	r, err := NewReader(f, enc)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
