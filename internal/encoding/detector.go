// Package encoding detects and applies character encodings for statement
// exports. Banks deliver CSVs in anything from UTF-16 with BOM to
// windows-1252, so detection scores candidate encodings against the decoded
// sample instead of trusting file metadata.
package encoding

import (
	"bytes"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"csv2ledger/internal/logging"
	"csv2ledger/internal/parsererror"
)

var log = logging.GetLogger()

// SetLogger allows setting a configured logger.
func SetLogger(logger logging.Logger) {
	if logger != nil {
		log = logger
	}
}

// DefaultSampleSize is the number of bytes read for detection.
const DefaultSampleSize = 64 * 1024

// Candidate encodings tried in order when no BOM gives a hint.
var detectionChain = []string{
	EncodingUTF16,
	EncodingUTF8Sig,
	EncodingUTF8,
	EncodingWindows1252,
	EncodingISO88591,
	EncodingASCII,
}

// Canonical encoding names used across the pipeline.
const (
	EncodingUTF8        = "utf-8"
	EncodingUTF8Sig     = "utf-8-sig"
	EncodingUTF16       = "utf-16"
	EncodingWindows1252 = "windows-1252"
	EncodingISO88591    = "iso-8859-1"
	EncodingASCII       = "ascii"
)

// Attempt records one scored candidate encoding.
type Attempt struct {
	Encoding   string
	Confidence float64
	Decoded    bool
}

// Result is the outcome of encoding detection for one file.
type Result struct {
	Encoding    string
	Confidence  float64
	BOMDetected bool
	Attempts    []Attempt
}

// Detector scores candidate encodings for statement files.
type Detector struct {
	SampleSize int
}

// NewDetector returns a Detector with the default sample size.
func NewDetector() *Detector {
	return &Detector{SampleSize: DefaultSampleSize}
}

// Detect determines the most plausible encoding for the file at path.
// File-not-found errors propagate; an empty file is valid and yields the
// fallback encoding at confidence 0.7.
func (d *Detector) Detect(path string) (*Result, error) {
	sample, err := d.readSample(path)
	if err != nil {
		return nil, err
	}

	if len(sample) == 0 {
		return &Result{Encoding: EncodingUTF8, Confidence: 0.7}, nil
	}

	result := &Result{}
	bomEncoding := sniffBOM(sample)
	result.BOMDetected = bomEncoding != ""

	// A BOM is the strongest hint available; test that encoding first and
	// accept it at a lower bar than the blind chain.
	if bomEncoding != "" {
		score, decoded := scoreEncoding(sample, bomEncoding)
		result.Attempts = append(result.Attempts, Attempt{bomEncoding, score, decoded})
		if decoded && score >= 0.70 {
			result.Encoding = bomEncoding
			result.Confidence = score
			return result, nil
		}
	}

	best := Attempt{Encoding: EncodingUTF8, Confidence: 0}
	for _, enc := range detectionChain {
		if enc == bomEncoding {
			continue // already tried
		}
		score, decoded := scoreEncoding(sample, enc)
		attempt := Attempt{enc, score, decoded}
		result.Attempts = append(result.Attempts, attempt)

		if decoded && score >= 0.80 {
			result.Encoding = enc
			result.Confidence = score
			return result, nil
		}
		if decoded && score > best.Confidence {
			best = attempt
		}
	}

	if best.Confidence > 0 {
		log.WithFields(
			logging.Field{Key: logging.FieldFile, Value: path},
			logging.Field{Key: logging.FieldEncoding, Value: best.Encoding},
			logging.Field{Key: logging.FieldConfidence, Value: best.Confidence},
		).Warn("No encoding reached the acceptance threshold, using best attempt")
		result.Encoding = best.Encoding
		result.Confidence = best.Confidence
		return result, nil
	}

	log.WithField(logging.FieldFile, path).Warn("Encoding detection failed entirely, falling back to utf-8")
	result.Encoding = EncodingUTF8
	result.Confidence = 0.1
	if len(result.Attempts) == len(detectionChain)+boolToInt(bomEncoding != "") {
		// Every candidate failed to decode; record the taxonomy error on the
		// result path for callers that treat this as fatal.
		return result, &parsererror.EncodingError{FilePath: path, Attempts: len(result.Attempts)}
	}
	return result, nil
}

func (d *Detector) readSample(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Warn("Failed to close file")
		}
	}()

	size := d.SampleSize
	if size <= 0 {
		size = DefaultSampleSize
	}
	return io.ReadAll(io.LimitReader(f, int64(size)))
}

// sniffBOM inspects the first bytes for a byte-order mark.
func sniffBOM(sample []byte) string {
	switch {
	case bytes.HasPrefix(sample, []byte{0xEF, 0xBB, 0xBF}):
		return EncodingUTF8Sig
	case bytes.HasPrefix(sample, []byte{0xFF, 0xFE}), bytes.HasPrefix(sample, []byte{0xFE, 0xFF}):
		return EncodingUTF16
	}
	return ""
}

// scoreEncoding decodes the sample with the candidate encoding and scores the
// result: CSV-indicator density contributes up to 0.3, printable-character
// ratio up to 0.2, and any replacement character costs 0.4. A successful
// decode starts at 0.5.
func scoreEncoding(sample []byte, enc string) (float64, bool) {
	decoded, ok := decodeSample(sample, enc)
	if !ok || len(decoded) == 0 {
		return 0, false
	}

	score := 0.5
	score += csvIndicatorScore(decoded)
	score += printableScore(decoded)
	if strings.ContainsRune(decoded, utf8.RuneError) {
		score -= 0.4
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, true
}

func csvIndicatorScore(decoded string) float64 {
	indicators := 0
	for _, r := range decoded {
		switch r {
		case ',', ';', '\t', '"', '\n':
			indicators++
		}
	}
	density := float64(indicators) / float64(len(decoded))
	contribution := density * 3.0
	if contribution > 0.3 {
		contribution = 0.3
	}
	return contribution
}

func printableScore(decoded string) float64 {
	printable, total := 0, 0
	for _, r := range decoded {
		total++
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	if total == 0 {
		return 0
	}
	return 0.2 * float64(printable) / float64(total)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
