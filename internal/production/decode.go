package production

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// Encoding names accepted by Config.Encoding.
const (
	EncodingAuto = "auto"
	EncodingUTF8 = "utf-8"
	EncodingGBK  = "gbk"
)

// decoder returns UTF-8 text for raw file content.
type decoder func(raw []byte) (io.Reader, error)

func newDecoder(name string) (decoder, error) {
	switch name {
	case "", EncodingAuto:
		return decodeAuto, nil
	case EncodingUTF8:
		return func(raw []byte) (io.Reader, error) { return bytes.NewReader(raw), nil }, nil
	case EncodingGBK:
		return decodeGBK, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
}

// decodeAuto keeps valid UTF-8 as it is and treats anything else as GBK,
// the code page the collector writes on Chinese Windows installs.
func decodeAuto(raw []byte) (io.Reader, error) {
	if utf8.Valid(raw) {
		return bytes.NewReader(raw), nil
	}
	return decodeGBK(raw)
}

func decodeGBK(raw []byte) (io.Reader, error) {
	out, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), raw)
	if err != nil {
		return nil, fmt.Errorf("decoding GBK: %w", err)
	}
	return bytes.NewReader(out), nil
}
