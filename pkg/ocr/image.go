package ocr

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

var (
	ErrEmptyImage = errors.New("ocr: image is empty")
	ErrNotImage   = errors.New("ocr: payload is not an image")
)

// DecodeImage turns a scan payload into image bytes. The payload is base64,
// optionally wrapped in a data URL ("data:image/jpeg;base64,..."). Anything
// that doesn't sniff as an image is rejected.
func DecodeImage(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		if i := strings.IndexByte(payload, ','); i >= 0 {
			payload = payload[i+1:]
		}
	}
	if payload == "" {
		return nil, ErrEmptyImage
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some clients drop the padding.
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, errors.Wrap(err, "decode base64 image")
		}
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	if mtype := mimetype.Detect(data); !strings.HasPrefix(mtype.String(), "image/") {
		return nil, errors.Wrapf(ErrNotImage, "detected %s", mtype.String())
	}
	return data, nil
}
