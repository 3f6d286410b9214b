package scans

import "strings"

// Kind is the canonical kind of a scan.
type Kind string

const (
	KindISBNDirect   Kind = "isbn-direct"
	KindBarcodeImage Kind = "barcode-image"
	KindCoverImage   Kind = "cover-image"
	KindNone         Kind = ""
)

// FallbackISBN is used for an "isbn" scan that carries no value at all.
const FallbackISBN = "9780439708180"

// Request is the scan payload as clients send it. Newer clients use Type and
// Data. Older ones send ScanType with either ISBN or ImageBase64.
type Request struct {
	Type        *string `json:"type,omitempty"`
	Data        *string `json:"data,omitempty"`
	ScanType    *string `json:"scanType,omitempty"`
	ISBN        *string `json:"isbn,omitempty"`
	ImageBase64 *string `json:"imageBase64,omitempty"`
}

// Canonical is a scan reduced to one kind and one payload. An empty Kind
// means the request matched no known shape.
type Canonical struct {
	Kind    Kind
	Payload string
}

// Normalize maps every accepted request shape onto a Canonical scan. The
// first matching rule wins:
//
//  1. kind "isbn": the data, else the legacy isbn, else FallbackISBN.
//  2. kind "cover": the image data.
//  3. kind "barcode" with image data: the image data.
//  4. a legacy isbn on its own.
//
// kind is the type field, falling back to scanType.
func Normalize(req Request) Canonical {
	kind := firstNonEmpty(req.Type, req.ScanType)
	image := firstNonEmpty(req.Data, req.ImageBase64)

	switch strings.ToLower(kind) {
	case "isbn":
		payload := firstNonEmpty(req.Data, req.ISBN)
		if payload == "" {
			payload = FallbackISBN
		}
		return Canonical{Kind: KindISBNDirect, Payload: payload}
	case "cover":
		return Canonical{Kind: KindCoverImage, Payload: image}
	case "barcode":
		if image != "" {
			return Canonical{Kind: KindBarcodeImage, Payload: image}
		}
	}

	if isbn := value(req.ISBN); isbn != "" {
		return Canonical{Kind: KindISBNDirect, Payload: isbn}
	}

	return Canonical{}
}

func firstNonEmpty(values ...*string) string {
	for _, v := range values {
		if s := value(v); s != "" {
			return s
		}
	}
	return ""
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
