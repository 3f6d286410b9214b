package scans

import (
	"context"
	"strings"

	"github.com/littlelibrary/server/pkg/errcodes"
	"github.com/littlelibrary/server/pkg/identifiers"
	"github.com/littlelibrary/server/pkg/metrics"
	"github.com/littlelibrary/server/pkg/models"
	"github.com/littlelibrary/server/pkg/ocr"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// TextRecognizer turns an image into lines of recognized text.
type TextRecognizer interface {
	RecognizeText(ctx context.Context, image []byte) ([]string, error)
}

// Resolver returns the stored book for an ISBN, fetching it from the catalog
// the first time it's seen.
type Resolver interface {
	ResolveISBN(ctx context.Context, raw string) (*models.Book, error)
}

type Service struct {
	recognizer TextRecognizer
	resolver   Resolver
}

func NewService(recognizer TextRecognizer, resolver Resolver) *Service {
	return &Service{recognizer, resolver}
}

// Scan identifies the book behind a scan request and resolves it.
func (svc *Service) Scan(ctx context.Context, req Request) (*models.Book, error) {
	scan := Normalize(req)

	isbn, err := svc.Identify(ctx, scan)
	if err != nil {
		metrics.ScanOutcomes.WithLabelValues(kindLabel(scan.Kind), outcomeLabel(err)).Inc()
		return nil, err
	}

	book, err := svc.resolver.ResolveISBN(ctx, isbn)
	metrics.ScanOutcomes.WithLabelValues(kindLabel(scan.Kind), outcomeLabel(err)).Inc()
	if err != nil {
		return nil, err
	}

	return book, nil
}

// Identify derives an ISBN from a canonical scan. ISBN scans are passed
// through verbatim. Image scans go through text recognition and then
// extraction. A scan that yields no ISBN is unidentifiable.
func (svc *Service) Identify(ctx context.Context, scan Canonical) (string, error) {
	log := logger.FromContext(ctx)

	switch scan.Kind {
	case KindISBNDirect:
		return scan.Payload, nil
	case KindCoverImage, KindBarcodeImage:
	default:
		return "", errcodes.UnidentifiableScan()
	}

	image, err := ocr.DecodeImage(scan.Payload)
	if err != nil {
		log.Err(err).Info("scan image rejected", logger.Data{"kind": scan.Kind})
		return "", errcodes.UnidentifiableScan()
	}

	lines, err := svc.recognizer.RecognizeText(ctx, image)
	if err != nil {
		log.Err(err).Warn("text recognition failed", logger.Data{"kind": scan.Kind})
		return "", errcodes.ExternalServiceUnavailable("Text recognition")
	}

	isbn, pass := identifiers.ExtractWithPass(strings.Join(lines, "\n"))
	if pass == identifiers.PassNone {
		metrics.IdentifierPasses.WithLabelValues("none").Inc()
		log.Info("no isbn in recognized text", logger.Data{"kind": scan.Kind, "lines": len(lines)})
		return "", errcodes.UnidentifiableScan()
	}
	metrics.IdentifierPasses.WithLabelValues(string(pass)).Inc()

	return isbn, nil
}

func kindLabel(kind Kind) string {
	if kind == KindNone {
		return "none"
	}
	return string(kind)
}

func outcomeLabel(err error) string {
	if err == nil {
		return "resolved"
	}
	var e *errcodes.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "error"
}
