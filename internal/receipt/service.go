package receipt

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/expense-claims/internal/metrics"
)

// Validator checks an upload before it reaches the OCR provider.
type Validator interface {
	Validate(u *Upload) (string, error)
}

// ScanService turns an uploaded receipt into a Draft. Nothing is stored.
type ScanService struct {
	validator Validator
	scanner   Scanner
	logger    *slog.Logger
}

func NewScanService(validator Validator, scanner Scanner, logger *slog.Logger) *ScanService {
	return &ScanService{validator: validator, scanner: scanner, logger: logger}
}

func (s *ScanService) Scan(ctx context.Context, upload *Upload) (*Draft, error) {
	mimeType, err := s.validator.Validate(upload)
	if err != nil {
		return nil, err
	}

	draft, err := s.scanner.Scan(ctx, upload, mimeType)
	if err != nil {
		metrics.ReceiptScans.WithLabelValues(metrics.OutcomeFailure).Inc()
		s.logger.Error("receipt scan failed", "error", err, "mime_type", mimeType, "size", len(upload.Data))
		return nil, err
	}

	metrics.ReceiptScans.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.logger.Info("receipt scanned",
		"mime_type", mimeType,
		"confidence", draft.Confidence,
		"warnings", len(draft.Warnings))
	return draft, nil
}
