package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"streampay-audit-backend/internal/dto"
)

const (
	ExportFormatJSON = "json"
	ExportFormatCSV  = "csv"
)

// csvHeader is the fixed export header row.
var csvHeader = []string{
	"timestamp", "log_level", "message", "action_type",
	"employer", "transaction_hash", "block_number", "error_message",
}

type AuditExportService interface {
	Export(ctx context.Context, employerID string, req dto.AuditQueryRequest, format string) (string, error)
}

type auditExportService struct {
	queryService AuditQueryService
}

func NewAuditExportService(queryService AuditQueryService) AuditExportService {
	return &auditExportService{
		queryService: queryService,
	}
}

// Export serializes the employer's entries in the requested format. The
// employer scope always wins over any employer filter in the request,
// and the output is a syntactically valid document even when empty.
func (s *auditExportService) Export(ctx context.Context, employerID string, req dto.AuditQueryRequest, format string) (string, error) {
	req.Employer = employerID

	result, err := s.queryService.Query(ctx, req)
	if err != nil {
		return "", fmt.Errorf("export query failed: %w", err)
	}

	log.Info().
		Str("employer", employerID).
		Str("format", format).
		Int("entries", len(result.Entries)).
		Msg("Exporting audit logs")

	switch strings.ToLower(format) {
	case ExportFormatCSV:
		return s.exportCSV(result)
	case ExportFormatJSON, "":
		return s.exportJSON(result)
	default:
		return "", fmt.Errorf("unsupported export format: %s", format)
	}
}

func (s *auditExportService) exportJSON(result *dto.AuditQueryResponse) (string, error) {
	data, err := json.MarshalIndent(result.Entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal export: %w", err)
	}
	return string(data), nil
}

func (s *auditExportService) exportCSV(result *dto.AuditQueryResponse) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, e := range result.Entries {
		blockNumber := ""
		if e.BlockNumber != 0 {
			blockNumber = strconv.FormatInt(e.BlockNumber, 10)
		}
		record := []string{
			e.Timestamp.UTC().Format(time.RFC3339),
			string(e.Level),
			e.Message,
			string(e.ActionType),
			e.Employer,
			e.TransactionHash,
			blockNumber,
			e.ErrorMessage,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return sb.String(), nil
}
