// Package pipeline wires the ingestion stages into the request-level
// operations: preview, single-file and batch parsing, full transformation and
// transfer-only detection.
package pipeline

import (
	"time"

	"github.com/shopspring/decimal"

	"csv2ledger/internal/bankcfg"
	"csv2ledger/internal/config"
	"csv2ledger/internal/logging"
	"csv2ledger/internal/models"
	"csv2ledger/internal/parsing"
	"csv2ledger/internal/transfer"
)

var log = logging.GetLogger()

// SetLogger allows setting a configured logger.
func SetLogger(logger logging.Logger) {
	if logger != nil {
		log = logger
	}
}

// DefaultPreviewRows bounds preview output when the caller does not say.
const DefaultPreviewRows = 10

// Pipeline executes the processing stages against one config/registry
// snapshot. Reloads of the registry do not affect a Pipeline mid-request.
type Pipeline struct {
	cfg      *config.Config
	registry *bankcfg.Registry
	analyzer *parsing.Analyzer
}

// New builds a Pipeline. The registry may be nil, in which case bank
// detection is skipped and identity mapping applies.
func New(cfg *config.Config, registry *bankcfg.Registry) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		registry: registry,
		analyzer: parsing.NewAnalyzer(),
	}
}

// BankDetection reports the outcome of bank identification for one file.
type BankDetection struct {
	Bank        string
	DisplayName string
	Confidence  float64
	// Confident is set when the score clears the detection threshold; strict
	// callers treat unconfident detection as an error.
	Confident bool
}

// ParsingInfo carries the structural observations for one file, for
// observability and previews.
type ParsingInfo struct {
	Encoding           string
	EncodingConfidence float64
	Delimiter          string
	Strategy           string
	HeaderRow          *int
	HasHeaders         bool
	Confidence         float64
}

// FileResult is the per-file record of a parse or transform run. Batch
// operations always return; callers inspect Success per file.
type FileResult struct {
	Path    string
	Success bool
	Err     error

	Headers  []string
	Data     []map[string]string
	RowCount int

	Bank *BankDetection
	Info ParsingInfo

	// Populated when cleaning is enabled.
	Transactions  []*models.Transaction
	ColumnMapping map[string]string
	DroppedRows   int
	Warnings      []string

	Duration time.Duration
}

// BatchResult aggregates per-file results. Success means every file
// succeeded; a false value still carries all per-file records.
type BatchResult struct {
	Success bool
	Files   []*FileResult
}

// TransformSummary aggregates a full transformation run.
type TransformSummary struct {
	FilesProcessed   int
	FilesFailed      int
	Transactions     int
	DroppedRows      int
	TransferPairs    int
	Conflicts        int
	FlaggedForReview int
}

// TransformResult is the output of the full pipeline: canonical transactions
// with transfer analysis applied.
type TransformResult struct {
	Transactions     []*models.Transaction
	TransferAnalysis *transfer.Result
	Summary          TransformSummary
	Files            []*FileResult
}

// detectorConfig maps the app config onto the transfer engine settings.
func (p *Pipeline) detectorConfig() transfer.Config {
	tc := transfer.Config{}
	if p.cfg != nil {
		tc.UserName = p.cfg.App.UserName
		tc.DateTolerance = time.Duration(p.cfg.Transfer.DateToleranceHours) * time.Hour
		tc.ConfidenceThreshold = p.cfg.Transfer.ConfidenceThreshold
		tc.PairCategory = p.cfg.Transfer.PairCategory
		if p.cfg.Transfer.LargeAmountThreshold > 0 {
			tc.LargeAmountThreshold = decimal.NewFromFloat(p.cfg.Transfer.LargeAmountThreshold)
		}
	}
	tc.BankPatterns = p.bankPatterns()
	return tc
}

// bankPatterns collects each bank's own transfer phrasings from the registry.
func (p *Pipeline) bankPatterns() map[string]transfer.BankDirectionPatterns {
	if p.registry == nil {
		return nil
	}
	patterns := make(map[string]transfer.BankDirectionPatterns)
	for _, name := range p.registry.ListBanks() {
		cfg := p.registry.GetConfig(name)
		if cfg == nil || (len(cfg.OutgoingPatterns) == 0 && len(cfg.IncomingPatterns) == 0) {
			continue
		}
		patterns[name] = transfer.BankDirectionPatterns{
			Outgoing: cfg.OutgoingPatterns,
			Incoming: cfg.IncomingPatterns,
		}
	}
	return patterns
}
