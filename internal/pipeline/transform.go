package pipeline

import (
	"context"
	"sort"

	"csv2ledger/internal/models"
	"csv2ledger/internal/transfer"
)

// Transform runs the full pipeline over a set of files: parse + clean each
// one, impose the deterministic cross-file ordering, then run transfer
// detection over the union. Failed files are recorded and skipped; the batch
// always returns unless the context is cancelled.
func (p *Pipeline) Transform(ctx context.Context, paths []string, manual ...transfer.ManualPair) (*TransformResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	requests := make([]ParseRequest, len(paths))
	for i, path := range paths {
		requests[i] = ParseRequest{Path: path, Options: ParseOptions{EnableCleaning: true}}
	}
	batch := p.ParseMany(ctx, requests, 0)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &TransformResult{Files: batch.Files}
	for _, f := range batch.Files {
		if !f.Success {
			res.Summary.FilesFailed++
			continue
		}
		res.Summary.FilesProcessed++
		res.Summary.DroppedRows += f.DroppedRows
		res.Transactions = append(res.Transactions, f.Transactions...)
	}

	// Re-index in the deterministic bank+file+row order so indices are
	// unique and stable across runs.
	sort.SliceStable(res.Transactions, func(i, j int) bool {
		a, b := res.Transactions[i], res.Transactions[j]
		if a.SourceBank != b.SourceBank {
			return a.SourceBank < b.SourceBank
		}
		if a.SourceFile != b.SourceFile {
			return a.SourceFile < b.SourceFile
		}
		return a.Index < b.Index
	})
	for i, t := range res.Transactions {
		t.Index = i
	}

	res.TransferAnalysis = p.DetectTransfersOnly(res.Transactions, manual...)
	res.Summary.Transactions = len(res.Transactions)
	res.Summary.TransferPairs = res.TransferAnalysis.Summary.Pairs
	res.Summary.Conflicts = res.TransferAnalysis.Summary.Conflicts
	res.Summary.FlaggedForReview = res.TransferAnalysis.Summary.FlaggedForReview
	return res, nil
}

// DetectTransfersOnly runs transfer detection over already-canonicalized
// transactions, for re-analysis of previously transformed data.
func (p *Pipeline) DetectTransfersOnly(transactions []*models.Transaction, manual ...transfer.ManualPair) *transfer.Result {
	return transfer.NewDetector(p.detectorConfig()).Detect(transactions, manual...)
}
