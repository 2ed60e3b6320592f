package normalize

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pricetrail/reconcile-cli/internal/catalog"
	"github.com/pricetrail/reconcile-cli/internal/model"
	"github.com/pricetrail/reconcile-cli/internal/resilience"
	"github.com/pricetrail/reconcile-cli/pkg/oracle"
)

// Line outcome statuses reported by NormalizeReceipt.
const (
	StatusNormalized = "normalized"
	StatusAlreadyRun = "already_normalized"
	StatusSkipped    = "skipped"
	StatusFailed     = "failed"
)

// LineResult is the per-line outcome of a normalization pass.
type LineResult struct {
	LineID            string `json:"line_id"`
	Status            string `json:"status"`
	CandidateCount    int    `json:"candidate_count,omitempty"`
	SelectedProductID string `json:"selected_product_id,omitempty"`
	Error             string `json:"error,omitempty"`
}

// Normalizer generates ranked normalization candidates for receipt lines.
type Normalizer struct {
	oracle        oracle.Client
	registry      *catalog.Registry
	store         Store
	retry         resilience.RetryConfig
	oracleTimeout time.Duration
	maxConcurrent int
}

// Option configures the normalizer.
type Option func(*Normalizer)

// WithRetry overrides the oracle retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(n *Normalizer) {
		n.retry = cfg
	}
}

// WithOracleTimeout bounds each oracle call. The oracle itself specifies no
// timeout semantics; the bound is imposed here at the call site.
func WithOracleTimeout(d time.Duration) Option {
	return func(n *Normalizer) {
		if d > 0 {
			n.oracleTimeout = d
		}
	}
}

// WithMaxConcurrentLines caps parallel line normalization per receipt.
func WithMaxConcurrentLines(max int) Option {
	return func(n *Normalizer) {
		if max > 0 {
			n.maxConcurrent = max
		}
	}
}

// New creates a normalizer.
func New(oc oracle.Client, registry *catalog.Registry, store Store, opts ...Option) *Normalizer {
	n := &Normalizer{
		oracle:        oc,
		registry:      registry,
		store:         store,
		retry:         resilience.DefaultRetryConfig(),
		oracleTimeout: 30 * time.Second,
		maxConcurrent: 4,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// NormalizeReceipt normalizes every line of a receipt. Lines are processed
// independently and in parallel; one line's failure never aborts its
// siblings, so a partially-normalized receipt is an expected state. The
// returned slice has one result per line, in line order.
func (n *Normalizer) NormalizeReceipt(ctx context.Context, receiptID string) ([]LineResult, error) {
	receipt, err := n.store.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, eris.Wrap(err, "normalize: get receipt")
	}
	if receipt == nil {
		return nil, eris.Wrapf(model.ErrNotFound, "normalize: receipt %s", receiptID)
	}

	lines, err := n.store.LinesForReceipt(ctx, receiptID)
	if err != nil {
		return nil, eris.Wrap(err, "normalize: list lines")
	}

	results := make([]LineResult, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.maxConcurrent)

	for i, line := range lines {
		g.Go(func() error {
			res := n.normalizeLine(gctx, line, receipt.Merchant)
			if res.Status == StatusFailed {
				zap.L().Error("normalize: line failed",
					zap.String("receipt_id", receiptID),
					zap.String("line_id", line.ID),
					zap.String("error", res.Error),
				)
			}
			results[i] = res
			return nil
		})
	}
	// Workers never return errors; per-line failures live in the results.
	_ = g.Wait()

	return results, nil
}

// NormalizeLine normalizes a single line by ID.
func (n *Normalizer) NormalizeLine(ctx context.Context, lineID string) (LineResult, error) {
	line, err := n.store.GetLine(ctx, lineID)
	if err != nil {
		return LineResult{}, eris.Wrap(err, "normalize: get line")
	}
	if line == nil {
		return LineResult{}, eris.Wrapf(model.ErrNotFound, "normalize: line %s", lineID)
	}

	receipt, err := n.store.GetReceipt(ctx, line.ReceiptID)
	if err != nil {
		return LineResult{}, eris.Wrap(err, "normalize: get receipt")
	}
	if receipt == nil {
		return LineResult{}, eris.Wrapf(model.ErrNotFound, "normalize: receipt %s", line.ReceiptID)
	}

	return n.normalizeLine(ctx, *line, receipt.Merchant), nil
}

// normalizeLine runs the full candidate pipeline for one line: oracle call,
// registry find-or-create, similarity candidates, rank, persist. Write-once
// per line; a line with existing candidates is left untouched.
func (n *Normalizer) normalizeLine(ctx context.Context, line model.ReceiptLine, merchant string) LineResult {
	if line.IsDiscountLine || line.IsAdjustmentLine {
		return LineResult{LineID: line.ID, Status: StatusSkipped}
	}
	if line.RawName == "" {
		zap.L().Debug("normalize: line has no raw name, skipping",
			zap.String("line_id", line.ID))
		return LineResult{LineID: line.ID, Status: StatusSkipped}
	}

	existing, err := n.store.CandidatesForLine(ctx, line.ID)
	if err != nil {
		return failed(line.ID, eris.Wrap(err, "normalize: check existing candidates"))
	}
	if len(existing) > 0 {
		return LineResult{
			LineID:         line.ID,
			Status:         StatusAlreadyRun,
			CandidateCount: len(existing),
		}
	}

	resp, err := n.callOracle(ctx, oracle.NormalizeRequest{
		Merchant: merchant,
		RawName:  line.RawName,
		ItemCode: line.ItemCode,
		UseAI:    true,
	})
	if err != nil {
		return failed(line.ID, eris.Wrap(model.ErrOracle, err.Error()))
	}

	cands, err := n.buildCandidates(ctx, line, merchant, resp)
	if err != nil {
		return failed(line.ID, err)
	}

	// Highest confidence first; the stable sort keeps the primary candidate
	// ahead of similarity candidates on exact ties.
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].ConfidenceScore > cands[j].ConfidenceScore
	})
	cands[0].Selected = true

	if err := n.store.InsertCandidates(ctx, cands); err != nil {
		return failed(line.ID, eris.Wrap(err, "normalize: persist candidates"))
	}

	return LineResult{
		LineID:            line.ID,
		Status:            StatusNormalized,
		CandidateCount:    len(cands),
		SelectedProductID: cands[0].ProductID,
	}
}

// buildCandidates resolves the oracle's primary guess through the registry
// and adds one second-class candidate per known similar product.
func (n *Normalizer) buildCandidates(ctx context.Context, line model.ReceiptLine, merchant string, resp *oracle.NormalizeResponse) ([]model.Candidate, error) {
	primary, err := n.registry.FindOrCreate(ctx, catalog.NewProduct{
		RawName:         line.RawName,
		Merchant:        merchant,
		ItemCode:        line.ItemCode,
		NormalizedName:  resp.NormalizedName,
		Brand:           resp.Brand,
		Category:        resp.Category,
		ConfidenceScore: clamp01(resp.ConfidenceScore),
		IsDiscount:      resp.IsDiscount,
		IsAdjustment:    resp.IsAdjustment,
	})
	if err != nil {
		return nil, eris.Wrap(err, "normalize: resolve primary product")
	}

	method := resp.Method
	if method == "" {
		method = model.MethodUnknown
	}

	cands := []model.Candidate{{
		LineID:          line.ID,
		ProductID:       primary.ID,
		ConfidenceScore: clamp01(resp.ConfidenceScore),
		Method:          method,
	}}

	// One candidate row per product: the oracle may echo the primary (or the
	// same similar product twice), and a duplicated ProductID would let a
	// later selection flip two rows at once.
	seen := map[string]bool{primary.ID: true}
	for _, sim := range resp.SimilarProducts {
		if seen[sim.ProductID] {
			continue
		}
		p, err := n.registry.Lookup(ctx, sim.ProductID)
		if err != nil {
			return nil, eris.Wrap(err, "normalize: look up similar product")
		}
		if p == nil {
			zap.L().Debug("normalize: similar product not in registry, dropping",
				zap.String("line_id", line.ID),
				zap.String("product_id", sim.ProductID),
			)
			continue
		}
		seen[p.ID] = true
		score := clamp01(sim.Similarity)
		cands = append(cands, model.Candidate{
			LineID:          line.ID,
			ProductID:       p.ID,
			ConfidenceScore: score,
			Method:          model.MethodSimilarity,
			SimilarityScore: &score,
		})
	}

	return cands, nil
}

// Override unselects every candidate of the line and selects the one
// pointing at productID. A productID with no candidate for the line is
// rejected with NotFound before any mutation.
func (n *Normalizer) Override(ctx context.Context, lineID, productID string) error {
	if lineID == "" || productID == "" {
		return eris.Wrap(model.ErrInvalidInput, "normalize: line and product are required")
	}

	cands, err := n.store.CandidatesForLine(ctx, lineID)
	if err != nil {
		return eris.Wrap(err, "normalize: list candidates")
	}
	found := false
	for _, c := range cands {
		if c.ProductID == productID {
			found = true
			break
		}
	}
	if !found {
		zap.L().Warn("normalize: override target has no candidate for line",
			zap.String("line_id", lineID),
			zap.String("product_id", productID),
		)
		return eris.Wrapf(model.ErrNotFound, "normalize: no candidate for product %s on line %s", productID, lineID)
	}

	selected, err := n.store.SelectCandidate(ctx, lineID, productID)
	if err != nil {
		return eris.Wrap(err, "normalize: select candidate")
	}
	if selected == 0 {
		return eris.Wrapf(model.ErrNotFound, "normalize: no candidate for product %s on line %s", productID, lineID)
	}
	return nil
}

// Candidates returns the persisted candidates for a line, confidence
// descending.
func (n *Normalizer) Candidates(ctx context.Context, lineID string) ([]model.Candidate, error) {
	cands, err := n.store.CandidatesForLine(ctx, lineID)
	if err != nil {
		return nil, eris.Wrap(err, "normalize: list candidates")
	}
	return cands, nil
}

// callOracle applies the per-call timeout and bounded retry around one
// oracle request. A hung oracle otherwise blocks the line indefinitely.
func (n *Normalizer) callOracle(ctx context.Context, req oracle.NormalizeRequest) (*oracle.NormalizeResponse, error) {
	cfg := n.retry
	cfg.OnRetry = func(attempt int, err error) {
		zap.L().Warn("normalize: retrying oracle call",
			zap.Int("attempt", attempt),
			zap.String("raw_name", req.RawName),
			zap.Error(err),
		)
	}
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*oracle.NormalizeResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, n.oracleTimeout)
		defer cancel()
		return n.oracle.Normalize(callCtx, req)
	})
}

func failed(lineID string, err error) LineResult {
	return LineResult{LineID: lineID, Status: StatusFailed, Error: err.Error()}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
