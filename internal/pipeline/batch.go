package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/batch"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/metrics"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

// BatchItem is one crawl outcome within a batch.
type BatchItem struct {
	Index  int         `json:"index"`
	URL    string      `json:"url"`
	Result CrawlResult `json:"result"`
}

// BatchResult collects per-item crawl outcomes in input order.
type BatchResult struct {
	Items   []BatchItem `json:"items"`
	Success int         `json:"success"`
	Failed  int         `json:"failed"`
}

// CrawlBatch crawls every request independently with bounded concurrency.
func (p *Pipeline) CrawlBatch(ctx context.Context, reqs []CrawlRequest) (BatchResult, error) {
	if err := p.checkBatchSize("urls", len(reqs)); err != nil {
		return BatchResult{}, err
	}
	outcomes := batch.Run(ctx, reqs, p.cfg.BatchConcurrency, func(ctx context.Context, req CrawlRequest) (CrawlResult, error) {
		result := p.Crawl(ctx, req)
		return result, result.Err()
	})

	out := BatchResult{Items: make([]BatchItem, 0, len(outcomes))}
	for _, o := range outcomes {
		result := o.Value
		if o.Err != nil && result.Error == "" {
			// never started: the batch context ended first
			result = CrawlResult{Error: o.Err.Error(), ErrorKind: sourcing.ErrorKind(o.Err)}
		}
		out.Items = append(out.Items, BatchItem{Index: o.Index, URL: reqs[o.Index-1].URL, Result: result})
	}
	summary := batch.Summarize(outcomes)
	out.Success, out.Failed = summary.Success, summary.Failed
	p.logger.Info("crawl batch completed",
		zap.Int("items", len(reqs)),
		zap.Int("success", out.Success),
		zap.Int("failed", out.Failed),
	)
	return out, nil
}

// Rescore recomputes and replaces the readiness score of a stored record.
func (p *Pipeline) Rescore(ctx context.Context, id string) (sourcing.ProductRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return sourcing.ProductRecord{}, sourcing.Invalid("id", "is required")
	}
	record, err := p.deps.Store.GetProduct(ctx, id)
	if err != nil {
		return sourcing.ProductRecord{}, fmt.Errorf("get product %s: %w", id, err)
	}
	score := p.deps.Scorer.ScoreRecord(record)
	metrics.ObserveScore(score.Qualitative.Score, score.Quantitative.Score, score.Combined)
	if err := p.deps.Store.UpdateScore(ctx, id, score); err != nil {
		return sourcing.ProductRecord{}, fmt.Errorf("update score %s: %w", id, err)
	}
	record.Score = &score
	record.UpdatedAt = score.EvaluatedAt
	if record.Status != sourcing.StatusExported {
		record.Status = statusFor(score)
	}
	p.logger.Debug("product rescored", zap.String("id", id), zap.Int("combined", score.Combined))
	return record, nil
}

// RescoreItem is one rescore outcome within a batch.
type RescoreItem struct {
	Index     int                      `json:"index"`
	ID        string                   `json:"id"`
	OK        bool                     `json:"ok"`
	Score     *sourcing.ReadinessScore `json:"score,omitempty"`
	Error     string                   `json:"error,omitempty"`
	ErrorKind sourcing.Kind            `json:"error_kind,omitempty"`
}

// RescoreBatchResult collects per-item rescore outcomes in input order.
type RescoreBatchResult struct {
	Items   []RescoreItem `json:"items"`
	Success int           `json:"success"`
	Failed  int           `json:"failed"`
}

// RescoreBatch rescores every id independently.
func (p *Pipeline) RescoreBatch(ctx context.Context, ids []string) (RescoreBatchResult, error) {
	if err := p.checkBatchSize("ids", len(ids)); err != nil {
		return RescoreBatchResult{}, err
	}
	outcomes := batch.Run(ctx, ids, p.cfg.BatchConcurrency, p.Rescore)
	out := RescoreBatchResult{Items: make([]RescoreItem, 0, len(outcomes))}
	for _, o := range outcomes {
		item := RescoreItem{Index: o.Index, ID: ids[o.Index-1]}
		if o.Err != nil {
			item.Error = o.Err.Error()
			item.ErrorKind = sourcing.ErrorKind(o.Err)
		} else {
			item.OK = true
			item.Score = o.Value.Score
		}
		out.Items = append(out.Items, item)
	}
	summary := batch.Summarize(outcomes)
	out.Success, out.Failed = summary.Success, summary.Failed
	return out, nil
}

// PreviewRequest carries product text to map without crawling.
type PreviewRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Specs       map[string]string `json:"specs,omitempty"`
}

// Preview maps text against the current taxonomy without persisting anything.
func (p *Pipeline) Preview(ctx context.Context, req PreviewRequest) (sourcing.Mapping, error) {
	if strings.TrimSpace(req.Title) == "" {
		return sourcing.Mapping{}, sourcing.Invalid("title", "is required")
	}
	if p.deps.Taxonomy == nil {
		return sourcing.Mapping{}, fmt.Errorf("taxonomy source is not configured")
	}
	snap, err := p.deps.Taxonomy.Snapshot(ctx)
	if err != nil {
		return sourcing.Mapping{}, fmt.Errorf("load taxonomy: %w", err)
	}
	return mapProduct(snap, req.Title, req.Description, req.Specs), nil
}

func (p *Pipeline) checkBatchSize(field string, n int) error {
	if n == 0 {
		return sourcing.Invalid(field, "must not be empty")
	}
	if p.cfg.BatchMaxItems > 0 && n > p.cfg.BatchMaxItems {
		return sourcing.Invalid(field, fmt.Sprintf("at most %d items per batch", p.cfg.BatchMaxItems))
	}
	return nil
}
