package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/export"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/pipeline"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

func (s *Server) crawl(w http.ResponseWriter, r *http.Request) {
	var req pipeline.CrawlRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	result := s.crawler.Crawl(r.Context(), req)
	status := http.StatusOK
	if !result.OK {
		status = statusFor(result.ErrorKind)
		if status == http.StatusInternalServerError {
			result.Error = "internal server error"
		}
	}
	writeJSON(w, status, result)
}

type batchCrawlRequest struct {
	URLs                []string                `json:"urls"`
	Items               []pipeline.CrawlRequest `json:"items"`
	TargetMarginPercent *float64                `json:"target_margin_percent,omitempty"`
}

func (b batchCrawlRequest) requests() []pipeline.CrawlRequest {
	out := make([]pipeline.CrawlRequest, 0, len(b.URLs)+len(b.Items))
	for _, u := range b.URLs {
		out = append(out, pipeline.CrawlRequest{URL: u, TargetMarginPercent: b.TargetMarginPercent})
	}
	for _, item := range b.Items {
		if item.TargetMarginPercent == nil {
			item.TargetMarginPercent = b.TargetMarginPercent
		}
		out = append(out, item)
	}
	return out
}

type batchCrawlResponse struct {
	OK bool `json:"ok"`
	pipeline.BatchResult
}

func (s *Server) crawlBatch(w http.ResponseWriter, r *http.Request) {
	var req batchCrawlRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := s.crawler.CrawlBatch(r.Context(), req.requests())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchCrawlResponse{OK: true, BatchResult: result})
}

type productResponse struct {
	OK      bool                   `json:"ok"`
	Product sourcing.ProductRecord `json:"product"`
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	record, err := s.products.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, productResponse{OK: true, Product: record})
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.products.DeleteProduct(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
}

type listResponse struct {
	OK       bool                     `json:"ok"`
	Count    int                      `json:"count"`
	Products []sourcing.ProductRecord `json:"products"`
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	records, err := s.products.ListProducts(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if records == nil {
		records = []sourcing.ProductRecord{}
	}
	writeJSON(w, http.StatusOK, listResponse{OK: true, Count: len(records), Products: records})
}

func (s *Server) rescore(w http.ResponseWriter, r *http.Request) {
	record, err := s.crawler.Rescore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, productResponse{OK: true, Product: record})
}

type rescoreBatchRequest struct {
	IDs []string `json:"ids"`
}

type rescoreBatchResponse struct {
	OK bool `json:"ok"`
	pipeline.RescoreBatchResult
}

func (s *Server) rescoreBatch(w http.ResponseWriter, r *http.Request) {
	var req rescoreBatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := s.crawler.RescoreBatch(r.Context(), req.IDs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rescoreBatchResponse{OK: true, RescoreBatchResult: result})
}

func (s *Server) previewMapping(w http.ResponseWriter, r *http.Request) {
	var req pipeline.PreviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	mapping, err := s.crawler.Preview(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "mapping": mapping})
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	var sel export.Selection
	if err := decodeJSON(w, r, &sel); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeArtifact(w, r, sel)
}

func (s *Server) exportTemplate(w http.ResponseWriter, r *http.Request) {
	s.writeArtifact(w, r, export.Selection{Mode: export.ModeTemplate})
}

func (s *Server) writeArtifact(w http.ResponseWriter, r *http.Request, sel export.Selection) {
	artifact, err := s.exporter.Export(r.Context(), sel)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	h := w.Header()
	h.Set("Content-Type", artifact.ContentType)
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	h.Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	h.Set("X-Export-Rows", strconv.Itoa(artifact.Rows))
	h.Set("X-Export-Failures", strconv.Itoa(len(artifact.Failures)))
	if artifact.URI != "" {
		h.Set("X-Export-URI", artifact.URI)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Data)
}

// parseFilter reads status, min_score, max_score, category_code, from, to
// and limit. Times are RFC 3339 or YYYY-MM-DD.
func parseFilter(q url.Values) (sourcing.ProductFilter, error) {
	var f sourcing.ProductFilter
	if status := strings.TrimSpace(q.Get("status")); status != "" {
		switch sourcing.RecordStatus(status) {
		case sourcing.StatusDraft, sourcing.StatusReady, sourcing.StatusExported:
			f.Status = sourcing.RecordStatus(status)
		default:
			return f, sourcing.Invalid("status", fmt.Sprintf("unknown status %q", status))
		}
	}
	var err error
	if f.MinScore, err = intParam(q, "min_score"); err != nil {
		return f, err
	}
	if f.MaxScore, err = intParam(q, "max_score"); err != nil {
		return f, err
	}
	f.CategoryCode = strings.TrimSpace(q.Get("category_code"))
	if f.From, err = timeParam(q, "from", false); err != nil {
		return f, err
	}
	if f.To, err = timeParam(q, "to", true); err != nil {
		return f, err
	}
	limit, err := intParam(q, "limit")
	if err != nil {
		return f, err
	}
	if limit != nil {
		if *limit < 0 {
			return f, sourcing.Invalid("limit", "must not be negative")
		}
		f.Limit = *limit
	}
	return f, nil
}

func intParam(q url.Values, name string) (*int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, sourcing.Invalid(name, "must be an integer")
	}
	return &v, nil
}

// timeParam parses an RFC 3339 instant or a YYYY-MM-DD date in UTC. A bare
// date used as an upper bound covers the whole day.
func timeParam(q url.Values, name string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		if endOfDay {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		return &t, nil
	}
	return nil, sourcing.Invalid(name, "must be RFC 3339 or YYYY-MM-DD")
}
