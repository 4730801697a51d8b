package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abo-offspring-analyzer/internal/domain"
	"github.com/abo-offspring-analyzer/internal/ingest"
)

const (
	apiSource       = "api"
	maxBatchBody    = 1 << 20
	defaultPageSize = 100
	maxPageSize     = 1000
)

// CrossRequest is the body of POST /api/v1/cross. Blood groups may be
// strings or the number 0.
type CrossRequest struct {
	Father   interface{} `json:"father"`
	Mother   interface{} `json:"mother"`
	FatherRh interface{} `json:"father_rh,omitempty"`
	MotherRh interface{} `json:"mother_rh,omitempty"`
}

// BatchResponse is returned by POST /api/v1/batch.
type BatchResponse struct {
	Count   int                      `json:"count"`
	Failed  int                      `json:"failed"`
	Stored  bool                     `json:"stored"`
	Results []*domain.AnalysisResult `json:"results"`
}

// ResultsResponse is returned by GET /api/v1/results.
type ResultsResponse struct {
	Total   int64                    `json:"total"`
	Limit   int                      `json:"limit"`
	Offset  int                      `json:"offset"`
	Results []*domain.AnalysisResult `json:"results"`
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}
	if s.deps.Cache != nil {
		body["cache"] = s.deps.Cache.Stats()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handlePhenotypes(c *gin.Context) {
	genotypes := make(map[string][]string, 4)
	for _, p := range domain.AllPhenotypes() {
		gs, _ := domain.PossibleGenotypes(p)
		names := make([]string, 0, len(gs))
		for _, g := range gs {
			names = append(names, g.String())
		}
		genotypes[p.String()] = names
	}
	c.JSON(http.StatusOK, gin.H{
		"phenotypes": domain.AllPhenotypes(),
		"genotypes":  genotypes,
	})
}

func (s *Server) handleCross(c *gin.Context) {
	var req CrossRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "request body must be a JSON object with father and mother", nil)
		return
	}
	s.cross(c, ingest.RawRecord{
		Father:   req.Father,
		Mother:   req.Mother,
		FatherRh: req.FatherRh,
		MotherRh: req.MotherRh,
	})
}

func (s *Server) handleCrossQuery(c *gin.Context) {
	rec := ingest.RawRecord{}
	if v, ok := c.GetQuery("father"); ok {
		rec.Father = v
	}
	if v, ok := c.GetQuery("mother"); ok {
		rec.Mother = v
	}
	if v, ok := c.GetQuery("father_rh"); ok {
		rec.FatherRh = v
	}
	if v, ok := c.GetQuery("mother_rh"); ok {
		rec.MotherRh = v
	}
	s.cross(c, rec)
}

func (s *Server) cross(c *gin.Context, rec ingest.RawRecord) {
	out := s.deps.Analyzer.AnalyzeRecord(rec, apiSource)
	if out.Failed() {
		var invalid *domain.InvalidPhenotypeError
		if errors.As(out.Err, &invalid) {
			s.abort(c, http.StatusBadRequest, domain.ErrCodeInvalidPhenotype, out.Err.Error(), invalid.Value)
			return
		}
		s.abort(c, http.StatusInternalServerError, domain.ErrCodeInternalServer, out.Err.Error(), nil)
		return
	}
	c.JSON(http.StatusOK, out.Result)
}

// handleBatch analyses a document in either input layout. Per-record errors
// are returned inline; ?persist=true appends the results to the store.
func (s *Server) handleBatch(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBatchBody))
	if err != nil {
		s.abort(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "failed to read request body", nil)
		return
	}

	records, err := ingest.Decode(bytes.NewReader(body))
	if err != nil {
		s.abort(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	outcomes, err := s.deps.Analyzer.Analyze(c.Request.Context(), records, apiSource)
	if err != nil {
		s.abort(c, http.StatusServiceUnavailable, domain.ErrCodeInternalServer, err.Error(), nil)
		return
	}

	resp := BatchResponse{Count: len(outcomes), Results: make([]*domain.AnalysisResult, 0, len(outcomes))}
	for _, o := range outcomes {
		if o.Failed() {
			resp.Failed++
		}
		resp.Results = append(resp.Results, o.Result)
	}

	if c.Query("persist") == "true" {
		if s.deps.Store == nil {
			s.abort(c, http.StatusServiceUnavailable, domain.ErrCodeStorage, "no result store configured", nil)
			return
		}
		if err := s.deps.Store.Append(c.Request.Context(), resp.Results); err != nil {
			s.log.WithError(err).Error("Failed to persist batch results")
			s.abort(c, http.StatusInternalServerError, domain.ErrCodeStorage, "failed to store results", nil)
			return
		}
		resp.Stored = true
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleResults(c *gin.Context) {
	if s.deps.Store == nil {
		s.abort(c, http.StatusServiceUnavailable, domain.ErrCodeStorage, "no result store configured", nil)
		return
	}

	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil || limit <= 0 || limit > maxPageSize {
		s.abort(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "limit must be between 1 and 1000", c.Query("limit"))
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		s.abort(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "offset must be a non-negative integer", c.Query("offset"))
		return
	}

	ctx := c.Request.Context()
	total, err := s.deps.Store.Count(ctx)
	if err != nil {
		s.log.WithError(err).Error("Failed to count results")
		s.abort(c, http.StatusInternalServerError, domain.ErrCodeStorage, "failed to read results", nil)
		return
	}
	list, err := s.deps.Store.List(ctx, limit, offset)
	if err != nil {
		s.log.WithError(err).Error("Failed to list results")
		s.abort(c, http.StatusInternalServerError, domain.ErrCodeStorage, "failed to read results", nil)
		return
	}

	c.JSON(http.StatusOK, ResultsResponse{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		Results: list,
	})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
