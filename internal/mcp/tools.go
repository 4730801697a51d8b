package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/abo-offspring-analyzer/internal/domain"
	"github.com/abo-offspring-analyzer/internal/ingest"
)

const (
	toolCrossPhenotypes = "cross_phenotypes"
	toolAnalyzeRecords  = "analyze_records"
	toolListPhenotypes  = "list_phenotypes"

	mcpSource = "mcp"
)

var toolNames = []string{toolCrossPhenotypes, toolAnalyzeRecords, toolListPhenotypes}

// CrossInput is the input of cross_phenotypes.
type CrossInput struct {
	Father   any    `json:"father" jsonschema:"father blood group: A, B, AB or O (0 is accepted as O)"`
	Mother   any    `json:"mother" jsonschema:"mother blood group: A, B, AB or O (0 is accepted as O)"`
	FatherRh string `json:"father_rh,omitempty" jsonschema:"optional father Rh factor, + or -"`
	MotherRh string `json:"mother_rh,omitempty" jsonschema:"optional mother Rh factor, + or -"`
}

// ResultView is the tool representation of an analysis result.
type ResultView struct {
	ID          string             `json:"id"`
	AnalyzedAt  string             `json:"analyzed_at"`
	Father      string             `json:"father"`
	Mother      string             `json:"mother"`
	FatherRh    *string            `json:"father_rh"`
	MotherRh    *string            `json:"mother_rh"`
	Percentages map[string]float64 `json:"percentages,omitempty"`
	Error       string             `json:"error,omitempty"`
	RecordIndex int                `json:"record_index,omitempty"`
}

func newResultView(r *domain.AnalysisResult) ResultView {
	v := ResultView{
		ID:          r.ID,
		AnalyzedAt:  r.AnalyzedAt.Format(time.RFC3339),
		Father:      r.Father,
		Mother:      r.Mother,
		FatherRh:    rhString(r.FatherRh),
		MotherRh:    rhString(r.MotherRh),
		Error:       r.Error,
		RecordIndex: r.RecordIndex,
	}
	if len(r.Percentages) > 0 {
		v.Percentages = make(map[string]float64, len(r.Percentages))
		for p, pct := range r.Percentages {
			v.Percentages[p.String()] = pct
		}
	}
	return v
}

func rhString(rh *domain.Rh) *string {
	if rh == nil {
		return nil
	}
	s := string(*rh)
	return &s
}

// CrossOutput is the output of cross_phenotypes.
type CrossOutput struct {
	Result ResultView `json:"result"`
}

// RecordInput is one parent pair of analyze_records.
type RecordInput struct {
	Father   any    `json:"father" jsonschema:"father blood group"`
	Mother   any    `json:"mother" jsonschema:"mother blood group"`
	FatherRh string `json:"father_rh,omitempty" jsonschema:"optional father Rh factor"`
	MotherRh string `json:"mother_rh,omitempty" jsonschema:"optional mother Rh factor"`
}

// AnalyzeInput is the input of analyze_records.
type AnalyzeInput struct {
	Records []RecordInput `json:"records" jsonschema:"parent pairs to analyse in order"`
}

// AnalyzeOutput is the output of analyze_records.
type AnalyzeOutput struct {
	Count   int          `json:"count"`
	Failed  int          `json:"failed"`
	Results []ResultView `json:"results"`
}

// ListInput is the (empty) input of list_phenotypes.
type ListInput struct{}

// ListOutput is the output of list_phenotypes.
type ListOutput struct {
	Phenotypes []string            `json:"phenotypes"`
	Genotypes  map[string][]string `json:"genotypes"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        toolCrossPhenotypes,
		Description: "Computes the offspring ABO blood-group distribution, in percent, for a father and mother",
	}, s.handleCross)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        toolAnalyzeRecords,
		Description: "Analyses a list of parent pairs; invalid records carry an error instead of percentages",
	}, s.handleAnalyze)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        toolListPhenotypes,
		Description: "Lists the ABO phenotypes and the genotypes behind each of them",
	}, s.handleList)
}

func (s *Server) handleCross(ctx context.Context, _ *mcp.CallToolRequest, input CrossInput) (*mcp.CallToolResult, CrossOutput, error) {
	out := s.analyzer.AnalyzeRecord(ingest.RawRecord{
		Father:   input.Father,
		Mother:   input.Mother,
		FatherRh: input.FatherRh,
		MotherRh: input.MotherRh,
	}, mcpSource)

	if out.Failed() {
		s.logger.WithError(out.Err).WithField("tool", toolCrossPhenotypes).Warn("Tool call rejected")
		if errors.Is(out.Err, domain.ErrInvalidPhenotype) {
			return errorResult(out.Err), CrossOutput{}, nil
		}
		return nil, CrossOutput{}, out.Err
	}
	return nil, CrossOutput{Result: newResultView(out.Result)}, nil
}

func (s *Server) handleAnalyze(ctx context.Context, _ *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, AnalyzeOutput, error) {
	records := make([]ingest.RawRecord, 0, len(input.Records))
	for i, r := range input.Records {
		records = append(records, ingest.RawRecord{
			Index:    i + 1,
			Father:   r.Father,
			Mother:   r.Mother,
			FatherRh: r.FatherRh,
			MotherRh: r.MotherRh,
		})
	}

	outcomes, err := s.analyzer.Analyze(ctx, records, mcpSource)
	if err != nil {
		return nil, AnalyzeOutput{}, err
	}

	output := AnalyzeOutput{Count: len(outcomes), Results: make([]ResultView, 0, len(outcomes))}
	for _, o := range outcomes {
		if o.Failed() {
			output.Failed++
		}
		output.Results = append(output.Results, newResultView(o.Result))
	}
	s.logger.WithFields(logrus.Fields{
		"tool":    toolAnalyzeRecords,
		"records": output.Count,
		"failed":  output.Failed,
	}).Debug("Tool call handled")
	return nil, output, nil
}

func (s *Server) handleList(ctx context.Context, _ *mcp.CallToolRequest, _ ListInput) (*mcp.CallToolResult, ListOutput, error) {
	output := ListOutput{
		Phenotypes: []string{},
		Genotypes:  make(map[string][]string, 4),
	}
	for _, p := range domain.AllPhenotypes() {
		output.Phenotypes = append(output.Phenotypes, p.String())
		gs, err := domain.PossibleGenotypes(p)
		if err != nil {
			return nil, ListOutput{}, err
		}
		names := make([]string, 0, len(gs))
		for _, g := range gs {
			names = append(names, g.String())
		}
		output.Genotypes[p.String()] = names
	}
	return nil, output, nil
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}
