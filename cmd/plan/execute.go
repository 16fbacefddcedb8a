package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/alchemorsel/vitaplan/internal/application/pipeline"
	"github.com/alchemorsel/vitaplan/internal/domain/plan"
	"github.com/alchemorsel/vitaplan/internal/ports/inbound"
	"gopkg.in/yaml.v3"
)

type options struct {
	configPath string
	input      string
	output     string
	kind       string
}

// loadRequest reads a plan request. YAML is a superset of JSON so both
// formats decode here.
func loadRequest(path string) (inbound.PlanRequest, error) {
	var req inbound.PlanRequest

	raw, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("read request: %w", err)
	}
	if err := yaml.Unmarshal(raw, &req); err != nil {
		return req, fmt.Errorf("decode request %s: %w", path, err)
	}
	return req, nil
}

// execute runs the pipeline for kind, writes the JSON result to out and a
// ranked summary to summary. A run without candidates still writes its
// partial result before returning the error.
func execute(
	ctx context.Context,
	planner inbound.PlanningService,
	req inbound.PlanRequest,
	kind string,
	out, summary io.Writer,
) error {
	var (
		result interface{}
		kinds  []*inbound.KindResult
		runErr error
	)

	switch strings.ToLower(kind) {
	case "", "all":
		res, err := planner.Run(ctx, req)
		runErr = err
		if res != nil {
			result = res
			kinds = append(kinds, res.Diet, res.Exercise)
		}
	default:
		k, err := plan.ParseKind(kind)
		if err != nil {
			return err
		}
		res, err := planner.GenerateCandidates(ctx, k, req)
		runErr = err
		if res != nil {
			result = res
			kinds = append(kinds, res)
		}
	}

	if result == nil {
		return runErr
	}
	if runErr != nil && !stderrors.Is(runErr, pipeline.ErrNoCandidates) {
		return runErr
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	writeSummary(summary, kinds)
	return runErr
}

func writeSummary(w io.Writer, kinds []*inbound.KindResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	for _, kr := range kinds {
		if kr == nil {
			continue
		}
		fmt.Fprintf(tw, "%s\tretrieval=%s\tcandidates=%d\tdropped=%d\n",
			strings.ToUpper(string(kr.Kind)), kr.RetrievalMode, len(kr.Candidates), kr.Dropped)
		for _, c := range kr.Top {
			fmt.Fprintf(tw, "  #%d\t%s\t%s\tscore=%.1f\tsafe=%t\n",
				c.Rank, c.Variant.Label, c.Variant.Title, c.Assessment.Score, c.Assessment.IsSafe)
		}
		for _, e := range kr.Errors {
			fmt.Fprintf(tw, "  error\t%s\n", e)
		}
	}
}
