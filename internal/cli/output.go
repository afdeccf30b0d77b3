package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/embex/internal/models"
)

// OutputFormat is the format of command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is indented JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates s as an output format.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case OutputText, OutputJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

// Write renders v in format. Text rendering is chosen by the value's type;
// unknown types fall back to JSON.
func Write(w io.Writer, v interface{}, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, v)
	}
	switch v := v.(type) {
	case *models.SimilarityResult:
		writeSimilarity(w, v)
	case *models.CompareResult:
		writeCompare(w, v)
	case *models.EmbeddingsResponse:
		writeEmbeddings(w, v)
	case *models.NeighborhoodResponse:
		writeNeighborhood(w, v)
	case *models.Status:
		writeStatus(w, v)
	default:
		return writeJSON(w, v)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSimilarity(w io.Writer, r *models.SimilarityResult) {
	if !r.InVocabulary {
		fmt.Fprintln(w, r.Message)
		if len(r.Suggestions) > 0 {
			fmt.Fprintf(w, "Did you mean: %s?\n", strings.Join(r.Suggestions, ", "))
		}
		return
	}
	fmt.Fprintf(w, "Nearest to %q (%s)\n", r.QueryWord, r.ModelType.DisplayName())
	for i, s := range r.SimilarWords {
		fmt.Fprintf(w, "%3d. %-24s %.4f\n", i+1, s.Word, s.Similarity)
	}
}

func writeCompare(w io.Writer, r *models.CompareResult) {
	for _, t := range models.AllModelTypes() {
		res, ok := r.Results[t]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "── %s ──\n", t.DisplayName())
		if res.ModelType == "" {
			res.ModelType = t
		}
		writeSimilarity(w, res)
		fmt.Fprintln(w)
	}
}

func writeEmbeddings(w io.Writer, r *models.EmbeddingsResponse) {
	fmt.Fprintf(w, "%s, %s, %d words", r.ModelType.DisplayName(), r.ReductionMethod, r.NumWords)
	writeReductionNotes(w, r.FallbackUsed, r.EffectivePerplexity)
	for _, p := range r.Points {
		fmt.Fprintf(w, "%-24s %10.4f %10.4f %8d\n", p.Word, p.X, p.Y, p.Frequency)
	}
}

func writeNeighborhood(w io.Writer, r *models.NeighborhoodResponse) {
	fmt.Fprintf(w, "Neighborhood of %q (%s, %s)", r.QueryWord, r.ModelType.DisplayName(), r.ReductionMethod)
	writeReductionNotes(w, r.FallbackUsed, r.EffectivePerplexity)
	for _, p := range r.Points {
		marker := " "
		if p.IsQuery {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %-24s %10.4f %10.4f %8.4f\n", marker, p.Word, p.X, p.Y, p.Similarity)
	}
}

func writeReductionNotes(w io.Writer, fallback bool, perplexity int) {
	if perplexity > 0 {
		fmt.Fprintf(w, ", perplexity %d", perplexity)
	}
	if fallback {
		fmt.Fprint(w, " (t-SNE failed, PCA fallback)")
	}
	fmt.Fprintln(w)
}

func writeStatus(w io.Writer, s *models.Status) {
	fmt.Fprintf(w, "uptime_seconds:    %d\n", s.UptimeSeconds)
	fmt.Fprintf(w, "cache_entries:     %d   # cached projections\n", s.CacheEntries)
	fmt.Fprintf(w, "memory_rss_bytes:  %d\n", s.MemoryRSSBytes)
	fmt.Fprintf(w, "cpu_percent:       %.1f\n", s.CPUPercent)
	fmt.Fprintf(w, "disk_usage_bytes:  %d   # model artifacts + lexicon\n", s.DiskUsageBytes)
	resident := make([]string, len(s.ResidentModels))
	for i, t := range s.ResidentModels {
		resident[i] = string(t)
	}
	fmt.Fprintf(w, "resident_models:   %s\n", strings.Join(resident, ", "))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# models")
	for _, m := range s.Models {
		state := "not loaded"
		if m.IsLoaded {
			state = fmt.Sprintf("%d words x %d dims", m.VocabSize, m.VectorDimensions)
		}
		fmt.Fprintf(w, "%-22s %s\n", m.DisplayName, state)
	}
	if len(s.LastBuilds) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# recent builds")
		for _, b := range s.LastBuilds {
			fmt.Fprintf(w, "%s  %-18s %d words, %d dims, %d documents\n",
				b.CreatedAt.Format("2006-01-02 15:04:05"), b.Model, b.VocabSize, b.Dimensions, b.Documents)
		}
	}
}
