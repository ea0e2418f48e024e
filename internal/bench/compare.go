package bench

import (
	"context"
	"fmt"
	"strings"
)

const maxShownDiffs = 20

// Diff is one differing word position.
type Diff struct {
	Ref  string
	Comp string
}

// FindDifferences compares the lowercased words of both texts position by
// position up to the shorter length.
func FindDifferences(reference, comparison string) []Diff {
	ref := strings.Fields(strings.ToLower(reference))
	comp := strings.Fields(strings.ToLower(comparison))
	var diffs []Diff
	for i := 0; i < len(ref) && i < len(comp); i++ {
		if ref[i] != comp[i] {
			diffs = append(diffs, Diff{Ref: ref[i], Comp: comp[i]})
		}
	}
	return diffs
}

// Compare transcribes file with every row, prints the full texts and then the
// differences of each row against the first successful one.
func (r *Runner) Compare(ctx context.Context, file string, rows []Row) ([]Result, error) {
	fmt.Fprintf(r.w, "Test file: %s\n", file)
	fmt.Fprintln(r.w, rule)

	var results []Result
	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}
		fmt.Fprintf(r.w, "\nTranscribing with %s... ", row.Name())
		res, err := r.run(ctx, file, row)
		if err != nil {
			fmt.Fprintf(r.w, "failed: %v\n", err)
			continue
		}
		fmt.Fprintf(r.w, "done (%.1fs)\n", res.Total().Seconds())
		results = append(results, res)
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	fmt.Fprintf(r.w, "\n%s\nFULL TRANSCRIPTIONS\n%s\n", rule, rule)
	for _, res := range results {
		fmt.Fprintf(r.w, "\n### %s (%.1fs) ###\n\n%s\n\n", res.Row.Name(), res.Total().Seconds(), res.Text)
	}

	ref := results[0]
	fmt.Fprintf(r.w, "\n%s\nDIFFERENCES vs REFERENCE (%s)\n%s\n", rule, ref.Row.Name(), rule)
	for _, res := range results[1:] {
		diffs := FindDifferences(ref.Text, res.Text)
		fmt.Fprintf(r.w, "\n### %s ###\n", res.Row.Name())
		if len(diffs) == 0 {
			fmt.Fprintf(r.w, "  No differences found (or very similar)\n")
			continue
		}
		fmt.Fprintf(r.w, "Found %d potential differences:\n", len(diffs))
		for i, d := range diffs {
			if i == maxShownDiffs {
				break
			}
			fmt.Fprintf(r.w, "  '%s' -> '%s'\n", d.Ref, d.Comp)
		}
		if len(diffs) > maxShownDiffs {
			fmt.Fprintf(r.w, "  ... and %d more\n", len(diffs)-maxShownDiffs)
		}
	}
	return results, nil
}
