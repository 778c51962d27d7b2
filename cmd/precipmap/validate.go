package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/precip-map/internal/adapter/datafile"
	"github.com/couchcryptid/precip-map/internal/domain"
)

var errValidationFailed = errors.New("validation failed")

// phase tracks pass/fail for a validation phase. Warnings are reported but
// never fail the phase.
type phase struct {
	name     string
	errors   []string
	warnings []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the manifest and asset data hand-off files for consistency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manifest, err := datafile.ReadManifest(a.cfg.ManifestPath)
			if err != nil {
				return err
			}
			data, err := datafile.ReadAssetData(a.cfg.AssetDataPath)
			if err != nil {
				return err
			}

			phases := []*phase{
				validateManifest(manifest),
				validateAssetData(manifest, data),
				validateMapOutput(a.cfg.OutputPath),
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Assets: %d in manifest, %d loaded\n", len(manifest.AssetIDs), len(data.Assets))
			return report(cmd.OutOrStdout(), phases)
		},
	}
}

// validateManifest checks that every id is listed once.
func validateManifest(m domain.Manifest) *phase {
	p := &phase{name: "Manifest ids are unique"}
	seen := make(map[domain.AssetID]int, len(m.AssetIDs))
	for i, id := range m.AssetIDs {
		if first, ok := seen[id]; ok {
			p.errorf("asset_ids[%d]: %s duplicates asset_ids[%d]", i, id, first)
			continue
		}
		seen[id] = i
	}
	return p
}

// validateAssetData checks that records come from the manifest, in manifest
// order, with a finite precipitation value and drawable geometry. Negative
// values are only warned about.
func validateAssetData(m domain.Manifest, d domain.AssetData) *phase {
	p := &phase{name: "Asset data matches manifest"}

	position := make(map[domain.AssetID]int, len(m.AssetIDs))
	for i, id := range m.AssetIDs {
		if _, ok := position[id]; !ok {
			position[id] = i
		}
	}

	last := -1
	for i, rec := range d.Assets {
		pos, ok := position[rec.ID]
		switch {
		case !ok:
			p.errorf("assets[%d]: %s is not in the manifest", i, rec.ID)
		case pos < last:
			p.errorf("assets[%d]: %s is out of manifest order", i, rec.ID)
		default:
			last = pos
		}

		switch {
		case math.IsNaN(rec.AveragePrecip) || math.IsInf(rec.AveragePrecip, 0):
			p.errorf("assets[%d]: %s has invalid average_precip %v", i, rec.ID, rec.AveragePrecip)
		case rec.AveragePrecip < 0:
			// Values come straight from the asset service; a negative mean
			// still renders in the lowest band.
			p.warnf("assets[%d]: %s has negative average_precip %v", i, rec.ID, rec.AveragePrecip)
		}
		if _, err := rec.Ring(); err != nil {
			p.errorf("assets[%d]: %v", i, err)
		}
	}
	return p
}

// validateMapOutput checks that a non-empty map has been rendered.
func validateMapOutput(path string) *phase {
	p := &phase{name: "Map has been rendered"}
	info, err := os.Stat(path)
	switch {
	case err != nil:
		p.errorf("%s: %v", path, err)
	case info.Size() == 0:
		p.errorf("%s is empty", path)
	}
	return p
}

func report(w io.Writer, phases []*phase) error {
	pass := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()

	allPassed := true
	for _, p := range phases {
		status := pass("PASS")
		switch {
		case !p.passed():
			status = fail(fmt.Sprintf("FAIL (%d errors)", len(p.errors)))
			allPassed = false
		case len(p.warnings) > 0:
			status = warn(fmt.Sprintf("PASS (%d warnings)", len(p.warnings)))
		}
		fmt.Fprintf(w, "  %-32s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() && len(p.warnings) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
		for _, m := range p.warnings {
			fmt.Fprintf(w, "  warning: %s\n", m)
		}
	}

	if !allPassed {
		return errValidationFailed
	}
	fmt.Fprintln(w, "\nAll validations passed.")
	return nil
}
