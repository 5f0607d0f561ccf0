package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"curtailwatch/internal/app"
)

// analysisFlags are shared by every command that runs a pass.
type analysisFlags struct {
	groupBy     string
	granularity string
	overlay     bool
	irradiance  float64
	diff        float64
	dates       []string
}

func (f *analysisFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.groupBy, "group-by", "", "Dimension to group series by (defaults to config)")
	flags.StringVar(&f.granularity, "granularity", "", "Display granularity: hour, day or month")
	flags.BoolVar(&f.overlay, "overlay", false, "Overlay different dates on one reference calendar")
	flags.Float64Var(&f.irradiance, "irradiance-threshold", 0, "Irradiance above which curtailment is possible (W/m²)")
	flags.Float64Var(&f.diff, "diff-threshold", 0, "Dispatch/power gap under which output counts as pinned (MW)")
	flags.StringSliceVar(&f.dates, "date", nil, "Only analyse these dates (YYYY-MM-DD, repeatable)")
}

// overrides returns only the settings the user set explicitly.
func (f *analysisFlags) overrides(cmd *cobra.Command) app.AnalysisOverrides {
	o := app.AnalysisOverrides{
		GroupDimension: f.groupBy,
		Granularity:    f.granularity,
	}
	flags := cmd.Flags()
	if flags.Changed("overlay") {
		overlay := f.overlay
		o.Overlay = &overlay
	}
	if flags.Changed("irradiance-threshold") {
		v := f.irradiance
		o.IrradianceThreshold = &v
	}
	if flags.Changed("diff-threshold") {
		v := f.diff
		o.DiffThreshold = &v
	}
	return o
}
