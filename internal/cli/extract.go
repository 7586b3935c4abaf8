package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kg46sp8kps-web/gestima-sub000/internal/extract"
)

var prettyFlag bool

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <file.step>",
	Short: "Extract the rotational profile of a single STEP file",
	Long: `Extract parses one STEP exchange file, resolves its entity graph, and
prints the synthesized rotational profile as JSON on stdout.

Per-surface resolution problems are skipped and counted; file-level
failures (malformed records, unsupported surface types, insufficient
geometry) exit non-zero with a typed error message.

Examples:
  # Extract one part
  gestima-profile extract shaft.step

  # Pretty-print the profile
  gestima-profile extract shaft.step --pretty
`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().BoolVar(&prettyFlag, "pretty", false, "Indent the JSON output")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	res, err := extract.New(cfg, extract.WithLogger(logger)).ExtractFile(data)
	if err != nil {
		return fmt.Errorf("extraction failed for %s: %w", args[0], err)
	}

	if res.Stats.SkippedSurfaces > 0 {
		logger.Warn("surfaces skipped during classification",
			zap.String("path", args[0]),
			zap.Int("skipped", res.Stats.SkippedSurfaces),
		)
	}

	enc := json.NewEncoder(os.Stdout)
	if prettyFlag {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(res.Profile)
}
