package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/caselabel/internal/taxonomy"
)

var taxonomyJSON bool

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Print the active taxonomy",
	Long: `Print the topics, subcategories and intensity statements of the active
taxonomy version. This is the same reference given to the generative model.

Example:
  caselabel taxonomy
  caselabel taxonomy --json
  caselabel taxonomy --taxonomy-file ./catalogue.yaml`,
	Args: cobra.NoArgs,
	RunE: runTaxonomy,
}

func init() {
	rootCmd.AddCommand(taxonomyCmd)
	taxonomyCmd.Flags().BoolVar(&taxonomyJSON, "json", false, "print topics and intensity as JSON")
}

func runTaxonomy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	schema, err := loadSchema(cfg)
	if err != nil {
		return err
	}

	if !taxonomyJSON {
		_, err := fmt.Fprint(cmd.OutOrStdout(), schema.Reference())
		return err
	}

	type topicOut struct {
		taxonomy.TopicNode
		Intensity []taxonomy.IntensityStatement `json:"intensity"`
	}
	out := struct {
		Version string     `json:"version"`
		Topics  []topicOut `json:"topics"`
	}{Version: schema.Version()}

	for _, topic := range schema.Topics() {
		out.Topics = append(out.Topics, topicOut{
			TopicNode: topic,
			Intensity: schema.Intensity(topic.ID),
		})
	}

	return printJSON(cmd.OutOrStdout(), out)
}
