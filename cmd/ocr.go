package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr <image>",
	Short: "Recognise handwritten working in an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		img, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}

		d, err := buildDeps(cmd, depsOpts{needOCR: true})
		if err != nil {
			return err
		}
		defer d.Close()

		res := d.ocr.Read(cmd.Context(), img)
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		renderOCR(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	ocrCmd.Flags().Bool("json", false, "Print the raw result as JSON")
}
