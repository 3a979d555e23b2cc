package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/kilupskalvis/bf2marc/internal/source"
	"github.com/spf13/cobra"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported input and output formats",
	Run:   runFormats,
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}

func runFormats(cmd *cobra.Command, args []string) {
	bold := color.New(color.Bold)

	bold.Println("Input formats:")
	for _, f := range source.Formats() {
		marker := " "
		if f == source.DefaultFormat {
			marker = "*"
		}
		fmt.Printf("  %s %s\n", marker, f)
	}

	bold.Println("Output formats:")
	fmt.Println("  * xml   (MARCXML collection)")
	fmt.Println("    marc  (binary ISO 2709)")
}
