package cmd

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "go-codegen",
	Short: "go-codegen expands codegen macros in JavaScript and TypeScript sources",
	Long:  "go-codegen runs the code marked by codegen comments, tags, calls and JSX elements at build time and splices the generated code into your sources",
	Run: func(cmd *cobra.Command, args []string) {
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
