package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cq",
	Short: "Cq is a tool for inspecting hierarchical configuration files.",
	Long:  "Cq is a tool for inspecting hierarchical configuration files. It can dump a file as a section tree, look up single keys, and isolate nested sections without parsing the rest of the file.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of Cq",
	Long:  `All software has versions. This is Cq's`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Cq v0.1 -- HEAD")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(confCmd)
}
