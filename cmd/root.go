// Package cmd implements the quill command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "Quill - note-taking backend with AI chat",
	Long: `Quill is the backend for a rich-text note-taking app with AI chat.
It persists editor documents, embeds their content for similarity search,
and answers questions grounded in the stored notes.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
