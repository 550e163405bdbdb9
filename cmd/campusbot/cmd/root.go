package cmd

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cychuang/campusbot/internal/config"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "campusbot",
	Short: "Campus course and QA assistant bot",
	Long: `Campusbot is a conversational campus assistant. It answers course and
FAQ questions directly from a curated knowledge base when keywords match, and
otherwise holds an open-ended per-user conversation through a completion
provider.`,
	PersistentPreRun: loadConfig,
}

func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(_ *cobra.Command, _ []string) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg = config.Load()
}
