package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"text2model/app/config"
	"text2model/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "text2model",
	Short: "Turn text prompts into images and 3D models",
	Long: `text2model enhances a prompt with a local language model, renders it with a
text-to-image app and converts the image into a 3D model with an image-to-3D app.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", os.Getenv("TEXT2MODEL_CONFIG"), "Path to a .hcl, .json or .yaml config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, os.Getenv)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	return cfg, logger, nil
}
