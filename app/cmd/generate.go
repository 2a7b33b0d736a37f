package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"text2model/app/usecase"
	"text2model/internal/domain/entity"
)

var errGenerationFailed = errors.New("generation failed")

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Run the pipeline once for a prompt and print the result",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().String("user", "", "User id whose service configuration applies")
	generateCmd.Flags().Bool("json", false, "Print the result as JSON")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	userID, _ := cmd.Flags().GetString("user")
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// one-shot runs are not indexed as jobs
	cfg.Mongo.URI = ""
	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	req := entity.GenerationRequest{Prompt: strings.Join(args, " "), UserID: userID}
	if err := usecase.ValidateRequest(&req); err != nil {
		return err
	}

	result := app.pipeline.Execute(ctx, req)

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, result.Message)
	}

	if !result.Success {
		return fmt.Errorf("%w at stage %s", errGenerationFailed, result.Stage)
	}
	return nil
}
