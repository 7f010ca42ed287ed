package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"docchat/internal/app"
	"docchat/pkg/config"
	"docchat/pkg/engine"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()

	if err := run(configPath); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()

	vs, err := app.BuildStore(ctx, cfg, 0)
	if err != nil {
		return err
	}
	defer vs.Close()

	condenser, ret, answerer, err := app.BuildQueryPipeline(cfg, vs)
	if err != nil {
		return err
	}
	session := engine.New(condenser, ret, answerer)

	color.Cyan("\nChat with your documents (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()
	citationStyle := color.New(color.Faint).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		utterance := strings.TrimSpace(scanner.Text())
		if utterance == "" {
			continue
		}
		if strings.EqualFold(utterance, "exit") {
			break
		}

		answer, err := session.Ask(ctx, utterance)
		if err != nil {
			// The answer text already carries the user-facing message.
			fmt.Fprintf(os.Stderr, "turn failed: %v\n", err)
		}

		assistantPrompt("\nAssistant: %s\n", answer.Text)
		for _, citation := range answer.Citations {
			citationStyle("  [%s] %s\n", citation.Label, preview(citation.Text, 100))
		}
	}

	return scanner.Err()
}

func preview(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "…"
}
