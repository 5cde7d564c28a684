package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/millwright/millwright/internal/memory"
)

var (
	memoryUser     string
	rememberSumm   bool
	recallTopK     int
)

var rememberCmd = &cobra.Command{
	Use:   "remember [text]",
	Short: "Store a memory for a user",
	Long: `Store a memory for a user. The text is taken from the argument, or
from stdin when no argument is given. With --summarize the input is
treated as a raw conversation and condensed by the configured chat
model before storage.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRemember,
}

var recallCmd = &cobra.Command{
	Use:   "recall <query>",
	Short: "Recall a user's memories most similar to a query",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecall,
}

func init() {
	rememberCmd.Flags().StringVarP(&memoryUser, "user", "u", "", "user the memory belongs to (required)")
	rememberCmd.Flags().BoolVar(&rememberSumm, "summarize", false, "summarize the input before storing")
	_ = rememberCmd.MarkFlagRequired("user")

	recallCmd.Flags().StringVarP(&memoryUser, "user", "u", "", "user whose memories to search (required)")
	recallCmd.Flags().IntVarP(&recallTopK, "top-k", "k", 0, "maximum results (default 5)")
	_ = recallCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(rememberCmd)
	rootCmd.AddCommand(recallCmd)
}

func runRemember(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	text, err := rememberInput(cmd, args)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	pool, err := a.openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	store, err := a.newMemoryStore(ctx, pool)
	if err != nil {
		return err
	}

	if rememberSumm {
		completer, err := a.newCompleter(ctx)
		if err != nil {
			return err
		}
		summarizer, err := memory.NewSummarizer(completer, a.logger.With("component", "summarizer"))
		if err != nil {
			return err
		}
		text, err = summarizer.Summarize(ctx, text)
		if err != nil {
			return err
		}
		cmd.Printf("summary: %s\n", text)
	}

	if err := store.Add(ctx, memoryUser, text); err != nil {
		return err
	}
	cmd.Printf("stored memory for %s\n", memoryUser)
	return nil
}

// rememberInput reads the memory text from the argument or stdin.
func rememberInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no memory text given (argument or stdin)")
	}
	return text, nil
}

func runRecall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp()
	if err != nil {
		return err
	}
	pool, err := a.openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	store, err := a.newMemoryStore(ctx, pool)
	if err != nil {
		return err
	}

	entries, err := store.Search(ctx, memoryUser, args[0], recallTopK)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		cmd.Printf("no memories found for %s\n", memoryUser)
		return nil
	}

	for _, e := range entries {
		cmd.Printf("%.3f  %s\n", e.Similarity, e.Text)
	}
	return nil
}
