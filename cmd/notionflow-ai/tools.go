package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/thebtf/notionflow-ai/internal/clustering"
	"github.com/thebtf/notionflow-ai/pkg/models"
)

var clusterInput string

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Cluster a batch of page embeddings and print the result",
	Long: `Reads page embeddings as {"embeddings":[{"page_id":..,"vector":[..]}]} or as a
bare array, fits the density clustering and prints {clusters, noise}.

Examples:
  notionflow-ai cluster -i embeddings.json
  cat embeddings.json | notionflow-ai cluster`,
	Args: cobra.NoArgs,
	RunE: runCluster,
}

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Classify a note and print its type and confidence",
	Long: `Classifies the given text, or standard input when no text is given. When an
embedding endpoint is configured the prototype similarity is used as well.`,
	RunE: runClassify,
}

func init() {
	clusterCmd.Flags().StringVarP(&clusterInput, "input", "i", "", "Input file (default stdin)")
	rootCmd.AddCommand(clusterCmd, classifyCmd)
}

func runCluster(cmd *cobra.Command, _ []string) error {
	data, err := readInput(cmd, clusterInput)
	if err != nil {
		return err
	}
	pages, err := parseEmbeddings(data)
	if err != nil {
		return err
	}

	svc := clustering.NewService(clustering.DefaultParams(), nil)
	result, err := svc.Fit(cmd.Context(), clustering.ItemsFromPages(pages))
	if err != nil {
		return fmt.Errorf("cluster: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), result.ClusterResult())
}

func runClassify(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if text == "" {
		data, err := readInput(cmd, "")
		if err != nil {
			return err
		}
		text = string(data)
	}

	enc := newEncoder(cfg)
	cls, err := newClassifier(cmd.Context(), cfg, enc)
	if err != nil {
		return err
	}

	var vector []float32
	if enc != nil {
		vector, err = enc.Encode(cmd.Context(), text)
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}
	}

	label, confidence := cls.Classify(text, vector)
	return printJSON(cmd.OutOrStdout(), map[string]any{"label": label, "confidence": confidence})
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return data, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return data, nil
}

// parseEmbeddings accepts either the /cluster request body or a bare array.
func parseEmbeddings(data []byte) ([]models.PageEmbedding, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var pages []models.PageEmbedding
		if err := json.Unmarshal(data, &pages); err != nil {
			return nil, fmt.Errorf("parse embeddings: %w", err)
		}
		return pages, nil
	}
	var body struct {
		Embeddings []models.PageEmbedding `json:"embeddings"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("parse embeddings: %w", err)
	}
	return body.Embeddings, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
