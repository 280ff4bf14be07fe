// Command vecstream is a thin operational entry point over the
// embedded vector database: enough to create collections, put and
// query vectors, and inspect stats from a shell, the way the teacher
// ships a CLI alongside its library rather than a polished product.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	vecstream "github.com/mira-labs/vecstream"
	"github.com/mira-labs/vecstream/pkg/collection"
)

var (
	baseDir string
	colName string
)

var rootCmd = &cobra.Command{
	Use:   "vecstream",
	Short: "CLI for the vecstream embedded vector database",
}

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage collections",
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		useHNSW, _ := cmd.Flags().GetBool("hnsw")
		mgr, err := openManager()
		if err != nil {
			return err
		}
		if _, err := mgr.CreateCollection(args[0], collection.Options{UseHNSW: &useHNSW}); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
		fmt.Printf("collection %q created\n", args[0])
		return nil
	},
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known collections",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager()
		if err != nil {
			return err
		}
		for _, name := range mgr.ListCollections() {
			fmt.Println(name)
		}
		return nil
	},
}

var collectionDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager()
		if err != nil {
			return err
		}
		if err := mgr.DeleteCollection(args[0]); err != nil {
			return fmt.Errorf("delete collection: %w", err)
		}
		fmt.Printf("collection %q deleted\n", args[0])
		return nil
	},
}

var collectionStatsCmd = &cobra.Command{
	Use:   "stats <name>",
	Short: "Show collection statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager()
		if err != nil {
			return err
		}
		stats, err := mgr.CollectionStats(args[0])
		if err != nil {
			return fmt.Errorf("collection stats: %w", err)
		}
		data, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(data))
		return nil
	},
}

var putCmd = &cobra.Command{
	Use:   "put",
	Short: "Add or overwrite a vector in a collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		vectorStr, _ := cmd.Flags().GetString("vector")
		metadataStr, _ := cmd.Flags().GetString("metadata")

		if id == "" {
			id = uuid.New().String()
		}

		vector, err := parseVector(vectorStr)
		if err != nil {
			return err
		}

		var metadata map[string]any
		if metadataStr != "" {
			if err := json.Unmarshal([]byte(metadataStr), &metadata); err != nil {
				return fmt.Errorf("invalid metadata JSON: %w", err)
			}
		}

		col, err := openCollection()
		if err != nil {
			return err
		}
		if err := col.AddVector(id, vector, metadata); err != nil {
			return fmt.Errorf("add vector: %w", err)
		}
		fmt.Printf("put %q in %q\n", id, colName)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a vector and its metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		col, err := openCollection()
		if err != nil {
			return err
		}
		vector, metadata, err := col.GetVectorWithMetadata(args[0])
		if err != nil {
			return fmt.Errorf("get vector: %w", err)
		}
		data, _ := json.MarshalIndent(map[string]any{"vector": vector, "metadata": metadata}, "", "  ")
		fmt.Println(string(data))
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a vector",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		col, err := openCollection()
		if err != nil {
			return err
		}
		if err := col.RemoveVector(args[0]); err != nil {
			return fmt.Errorf("remove vector: %w", err)
		}
		fmt.Printf("removed %q from %q\n", args[0], colName)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search for similar vectors",
	RunE: func(cmd *cobra.Command, args []string) error {
		vectorStr, _ := cmd.Flags().GetString("vector")
		k, _ := cmd.Flags().GetInt("top-k")
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		filterStr, _ := cmd.Flags().GetString("filter")

		vector, err := parseVector(vectorStr)
		if err != nil {
			return err
		}

		var filter map[string]any
		if filterStr != "" {
			if err := json.Unmarshal([]byte(filterStr), &filter); err != nil {
				return fmt.Errorf("invalid filter JSON: %w", err)
			}
		}

		col, err := openCollection()
		if err != nil {
			return err
		}
		results, err := col.SearchSimilar(vector, k, threshold, filter)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		for i, r := range results {
			fmt.Printf("%d. %s (similarity: %.4f)\n", i+1, r.ID, r.Similarity)
		}
		return nil
	},
}

func parseVector(s string) ([]float32, error) {
	if s == "" {
		return nil, fmt.Errorf("vector is required")
	}
	parts := strings.Split(s, ",")
	vector := make([]float32, 0, len(parts))
	for _, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector format: %w", err)
		}
		vector = append(vector, float32(val))
	}
	return vector, nil
}

func openManager() (*collection.Manager, error) {
	return collection.NewManager(vecstream.DefaultConfig(baseDir))
}

func openCollection() (*collection.Collection, error) {
	mgr, err := openManager()
	if err != nil {
		return nil, err
	}
	return mgr.GetCollection(colName)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&baseDir, "dir", "d", "./vecstream-data", "Base storage directory")
	rootCmd.PersistentFlags().StringVarP(&colName, "collection", "c", "default", "Collection name")

	collectionCreateCmd.Flags().Bool("hnsw", true, "Use HNSW indexing for this collection")
	collectionCmd.AddCommand(collectionCreateCmd, collectionListCmd, collectionDeleteCmd, collectionStatsCmd)

	putCmd.Flags().String("id", "", "Vector ID (auto-generated if omitted)")
	putCmd.Flags().String("vector", "", "Vector values (comma-separated)")
	putCmd.Flags().String("metadata", "", "Metadata as JSON")
	putCmd.MarkFlagRequired("vector")

	searchCmd.Flags().String("vector", "", "Query vector (comma-separated)")
	searchCmd.Flags().Int("top-k", 10, "Number of results")
	searchCmd.Flags().Float64("threshold", 0.0, "Minimum similarity threshold")
	searchCmd.Flags().String("filter", "", "Metadata filter as JSON")
	searchCmd.MarkFlagRequired("vector")

	rootCmd.AddCommand(collectionCmd, putCmd, getCmd, removeCmd, searchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
