package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const version = "1.0.0"

var (
	serverAddr string
	namespace  string
	timeout    time.Duration
)

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	flag.StringVar(&serverAddr, "server", "http://localhost:8080", "REST API base URL")
	flag.StringVar(&namespace, "namespace", "default", "namespace to use")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	command := os.Args[1]

	switch command {
	case "insert":
		handleInsert(os.Args[2:])
	case "search":
		handleSearch(os.Args[2:])
	case "hybrid-search":
		handleHybridSearch(os.Args[2:])
	case "batch-insert":
		handleBatchInsert(os.Args[2:])
	case "delete-namespace":
		handleDeleteNamespace(os.Args[2:])
	case "trace":
		handleTrace(os.Args[2:])
	case "stats":
		handleStats(os.Args[2:])
	case "health":
		handleHealth(os.Args[2:])
	case "version":
		fmt.Printf("vector-cli version %s\n", version)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		showUsage()
		os.Exit(1)
	}
}

func httpClient() *http.Client {
	return &http.Client{Timeout: timeout}
}

func postJSON(path string, body interface{}, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, serverAddr+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeOrError(resp, out)
}

func getJSON(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, serverAddr+path, nil)
	if err != nil {
		return err
	}

	resp, err := httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeOrError(resp, out)
}

func deleteRequest(path string) error {
	req, err := http.NewRequest(http.MethodDelete, serverAddr+path, nil)
	if err != nil {
		return err
	}

	resp, err := httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeOrError(resp, nil)
}

func decodeOrError(resp *http.Response, out interface{}) error {
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func handleInsert(args []string) {
	fs := flag.NewFlagSet("insert", flag.ExitOnError)
	var (
		vectorStr   = fs.String("vector", "", "vector as JSON array (required)")
		metadataStr = fs.String("metadata", "", "metadata as JSON object")
		text        = fs.String("text", "", "text content for full-text search")
	)
	fs.StringVar(&serverAddr, "server", serverAddr, "REST API base URL")
	fs.StringVar(&namespace, "namespace", namespace, "namespace")
	fs.Parse(args)

	if *vectorStr == "" {
		fmt.Println("Error: -vector is required")
		fs.Usage()
		os.Exit(1)
	}

	vector := parseVector(*vectorStr)
	metadata := parseMetadata(*metadataStr)

	var resp struct {
		ID string `json:"id"`
	}
	err := postJSON("/v1/vectors", map[string]interface{}{
		"namespace": namespace,
		"vector":    vector,
		"metadata":  metadata,
		"text":      *text,
	}, &resp)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Inserted vector with ID: %s\n", resp.ID)
}

func handleSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	var (
		queryVectorStr = fs.String("query", "", "query vector as JSON array (required)")
		k              = fs.Int("k", 10, "number of results to return")
	)
	fs.StringVar(&serverAddr, "server", serverAddr, "REST API base URL")
	fs.StringVar(&namespace, "namespace", namespace, "namespace")
	fs.Parse(args)

	if *queryVectorStr == "" {
		fmt.Println("Error: -query is required")
		fs.Usage()
		os.Exit(1)
	}

	var resp struct {
		Results []struct {
			ID       string  `json:"id"`
			Distance float32 `json:"distance"`
		} `json:"results"`
	}
	err := postJSON("/v1/vectors/search", map[string]interface{}{
		"namespace":    namespace,
		"query_vector": parseVector(*queryVectorStr),
		"k":            *k,
	}, &resp)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d results\n\n", len(resp.Results))
	for i, r := range resp.Results {
		fmt.Printf("Result %d:\n  ID:       %s\n  Distance: %.6f\n\n", i+1, r.ID, r.Distance)
	}
}

func handleHybridSearch(args []string) {
	fs := flag.NewFlagSet("hybrid-search", flag.ExitOnError)
	var (
		queryVectorStr = fs.String("query-vector", "", "query vector as JSON array (required)")
		queryText      = fs.String("query-text", "", "query text (required)")
		k              = fs.Int("k", 10, "number of results to return")
	)
	fs.StringVar(&serverAddr, "server", serverAddr, "REST API base URL")
	fs.StringVar(&namespace, "namespace", namespace, "namespace")
	fs.Parse(args)

	if *queryVectorStr == "" || *queryText == "" {
		fmt.Println("Error: both -query-vector and -query-text are required")
		fs.Usage()
		os.Exit(1)
	}

	var resp struct {
		Results []struct {
			ID          string                 `json:"id"`
			VectorScore float32                `json:"vector_score"`
			TextScore   float64                `json:"text_score"`
			FusedScore  float64                `json:"fused_score"`
			Metadata    map[string]interface{} `json:"metadata,omitempty"`
		} `json:"results"`
	}
	err := postJSON("/v1/vectors/hybrid-search", map[string]interface{}{
		"namespace":    namespace,
		"query_vector": parseVector(*queryVectorStr),
		"query_text":   *queryText,
		"k":            *k,
	}, &resp)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d results\n\n", len(resp.Results))
	for i, r := range resp.Results {
		fmt.Printf("Result %d:\n  ID:     %s\n  Fused:  %.4f  (vector=%.4f text=%.4f)\n\n",
			i+1, r.ID, r.FusedScore, r.VectorScore, r.TextScore)
	}
}

func handleBatchInsert(args []string) {
	fs := flag.NewFlagSet("batch-insert", flag.ExitOnError)
	var vectorsStr = fs.String("vectors", "", "vectors as a JSON array of [v1,v2,...] arrays (required)")
	fs.StringVar(&serverAddr, "server", serverAddr, "REST API base URL")
	fs.StringVar(&namespace, "namespace", namespace, "namespace")
	fs.Parse(args)

	if *vectorsStr == "" {
		fmt.Println("Error: -vectors is required")
		fs.Usage()
		os.Exit(1)
	}

	var raw [][]float64
	if err := json.Unmarshal([]byte(*vectorsStr), &raw); err != nil {
		fmt.Printf("Error parsing vectors: %v\n", err)
		os.Exit(1)
	}

	items := make([]map[string]interface{}, len(raw))
	for i, v := range raw {
		items[i] = map[string]interface{}{"vector": toFloat32(v)}
	}

	var resp struct {
		IDs    []string `json:"ids"`
		Failed int      `json:"failed"`
	}
	err := postJSON("/v1/vectors/batch", map[string]interface{}{
		"namespace": namespace,
		"vectors":   items,
	}, &resp)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Inserted %d vectors (%d failed)\n", len(resp.IDs), resp.Failed)
}

func handleDeleteNamespace(args []string) {
	fs := flag.NewFlagSet("delete-namespace", flag.ExitOnError)
	fs.StringVar(&serverAddr, "server", serverAddr, "REST API base URL")
	fs.StringVar(&namespace, "namespace", namespace, "namespace")
	fs.Parse(args)

	if err := deleteRequest("/v1/namespaces/" + namespace); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Deleted namespace %q\n", namespace)
}

func handleTrace(args []string) {
	fs := flag.NewFlagSet("trace", flag.ExitOnError)
	var (
		queryVectorStr = fs.String("query", "", "query vector as JSON array (required)")
		k              = fs.Int("k", 10, "number of results to return")
	)
	fs.StringVar(&serverAddr, "server", serverAddr, "REST API base URL")
	fs.StringVar(&namespace, "namespace", namespace, "namespace")
	fs.Parse(args)

	if *queryVectorStr == "" {
		fmt.Println("Error: -query is required")
		fs.Usage()
		os.Exit(1)
	}

	var resp struct {
		Results  []struct {
			ID       string  `json:"id"`
			Distance float32 `json:"distance"`
		} `json:"results"`
		Events   []map[string]interface{} `json:"events"`
		Counters map[string]interface{}   `json:"counters"`
	}
	err := postJSON("/v1/namespaces/"+namespace+"/trace", map[string]interface{}{
		"query_vector": parseVector(*queryVectorStr),
		"k":            *k,
	}, &resp)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%d results, %d trace events\n", len(resp.Results), len(resp.Events))
	for _, e := range resp.Events {
		fmt.Printf("  %v\n", e)
	}
}

func handleStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.StringVar(&serverAddr, "server", serverAddr, "REST API base URL")
	fs.Parse(args)

	targetNamespace := ""
	if fs.NArg() > 0 {
		targetNamespace = fs.Arg(0)
	}

	var resp interface{}
	path := "/v1/stats"
	if targetNamespace != "" {
		path += "/" + targetNamespace
	}
	if err := getJSON(path, &resp); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	pretty, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(pretty))
}

func handleHealth(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	fs.StringVar(&serverAddr, "server", serverAddr, "REST API base URL")
	fs.Parse(args)

	var resp struct {
		Status string `json:"status"`
	}
	if err := getJSON("/v1/health", &resp); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Status: %s\n", resp.Status)
	if resp.Status != "ok" {
		os.Exit(1)
	}
}

func parseVector(s string) []float32 {
	var vector []float64
	if err := json.Unmarshal([]byte(s), &vector); err != nil {
		fmt.Printf("Error parsing vector: %v\n", err)
		os.Exit(1)
	}
	return toFloat32(vector)
}

func toFloat32(vector []float64) []float32 {
	out := make([]float32, len(vector))
	for i, v := range vector {
		out[i] = float32(v)
	}
	return out
}

func parseMetadata(s string) map[string]interface{} {
	if s == "" {
		return nil
	}
	var metadata map[string]interface{}
	if err := json.Unmarshal([]byte(s), &metadata); err != nil {
		fmt.Printf("Error parsing metadata: %v\n", err)
		os.Exit(1)
	}
	return metadata
}

func showUsage() {
	fmt.Println(`Vector Database CLI - Client for the ANN vector search REST API

Usage:
  vector-cli <command> [options]

Commands:
  insert            Insert a vector with metadata
  search            Search for similar vectors
  hybrid-search     Hybrid search (vector + text)
  batch-insert      Insert many vectors in one call
  delete-namespace  Drop a namespace
  trace             Run a diagnostic trace query (BLAST namespaces only)
  stats             Get database statistics
  health            Check server health
  version           Show version
  help              Show this help message

Options (given after the command):
  -server URL         REST API base URL (default: http://localhost:8080)
  -namespace NAME     Namespace to use (default: default); not accepted by
                      stats (which takes the namespace as an argument) or health

Requests time out after 30s; the timeout is not configurable.

Examples:

  # Insert a vector
  vector-cli insert \
    -vector '[0.1, 0.2, 0.3]' \
    -metadata '{"title": "Document 1", "category": "tech"}' \
    -text "This is a test document"

  # Search for similar vectors
  vector-cli search -query '[0.15, 0.25, 0.35]' -k 10

  # Hybrid search (vector + text)
  vector-cli hybrid-search \
    -query-vector '[0.1, 0.2, 0.3]' \
    -query-text "machine learning" \
    -k 10

  # Drop a namespace
  vector-cli delete-namespace -namespace production

  # Get database statistics
  vector-cli stats

  # Check server health
  vector-cli health

  # Use a custom server and namespace
  vector-cli search -server http://my-server:8080 -namespace production -query '[0.1, 0.2]'
`)
}
