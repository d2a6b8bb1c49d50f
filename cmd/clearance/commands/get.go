package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/clearance/internal/logger"
	"github.com/jmylchreest/clearance/internal/output"
	"github.com/jmylchreest/clearance/pkg/clearance"
	"github.com/jmylchreest/clearance/pkg/fetcher"
)

// Extract modes for --extract.
const (
	extractHTML     = "html"
	extractText     = "text"
	extractLinks    = "links"
	extractMarkdown = "markdown"
	extractArticle  = "article"
)

var getCmd = &cobra.Command{
	Use:   "get URL",
	Short: "Fetch a URL, passing a JavaScript challenge if one is served",
	Long: `Fetch a URL and print the response.

Query parameters given with -q are appended in order after a "?". Headers
given with -H are sent as-is, except that User-Agent and Cookie are
replaced whenever the request is replayed with browser credentials.

Examples:
  clearance get "https://example.com/protected"
  clearance get "https://example.com/api" -q id=7 -H "Accept: application/json"
  clearance get "https://example.com" --extract links
  clearance get "https://example.com/post" --extract article
  clearance get "https://example.com" --format yaml -o page.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)

	flags := getCmd.Flags()

	// Request settings
	flags.StringArrayP("query", "q", nil, "query parameter as key=value (can be repeated)")
	flags.StringArrayP("header", "H", nil, `request header as "Name: value" (can be repeated)`)
	flags.String("user-agent", "", "user agent for the direct request")
	flags.String("max-body-size", "10MB", "max response body size (e.g., 512KB, 10MB)")

	// Output settings
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", string(output.FormatRaw), "output format: raw, json, jsonl, yaml")
	flags.String("extract", extractHTML, "what to print from the body: html, text, links, markdown, article")

	_ = viper.BindPFlag("user_agent", flags.Lookup("user-agent"))
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	targetURL := args[0]

	queryArgs, _ := cmd.Flags().GetStringArray("query")
	headerArgs, _ := cmd.Flags().GetStringArray("header")
	maxBodyStr, _ := cmd.Flags().GetString("max-body-size")
	outputPath, _ := cmd.Flags().GetString("output")
	formatStr, _ := cmd.Flags().GetString("format")
	extract, _ := cmd.Flags().GetString("extract")

	switch extract {
	case extractHTML, extractText, extractLinks, extractMarkdown, extractArticle:
	default:
		return fmt.Errorf("unknown extract mode %q (use html, text, links, markdown, or article)", extract)
	}

	headers, err := parseHeaders(headerArgs)
	if err != nil {
		return err
	}

	cfg := clientConfig(cmd)
	maxBody, err := humanize.ParseBytes(maxBodyStr)
	if err != nil {
		return fmt.Errorf("invalid max-body-size %q: %w", maxBodyStr, err)
	}
	cfg.MaxBodySize = int(maxBody)

	if len(queryArgs) > 0 {
		query := make(clearance.Query, 0, len(queryArgs))
		for _, q := range queryArgs {
			query = append(query, clearance.ParseParam(q))
		}
		targetURL = clearance.BuildURL(targetURL, query)
	}

	var out io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	writer, err := output.NewWriter(out, output.Format(formatStr))
	if err != nil {
		return err
	}

	client, err := clearance.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close browser", "error", err)
		}
	}()

	resp, err := client.Request(ctx, targetURL, clearance.Request{Headers: headers})
	if err != nil {
		return err
	}
	logger.Info("fetched",
		"url", targetURL,
		"status", resp.StatusCode,
		"size", humanize.Bytes(uint64(len(resp.Content))),
		"credentials", client.Credentials())

	result, err := buildResult(resp, extract)
	if err != nil {
		return err
	}
	if err := writer.Write(result); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return writer.Close()
}

// parseHeaders turns "Name: value" arguments into a header map.
func parseHeaders(args []string) (map[string]string, error) {
	headers := make(map[string]string, len(args))
	for _, h := range args {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (expected \"Name: value\")", h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// buildResult shapes a response for output according to the extract mode.
func buildResult(resp fetcher.Response, extract string) (output.Result, error) {
	result := output.Result{
		URL:        resp.URL,
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Size:       len(resp.Content),
		FetchedAt:  resp.FetchedAt,
	}

	switch extract {
	case extractHTML:
		result.Content = resp.Content
		return result, nil
	case extractMarkdown:
		content, err := fetcher.Markdown(resp.Content)
		if err != nil {
			return result, fmt.Errorf("failed to convert to markdown: %w", err)
		}
		result.Content = content
		return result, nil
	case extractArticle:
		content, err := fetcher.Article(resp.Content, resp.URL)
		if err != nil {
			return result, fmt.Errorf("failed to extract article: %w", err)
		}
		result.Content = content
		return result, nil
	}

	doc, err := fetcher.Parse(resp.Content, resp.URL)
	if err != nil {
		return result, fmt.Errorf("failed to parse content: %w", err)
	}
	result.Title = doc.Title
	if extract == extractLinks {
		result.Links = doc.Links
	} else {
		result.Content = doc.Text
	}
	return result, nil
}
