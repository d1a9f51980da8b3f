// Package main validates a reply catalog without starting the server.
//
// Usage:
//
//	verify [-catalog path]
//
// Without -catalog, CATALOG_PATH is used, then the embedded default catalog.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/garyellow/line-replybot/internal/catalog"
	"github.com/garyellow/line-replybot/internal/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(out)
	catalogFlag := fs.String("catalog", "", "Catalog file to verify (default: CATALOG_PATH or embedded)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := *catalogFlag
	if path == "" {
		cfg, err := config.LoadForMode(config.VerifyMode)
		if err != nil {
			_, _ = fmt.Fprintf(out, "Failed to load config: %v\n", err)
			return 1
		}
		path = cfg.CatalogPath
	}

	source := path
	if source == "" {
		source = "embedded default"
	}
	_, _ = fmt.Fprintf(out, "Verifying reply catalog: %s\n", source)

	c, err := catalog.Load(path)
	if err != nil {
		_, _ = fmt.Fprintln(out, "Catalog is invalid:")
		for _, e := range flatten(err) {
			_, _ = fmt.Fprintf(out, "  - %v\n", e)
		}
		return 1
	}

	report(out, c)
	return 0
}

func report(out io.Writer, c *catalog.Catalog) {
	_, _ = fmt.Fprintf(out, "\nText triggers (%d):\n", len(c.Replies))
	for _, r := range c.Replies {
		_, _ = fmt.Fprintf(out, "  %q: %d part(s)\n", r.Trigger, len(r.Parts))
	}

	_, _ = fmt.Fprintf(out, "\nPostback rules (%d):\n", len(c.Postbacks))
	for i, rule := range c.Postbacks {
		keys := make([]string, 0, len(rule.Match))
		for k := range rule.Match {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		_, _ = fmt.Fprintf(out, "  #%d match", i+1)
		for _, k := range keys {
			_, _ = fmt.Fprintf(out, " %s=%s", k, rule.Match[k])
		}
		_, _ = fmt.Fprintf(out, ": %d part(s)\n", len(rule.Parts))
	}

	_, _ = fmt.Fprintf(out, "\nAcknowledgements (%d):\n", len(c.Acknowledgements))
	for _, kind := range catalog.AcknowledgeableKinds {
		if parts, ok := c.Acknowledgements[kind]; ok {
			_, _ = fmt.Fprintf(out, "  %s: %d part(s)\n", kind, len(parts))
		}
	}

	_, _ = fmt.Fprintln(out, "\nCatalog OK")
}

// flatten expands errors.Join trees into their leaf errors.
func flatten(err error) []error {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}
