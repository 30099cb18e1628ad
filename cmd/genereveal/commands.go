package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/genereveal-server/internal/config"
	"github.com/genereveal-server/internal/form"
	"github.com/genereveal-server/internal/logging"
	"github.com/genereveal-server/internal/report"
	"github.com/genereveal-server/internal/result"
	"github.com/genereveal-server/internal/schema"
	"github.com/genereveal-server/pkg/predictor"
)

// options holds the flags shared by subcommands
type options struct {
	configFile string
	formFile   string
	payload    string
	resultFile string
	modelID    string
	outFile    string
	terminal   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "genereveal",
		Short: "Encode patient forms, request predictions and render reports",
		Long: `genereveal works with the GeneReveal feature schema offline and
against a running prediction service.

Form files hold the same edits accepted by the HTTP API:
  {"selections": {"gender": "male"}, "numbers": {"Patient Age": 12}, "sets": {"symptoms": [1, 3]}}

Use "-" as a file name to read from stdin.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: ./config.yaml)")

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the feature schema in wire order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchema(cmd.OutOrStdout())
		},
	}

	sampleCmd := &cobra.Command{
		Use:   "sample",
		Short: "Print the built-in sample payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSample(cmd.OutOrStdout())
		},
	}

	encodeCmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a form file into a prediction payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEncode(cmd.OutOrStdout(), cmd.InOrStdin(), opts)
		},
	}
	encodeCmd.Flags().StringVar(&opts.formFile, "form", "", "form file")
	_ = encodeCmd.MarkFlagRequired("form")

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a payload into the form it would pre-fill",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDecode(cmd.OutOrStdout(), cmd.InOrStdin(), opts)
		},
	}
	decodeCmd.Flags().StringVar(&opts.payload, "payload", "", "payload file")
	_ = decodeCmd.MarkFlagRequired("payload")

	predictCmd := &cobra.Command{
		Use:   "predict",
		Short: "Encode a form file and submit it to the prediction service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPredict(cmd, opts)
		},
	}
	predictCmd.Flags().StringVar(&opts.formFile, "form", "", "form file")
	predictCmd.Flags().StringVar(&opts.modelID, "model-id", "", "model to use (default: service or config default)")
	_ = predictCmd.MarkFlagRequired("form")

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Render the printable report of a form and its prediction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd.OutOrStdout(), cmd.InOrStdin(), opts)
		},
	}
	reportCmd.Flags().StringVar(&opts.formFile, "form", "", "form file")
	reportCmd.Flags().StringVar(&opts.resultFile, "result", "", "prediction result file")
	reportCmd.Flags().StringVar(&opts.outFile, "out", "", "write the HTML report to this file")
	reportCmd.Flags().BoolVar(&opts.terminal, "terminal", false, "render the report for the terminal")
	_ = reportCmd.MarkFlagRequired("form")
	_ = reportCmd.MarkFlagRequired("result")
	reportCmd.MarkFlagsMutuallyExclusive("out", "terminal")

	root.AddCommand(schemaCmd, sampleCmd, encodeCmd, decodeCmd, predictCmd, reportCmd)
	return root
}

type schemaEntry struct {
	Index int    `json:"index"`
	Key   string `json:"key"`
	Kind  string `json:"kind"`
	Label string `json:"label,omitempty"`
}

func runSchema(out io.Writer) error {
	fields := schema.Default().Fields()
	entries := make([]schemaEntry, len(fields))
	for i, f := range fields {
		entries[i] = schemaEntry{Index: f.Index, Key: string(f.Key), Kind: f.Kind.String(), Label: f.Label}
	}
	return writeJSON(out, entries)
}

func runSample(out io.Writer) error {
	reg := schema.Default()
	sample := form.SamplePayload(reg)

	// Printed through a payload so keys come out in wire order
	p := reg.NewPayload()
	keys := make([]string, 0, len(sample))
	for k := range sample {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := p.Set(schema.Key(k), sample[k]); err != nil {
			return err
		}
	}
	return writeJSON(out, p)
}

func runEncode(out io.Writer, in io.Reader, opts *options) error {
	state, err := loadForm(in, opts.formFile)
	if err != nil {
		return err
	}
	payload, err := form.Encode(state)
	if err != nil {
		return err
	}
	return writeJSON(out, payload)
}

func runDecode(out io.Writer, in io.Reader, opts *options) error {
	var sample form.Sample
	if err := readJSON(in, opts.payload, &sample); err != nil {
		return err
	}
	return writeJSON(out, form.Decode(schema.Default(), sample).Snapshot())
}

func runPredict(cmd *cobra.Command, opts *options) error {
	state, err := loadForm(cmd.InOrStdin(), opts.formFile)
	if err != nil {
		return err
	}
	payload, err := form.Encode(state)
	if err != nil {
		return err
	}

	configManager, err := config.NewManagerWithFile(opts.configFile)
	if err != nil {
		return err
	}
	if err := configManager.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	cfg := configManager.GetConfig()

	logger := logging.NewWithOutput(cfg.Logging, cmd.ErrOrStderr())
	client := predictor.NewClient(cfg.Predictor, logger)
	defer client.Close()

	r, err := client.Predict(cmd.Context(), payload, opts.modelID)
	if err != nil {
		return err
	}
	if err := r.Check(); err != nil {
		logger.WithError(err).Warn("Prediction result is incomplete")
	}
	return writeJSON(cmd.OutOrStdout(), r)
}

func runReport(out io.Writer, in io.Reader, opts *options) error {
	reg := schema.Default()
	state, err := loadForm(in, opts.formFile)
	if err != nil {
		return err
	}

	data, err := readAll(in, opts.resultFile)
	if err != nil {
		return err
	}
	r, err := result.Parse(data)
	if err != nil {
		return err
	}

	if opts.terminal {
		md, err := report.RenderMarkdown(reg, state, r)
		if err != nil {
			return err
		}
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err != nil {
			return fmt.Errorf("failed to create terminal renderer: %w", err)
		}
		rendered, err := renderer.Render(md)
		if err != nil {
			return fmt.Errorf("failed to render report: %w", err)
		}
		_, err = io.WriteString(out, rendered)
		return err
	}

	doc, err := report.Synthesize(reg, state, r)
	if err != nil {
		return err
	}
	if opts.outFile == "" {
		_, err = out.Write(doc.HTML)
		return err
	}
	if err := os.WriteFile(opts.outFile, doc.HTML, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Fprintf(out, "Report written to %s\n", opts.outFile)
	return nil
}

// loadForm applies a form file to a default form
func loadForm(in io.Reader, path string) (*form.State, error) {
	var edits form.Input
	if err := readJSON(in, path, &edits); err != nil {
		return nil, err
	}
	state := form.New(schema.Default())
	if err := state.Apply(edits); err != nil {
		return nil, err
	}
	return state, nil
}

func readAll(in io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(in)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func readJSON(in io.Reader, path string, v interface{}) error {
	data, err := readAll(in, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
