package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/nodeadmin/tableau/ontology"
	"github.com/nodeadmin/tableau/reasoner"
	"github.com/nodeadmin/tableau/tableau"
)

var (
	checkCmd = &cobra.Command{
		Use:   "check <document>",
		Short: "Load a document and answer its queries",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	}
	satCmd = &cobra.Command{
		Use:   "sat <document> <class>",
		Short: "Test whether a class expression is satisfiable",
		Args:  cobra.ExactArgs(2),
		RunE:  runSat,
	}
	subsumesCmd = &cobra.Command{
		Use:   "subsumes <document> <sub> <super>",
		Short: "Test whether one class expression is subsumed by another",
		Args:  cobra.ExactArgs(3),
		RunE:  runSubsumes,
	}
	instancesCmd = &cobra.Command{
		Use:   "instances <document> <class>",
		Short: "List the named individuals that are instances of a class",
		Args:  cobra.ExactArgs(2),
		RunE:  runInstances,
	}
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to --config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("%s already exists", configPath)
			}
			if err := cfg.Save(configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
			return nil
		},
	}
)

// openKernel reads a document and loads its axioms into a fresh kernel.
func openKernel(path string) (*reasoner.Kernel, *ontology.Document, error) {
	doc, err := ontology.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	k, err := reasoner.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if _, err := k.LoadDocument(doc); err != nil {
		k.Close()
		return nil, nil, err
	}
	return k, doc, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// parseClass reads a class expression in the document syntax: a bare name
// or a YAML mapping such as "{op: some, role: r, filler: B}".
func parseClass(s string) (ontology.ClassExpr, error) {
	var c ontology.ClassExpr
	if err := yaml.Unmarshal([]byte(s), &c); err != nil {
		return c, fmt.Errorf("class expression %q: %w", s, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("class expression %q: %w", s, err)
	}
	return c, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	start := time.Now()
	k, doc, err := openKernel(args[0])
	if err != nil {
		return err
	}
	defer k.Close()

	ctx, cancel := signalContext()
	defer cancel()

	rep, err := k.RunDocument(ctx, doc)
	if err != nil {
		return err
	}
	printSummary(os.Stderr, rep)

	if err := writeReport(cmd.OutOrStdout(), rep); err != nil {
		return err
	}
	logger.Info("check finished",
		zap.String("document", doc.Name),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// writeReport sends the report to --output, or to w when none is set.
func writeReport(w io.Writer, rep *reasoner.Report) error {
	switch {
	case outputPath != "" && pretty:
		return ontology.WriteJSONFile(outputPath, rep)
	case outputPath != "":
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		return ontology.WriteJSON(f, rep)
	case pretty:
		return reasoner.WriteReport(w, rep)
	}
	return ontology.WriteJSON(w, rep)
}

func printSummary(w io.Writer, rep *reasoner.Report) {
	s := rep.Summary
	fmt.Fprintf(w, "%s: %s axioms, %s classes, %s roles, %s individuals (%s)\n",
		color.CyanString(rep.Document),
		humanize.Comma(int64(s.Axioms)),
		humanize.Comma(int64(s.Classes)),
		humanize.Comma(int64(s.Roles)),
		humanize.Comma(int64(s.Individuals)),
		s.Logic)
	fmt.Fprintf(w, "  %s told subsumptions, %s absorbed, %s GCIs\n",
		humanize.Comma(int64(s.ToldSubsumptions)),
		humanize.Comma(int64(s.Absorbed)),
		humanize.Comma(int64(s.GCIs)))
	for _, a := range rep.Answers {
		fmt.Fprintf(w, "  %-12s %s %s\n", a.Kind, statusString(a.Status, a.Holds), a.Query)
	}
	st := rep.Stats
	fmt.Fprintf(w, "  %s queries, %s nodes, %s branches in %s\n",
		humanize.Comma(int64(st.Queries)),
		humanize.Comma(int64(st.Nodes)),
		humanize.Comma(int64(st.Branches)),
		time.Duration(st.TotalTimeMs)*time.Millisecond)
}

func statusString(status string, holds bool) string {
	switch {
	case status == tableau.Unknown.String():
		return color.YellowString("unknown")
	case status == "error":
		return color.RedString("error")
	case holds:
		return color.GreenString("yes")
	default:
		return color.MagentaString("no")
	}
}

func printResult(w io.Writer, r reasoner.Result) {
	status := r.Status.String()
	fmt.Fprintf(w, "%s (%s, %s nodes)\n",
		statusString(status, r.Holds), r.Reason, humanize.Comma(int64(r.Stats.Nodes)))
	for _, a := range r.Explanation {
		fmt.Fprintf(w, "  %s %s\n", color.BlueString("because"), a)
	}
}

func runSat(cmd *cobra.Command, args []string) error {
	c, err := parseClass(args[1])
	if err != nil {
		return err
	}
	k, _, err := openKernel(args[0])
	if err != nil {
		return err
	}
	defer k.Close()

	ctx, cancel := signalContext()
	defer cancel()
	r, err := k.IsSatisfiable(ctx, c)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), r)
	return nil
}

func runSubsumes(cmd *cobra.Command, args []string) error {
	sub, err := parseClass(args[1])
	if err != nil {
		return err
	}
	sup, err := parseClass(args[2])
	if err != nil {
		return err
	}
	k, _, err := openKernel(args[0])
	if err != nil {
		return err
	}
	defer k.Close()

	ctx, cancel := signalContext()
	defer cancel()
	r, err := k.IsSubsumedBy(ctx, sub, sup)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), r)
	return nil
}

func runInstances(cmd *cobra.Command, args []string) error {
	c, err := parseClass(args[1])
	if err != nil {
		return err
	}
	k, _, err := openKernel(args[0])
	if err != nil {
		return err
	}
	defer k.Close()

	ctx, cancel := signalContext()
	defer cancel()
	names, stats, err := k.ClassifyInstances(ctx, c)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
	fmt.Fprintf(os.Stderr, "%s instances, %s nodes\n",
		humanize.Comma(int64(len(names))), humanize.Comma(int64(stats.Nodes)))
	return nil
}
