// degctl is an interactive shell for a running degd server.
//
// It speaks the same JSON API the dashboard uses, so everything shown here
// can also be fetched with curl. Credentials come from DEG_USERNAME and
// DEG_PASSWORD, with an interactive prompt as fallback.
package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/c-bata/go-prompt"
	"golang.org/x/term"
)

// Version is set at build time via ldflags
var Version = "dev"

type shell struct {
	api *client

	// session state
	dataset  string
	datasets []datasetInfo
	fdr      float64
	lfc      float64
}

type datasetInfo struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	DisplayName string `json:"display_name"`
	ShortName   string `json:"short_name"`
}

func main() {
	serverURL := flag.String("server", "http://localhost:8050", "degd server URL")
	username := flag.String("username", "", "username (or DEG_USERNAME)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("degctl", Version)
		return
	}

	user := *username
	if user == "" {
		user = os.Getenv("DEG_USERNAME")
	}
	if user == "" {
		user = "admin"
	}
	pass := os.Getenv("DEG_PASSWORD")

	sh := &shell{
		api: newClient(strings.TrimRight(*serverURL, "/"), user, pass),
		fdr: 0.05,
		lfc: 1.0,
	}

	// Probe the server; on 401 without a configured password, ask for one.
	if err := sh.refreshDatasets(); err != nil {
		if pass == "" {
			fmt.Printf("password for %s: ", user)
			raw, perr := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if perr != nil {
				fatal("read password: %v", perr)
			}
			sh.api.password = string(raw)
			err = sh.refreshDatasets()
		}
		if err != nil {
			fatal("connect to %s: %v", *serverURL, err)
		}
	}

	fmt.Printf("degctl %s connected to %s (%d datasets), type help\n",
		Version, *serverURL, len(sh.datasets))

	p := prompt.New(sh.execute, sh.complete,
		prompt.OptionTitle("degctl"),
		prompt.OptionPrefix("deg> "),
		prompt.OptionMaxSuggestion(12),
	)
	p.Run()
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "degctl: "+format+"\n", args...)
	os.Exit(1)
}

func createFile(dest string) (*os.File, error) {
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(dest)
}

// =============================================================================
// Command Dispatch
// =============================================================================

func (s *shell) execute(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	cmd, args := fields[0], fields[1:]

	var err error
	switch cmd {
	case "help":
		s.printHelp()
	case "datasets":
		err = s.cmdDatasets()
	case "use":
		err = s.cmdUse(args)
	case "set":
		err = s.cmdSet(args)
	case "summary":
		err = s.cmdSummary()
	case "degs":
		err = s.cmdDEGs()
	case "volcano":
		err = s.cmdVolcano(args)
	case "venn":
		err = s.cmdVenn(args)
	case "scatter":
		err = s.cmdScatter(args)
	case "sql":
		err = s.cmdSQL(strings.TrimSpace(strings.TrimPrefix(line, "sql")))
	case "export":
		err = s.cmdExport(args)
	case "snapshot":
		err = s.cmdSnapshot()
	case "exit", "quit":
		fmt.Println("bye")
		os.Exit(0)
	default:
		err = fmt.Errorf("unknown command %q, type help", cmd)
	}
	if err != nil {
		fmt.Println("error:", err)
	}
}

func (s *shell) printHelp() {
	fmt.Print(`commands:
  datasets                 list available datasets
  use <id>                 select the working dataset
  set fdr|lfc <value>      change significance thresholds
  summary                  dataset overview (counts, distributions)
  degs                     significant genes of the working dataset
  volcano [search]         classification counts and top-ranked genes
  scatter <id>             compare working dataset against another
  venn <id> [id]           DEG overlap with one or two other datasets
  sql <select ...>         read-only SQL over registered dataset views
  export volcano|venn      download a CSV export
  snapshot                 write a parquet snapshot on the server
  exit
`)
}

func (s *shell) complete(d prompt.Document) []prompt.Suggest {
	line := d.TextBeforeCursor()
	fields := strings.Fields(line)

	if len(fields) <= 1 && !strings.HasSuffix(line, " ") {
		return prompt.FilterHasPrefix([]prompt.Suggest{
			{Text: "datasets", Description: "list available datasets"},
			{Text: "use", Description: "select working dataset"},
			{Text: "set", Description: "change fdr / lfc thresholds"},
			{Text: "summary", Description: "dataset overview"},
			{Text: "degs", Description: "significant genes"},
			{Text: "volcano", Description: "classification counts"},
			{Text: "scatter", Description: "compare two datasets"},
			{Text: "venn", Description: "DEG overlap"},
			{Text: "sql", Description: "read-only SQL"},
			{Text: "export", Description: "download CSV export"},
			{Text: "snapshot", Description: "parquet snapshot"},
			{Text: "help", Description: "show commands"},
			{Text: "exit", Description: "leave"},
		}, d.GetWordBeforeCursor(), true)
	}

	// Dataset ID completion for commands that take one.
	switch fields[0] {
	case "use", "venn", "scatter":
		out := make([]prompt.Suggest, 0, len(s.datasets))
		for _, ds := range s.datasets {
			out = append(out, prompt.Suggest{Text: ds.ID, Description: ds.DisplayName})
		}
		return prompt.FilterHasPrefix(out, d.GetWordBeforeCursor(), true)
	case "set":
		return prompt.FilterHasPrefix([]prompt.Suggest{
			{Text: "fdr"}, {Text: "lfc"},
		}, d.GetWordBeforeCursor(), true)
	case "export":
		return prompt.FilterHasPrefix([]prompt.Suggest{
			{Text: "volcano"}, {Text: "venn"},
		}, d.GetWordBeforeCursor(), true)
	}
	return nil
}

// =============================================================================
// Commands
// =============================================================================

func (s *shell) refreshDatasets() error {
	return s.api.getJSON("/api/datasets", nil, &s.datasets)
}

func (s *shell) need() (string, error) {
	if s.dataset == "" {
		return "", fmt.Errorf("no dataset selected, run: use <id>")
	}
	return s.dataset, nil
}

func (s *shell) thresholds() url.Values {
	return url.Values{
		"fdr": {strconv.FormatFloat(s.fdr, 'g', -1, 64)},
		"lfc": {strconv.FormatFloat(s.lfc, 'g', -1, 64)},
	}
}

func (s *shell) cmdDatasets() error {
	if err := s.refreshDatasets(); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, ds := range s.datasets {
		marker := "  "
		if ds.ID == s.dataset {
			marker = "* "
		}
		fmt.Fprintf(w, "%s%s\t%s\n", marker, ds.ID, ds.DisplayName)
	}
	return w.Flush()
}

func (s *shell) cmdUse(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: use <id>")
	}
	for _, ds := range s.datasets {
		if ds.ID == args[0] {
			s.dataset = ds.ID
			fmt.Println("using", ds.DisplayName)
			return nil
		}
	}
	return fmt.Errorf("unknown dataset %q, see: datasets", args[0])
}

func (s *shell) cmdSet(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: set fdr|lfc <value>")
	}
	v, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", args[1])
	}
	switch args[0] {
	case "fdr":
		s.fdr = v
	case "lfc":
		s.lfc = v
	default:
		return fmt.Errorf("usage: set fdr|lfc <value>")
	}
	fmt.Printf("thresholds: fdr=%g |log2FC|>=%g\n", s.fdr, s.lfc)
	return nil
}

func (s *shell) cmdSummary() error {
	id, err := s.need()
	if err != nil {
		return err
	}
	params := s.thresholds()
	params.Set("dataset", id)

	var sum struct {
		Genes   int    `json:"genes"`
		PColumn string `json:"p_column"`
		Up      int    `json:"up"`
		Down    int    `json:"down"`
		LFC     *struct {
			Min       *float64           `json:"min"`
			Max       *float64           `json:"max"`
			Quantiles map[string]float64 `json:"quantiles"`
		} `json:"log2fc"`
	}
	if err := s.api.getJSON("/api/summary", params, &sum); err != nil {
		return err
	}
	fmt.Printf("genes: %d  p column: %s\n", sum.Genes, sum.PColumn)
	fmt.Printf("significant: %d up, %d down (fdr=%g, |log2FC|>=%g)\n", sum.Up, sum.Down, s.fdr, s.lfc)
	if sum.LFC != nil && sum.LFC.Min != nil {
		fmt.Printf("log2FC range: [%.2f, %.2f]  median: %.2f\n",
			*sum.LFC.Min, *sum.LFC.Max, sum.LFC.Quantiles["p50"])
	}
	return nil
}

func (s *shell) cmdDEGs() error {
	id, err := s.need()
	if err != nil {
		return err
	}
	params := s.thresholds()
	params.Set("dataset", id)

	var res struct {
		Points []struct {
			Gene      string   `json:"gene"`
			LFC       *float64 `json:"log2fc"`
			PAdj      *float64 `json:"padj"`
			PValue    *float64 `json:"pvalue"`
			Direction string   `json:"direction"`
		} `json:"points"`
	}
	if err := s.api.getJSON("/api/volcano", params, &res); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GENE\tLOG2FC\tPADJ\tDIR")
	n := 0
	for _, pt := range res.Points {
		if pt.Direction == "ns" {
			continue
		}
		n++
		p := pt.PAdj
		if p == nil {
			p = pt.PValue
		}
		fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\n", pt.Gene, *pt.LFC, fmtP(p), pt.Direction)
	}
	w.Flush()
	fmt.Printf("%d significant genes\n", n)
	return nil
}

func (s *shell) cmdVolcano(args []string) error {
	id, err := s.need()
	if err != nil {
		return err
	}
	params := s.thresholds()
	params.Set("dataset", id)
	if len(args) > 0 {
		params.Set("search", args[0])
	}

	var res struct {
		PColumn string `json:"p_column"`
		Counts  struct {
			Up     int `json:"up"`
			Down   int `json:"down"`
			NotSig int `json:"not_significant"`
		} `json:"counts"`
		Points []struct {
			Gene      string   `json:"gene"`
			LFC       *float64 `json:"log2fc"`
			NegLog10P *float64 `json:"neg_log10_p"`
			Direction string   `json:"direction"`
			Label     bool     `json:"label"`
		} `json:"points"`
	}
	if err := s.api.getJSON("/api/volcano", params, &res); err != nil {
		return err
	}

	fmt.Printf("p column: %s  up: %d  down: %d  not significant: %d\n",
		res.PColumn, res.Counts.Up, res.Counts.Down, res.Counts.NotSig)

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOP GENE\tLOG2FC\t-LOG10P\tDIR")
	for _, pt := range res.Points {
		if !pt.Label || pt.LFC == nil || pt.NegLog10P == nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%s\n", pt.Gene, *pt.LFC, *pt.NegLog10P, pt.Direction)
	}
	return w.Flush()
}

func fmtP(p *float64) string {
	if p == nil {
		return "NA"
	}
	return strconv.FormatFloat(*p, 'e', 2, 64)
}

func (s *shell) cmdScatter(args []string) error {
	id, err := s.need()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: scatter <other-id>")
	}
	params := s.thresholds()
	params.Set("x", id)
	params.Set("y", args[0])

	var res struct {
		XName       string   `json:"x_name"`
		YName       string   `json:"y_name"`
		Correlation *float64 `json:"correlation"`
		Points      []struct {
			Gene string `json:"gene"`
		} `json:"points"`
	}
	if err := s.api.getJSON("/api/scatter", params, &res); err != nil {
		return err
	}
	if res.Correlation == nil {
		fmt.Printf("%s vs %s: %d shared genes, correlation n/a\n",
			res.XName, res.YName, len(res.Points))
		return nil
	}
	fmt.Printf("%s vs %s: %d shared genes, Pearson r = %.3f\n",
		res.XName, res.YName, len(res.Points), *res.Correlation)
	return nil
}

func (s *shell) cmdVenn(args []string) error {
	id, err := s.need()
	if err != nil {
		return err
	}
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: venn <id> [id]")
	}
	params := s.thresholds()
	params.Set("datasets", strings.Join(append([]string{id}, args...), ","))

	var res struct {
		Regions []struct {
			Label string   `json:"label"`
			Count int      `json:"count"`
			Genes []string `json:"genes"`
		} `json:"regions"`
	}
	if err := s.api.getJSON("/api/venn", params, &res); err != nil {
		return err
	}
	for _, r := range res.Regions {
		genes := strings.Join(r.Genes, ", ")
		if len(r.Genes) > 15 {
			genes = strings.Join(r.Genes[:15], ", ") + ", ..."
		}
		fmt.Printf("%-40s %5d  %s\n", r.Label, r.Count, genes)
	}
	return nil
}

func (s *shell) cmdSQL(sqlText string) error {
	if sqlText == "" {
		return fmt.Errorf("usage: sql SELECT ...")
	}
	var res struct {
		Columns []string   `json:"columns"`
		Rows    [][]string `json:"rows"`
	}
	if err := s.api.postJSON("/api/sql", map[string]string{"sql": sqlText}, &res); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(res.Columns, "\t"))
	for _, row := range res.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
	fmt.Printf("%d rows\n", len(res.Rows))
	return nil
}

func (s *shell) cmdExport(args []string) error {
	id, err := s.need()
	if err != nil {
		return err
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: export volcano | export venn <id> [id]")
	}
	params := s.thresholds()

	var path, dest string
	switch args[0] {
	case "volcano":
		params.Set("dataset", id)
		path = "/api/export/volcano"
		dest = "volcano_export.csv"
	case "venn":
		if len(args) < 2 || len(args) > 3 {
			return fmt.Errorf("usage: export venn <id> [id]")
		}
		params.Set("datasets", strings.Join(append([]string{id}, args[1:]...), ","))
		path = "/api/export/venn"
		dest = "venn_diagram_overlaps.csv"
	default:
		return fmt.Errorf("usage: export volcano | export venn <id> [id]")
	}

	n, err := s.api.download(path, params, dest)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d bytes)\n", dest, n)
	return nil
}

func (s *shell) cmdSnapshot() error {
	id, err := s.need()
	if err != nil {
		return err
	}
	var res struct {
		Path string `json:"path"`
	}
	if err := s.api.postJSON("/api/snapshot?dataset="+url.QueryEscape(id), nil, &res); err != nil {
		return err
	}
	fmt.Println("snapshot written on server:", res.Path)
	return nil
}
