// Command hounddogscan drives a standalone, local run of the scan engine
// against a repository on disk, printing a console report of every data
// element occurrence and vulnerability found. It mirrors the scan subcommand
// of the original CLI (original_source/src/main.rs), trading clap's flag
// parsing for the standard library's flag package the way the rest of this
// module favors stdlib flags over a CLI framework.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/hounddogai/scan-engine/catalog"
	"github.com/hounddogai/scan-engine/findings"
	"github.com/hounddogai/scan-engine/internal/config"
	"github.com/hounddogai/scan-engine/internal/logger"
	"github.com/hounddogai/scan-engine/repoinfo"
	"github.com/hounddogai/scan-engine/scan"
)

// stringList accumulates repeated occurrences of a flag into a slice, the
// way clap's num_args = 1.. collects --skip-data-sink a b c into a Vec.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(value string) error {
	for _, part := range strings.Fields(value) {
		*l = append(*l, part)
	}
	return nil
}

func toSkipSet(ids stringList, upper bool) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if upper {
			out[strings.ToUpper(id)] = struct{}{}
		} else {
			out[strings.ToLower(id)] = struct{}{}
		}
	}
	return out
}

func main() {
	dir := flag.String("dir", ".", "target directory to scan")
	dbPath := flag.String("findings-db", "", "path to the SQLite file backing the scan's finding store (defaults to in-memory)")
	var skipDataElement, skipDataSink, skipOccurrence, skipVulnerability stringList
	flag.Var(&skipDataElement, "skip-data-element", "data element IDs to skip (repeatable, space-delimited)")
	flag.Var(&skipDataSink, "skip-data-sink", "data sink IDs to skip (repeatable, space-delimited)")
	flag.Var(&skipOccurrence, "skip-occurrence", "data element occurrence hashes to skip (repeatable, space-delimited)")
	flag.Var(&skipVulnerability, "skip-vulnerability", "vulnerability hashes to skip (repeatable, space-delimited)")
	flag.Parse()

	logger.Init()
	defer logger.Sync()

	repositoryPath, err := filepath.Abs(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad directory %q: %v\n", *dir, err)
		os.Exit(1)
	}

	info, err := repoinfo.Load(repositoryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "inspecting repository at %s: %v\n", repositoryPath, err)
		os.Exit(1)
	}

	fmt.Println("Files to Scan")
	printFileStatsTable(info)

	fmt.Println("Fetching scanner rules ...")
	cat, err := config.LoadRuleCatalog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading rule catalog: %v\n", err)
		os.Exit(1)
	}
	cat.RemoveSkipped(toSkipSet(skipDataElement, false), toSkipSet(skipDataSink, false))

	storePath := *dbPath
	if storePath == "" {
		storePath = config.FindingStorePath()
	}
	store, err := findings.OpenSQLStore(storePath, toSkipSet(skipOccurrence, true), toSkipSet(skipVulnerability, true))
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening finding store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	hasher := findings.IdentityHasher{RepoName: info.Name, Branch: info.Branch}
	driver := scan.NewDriver(cat, store, hasher)

	fmt.Println("Running scan (this might take a while) ...")
	start := time.Now()
	results, err := driver.Run(context.Background(), scan.Config{
		RootDir:  repositoryPath,
		RepoName: info.Name,
		Branch:   info.Branch,
		Lister:   repoinfo.Walker{},
		Linker:   info.Linker(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "scanning repository: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Scan completed in %.2f seconds.\n\n", time.Since(start).Seconds())

	printVulnerabilitiesTable(results.Vulnerabilities)
	printOccurrencesSummary(results.Occurrences)

	counts := findings.CountBySeverity(results.Vulnerabilities)
	if counts.Critical > 0 {
		os.Exit(1)
	}
}

func printFileStatsTable(info *repoinfo.Info) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Language", "Files", "Lines"})
	langs := make([]catalog.Language, 0, len(info.PerLanguageStats))
	for lang := range info.PerLanguageStats {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	for _, lang := range langs {
		stats := info.PerLanguageStats[lang]
		table.Append([]string{lang.String(), fmt.Sprintf("%d", stats.FileCount), fmt.Sprintf("%d", stats.LineCount)})
	}
	table.Append([]string{"Total", fmt.Sprintf("%d", info.TotalStats.FileCount), fmt.Sprintf("%d", info.TotalStats.LineCount)})
	table.Render()
	fmt.Println()
}

func printVulnerabilitiesTable(vulns []findings.Vulnerability) {
	if len(vulns) == 0 {
		fmt.Println("No vulnerabilities found.")
		fmt.Println()
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Severity", "File", "Lines", "Sink", "Description"})
	for _, v := range vulns {
		table.Append([]string{
			v.Severity.String(),
			v.RelativeFilePath,
			fmt.Sprintf("%d-%d", v.LineStart, v.LineEnd),
			v.DataSinkID,
			v.Description,
		})
	}
	table.Render()
	fmt.Println()
}

func printOccurrencesSummary(occs []findings.Occurrence) {
	counts := make(map[string]int)
	for _, o := range occs {
		counts[o.DataElementName]++
	}
	if len(counts) == 0 {
		return
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Data Element", "Occurrences"})
	for _, name := range names {
		table.Append([]string{name, fmt.Sprintf("%d", counts[name])})
	}
	table.Render()
}
