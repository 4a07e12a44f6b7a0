package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/adapters/export"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/config"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/core/services"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/logging"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/ports"
)

const usage = "expected 'export', 'import', 'links', 'links-csv', 'visits-csv' or 'stats' subcommands"

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "JSON file to import")
	importDomain := importCmd.String("domain", "", "only import links of this domain (DEFAULT for the default one)")
	listCmd := flag.NewFlagSet("links", flag.ExitOnError)
	listPage := listCmd.Int("page", 1, "page to show")
	listLimit := listCmd.Int("limit", 0, "links per page")
	listTag := listCmd.String("tag", "", "only links with this tag")
	listDomain := listCmd.String("domain", "", "only links of this domain")
	linksCmd := flag.NewFlagSet("links-csv", flag.ExitOnError)
	linksTag := linksCmd.String("tag", "", "only export links with this tag")
	visitsCmd := flag.NewFlagSet("visits-csv", flag.ExitOnError)
	visitsCode := visitsCmd.String("code", "", "short code of the link; orphan visits when empty")
	visitsDomain := visitsCmd.String("domain", "", "domain of the short code")
	visitsNoBots := visitsCmd.Bool("exclude-bots", false, "skip potential bots")
	statsCmd := flag.NewFlagSet("stats", flag.ExitOnError)
	statsID := statsCmd.Int64("id", 0, "link ID")

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: "console"})

	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to db")
	}
	defer repo.Close()
	service := services.NewLinkService(repo, services.WithPageSize(cfg.DefaultPageSize))

	ctx := context.Background()
	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		doExport(ctx, repo, os.Stdout)
	case "import":
		importCmd.Parse(os.Args[2:])
		if *importFile == "" {
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		doImport(ctx, repo, *importFile, *importDomain)
	case "links":
		listCmd.Parse(os.Args[2:])
		doLinks(ctx, service, *listPage, *listLimit, domain.LinkFilter{Tag: *listTag, Domain: *listDomain}, os.Stdout)
	case "links-csv":
		linksCmd.Parse(os.Args[2:])
		doLinksCSV(ctx, repo, cfg.BaseURL, domain.LinkFilter{Tag: *linksTag}, os.Stdout)
	case "visits-csv":
		visitsCmd.Parse(os.Args[2:])
		doVisitsCSV(ctx, service, *visitsDomain, *visitsCode, *visitsNoBots, os.Stdout)
	case "stats":
		statsCmd.Parse(os.Args[2:])
		doStats(ctx, service, *statsID, os.Stdout)
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}

// doExport dumps every link, including deleted ones, for migrations.
func doExport(ctx context.Context, repo ports.LinkRepository, out io.Writer) {
	links, err := repo.Dump(ctx)
	if err != nil {
		logging.Fatal().Err(err).Msg("export failed")
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(links); err != nil {
		logging.Fatal().Err(err).Msg("encode failed")
	}
}

func doImport(ctx context.Context, repo ports.LinkRepository, filename, onlyDomain string) {
	file, err := os.Open(filename)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open file")
	}
	defer file.Close()

	var links []domain.Link
	if err := json.NewDecoder(file).Decode(&links); err != nil {
		logging.Fatal().Err(err).Msg("decode failed")
	}
	if onlyDomain != "" {
		links = slices.DeleteFunc(links, func(l domain.Link) bool { return !domain.DomainMatches(l, onlyDomain) })
	}
	logging.Info().Int("imported", importLinks(ctx, repo, links)).Msg("import done")
}

// doLinks prints a page of links followed by the page markers.
func doLinks(ctx context.Context, service ports.LinkService, page, limit int, filter domain.LinkFilter, out io.Writer) {
	links, paginator, err := service.ListLinks(ctx, page, limit, filter)
	if err != nil {
		logging.Fatal().Err(err).Msg("listing links failed")
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSHORT URL\tLONG URL\tVISITS")
	for _, l := range links {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", l.ID, domain.IdentifierToQuery(l.Identifier()), l.OriginalURL, l.Clicks)
	}
	tw.Flush()

	if p := paginator.String(); p != "" {
		fmt.Fprintf(out, "\nPages: %s\n", p)
	}
}

// importLinks creates the links whose domain and short code are still free
// and returns how many were created. Deleted links are skipped.
func importLinks(ctx context.Context, repo ports.LinkRepository, links []domain.Link) int {
	count := 0
	for _, l := range links {
		shortURL := domain.IdentifierToQuery(l.Identifier())
		if l.DeletedAt != nil {
			logging.Info().Str("short_url", shortURL).Msg("skipping deleted link")
			continue
		}
		existing, err := repo.GetByShortCode(ctx, l.Domain, l.ShortCode)
		if err != nil {
			logging.Warn().Err(err).Str("short_url", shortURL).Msg("failed to check code")
			continue
		}
		if existing != nil {
			logging.Info().Str("short_url", shortURL).Msg("skipping existing code")
			continue
		}

		if err := repo.Create(ctx, &l); err != nil {
			logging.Warn().Err(err).Str("short_url", shortURL).Msg("failed to import")
			continue
		}
		count++
	}
	return count
}

func doLinksCSV(ctx context.Context, repo ports.LinkRepository, baseURL string, filter domain.LinkFilter, out io.Writer) {
	total, err := repo.Count(ctx, filter)
	if err != nil {
		logging.Fatal().Err(err).Msg("count failed")
	}
	links, err := repo.List(ctx, int(total), 0, filter)
	if err != nil {
		logging.Fatal().Err(err).Msg("list failed")
	}

	ok, err := export.WriteShortURLs(out, baseURL, links)
	if err != nil {
		logging.Fatal().Err(err).Msg("csv export failed")
	}
	if !ok {
		logging.Info().Msg("no links to export")
	}
}

func doVisitsCSV(ctx context.Context, service ports.LinkService, authority, code string, excludeBots bool, out io.Writer) {
	var id *int64
	if code != "" {
		link, err := service.GetLinkByShortCode(ctx, authority, code)
		if err != nil {
			logging.Fatal().Err(err).Msg("link lookup failed")
		}
		id = &link.ID
	}

	list, err := service.ListVisits(ctx, id, domain.VisitFilter{ExcludeBots: excludeBots})
	if err != nil {
		logging.Fatal().Err(err).Msg("listing visits failed")
	}
	ok, err := export.WriteVisits(out, list)
	if err != nil {
		logging.Fatal().Err(err).Msg("csv export failed")
	}
	if !ok {
		logging.Info().Msg("no visits to export")
	}
}

func doStats(ctx context.Context, service ports.LinkService, id int64, out io.Writer) {
	stats, err := service.GetLinkStats(ctx, id, domain.VisitFilter{})
	if err != nil {
		logging.Fatal().Err(err).Int64("id", id).Msg("stats failed")
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(stats); err != nil {
		logging.Fatal().Err(err).Msg("encode failed")
	}
}
