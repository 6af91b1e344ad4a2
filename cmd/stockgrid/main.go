package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/stockgrid/internal/api"
	"github.com/banshee-data/stockgrid/internal/config"
	"github.com/banshee-data/stockgrid/internal/db"
	"github.com/banshee-data/stockgrid/internal/editor"
	"github.com/banshee-data/stockgrid/internal/report"
	"github.com/banshee-data/stockgrid/internal/security"
	"github.com/banshee-data/stockgrid/internal/stockgrid"
	"github.com/banshee-data/stockgrid/internal/units"
	"github.com/banshee-data/stockgrid/internal/version"
)

// globals holds the flags shared by every command.
type globals struct {
	configPath string
	dbPath     string
	remote     string
	supplier   string
	brand      string
	lens       string

	cfg *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Printf("stockgrid: %v", err)
		os.Exit(1)
	}
}

// run parses the global flags, loads the config file and dispatches to a
// command.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	var g globals
	fs := flag.NewFlagSet("stockgrid", flag.ContinueOnError)
	fs.Usage = func() { printUsage(fs.Output()) }
	fs.StringVar(&g.configPath, "config", "", "Path to a JSON config file")
	fs.StringVar(&g.dbPath, "db", "", "SQLite database path (overrides config)")
	fs.StringVar(&g.remote, "remote", "", "Base URL of a stockgrid server to use instead of a local database")
	fs.StringVar(&g.supplier, "supplier", "", "Supplier id of the lens")
	fs.StringVar(&g.brand, "brand", "", "Brand id of the lens")
	fs.StringVar(&g.lens, "lens", "", "Lens id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	g.cfg = cfg
	if g.dbPath == "" {
		g.dbPath = cfg.GetDBPath()
	}

	if fs.NArg() < 1 {
		printUsage(fs.Output())
		return errors.New("no command given")
	}
	command, rest := fs.Arg(0), fs.Args()[1:]

	switch command {
	case "serve":
		return handleServe(ctx, &g, rest)
	case "migrate":
		return handleMigrate(&g, rest, stdout)
	case "lens":
		return handleLens(ctx, &g, rest, stdout)
	case "stats":
		return handleStats(ctx, &g, stdout)
	case "fill":
		return handleFill(ctx, &g, rest, stdout)
	case "transpose":
		return handleTranspose(ctx, &g, stdout)
	case "render":
		return handleRender(ctx, &g, rest, stdout)
	case "version":
		fmt.Fprintf(stdout, "stockgrid %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return nil
	case "help":
		printUsage(stdout)
		return nil
	default:
		printUsage(fs.Output())
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `stockgrid - lens stock grid editor and server

Usage: stockgrid [global flags] <command> [options]

Commands:
  serve      Serve the HTTP API (and /debug admin routes)
  migrate    Apply or roll back schema migrations: up, down, version
  lens       Manage lenses: list, create
  stats      Print cell and per-diameter counts of a lens grid
  fill       Fill a sphere/cylinder rectangle of a lens grid
  transpose  Switch a lens grid between plus and minus cylinder
  render     Write a PNG coverage heatmap of a lens grid (-out)
  version    Show version information
  help       Show this help message

Global Flags:
  -config <file>     JSON config file
  -db <path>         SQLite database (default: stockgrid.db)
  -remote <url>      Use a stockgrid server instead of the local database
  -supplier <id>     Supplier id of the lens
  -brand <id>        Brand id of the lens
  -lens <id>         Lens id

Examples:
  stockgrid serve -listen :8080
  stockgrid -supplier acme -brand clear lens create -name "SV 1.5"
  stockgrid -supplier acme -brand clear -lens <id> fill -sph-min -4 -sph-max 2 -cyl-min -2 -cyl-max 0
  stockgrid -remote http://pi:8080 -supplier acme -brand clear -lens <id> stats`)
}

func (g *globals) ref() (stockgrid.LensRef, error) {
	ref := stockgrid.LensRef{SupplierID: g.supplier, BrandID: g.brand, LensID: g.lens}
	if ref.SupplierID == "" || ref.BrandID == "" || ref.LensID == "" {
		return ref, errors.New("-supplier, -brand and -lens are required")
	}
	return ref, nil
}

// store opens the grid store: a remote server when -remote is set, the
// local database otherwise. The returned func releases it.
func (g *globals) store() (editor.Store, func(), error) {
	if g.remote != "" {
		return api.NewClient(g.remote, nil, g.cfg.GetSaveTimeout()), func() {}, nil
	}
	database, err := db.NewDB(g.dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, func() { database.Close() }, nil
}

// session opens an editor session on the selected lens.
func (g *globals) session(ctx context.Context) (*editor.Session, func(), error) {
	ref, err := g.ref()
	if err != nil {
		return nil, nil, err
	}
	store, release, err := g.store()
	if err != nil {
		return nil, nil, err
	}
	sess, err := editor.Open(ctx, store, ref, editor.WithDefaultNotation(g.cfg.GetDefaultCylFormat()))
	if err != nil {
		release()
		return nil, nil, err
	}
	return sess, release, nil
}

// saveSession saves with the configured timeout.
func (g *globals) saveSession(ctx context.Context, sess *editor.Session) error {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.GetSaveTimeout())
	defer cancel()
	return sess.Save(ctx)
}

func handleServe(ctx context.Context, g *globals, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	listen := fs.String("listen", g.cfg.GetListen(), "Listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *listen == "" {
		return errors.New("listen address is required")
	}
	if g.remote != "" {
		return errors.New("serve needs a local database; drop -remote")
	}

	database, err := db.NewDB(g.dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	mux := api.NewServer(database, g.cfg.GetDefaultCylFormat()).ServeMux()
	if err := database.AttachAdminRoutes(mux); err != nil {
		return fmt.Errorf("failed to attach admin routes: %w", err)
	}

	server := &http.Server{
		Addr:              *listen,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	errc := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("serving on %s (db %s)", *listen, g.dbPath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	wg.Wait()
	log.Printf("graceful shutdown complete")
	return nil
}

func handleMigrate(g *globals, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: stockgrid migrate up|down|version")
	}
	database, err := db.OpenDB(g.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	switch args[0] {
	case "up":
		if err := database.MigrateUp(); err != nil {
			return err
		}
	case "down":
		if err := database.MigrateDown(); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown migrate action: %s", args[0])
	}

	v, dirty, err := database.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "schema version %d", v)
	if dirty {
		fmt.Fprint(stdout, " (dirty)")
	}
	fmt.Fprintln(stdout)
	return nil
}

func handleLens(ctx context.Context, g *globals, args []string, stdout io.Writer) error {
	if len(args) < 1 {
		return errors.New("usage: stockgrid lens list|create [options]")
	}
	if g.remote != "" {
		return lensRemote(ctx, g, args, stdout)
	}
	database, err := db.NewDB(g.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	switch args[0] {
	case "list":
		lenses, err := database.ListLenses(ctx, g.supplier, g.brand)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSUPPLIER\tBRAND\tNAME\tCYL FORMAT")
		for _, l := range lenses {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", l.ID, l.SupplierID, l.BrandID, l.Name, l.CylFormat)
		}
		return tw.Flush()
	case "create":
		l, err := parseLens(g, args[1:])
		if err != nil {
			return err
		}
		if err := database.CreateLens(ctx, l); err != nil {
			return err
		}
		fmt.Fprintln(stdout, l.ID)
		return nil
	default:
		return fmt.Errorf("unknown lens action: %s", args[0])
	}
}

func lensRemote(ctx context.Context, g *globals, args []string, stdout io.Writer) error {
	if args[0] != "create" {
		return fmt.Errorf("lens %s is not available with -remote", args[0])
	}
	l, err := parseLens(g, args[1:])
	if err != nil {
		return err
	}
	c := api.NewClient(g.remote, nil, g.cfg.GetSaveTimeout())
	if err := c.CreateLens(ctx, l); err != nil {
		return err
	}
	fmt.Fprintln(stdout, l.ID)
	return nil
}

func parseLens(g *globals, args []string) (*db.Lens, error) {
	fs := flag.NewFlagSet("lens create", flag.ContinueOnError)
	name := fs.String("name", "", "Display name")
	cylFormat := fs.String("cyl-format", "", "plus or minus (empty leaves it unset)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return &db.Lens{
		ID:         g.lens,
		SupplierID: g.supplier,
		BrandID:    g.brand,
		Name:       *name,
		CylFormat:  units.Notation(*cylFormat),
	}, nil
}

func handleStats(ctx context.Context, g *globals, stdout io.Writer) error {
	sess, release, err := g.session(ctx)
	if err != nil {
		return err
	}
	defer release()

	st := sess.Stats()
	fmt.Fprintf(stdout, "%s (%s cylinder): %d cells\n", sess.Ref(), sess.Notation(), st.Total)
	for _, d := range st.Diameters() {
		fmt.Fprintf(stdout, "  %smm\t%d\n", strconv.FormatFloat(d, 'f', -1, 64), st.ByDiameter[d])
	}
	return nil
}

func handleFill(ctx context.Context, g *globals, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("fill", flag.ContinueOnError)
	sphMin := fs.Float64("sph-min", 0, "Lowest sphere")
	sphMax := fs.Float64("sph-max", 0, "Highest sphere")
	cylMin := fs.Float64("cyl-min", 0, "One cylinder bound")
	cylMax := fs.Float64("cyl-max", 0, "Other cylinder bound")
	diameters := fs.String("diameters", "", "Comma-separated diameters in mm (default: config common diameters)")
	erase := fs.Bool("erase", false, "Erase the rectangle instead of filling it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ds, err := parseDiameters(*diameters, g.cfg.GetCommonDiameters())
	if err != nil {
		return err
	}

	sess, release, err := g.session(ctx)
	if err != nil {
		return err
	}
	defer release()

	lo, hi := units.FromFloat(*sphMin), units.FromFloat(*sphMax)
	clo, chi := units.FromFloat(*cylMin), units.FromFloat(*cylMax)
	if *erase {
		sess.EraseRange(lo, hi, clo, chi)
	} else {
		sess.QuickFill(lo, hi, clo, chi, ds)
	}
	if err := g.saveSession(ctx, sess); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s now has %d cells\n", sess.Ref(), len(sess.Cells()))
	return nil
}

func parseDiameters(s string, fallback stockgrid.Diameters) (stockgrid.Diameters, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	var out []float64
	for _, part := range strings.Split(s, ",") {
		d, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid diameter %q", part)
		}
		out = append(out, d)
	}
	return stockgrid.NormalizeDiameters(out), nil
}

func handleTranspose(ctx context.Context, g *globals, stdout io.Writer) error {
	sess, release, err := g.session(ctx)
	if err != nil {
		return err
	}
	defer release()

	from := sess.Notation()
	sess.ToggleCylFormat()
	if err := g.saveSession(ctx, sess); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %s -> %s cylinder, %d cells\n", sess.Ref(), from, sess.Notation(), len(sess.Cells()))
	return nil
}

func handleRender(ctx context.Context, g *globals, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	out := fs.String("out", "", "Output PNG path (default: <supplier>_<brand>_<lens>.png)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess, release, err := g.session(ctx)
	if err != nil {
		return err
	}
	defer release()

	if *out == "" {
		*out = security.SanitizeFilename(sess.Ref().String()) + ".png"
	}
	if err := security.ValidateOutputPath(*out); err != nil {
		return err
	}

	grid, err := stockgrid.FromSnapshot(sess.Snapshot())
	if err != nil {
		return err
	}
	c := report.CoverageMatrix(grid)
	if err := report.SavePNG(*out, c, sess.Ref().String()); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%d stocked cells)\n", *out, c.Stocked())
	return nil
}
