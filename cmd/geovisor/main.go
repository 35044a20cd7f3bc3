package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/geovisor/internal/logger"
	"github.com/joeblew999/geovisor/internal/server"
	"github.com/joeblew999/geovisor/internal/service"
	"github.com/joeblew999/geovisor/internal/tiles"
	"github.com/joeblew999/geovisor/internal/vulnerability"
)

// Options defines all CLI flags and env vars for the geovisor server.
// Flags: --host, --port, --data-dir, --data-url, --web-dir, --db-name, --log-level, --log-format
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_DATA_URL, ...
type Options struct {
	Host      string `doc:"Host to bind to" default:"0.0.0.0"`
	Port      int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir   string `doc:"Directory for data files" default:"data"`
	DataURL   string `doc:"GeoJSON source: http(s) URL or path relative to the data directory" default:"Vulnerabilidad.geojson"`
	WebDir    string `doc:"Serve web/ from this directory instead of the embedded copy"`
	DBName    string `doc:"DuckDB database name, empty to disable the attribute store" default:"geovisor"`
	LogLevel  string `doc:"Log level: debug, info, warn, error" default:"info"`
	LogFormat string `doc:"Log format: text or json" default:"text"`
}

func newServer(opts *Options) (*server.Server, error) {
	return server.New(server.Config{
		Host:    opts.Host,
		Port:    fmt.Sprintf("%d", opts.Port),
		DataDir: opts.DataDir,
		DataURL: opts.DataURL,
		WebDir:  opts.WebDir,
		DBName:  opts.DBName,
	})
}

func main() {
	_ = godotenv.Load(".env")

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		logger.Setup(opts.LogLevel, opts.LogFormat)

		srv, err := newServer(opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", opts.Host, opts.Port),
			Handler:           srv,
			ReadHeaderTimeout: 10 * time.Second,
		}

		hooks.OnStart(func() {
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("geovisor server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", srv.Data().Source())
			fmt.Println()
			fmt.Printf("  Map:     %s/\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			srv.Start(context.Background())
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.L().Error("server_error", "err", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(ctx); err != nil {
				logger.L().Error("shutdown_error", "err", err)
			}
			if err := srv.Close(); err != nil {
				logger.L().Error("close_error", "err", err)
			}
		})
	})

	cli.Root().Use = "geovisor"
	cli.Root().Short = "Aquifer vulnerability geovisor"
	cli.Root().Version = "0.1.0"

	addSpecCmd(cli.Root())
	addAquifersCmd(cli.Root())
	addLegendCmd(cli.Root())
	addTileCmd(cli.Root())

	cli.Run()
}

// addSpecCmd exports the OpenAPI document.
func addSpecCmd(root *cobra.Command) {
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			opts.DBName = ""
			srv, err := newServer(opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	root.AddCommand(specCmd)
}

// addAquifersCmd lists the aquifers in the configured source without starting the server.
func addAquifersCmd(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "aquifers",
		Short: "List the aquifers in the data source",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logger.Setup(opts.LogLevel, opts.LogFormat)
			data := service.NewDataService(opts.DataDir, opts.DataURL, service.NewEventBus())
			if err := data.Load(cmd.Context()); err != nil {
				cmd.PrintErrln(fmt.Errorf("failed to load data: %w", err))
				os.Exit(1)
			}

			layer := data.Layer()
			idx := layer.Index()
			if idx.Len() == 0 {
				cmd.Println("No aquifers found.")
				return
			}

			features := layer.Features()
			cmd.Println(fmt.Sprintf("%d aquifers, %d features:", idx.Len(), layer.Len()))
			for _, name := range idx.NamesSorted() {
				members := idx.Members(name)
				levels := make([]int, len(members))
				for i, id := range members {
					levels[i] = int(features[id].Level)
				}
				cmd.Println(fmt.Sprintf("  %-40s polygons=%d levels=%v", name, len(members), levels))
			}
		}),
	})
}

// addLegendCmd prints the color legend.
func addLegendCmd(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "legend",
		Short: "Print the vulnerability legend",
		Run: func(cmd *cobra.Command, args []string) {
			for _, item := range vulnerability.Legend() {
				cmd.Println(fmt.Sprintf("  %s  %s", item.Color, item.Label))
			}
		},
	})
}

// addTileCmd writes one gzipped vector tile, handy for checking a tile in QGIS.
func addTileCmd(root *cobra.Command) {
	tileCmd := &cobra.Command{
		Use:   "tile <z> <x> <y>",
		Short: "Write one vector tile of the vulnerability layer",
		Args:  cobra.ExactArgs(3),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logger.Setup(opts.LogLevel, opts.LogFormat)

			var zxy [3]int
			for i, a := range args {
				n, err := strconv.Atoi(a)
				if err != nil {
					cmd.PrintErrln(fmt.Errorf("invalid tile coordinate %q: %w", a, err))
					os.Exit(1)
				}
				zxy[i] = n
			}

			data := service.NewDataService(opts.DataDir, opts.DataURL, service.NewEventBus())
			if err := data.Load(cmd.Context()); err != nil {
				cmd.PrintErrln(fmt.Errorf("failed to load data: %w", err))
				os.Exit(1)
			}

			tile, err := tiles.NewCache(data, 1).Tile(zxy[0], zxy[1], zxy[2])
			if err != nil {
				cmd.PrintErrln(err)
				os.Exit(1)
			}
			if tile == nil {
				cmd.Println("Tile is empty.")
				return
			}

			out, _ := cmd.Flags().GetString("output")
			if out == "" {
				out = fmt.Sprintf("%d-%d-%d.mvt.gz", zxy[0], zxy[1], zxy[2])
			}
			if err := os.WriteFile(out, tile, 0o644); err != nil {
				cmd.PrintErrln(fmt.Errorf("writing tile: %w", err))
				os.Exit(1)
			}
			cmd.Println(fmt.Sprintf("Wrote %s (%d bytes)", out, len(tile)))
		}),
	}
	tileCmd.Flags().StringP("output", "o", "", "Output file (default <z>-<x>-<y>.mvt.gz)")
	root.AddCommand(tileCmd)
}
