package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kass/go-speedlimit/pkg/geocode"
	"github.com/kass/go-speedlimit/pkg/models"
	"github.com/kass/go-speedlimit/pkg/policy"
	"github.com/kass/go-speedlimit/pkg/postgis"
	"github.com/kass/go-speedlimit/pkg/resolver"
	"github.com/kass/go-speedlimit/pkg/roadstore"
)

var (
	indexFile  string
	pgConn     string
	policyFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "go-speedlimit",
	Short: "Nearest-road speed limit lookup",
	Long:  `Resolve the nearest road and its speed limit for a coordinate or address, using an R-Tree road index or a PostGIS roads table.`,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the nearest road and speed limit for a point",
	Long:  `Find the most relevant road for a --lat/--lon pair or a geocoded --address and report its class and speed limit.`,
	Run:   runResolve,
}

var loadCmd = &cobra.Command{
	Use:   "load <roads.geojson>",
	Short: "Build a road index from a GeoJSON roads file",
	Long:  `Read road features from a GeoJSON FeatureCollection and save them as a binary index (or load them into PostGIS with --pg).`,
	Args:  cobra.ExactArgs(1),
	Run:   runLoad,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show road index statistics",
	Run:   runStats,
}

var (
	queryLat          float64
	queryLon          float64
	queryAddress      string
	initialRadius     float64
	maxRadius         float64
	noPreferMotorways bool
	noPreferTagged    bool
	anyClass          bool
	noGeocodeCache    bool
)

var (
	// ANSI color codes, cleared when stdout is not a terminal
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
)

func init() {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		colorReset = ""
		colorGreen = ""
		colorYellow = ""
		colorBold = ""
	}

	rootCmd.PersistentFlags().StringVarP(&indexFile, "file", "f", "roads_index.gob", "Road index file path")
	rootCmd.PersistentFlags().StringVar(&pgConn, "pg", "", "PostGIS connection string (overrides --file)")
	rootCmd.PersistentFlags().StringVar(&policyFile, "policy", "", "Region policy YAML (default: built-in Denmark tables)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	resolveCmd.Flags().Float64Var(&queryLat, "lat", math.NaN(), "Query latitude")
	resolveCmd.Flags().Float64Var(&queryLon, "lon", math.NaN(), "Query longitude")
	resolveCmd.Flags().StringVar(&queryAddress, "address", "", "Free-form address to geocode")
	resolveCmd.Flags().Float64VarP(&initialRadius, "radius", "r", 500.0, "Initial search radius in meters")
	resolveCmd.Flags().Float64Var(&maxRadius, "max-radius", 5000.0, "Maximum search radius in meters")
	resolveCmd.Flags().BoolVar(&noPreferMotorways, "no-prefer-motorways", false, "Disable motorway-first priority tiers")
	resolveCmd.Flags().BoolVar(&noPreferTagged, "no-prefer-tagged", false, "Do not prefer roads with a speed tag")
	resolveCmd.Flags().BoolVar(&anyClass, "any-class", false, "Do not restrict the fallback pass to drivable classes")
	resolveCmd.Flags().BoolVar(&noGeocodeCache, "no-cache", false, "Skip the Redis geocoding cache")

	rootCmd.AddCommand(resolveCmd, loadCmd, statsCmd)
}

func main() {
	// .env is optional; flags and real env vars win
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore picks PostGIS when --pg is set, the gob index otherwise
func openStore() resolver.RoadStore {
	if pgConn != "" {
		db, err := postgis.Open(pgConn)
		if err != nil {
			log.Fatalf("Failed to connect to PostGIS: %v", err)
		}
		return db
	}

	index := roadstore.NewRoadIndex()
	if err := index.LoadFromFile(indexFile); err != nil {
		log.Fatalf("Failed to load index: %v", err)
	}
	if verbose {
		fmt.Printf("Loaded %d road features from %s\n", index.Count(), indexFile)
	}
	return index
}

func loadPolicy() *policy.Policy {
	if policyFile == "" {
		return policy.Denmark()
	}
	pol, err := policy.LoadFile(policyFile)
	if err != nil {
		log.Fatalf("Failed to load policy: %v", err)
	}
	return pol
}

func runResolve(cmd *cobra.Command, args []string) {
	lat, lon := queryLat, queryLon
	haveCoords := !math.IsNaN(lat) && !math.IsNaN(lon)

	if !haveCoords && queryAddress == "" {
		fmt.Fprintln(os.Stderr, "Must provide either --lat/--lon or --address")
		os.Exit(2)
	}

	if !haveCoords {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		chain := geocode.NewChain(geocode.NewNominatim(), geocode.NewPhoton())
		if !noGeocodeCache {
			chain = chain.WithCache(geocode.CacheFromEnv(24 * time.Hour))
		}

		loc, err := chain.Resolve(ctx, queryAddress)
		if errors.Is(err, geocode.ErrNoMatch) {
			fmt.Fprintln(os.Stderr, "Address not found after retries.")
			os.Exit(3)
		}
		if err != nil {
			log.Fatalf("Geocoding failed: %v", err)
		}
		lat, lon = loc.Lat, loc.Lon
		fmt.Printf("Geocoded address to lat=%.6f, lon=%.6f\n", lat, lon)
	}

	store := openStore()

	opts := resolver.Options{
		InitialRadiusM: initialRadius,
		MaxRadiusM:     maxRadius,
		DrivableOnly:   !anyClass,
		PreferTagged:   !noPreferTagged,
		PreferTiers:    !noPreferMotorways,
	}

	r := resolver.New(store, loadPolicy(), opts)
	result, err := r.Resolve(models.Location{Lat: lat, Lon: lon})
	if err != nil {
		log.Fatalf("Resolution failed: %v", err)
	}
	if result == nil {
		fmt.Println("No nearby road found within search radius.")
		os.Exit(2)
	}

	rawStr := result.MaxSpeedRaw
	if rawStr == "" {
		rawStr = "none"
	}
	kmhStr := "unknown"
	if result.SpeedKMH != nil {
		kmhStr = fmt.Sprintf("%.0f km/h", *result.SpeedKMH)
	}

	fmt.Printf("%sNearest road:%s class=%s%s%s maxspeed_raw=%s maxspeed=%s%s%s distance_deg=%.6g\n",
		colorBold, colorReset,
		colorYellow, result.Class, colorReset,
		rawStr,
		colorGreen, kmhStr, colorReset,
		result.DistanceDeg)
}

func runLoad(cmd *cobra.Command, args []string) {
	geojsonFile := args[0]

	fmt.Printf("Reading road features from %s...\n", geojsonFile)
	features, err := roadstore.ReadGeoJSON(geojsonFile)
	if err != nil {
		log.Fatalf("Failed to read roads: %v", err)
	}
	fmt.Printf("Read %d road features\n", len(features))

	if pgConn != "" {
		db, err := postgis.Open(pgConn)
		if err != nil {
			log.Fatalf("Failed to connect to PostGIS: %v", err)
		}
		defer db.Close()

		if err := db.InitSchema(); err != nil {
			log.Fatalf("Failed to init schema: %v", err)
		}

		start := time.Now()
		if err := db.BulkInsertFeatures(features); err != nil {
			log.Fatalf("Failed to insert features: %v", err)
		}
		fmt.Printf("Inserted %d features into PostGIS in %v\n", len(features), time.Since(start))
		return
	}

	index := roadstore.NewRoadIndex()

	start := time.Now()
	if err := index.IndexFeatures(features); err != nil {
		log.Fatalf("Failed to index features: %v", err)
	}
	buildTime := time.Since(start)

	fmt.Printf("Indexed %d features in %v\n", index.Count(), buildTime)

	if err := index.SaveToFile(indexFile); err != nil {
		log.Fatalf("Failed to save index: %v", err)
	}
	fmt.Printf("Index saved to %s\n", indexFile)
}

func runStats(cmd *cobra.Command, args []string) {
	if pgConn != "" {
		db, err := postgis.Open(pgConn)
		if err != nil {
			log.Fatalf("Failed to connect to PostGIS: %v", err)
		}
		defer db.Close()

		count, err := db.Count()
		if err != nil {
			log.Fatalf("Failed to count roads: %v", err)
		}
		fmt.Printf("PostGIS roads table: %d features\n", count)
		return
	}

	index := roadstore.NewRoadIndex()
	if err := index.LoadFromFile(indexFile); err != nil {
		log.Fatalf("Failed to load index: %v", err)
	}
	fmt.Printf("Index %s: %d features\n", indexFile, index.Count())
}
