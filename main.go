package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"scalegrid/analysis"
	"scalegrid/collection"
	"scalegrid/config"
	"scalegrid/database"
	"scalegrid/logging"
	"scalegrid/metadata"
	"scalegrid/scanner"
	"scalegrid/signalhandler"
	"scalegrid/types"
	"scalegrid/utils"
)

func main() {
	// Set up proper signal handling
	signalhandler.SetupHandler()

	runtime.GOMAXPROCS(signalhandler.GetOptimalProcs())

	// Parse command line arguments into a map
	args := utils.ParseArguments()

	command, hasCommand := args["command"]

	// Load configuration; flags override individual settings below
	configPath := "scalegrid.yaml"
	if customConfig, ok := args["config"]; ok && customConfig != "" {
		configPath = customConfig
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	dbPath := utils.GetDefaultDatabasePath()
	if cfg.Storage.DatabasePath != "" {
		dbPath = cfg.Storage.DatabasePath
	}
	if customDB, ok := args["database"]; ok && customDB != "" {
		dbPath = customDB
	} else if customDB, ok := args["db"]; ok && customDB != "" {
		// Allow --db as an alias for --database
		dbPath = customDB
	}

	// Setup debug logging if enabled
	debugMode := false
	if _, ok := args["debug"]; ok {
		debugMode = true
		logPath := "scalegrid.log"
		if customLogPath, ok := args["logfile"]; ok && customLogPath != "" {
			logPath = customLogPath
		}
		if err := logging.SetupLogger(logPath); err != nil {
			fmt.Printf("Warning: Failed to setup logging: %v\n", err)
		} else {
			fmt.Printf("Debug mode enabled. Logging to: %s\n", logPath)
		}
	}

	// Check if required arguments are missing
	showUsage := !hasCommand

	if hasCommand && command == "analyze" && args["folder"] == "" {
		showUsage = true
	}
	if hasCommand && command == "show" && args["collection"] == "" {
		showUsage = true
	}
	if hasCommand && command == "list" && args["sample"] == "" {
		showUsage = true
	}

	if showUsage {
		utils.PrintUsage()
		os.Exit(1)
	}

	switch command {
	case "analyze":
		handleAnalyzeCommand(args, cfg, dbPath, debugMode)
	case "show":
		handleShowCommand(args)
	case "list":
		handleListCommand(args, dbPath)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		utils.PrintUsage()
		os.Exit(1)
	}
}

func handleAnalyzeCommand(args map[string]string, cfg *config.Config, dbPath string, debugMode bool) {
	folderPath := args["folder"]

	// Verify folder path exists and is accessible
	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Fatalf("Folder path does not exist: %s", folderPath)
		} else {
			log.Fatalf("Cannot access folder path: %s (%v)", folderPath, err)
		}
	}
	if !folderInfo.IsDir() {
		log.Fatalf("Path is not a directory: %s", folderPath)
	}

	sampleID := args["sample"]
	if sampleID == "" {
		sampleID = utils.DeriveSampleID(folderPath)
	}
	sessionID := args["session"]

	margin := cfg.Analysis.MarginFraction
	if marginStr, ok := args["margin"]; ok {
		parsed, err := utils.ParseMargin(marginStr)
		if err != nil {
			fmt.Printf("Warning: %v\n", err)
		} else {
			margin = parsed
		}
	}

	collectionsDir := cfg.Storage.CollectionsDir
	if customDir, ok := args["collections-dir"]; ok && customDir != "" {
		collectionsDir = customDir
	}

	forceRewrite := false
	if _, ok := args["force"]; ok {
		forceRewrite = true
	}

	startTime := time.Now()

	// Initialize catalog with retry logic
	var db *sql.DB
	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		db, err = database.InitDatabase(dbPath)
		if err == nil {
			break
		}

		if i < maxRetries-1 {
			log.Printf("Error initializing catalog (attempt %d/%d): %v - retrying...",
				i+1, maxRetries, err)
			time.Sleep(time.Second * time.Duration(i+1))
		} else {
			log.Fatalf("Error initializing catalog after %d attempts: %v", maxRetries, err)
		}
	}
	defer db.Close()

	if err := database.RegisterSample(db, sampleID, sessionID, folderPath); err != nil {
		log.Fatalf("Error registering sample: %v", err)
	}

	manager, err := metadata.NewManager(cfg.Storage.MetadataDir)
	if err != nil {
		log.Fatalf("Error preparing metadata directory: %v", err)
	}
	if _, err := manager.SaveSampleInfo(metadata.SampleInfo{
		SampleID:   sampleID,
		SessionID:  sessionID,
		FolderPath: folderPath,
	}); err != nil {
		log.Fatalf("Error saving sample info: %v", err)
	}

	imageMetadata := loadOrExtractMetadata(db, manager, sampleID, sessionID, folderPath, cfg, forceRewrite, debugMode)
	if len(imageMetadata) == 0 {
		log.Fatalf("No valid image metadata found in %s", folderPath)
	}

	// Group images into collections and persist them
	collections := analysis.GroupCollections(sessionID, sampleID, imageMetadata, margin)
	if len(collections) == 0 {
		log.Fatalf("No image collections could be built from %s", folderPath)
	}

	store, err := collection.NewStore(collectionsDir)
	if err != nil {
		log.Fatalf("Error preparing collections directory: %v", err)
	}

	for _, c := range collections {
		filePath, err := store.Save(c)
		if err != nil {
			log.Fatalf("Error saving collection %s: %v", c.Name, err)
		}
		if err := database.RegisterCollection(db, c.Name, sampleID, filePath, len(c.Images)); err != nil {
			log.Fatalf("Error registering collection %s: %v", c.Name, err)
		}
		if debugMode {
			logging.DebugLog("Saved collection %s (%d images) to %s", c.Name, len(c.Images), filePath)
		}
	}

	duration := time.Since(startTime)
	fmt.Printf("\nAnalysis completed successfully!\n")
	fmt.Printf("Total execution time: %v\n", duration)
	fmt.Printf("Collections directory: %s\n", collectionsDir)
	fmt.Printf("Catalog: %s\n", dbPath)

	fmt.Printf("\nCollections:\n")
	for _, c := range collections {
		s := analysis.Summarize(c)
		if s.ImageCount == 1 {
			fmt.Printf("- %s: 1 image\n", s.Name)
			continue
		}
		fmt.Printf("- %s: %d images, %d containment edges, magnification %gx-%gx (mean %.0fx)\n",
			s.Name, s.ImageCount, s.EdgeCount, s.MinMagnification, s.MaxMagnification, s.MeanMagnification)
		if s.MissingGeometry > 0 {
			fmt.Printf("  (%d images without geometry)\n", s.MissingGeometry)
		}
	}

	stats, err := database.GetSampleStats(db, sampleID)
	if err == nil && stats != nil {
		fmt.Printf("\nSummary for sample %s:\n", sampleID)
		fmt.Printf("- Total images cataloged: %d\n", stats.TotalImages)
		fmt.Printf("- Images missing geometry: %d\n", stats.MissingGeometry)
		fmt.Printf("- Collections: %d\n", stats.Collections)
	}
}

// loadOrExtractMetadata returns the sample's metadata map, preferring the
// CSV cache when allowed and falling back to a folder scan. Cached entries
// whose files no longer exist are pruned; a cache that prunes down to
// nothing triggers a fresh scan.
func loadOrExtractMetadata(db *sql.DB, manager *metadata.Manager, sampleID, sessionID, folderPath string,
	cfg *config.Config, forceRewrite, debugMode bool) map[string]types.ImageMetadata {

	if !forceRewrite && manager.HasCSV(sampleID) {
		cached, err := manager.LoadCSV(sampleID)
		if err != nil {
			log.Printf("Warning: cannot load metadata cache for %s: %v", sampleID, err)
		} else {
			missing := 0
			for path := range cached {
				if _, err := os.Stat(path); err != nil {
					delete(cached, path)
					missing++
				}
			}
			if missing > 0 {
				fmt.Printf("Warning: %d files referenced in metadata cache no longer exist\n", missing)
			}
			if len(cached) > 0 {
				fmt.Printf("Using cached metadata for %d images\n", len(cached))
				return cached
			}
		}
	}

	extracted, err := scanner.ScanFolder(db, scanner.ScanOptions{
		FolderPath:   folderPath,
		SampleID:     sampleID,
		SessionID:    sessionID,
		ForceRewrite: forceRewrite,
		DebugMode:    debugMode,
		Verbose:      cfg.Scan.Verbose,
		MaxWorkers:   cfg.Scan.MaxWorkers,
	})
	if err != nil {
		log.Printf("Warning: folder walk reported an error: %v", err)
	}

	if len(extracted) > 0 {
		if _, err := manager.SaveCSV(sampleID, extracted); err != nil {
			log.Printf("Warning: cannot save metadata cache: %v", err)
		}
	}
	return extracted
}

func handleShowCommand(args map[string]string) {
	collectionPath := args["collection"]

	if _, err := os.Stat(collectionPath); os.IsNotExist(err) {
		log.Fatalf("Collection file does not exist: %s", collectionPath)
	}

	store := &collection.Store{Dir: filepath.Dir(collectionPath)}
	c, err := store.Load(collectionPath)
	if err != nil {
		log.Fatalf("Error loading collection: %v", err)
	}

	fmt.Printf("Collection: %s (sample %s)\n", c.Name, c.SampleID)
	if c.SessionID != "" {
		fmt.Printf("Session: %s\n", c.SessionID)
	}
	fmt.Printf("Images: %d\n", len(c.Images))

	for _, key := range c.Images {
		meta := c.Metadata[key]
		if fovW, fovH, x, y, ok := meta.Geometry(); ok {
			fmt.Printf("  %s  mag=%gx  FOV=%.1fx%.1f um  pos=(%.1f, %.1f)\n",
				key, meta.Magnification, fovW, fovH, x, y)
		} else {
			fmt.Printf("  %s  (no geometry)\n", key)
		}
	}

	if len(c.Containment) > 0 {
		fmt.Printf("\nContainment:\n")
		parents := make([]string, 0, len(c.Containment))
		for parent := range c.Containment {
			parents = append(parents, parent)
		}
		sort.Strings(parents)

		for _, parent := range parents {
			for _, child := range c.Containment[parent] {
				line := fmt.Sprintf("  %s contains %s", filepath.Base(parent), filepath.Base(child))
				if bbox, ok := c.BoundingBoxes[collection.ImagePair{Parent: parent, Child: child}]; ok {
					line += fmt.Sprintf("  box=(%.3f, %.3f, %.3f, %.3f)", bbox.X1, bbox.Y1, bbox.X2, bbox.Y2)
				}
				if color, ok := c.Colors[child]; ok {
					line += fmt.Sprintf("  color=(%d, %d, %d, %d)", color.R, color.G, color.B, color.A)
				}
				fmt.Println(line)
			}
		}
	}
}

func handleListCommand(args map[string]string, dbPath string) {
	sampleID := args["sample"]

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		log.Fatalf("Catalog does not exist: %s. Run analyze command first.", dbPath)
	}

	db, err := database.OpenDatabase(dbPath)
	if err != nil {
		log.Fatalf("Error opening catalog: %v", err)
	}
	defer db.Close()

	records, err := database.ListCollections(db, sampleID)
	if err != nil {
		log.Fatalf("Error listing collections: %v", err)
	}

	if len(records) == 0 {
		fmt.Printf("No collections found for sample %s.\n", sampleID)
		return
	}

	fmt.Printf("Collections for sample %s:\n", sampleID)
	for _, rec := range records {
		fmt.Printf("- %s: %d images (%s)\n", rec.Name, rec.ImageCount, rec.FilePath)
	}
}
