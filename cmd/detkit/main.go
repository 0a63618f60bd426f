package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/ironsheep/detkit/internal/config"
	"github.com/ironsheep/detkit/internal/logging"
	"github.com/ironsheep/detkit/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("detkit - object detection dataset tools")
	fmt.Println()
	fmt.Println("Usage: detkit [-config file.yaml] <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  voc2coco     Convert an image dir and a VOC XML dir to COCO train/eval files")
	fmt.Println("  voc          Copy an image dir and a VOC XML dir into a VOC list-file dataset")
	fmt.Println("  inspect      Print sample and class counts of a VOC dataset")
	fmt.Println("  visualize    Draw ground truth or detection files onto images")
	fmt.Println("  crops        Write every ground-truth box as a per-class patch")
	fmt.Println("  serve        Run the MCP server over stdin/stdout")
	fmt.Println("  version      Print version information")
	fmt.Println()
	fmt.Println("Run 'detkit <command> -h' for the flags of a command.")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  DETKIT_CONFIG=path.yaml      Config file used when -config is not given")
	fmt.Println("  DETKIT_LOG_LEVEL=debug       Enable debug logging")
	fmt.Println("  DETKIT_<SETTING>=value       Override any setting, e.g. DETKIT_TRAIN_RATIO=0.8")
	fmt.Println()
	fmt.Println("A .env file in the working directory is read before the environment.")
}

func main() {
	// stdout carries MCP responses in serve mode
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime)

	global := flag.NewFlagSet("detkit", flag.ExitOnError)
	global.Usage = usage
	configPath := global.String("config", "", "YAML config file")
	global.Parse(os.Args[1:])

	args := global.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	switch args[0] {
	case "--version", "-v", "version":
		fmt.Printf("detkit %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case "--help", "-h", "help":
		usage()
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to read .env: %v", err)
	}
	if *configPath == "" {
		*configPath = os.Getenv(config.EnvPrefix + "CONFIG")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	cmd, ok := commands[args[0]]
	if !ok {
		log.Fatalf("Unknown command %q; run 'detkit help'", args[0])
	}
	if err := cmd(cfg, args[1:]); err != nil {
		log.Fatalf("%s: %v", args[0], err)
	}
}

// setupLogging validates the final configuration and installs the
// process-wide logger registry. The returned closer releases the log file.
func setupLogging(cfg *config.Config) (io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var w io.Writer = os.Stderr
	var closer io.Closer = io.NopCloser(nil)
	if cfg.LogFile != "" {
		f, err := logging.OpenSink(cfg.LogFile)
		if err != nil {
			return nil, err
		}
		w = io.MultiWriter(os.Stderr, f)
		closer = f
	}
	logging.Init(w, logging.ParseLevel(cfg.LogLevel))
	logging.GetOrCreate("detkit").Debugf("detkit %s (built %s, commit %s)", Version, BuildTime, GitCommit)
	return closer, nil
}

func runServe(cfg *config.Config, args []string) error {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	scoreThreshold := flags.Float64("score-threshold", cfg.ScoreThreshold, "default minimum score drawn by image_visualize_detections")
	flags.Parse(args)
	cfg.ScoreThreshold = *scoreThreshold

	closer, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	server.Version = Version
	srv := server.New(cfg, logging.GetOrCreate("server"))
	return srv.Run()
}
