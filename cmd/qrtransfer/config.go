package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"

	"github.com/license-fn/qrcode-file-transfer/internal/logging"
	"github.com/license-fn/qrcode-file-transfer/pkg/chunking"
	"github.com/license-fn/qrcode-file-transfer/pkg/qrimage"
)

const (
	modeEncode = "encode"
	modeDecode = "decode"
)

// errShowVersion and flags.ErrHelp end the run successfully without doing
// any work.
var errShowVersion = errors.New("version requested")

// config defines the global options of qrtransfer.
type config struct {
	ConfigFile  string `short:"C" long:"configfile" description:"Path to an INI configuration file"`
	LogDir      string `long:"logdir" description:"Directory to keep the log file in; a relative logfile is placed inside it"`
	LogFile     string `long:"logfile" description:"File that receives the debug log"`
	NoLogFile   bool   `long:"nologfile" description:"Do not write a log file"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Console logging level {trace, debug, info, warn, error, critical, off}"`
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`

	Encode encodeConfig `command:"encode" description:"Convert files into a series of QR code images"`
	Decode decodeConfig `command:"decode" description:"Reconstruct files from QR code images"`

	mode string
}

type encodeConfig struct {
	OutputDir  string `long:"output_dir" description:"Directory to write QR images to; created if missing (default: current directory)"`
	ChunkSize  int    `long:"chunksize" description:"Base64 characters carried per QR code"`
	Recovery   string `long:"recovery" description:"QR error correction level {low, medium, high, highest}"`
	ModuleSize int    `long:"modulesize" description:"Pixels per QR module"`

	Args struct {
		Files []string `positional-arg-name:"FILE" required:"1"`
	} `positional-args:"yes"`
}

type decodeConfig struct {
	OutputDir string `long:"output_dir" description:"Directory to write recovered files to; created if missing (default: current directory)"`
	Prefix    string `long:"prefix" description:"Prefix prepended to recovered file names"`

	Args struct {
		Images []string `positional-arg-name:"IMAGE" required:"1"`
	} `positional-args:"yes"`
}

func defaultConfig() config {
	cfg := config{
		LogFile:    logging.DefaultLogFilename,
		DebugLevel: logging.DefaultLevel,
	}
	cfg.Encode.ChunkSize = chunking.DefaultChunkBudget
	cfg.Encode.Recovery = "medium"
	cfg.Encode.ModuleSize = qrimage.DefaultModuleSize
	return cfg
}

// loadConfig fills a config from defaults, an optional INI file and the
// command line, in that order of increasing precedence.
func loadConfig(args []string) (*config, error) {
	// Find the config file first so the command line can override it.
	preCfg := struct {
		ConfigFile string `short:"C" long:"configfile"`
	}{}
	preParser := flags.NewParser(&preCfg, flags.IgnoreUnknown)
	if _, err := preParser.ParseArgs(args); err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	parser := flags.NewParser(&cfg, flags.Default)
	parser.SubcommandsOptional = true

	if preCfg.ConfigFile != "" {
		if err := flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing config file %s: %v\n", preCfg.ConfigFile, err)
			return nil, err
		}
	}

	if _, err := parser.ParseArgs(args); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return nil, err
		}
		parser.WriteHelp(os.Stderr)
		return nil, err
	}

	if cfg.ShowVersion {
		return &cfg, errShowVersion
	}

	if parser.Active == nil {
		parser.WriteHelp(os.Stderr)
		return nil, fmt.Errorf("a mode is required: %s or %s", modeEncode, modeDecode)
	}
	cfg.mode = parser.Active.Name

	if err := cfg.validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, err
	}
	return &cfg, nil
}

// validate checks option values for validity.
func (cfg *config) validate() error {
	if _, err := logging.ParseLevel(cfg.DebugLevel); err != nil {
		return err
	}
	switch {
	case cfg.NoLogFile:
		cfg.LogFile = ""
	case cfg.LogDir != "" && !filepath.IsAbs(cfg.LogFile):
		cfg.LogFile = filepath.Join(cfg.LogDir, cfg.LogFile)
	}

	if cfg.mode != modeEncode {
		return nil
	}
	if cfg.Encode.ChunkSize < 1 {
		return fmt.Errorf("chunksize must be at least 1, got %d", cfg.Encode.ChunkSize)
	}
	if cfg.Encode.ModuleSize < 1 {
		return fmt.Errorf("modulesize must be at least 1, got %d", cfg.Encode.ModuleSize)
	}
	if _, err := qrimage.ParseRecoveryLevel(cfg.Encode.Recovery); err != nil {
		return err
	}
	return nil
}
