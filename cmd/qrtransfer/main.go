package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/license-fn/qrcode-file-transfer/internal/logging"
	"github.com/license-fn/qrcode-file-transfer/pkg/qrimage"
	"github.com/license-fn/qrcode-file-transfer/pkg/transfer"
)

// qrtransferMain is the real main function. Per-file problems are reported
// and do not make it fail; an unusable configuration or output directory
// does.
func qrtransferMain(args []string, stdout io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		if errors.Is(err, errShowVersion) {
			fmt.Fprintf(stdout, "%s version %s\n", appName, version())
			return nil
		}
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return nil
		}
		return err
	}

	backend, err := logging.New(logging.Config{
		Console:      stdout,
		ConsoleLevel: cfg.DebugLevel,
		LogFile:      cfg.LogFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to initialize logging: %v\n", err)
		return err
	}
	defer backend.Close()

	log := backend.Logger(logging.SubsystemMain)
	log.Debugf("mode = %s", cfg.mode)

	switch cfg.mode {
	case modeEncode:
		level, err := qrimage.ParseRecoveryLevel(cfg.Encode.Recovery)
		if err != nil {
			return err
		}
		renderer := &qrimage.Renderer{Level: level, ModuleSize: cfg.Encode.ModuleSize}

		enc := transfer.NewEncoder(renderer, backend.Logger(logging.SubsystemEncoder), stdout)
		enc.Budget = cfg.Encode.ChunkSize

		log.Debugf("output_dir = %s", cfg.Encode.OutputDir)
		log.Debugf("input_files = %v", cfg.Encode.Args.Files)
		if _, err := enc.EncodeFiles(cfg.Encode.Args.Files, cfg.Encode.OutputDir); err != nil {
			return err
		}

	case modeDecode:
		dec := transfer.NewDecoder(qrimage.NewScanner(), backend.Logger(logging.SubsystemDecoder), stdout)
		dec.Prefix = cfg.Decode.Prefix

		log.Debugf("output_dir = %s", cfg.Decode.OutputDir)
		log.Debugf("input_files = %v", cfg.Decode.Args.Images)
		report, err := dec.Decode(cfg.Decode.Args.Images, cfg.Decode.OutputDir)
		if err != nil {
			return err
		}
		log.Debugf("Done! %d payloads accepted, %d rejected, %d images skipped",
			report.Payloads, report.Rejected, len(report.Skipped))
	}

	return nil
}

func main() {
	if err := qrtransferMain(os.Args[1:], os.Stdout); err != nil {
		os.Exit(1)
	}
}
