package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"

	log "github.com/sirupsen/logrus"

	"github.com/openneuropet/ecat2nii/internal/convert"
	"github.com/openneuropet/ecat2nii/internal/sidecar"
	"github.com/openneuropet/ecat2nii/internal/sniff"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	output := flag.String("output", "", "Output NIfTI path (default: input path with .nii extension)")
	dump := flag.Bool("dump", false, "Print decoded headers and frame statistics, do not convert")
	defaultsFile := flag.String("defaults", "", "YAML sidecar defaults file; enables BIDS JSON sidecar output")
	preview := flag.String("preview", "", "Write a PNG slice montage to this path")
	workers := flag.Int("workers", 0, fmt.Sprintf("Number of parallel frame decoders (default: %d = CPU cores)", runtime.NumCPU()))
	quiet := flag.Bool("quiet", false, "Suppress progress output")
	showVersion := flag.Bool("version", false, "Show version")
	help := flag.Bool("help", false, "Show help message")

	flag.Parse()

	if *showVersion {
		fmt.Printf("ecat2nii %s\n", version)
		os.Exit(0)
	}
	if *help {
		printHelp()
		os.Exit(0)
	}
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one input file is required")
		printUsage()
		os.Exit(1)
	}
	input := flag.Arg(0)

	if *quiet {
		log.SetLevel(log.ErrorLevel)
	}

	format, err := sniff.Detect(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	switch format {
	case sniff.FormatECAT:
		// proceed
	case sniff.FormatDICOM:
		summary, err := sniff.SummarizeDICOM(input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s is DICOM but could not be summarized: %v\n", input, err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %s is a DICOM file (%s %s, modality %s, series %q); use a DICOM converter such as dcm2niix\n",
			input, summary.Manufacturer, summary.ModelName, summary.Modality, summary.SeriesDescription)
		os.Exit(1)
	case sniff.FormatNIfTI:
		fmt.Fprintf(os.Stderr, "Error: %s is already a NIfTI file\n", input)
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "Error: %s is not an ECAT 7 file\n", input)
		os.Exit(1)
	}

	if *dump {
		if err := convert.Dump(os.Stdout, input); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	var defaults *sidecar.Defaults
	if *defaultsFile != "" {
		defaults, err = sidecar.LoadDefaults(*defaultsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	opts := convert.Options{
		InputPath:       input,
		OutputPath:      *output,
		SidecarDefaults: defaults,
		PreviewPath:     *preview,
		Workers:         *workers,
		Quiet:           *quiet,
	}

	res, err := convert.Run(context.Background(), opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !*quiet {
		log.WithFields(log.Fields{
			"output":     res.NiftiPath,
			"frames":     res.Frames,
			"dimensions": fmt.Sprintf("%dx%dx%d", res.Dimensions[0], res.Dimensions[1], res.Dimensions[2]),
		}).Info("conversion complete")
		if res.SidecarPath != "" {
			log.WithField("sidecar", res.SidecarPath).Info("sidecar written")
		}
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "\nUsage:")
	fmt.Fprintln(os.Stderr, "  ecat2nii [options] <file.v>")
	fmt.Fprintln(os.Stderr, "\nOptions:")
	flag.PrintDefaults()
}

func printHelp() {
	fmt.Println("ecat2nii")
	fmt.Println("========")
	fmt.Println()
	fmt.Println("Convert ECAT 7.3 PET scanner files to NIfTI-1 with a BIDS JSON sidecar.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ecat2nii [options] <file.v>")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --output <PATH>     Output NIfTI path (default: input with .nii extension)")
	fmt.Println("  --dump              Print decoded headers and frame statistics, do not convert")
	fmt.Println("  --defaults <YAML>   Sidecar defaults file; enables BIDS JSON sidecar output")
	fmt.Println("  --preview <PNG>     Write a slice montage for visual inspection")
	fmt.Printf("  --workers <N>       Parallel frame decoders (default: %d = CPU cores)\n", runtime.NumCPU())
	fmt.Println("  --quiet             Suppress progress output")
	fmt.Println("  --version           Show version")
	fmt.Println("  --help              Show this help message")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Convert a scan, writing scan.nii next to the input")
	fmt.Println("  ecat2nii scan.v")
	fmt.Println()
	fmt.Println("  # Convert with a BIDS sidecar from tracer defaults")
	fmt.Println("  ecat2nii --defaults fdg.yaml --output sub-01_pet.nii scan.v")
	fmt.Println()
	fmt.Println("  # Inspect headers without converting")
	fmt.Println("  ecat2nii --dump scan.v")
	fmt.Println()
	fmt.Println("  # Convert and write a per-frame slice montage")
	fmt.Println("  ecat2nii --preview scan.png scan.v")
}
