// Command capture-analyse replays a PCAP of LiveLink traffic through the
// decode and remap pipeline and reports per-channel statistics, optionally
// with a PNG plot of the eye and jaw channels. Use it to check a capture
// device's vocabulary and to tune smoothing against recorded jitter.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/facelink/internal/config"
	"github.com/banshee-data/facelink/internal/livelink/network"
	"github.com/banshee-data/facelink/internal/livelink/parse"
	"github.com/banshee-data/facelink/internal/security"
	"github.com/banshee-data/facelink/internal/smoothing"
)

func main() {
	pcapFile := flag.String("pcap", "", "PCAP file to analyse (required)")
	port := flag.Int("port", network.DefaultPort, "UDP destination port to select (0 for any)")
	vocabulary := flag.String("vocabulary", parse.DefaultVersion, "Capture channel vocabulary (v1 or v2)")
	outDir := flag.String("out", "", "Directory for <capture>-report.json and <capture>-plot.png (default: print report only)")
	smooth := flag.Bool("smooth", false, "Apply output smoothing before measuring")
	configFile := flag.String("config", "", "facelink config whose smoothing and vocabulary to apply (optional)")
	flag.Parse()

	if *pcapFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	vocabSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "vocabulary" {
			vocabSet = true
		}
	})
	vocab, bank, err := pipelineSettings(*configFile, *vocabulary, vocabSet, *smooth)
	if err != nil {
		log.Fatalf("failed to configure analysis: %v", err)
	}

	report, a, err := analyseFile(*pcapFile, *port, vocab, bank)
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode report: %v", err)
	}

	if *outDir == "" {
		fmt.Println(string(out))
		return
	}
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}
	if err := writeOutputs(*outDir, *pcapFile, out, a); err != nil {
		log.Fatalf("failed to write outputs: %v", err)
	}
	log.Printf("analysed %d frames (%d decode failures) from %s into %s",
		report.Frames, report.DecodeFailures, *pcapFile, *outDir)
}

// writeOutputs stores the encoded report and the channel plot in dir,
// named after the capture file.
func writeOutputs(dir, pcapFile string, report []byte, a *analyser) error {
	reportPath, err := security.OutputPath(dir, pcapFile, "report.json")
	if err != nil {
		return err
	}
	plotPath, err := security.OutputPath(dir, pcapFile, "plot.png")
	if err != nil {
		return err
	}
	if err := os.WriteFile(reportPath, report, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	title := strings.TrimSuffix(filepath.Base(pcapFile), filepath.Ext(pcapFile))
	if err := a.savePlot(plotPath, title); err != nil {
		log.Printf("plot skipped: %v", err)
	}
	return nil
}

// pipelineSettings picks the vocabulary and smoothing bank. Without a
// config file, smooth selects the default filter. With one, its smoothing
// section is used as facelink would (smooth forces it on) and its
// vocabulary applies unless vocabName was given explicitly.
func pipelineSettings(configFile, vocabName string, vocabSet, smooth bool) (*parse.Vocabulary, *smoothing.Bank, error) {
	if configFile == "" {
		vocab, err := parse.VocabularyByName(vocabName)
		if err != nil {
			return nil, nil, err
		}
		var bank *smoothing.Bank
		if smooth {
			bank = smoothing.NewBank(smoothing.DefaultParams, nil)
		}
		return vocab, bank, nil
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, err
	}
	if vocabSet {
		cfg.Vocabulary = &vocabName
	}
	vocab, err := cfg.GetVocabulary()
	if err != nil {
		return nil, nil, err
	}
	if smooth {
		if cfg.Smoothing == nil {
			cfg.Smoothing = &config.SmoothingConfig{}
		}
		on := true
		cfg.Smoothing.Enabled = &on
	}
	return vocab, cfg.SmoothingBank(), nil
}

// analyseFile replays path through bank (nil for raw output) and returns
// the report together with the analyser holding the recorded series.
func analyseFile(path string, port int, vocab *parse.Vocabulary, bank *smoothing.Bank) (Report, *analyser, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, nil, fmt.Errorf("failed to open PCAP: %w", err)
	}
	defer f.Close()

	a := newAnalyser(vocab, bank)

	stats, err := network.ReplayPCAP(context.Background(), f, port, a.handle)
	if err != nil {
		return Report{}, nil, err
	}

	report := a.report()
	report.PCAPFile = path
	report.Smoothed = bank != nil
	report.Packets = stats.Packets
	report.Matched = stats.Matched
	return report, a, nil
}
