package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	imagecropper "github.com/menta2k/image-cropper"
	"github.com/menta2k/image-cropper/internal/config"
	"github.com/menta2k/image-cropper/internal/utils"
	"github.com/menta2k/image-cropper/pkg/processing"
	"github.com/menta2k/image-cropper/pkg/types"
)

// options collects the per-run settings that are not part of the config file
type options struct {
	process imagecropper.ProcessOptions
	preview bool
	base64  bool
	debug   bool
}

// report is written next to each crop
type report struct {
	Source     string              `json:"source"`
	Output     string              `json:"output"`
	Image      types.Dimension     `json:"image"`
	Multiplier float64             `json:"multiplier"`
	Scale      float64             `json:"scale"`
	Position   types.Coordinate    `json:"position"`
	Offset     types.Coordinate    `json:"offset"`
	Crop       types.CropRectangle `json:"crop"`
}

func main() {
	var in, configPath, outDir, ext, pan, drag string
	var focusName, backend, url, model, cascade, convention string
	var quality, jobs int
	var lossless, preview, b64, debug, writeConfig bool
	var scale float64

	flag.StringVar(&in, "in", "", "input image path, directory or URL (jpg/png/webp)")
	flag.StringVar(&configPath, "config", "", "config file (.json or .yaml)")
	flag.StringVar(&outDir, "out", "", "output directory")

	flag.StringVar(&ext, "ext", "", "output format for crops: jpg|png|webp")
	flag.IntVar(&quality, "quality", 0, "JPEG/WebP output quality (1-100)")
	flag.BoolVar(&lossless, "lossless", false, "WebP output lossless mode")

	flag.Float64Var(&scale, "scale", 0, "zoom multiplier on top of the cover scale (e.g. 1..2)")
	flag.StringVar(&pan, "pan", "", "pan position x,y (normalized 0..1, or pixels with -convention pixel)")
	flag.StringVar(&drag, "drag", "", "drag gesture dx,dy in viewport pixels applied after framing")
	flag.StringVar(&convention, "convention", "", "pan convention: normalized|pixel")

	flag.StringVar(&focusName, "focus", "", "initial framing: center|smartcrop|face|vision")
	flag.StringVar(&backend, "backend", "", "vision backend: ollama or llamacpp")
	flag.StringVar(&url, "url", "", "vision server URL")
	flag.StringVar(&model, "model", "", "vision model name")
	flag.StringVar(&cascade, "cascade", "", "pigo face cascade file for -focus face")

	flag.BoolVar(&preview, "preview", false, "also write the viewport preview with crop guide")
	flag.BoolVar(&b64, "base64", false, "print each crop base64 encoded")
	flag.BoolVar(&debug, "debug", false, "create debug overlay images")
	flag.IntVar(&jobs, "jobs", 4, "images processed in parallel")
	flag.BoolVar(&writeConfig, "write-config", false, "write the effective config to -config (or the default path) and exit")

	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	// flags override the config file only when given
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out":
			cfg.Output.OutputDir = outDir
		case "ext":
			cfg.Output.Format = strings.ToLower(ext)
		case "quality":
			cfg.Output.Quality = quality
		case "lossless":
			cfg.Output.Lossless = lossless
		case "convention":
			cfg.Pan.Convention = convention
		case "focus":
			cfg.Focus.Strategy = focusName
		case "backend":
			cfg.Focus.Backend = backend
		case "url":
			cfg.Focus.URL = url
		case "model":
			cfg.Focus.Model = model
		case "cascade":
			cfg.Focus.Cascade = cascade
		}
	})

	if writeConfig {
		path := configPath
		if path == "" {
			path = config.GetConfigPath()
		}
		if err := cfg.SaveToFile(path); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s", path)
		return
	}

	inputs, err := collectInputs(append([]string{in}, flag.Args()...))
	if err != nil {
		log.Fatal(err)
	}
	if len(inputs) == 0 {
		log.Fatalf("usage: %s -in input.jpg|dir|URL [more inputs...] [-config cfg.yaml] [-out outdir] [-scale 1.5] [-pan 0.5,0.3] [-drag dx,dy] [-focus center|smartcrop|face|vision] [-ext jpg|png|webp]", filepath.Base(os.Args[0]))
	}

	opts := options{
		process: imagecropper.ProcessOptions{
			Multiplier: scale,
			Output: types.OutputOptions{
				Format:   cfg.Output.Format,
				Quality:  cfg.Output.Quality,
				Lossless: cfg.Output.Lossless,
			},
		},
		preview: preview,
		base64:  b64,
		debug:   debug,
	}
	if pan != "" {
		p, err := parsePair(pan)
		if err != nil {
			log.Fatalf("invalid -pan: %v", err)
		}
		opts.process.Pan = &p
	}
	if drag != "" {
		d, err := parsePair(drag)
		if err != nil {
			log.Fatalf("invalid -drag: %v", err)
		}
		opts.process.Drag = d
	}

	ic, err := imagecropper.NewFromConfig(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := utils.EnsureDir(cfg.Output.OutputDir); err != nil {
		log.Fatal(err)
	}

	names := utils.UniqueBaseNames(inputs)

	var failed atomic.Int32
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(1, jobs))
	for _, input := range inputs {
		g.Go(func() error {
			if err := processOne(ctx, ic, cfg, input, names[input], opts); err != nil {
				log.Printf("%s: %v", input, err)
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if n := failed.Load(); n > 0 {
		log.Fatalf("%d of %d images failed", n, len(inputs))
	}
}

// collectInputs expands directories into the image files they contain.
// An input listed more than once is kept once.
func collectInputs(args []string) ([]string, error) {
	var inputs []string
	seen := map[string]bool{}
	add := func(in string) {
		if !processing.IsURL(in) {
			in = filepath.Clean(in)
		}
		if !seen[in] {
			seen[in] = true
			inputs = append(inputs, in)
		}
	}

	for _, a := range args {
		if a == "" {
			continue
		}
		if !processing.IsURL(a) && utils.DirExists(a) {
			files, err := utils.ListImageFiles(a)
			if err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", a, err)
			}
			for _, f := range files {
				add(f)
			}
			continue
		}
		add(a)
	}
	return inputs, nil
}

// parsePair parses "x,y"
func parsePair(s string) (types.Coordinate, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return types.Coordinate{}, fmt.Errorf("expected x,y but got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return types.Coordinate{}, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return types.Coordinate{}, err
	}
	return types.Coordinate{X: x, Y: y}, nil
}

// processOne crops input and writes every output under the base name
func processOne(ctx context.Context, ic *imagecropper.ImageCropper, cfg *config.Config, input, base string, opts options) error {
	doc, err := ic.Open(ctx, input)
	if err != nil {
		return err
	}

	s, err := ic.Frame(ctx, doc, opts.process)
	if err != nil {
		return err
	}

	result, err := ic.Commit(s, doc)
	if err != nil {
		return err
	}

	out := cfg.Output
	cropPath := utils.OutputFilename(input, base, out.OutputDir, out.Prefix, out.Suffix, strings.ToLower(out.Format))
	if err := ic.Save(result, cropPath, opts.process.Output); err != nil {
		return err
	}
	if st, err := os.Stat(cropPath); err == nil {
		log.Printf("wrote %s (%s) crop=%.1fx%.1f@%.1f,%.1f scale=%.3f",
			cropPath, utils.FormatFileSize(st.Size()),
			result.Rect.Width, result.Rect.Height, result.Rect.X, result.Rect.Y, result.Frame.Scale)
	}

	p := ic.Processor()
	if opts.preview {
		previewPath := utils.OutputFilename(input, base, out.OutputDir, out.Prefix, out.Suffix+"_preview", "png")
		if err := p.SaveImage(ic.Preview(s, doc), previewPath, types.OutputOptions{Format: "png"}); err != nil {
			log.Printf("preview save %s failed: %v", previewPath, err)
		} else {
			log.Printf("wrote %s", previewPath)
		}
	}

	if opts.debug {
		dbgPath := utils.OutputFilename(input, base, out.OutputDir, out.Prefix, out.Suffix+"_debug", "png")
		dbg := p.CreateDebugOverlay(doc.Image, result.Rect)
		if err := p.SaveImage(dbg, dbgPath, types.OutputOptions{Format: "png"}); err != nil {
			log.Printf("debug save %s failed: %v", dbgPath, err)
		} else {
			log.Printf("wrote %s", dbgPath)
		}
	}

	if opts.base64 {
		enc, err := p.EncodeBase64(result.Image, opts.process.Output, 0)
		if err != nil {
			return fmt.Errorf("base64 encode failed: %w", err)
		}
		fmt.Printf("%s\t%s\n", input, enc)
	}

	rep := report{
		Source:     input,
		Output:     cropPath,
		Image:      doc.Size,
		Multiplier: s.Multiplier(),
		Scale:      result.Frame.Scale,
		Position:   result.Position,
		Offset:     s.Offset(),
		Crop:       result.Rect,
	}
	js, _ := json.MarshalIndent(rep, "", "  ")
	jsonPath := strings.TrimSuffix(cropPath, filepath.Ext(cropPath)) + ".json"
	return os.WriteFile(jsonPath, js, 0o644)
}
