// Command posebench scores a pose-regression checkpoint over serialized
// RGB-D batches and reports ADD / ADD-S statistics: per-class means, a JSON
// report, and an accuracy-versus-threshold curve.
package main

import (
	"encoding/gob"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/nvr-ai/go-pose/backbone"
	"github.com/nvr-ai/go-pose/baseline"
	"github.com/nvr-ai/go-pose/dataset/ycbvideo"
	"github.com/nvr-ai/go-pose/metrics"
	"github.com/nvr-ai/go-pose/voxel"
)

const (
	curveMaxMeters = 0.10
	curveSteps     = 100
)

type accuracyPoint struct {
	Threshold float64 `json:"threshold_m"`
	ADD       float64 `json:"add"`
	ADDS      float64 `json:"add_s"`
}

type report struct {
	Samples  int                `json:"samples"`
	Means    map[string]float64 `json:"means"`
	Accuracy []accuracyPoint    `json:"accuracy"`
}

func main() {
	var (
		modelsDir  = flag.String("models", "", "YCB-Video CAD model collection root")
		batchesDir = flag.String("batches", "", "directory of gob-encoded evaluation batches")
		backbonePt = flag.String("backbone", "", "path to the VGG16 ONNX export")
		onnxLib    = flag.String("onnxlib", "", "optional onnxruntime shared library path")
		checkpoint = flag.String("checkpoint", "", "head weights to restore")
		tap        = flag.String("tap", string(backbone.TapConv4_3), "backbone activation tap")
		policy     = flag.String("policy", string(voxel.Average), "voxel aggregation policy (average|max)")
		classes    = flag.Int("classes", ycbvideo.NumClasses, "number of foreground classes")
		occupancy  = flag.Bool("occupancy", false, "fuse non-target and empty occupancy grids")
		outDir     = flag.String("out", "posebench-out", "output directory for report.json and accuracy.png")
	)
	flag.Parse()

	if *modelsDir == "" || *batchesDir == "" || *backbonePt == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*modelsDir, *batchesDir, *backbonePt, *onnxLib, *checkpoint, *tap, *policy, *classes, *occupancy, *outDir); err != nil {
		log.Fatalf("posebench: %v", err)
	}
}

func run(modelsDir, batchesDir, backbonePath, onnxLib, checkpoint, tap, policy string, classes int, occupancy bool, outDir string) error {
	models, err := ycbvideo.NewModels(modelsDir)
	if err != nil {
		return err
	}

	extractor, err := backbone.NewVGG16(backbone.VGG16Config{
		ModelPath:   backbonePath,
		LibraryPath: onnxLib,
		Tap:         backbone.Tap(tap),
	})
	if err != nil {
		return err
	}
	defer extractor.Close()

	model, err := baseline.New(models, extractor, baseline.Config{
		NumClasses:   classes,
		Voxelization: voxel.Policy(policy),
		UseOccupancy: occupancy,
	})
	if err != nil {
		return err
	}
	if checkpoint != "" {
		if err := model.LoadCheckpoint(checkpoint); err != nil {
			return fmt.Errorf("failed to restore checkpoint: %w", err)
		}
		log.Printf("restored head weights from %s", checkpoint)
	}

	files, err := filepath.Glob(filepath.Join(batchesDir, "*.gob"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .gob batches found under %s", batchesDir)
	}
	sort.Strings(files)

	var results []baseline.Result
	for i, path := range files {
		batch, err := loadBatch(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		res, err := model.Evaluate(batch)
		if err != nil {
			return fmt.Errorf("evaluation of %s failed: %w", path, err)
		}
		results = append(results, res...)
		log.Printf("batch %d/%d: %s scored %d samples", i+1, len(files), filepath.Base(path), len(res))
	}
	if len(results) == 0 {
		return fmt.Errorf("batches contained no scorable samples")
	}

	summary := metrics.NewSummary()
	for _, r := range results {
		summary.Add("add", r.ADD)
		summary.Add("add_s", r.ADDS)
		summary.Add(fmt.Sprintf("add/%04d", r.ClassID), r.ADD)
		summary.Add(fmt.Sprintf("add_s/%04d", r.ClassID), r.ADDS)
	}
	for _, key := range summary.Keys() {
		mean, _ := summary.Mean(key)
		log.Printf("%-12s mean=%.4fm n=%d", key, mean, summary.Count(key))
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	curve := accuracyCurve(results)
	if err := writeReport(filepath.Join(outDir, "report.json"), report{
		Samples:  len(results),
		Means:    summary.Means(),
		Accuracy: curve,
	}); err != nil {
		return err
	}
	if err := plotCurve(filepath.Join(outDir, "accuracy.png"), curve); err != nil {
		return err
	}
	log.Printf("wrote report and accuracy curve to %s", outDir)
	return nil
}

func loadBatch(path string) (*baseline.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var batch baseline.Batch
	if err := gob.NewDecoder(f).Decode(&batch); err != nil {
		return nil, fmt.Errorf("gob decode failed: %w", err)
	}
	return &batch, nil
}

// accuracyCurve computes, for thresholds up to curveMaxMeters, the fraction
// of samples whose error falls under each threshold.
func accuracyCurve(results []baseline.Result) []accuracyPoint {
	curve := make([]accuracyPoint, curveSteps+1)
	n := float64(len(results))
	for i := 0; i <= curveSteps; i++ {
		threshold := curveMaxMeters * float64(i) / curveSteps
		var hitADD, hitADDS int
		for _, r := range results {
			if r.ADD < threshold {
				hitADD++
			}
			if r.ADDS < threshold {
				hitADDS++
			}
		}
		curve[i] = accuracyPoint{
			Threshold: threshold,
			ADD:       float64(hitADD) / n,
			ADDS:      float64(hitADDS) / n,
		}
	}
	return curve
}

func writeReport(path string, r report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func plotCurve(path string, curve []accuracyPoint) error {
	p := plot.New()
	p.Title.Text = "Pose accuracy"
	p.X.Label.Text = "Threshold (m)"
	p.Y.Label.Text = "Fraction of samples"
	p.Y.Min, p.Y.Max = 0, 1

	addPts := make(plotter.XYs, len(curve))
	addSPts := make(plotter.XYs, len(curve))
	for i, pt := range curve {
		addPts[i] = plotter.XY{X: pt.Threshold, Y: pt.ADD}
		addSPts[i] = plotter.XY{X: pt.Threshold, Y: pt.ADDS}
	}

	addLine, err := plotter.NewLine(addPts)
	if err != nil {
		return err
	}
	addSLine, err := plotter.NewLine(addSPts)
	if err != nil {
		return err
	}
	addSLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(addLine, addSLine)
	p.Legend.Add("ADD", addLine)
	p.Legend.Add("ADD-S", addSLine)
	p.Legend.Top = true
	p.Legend.Left = true

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save accuracy plot: %w", err)
	}
	return nil
}
