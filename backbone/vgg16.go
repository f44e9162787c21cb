package backbone

import (
	"fmt"
	"log"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"
)

// ImageNetMean is the per-channel RGB mean subtracted before the backbone,
// matching the statistics the pretrained VGG16 weights were trained with.
var ImageNetMean = [3]float32{123.68, 116.779, 103.939}

// VGG16Config configures the ONNX-backed feature extractor.
type VGG16Config struct {
	// ModelPath is the VGG16 ONNX export exposing the intermediate
	// activations as graph outputs named after their taps.
	ModelPath string
	// LibraryPath optionally overrides the onnxruntime shared library
	// location.
	LibraryPath string
	// InputName is the graph input node; defaults to "input".
	InputName string
	// Tap selects which activation to return; defaults to conv4_3.
	Tap Tap
}

var ortInit struct {
	once sync.Once
	err  error
}

func initRuntime(libraryPath string) error {
	ortInit.once.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortInit.err = ort.InitializeEnvironment()
	})
	return ortInit.err
}

// VGG16 extracts pretrained VGG16 features through an onnxruntime session.
type VGG16 struct {
	session   *ort.DynamicAdvancedSession
	tap       Tap
	channels  int
	stride    int
	inputName string
	mean      [3]float32
}

// NewVGG16 opens the backbone session.
func NewVGG16(cfg VGG16Config) (*VGG16, error) {
	if cfg.Tap == "" {
		cfg.Tap = TapConv4_3
	}
	if cfg.InputName == "" {
		cfg.InputName = "input"
	}
	channels, err := TapChannels(cfg.Tap)
	if err != nil {
		return nil, err
	}
	stride, _ := TapStride(cfg.Tap)

	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("backbone model not found at %s: %w", cfg.ModelPath, err)
	}
	if err := initRuntime(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		return nil, fmt.Errorf("failed to set graph optimization level: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{string(cfg.Tap)},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backbone session: %w", err)
	}

	log.Printf("backbone ready: %s tap=%s stride=%d", cfg.ModelPath, cfg.Tap, stride)
	return &VGG16{
		session:   session,
		tap:       cfg.Tap,
		channels:  channels,
		stride:    stride,
		inputName: cfg.InputName,
		mean:      ImageNetMean,
	}, nil
}

// Tap returns the activation this extractor produces.
func (v *VGG16) Tap() Tap { return v.tap }

// Extract runs the backbone over a (B, 3, H, W) batch and returns the
// selected tap as (B, C, H/stride, W/stride).
func (v *VGG16) Extract(rgb *tensor.Dense) (*tensor.Dense, error) {
	s := rgb.Shape()
	if len(s) != 4 || s[1] != 3 {
		return nil, fmt.Errorf("backbone input must be (B,3,H,W), got shape %v", s)
	}
	batch, h, w := s[0], s[2], s[3]
	if h%v.stride != 0 || w%v.stride != 0 {
		return nil, fmt.Errorf("input %dx%d is not divisible by tap stride %d", h, w, v.stride)
	}

	// Mean-subtract into a copy; the caller's batch stays untouched.
	src := rgb.Data().([]float32)
	data := make([]float32, len(src))
	plane := h * w
	for b := 0; b < batch; b++ {
		for c := 0; c < 3; c++ {
			base := (b*3 + c) * plane
			m := v.mean[c]
			for i := 0; i < plane; i++ {
				data[base+i] = src[base+i] - m
			}
		}
	}

	input, err := ort.NewTensor(ort.NewShape(int64(batch), 3, int64(h), int64(w)), data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	oh, ow := h/v.stride, w/v.stride
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(batch), int64(v.channels), int64(oh), int64(ow)))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer output.Destroy()

	if err := v.session.Run([]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output}); err != nil {
		return nil, fmt.Errorf("backbone inference failed: %w", err)
	}

	out := make([]float32, len(output.GetData()))
	copy(out, output.GetData())
	return tensor.New(
		tensor.WithShape(batch, v.channels, oh, ow),
		tensor.WithBacking(out),
	), nil
}

// Close releases the session.
func (v *VGG16) Close() error {
	if v.session == nil {
		return nil
	}
	if err := v.session.Destroy(); err != nil {
		return fmt.Errorf("failed to destroy backbone session: %w", err)
	}
	v.session = nil
	return nil
}
