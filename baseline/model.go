// Package baseline - single-view 6D pose regression from RGB-D crops.
//
// The model lifts pretrained 2D image features into a metric voxel grid
// using the depth channel, runs a small 3D convolutional head over the grid,
// and regresses a quaternion and a translation per foreground class.
package baseline

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-pose/backbone"
	"github.com/nvr-ai/go-pose/nn"
	"github.com/nvr-ai/go-pose/voxel"
)

const (
	// InputSize is the fixed side length of the RGB and point-cloud crops.
	InputSize = 256
	// VoxelDim is the number of cells per axis of the feature grid.
	VoxelDim = 32
	// FeatureChannels is the width of the projected 2D features.
	FeatureChannels = 16

	backboneChannels = 512
	headDim          = 8
	fcWidth          = 1024
)

// ModelStore resolves a class id to its reference CAD point cloud in the
// object frame.
type ModelStore interface {
	PointCloud(classID int) ([]r3.Vec, error)
}

// Config fixes the model topology.
type Config struct {
	// NumClasses is the number of foreground classes the heads regress.
	NumClasses int
	// FreezeUntil records through which backbone block the pretrained
	// weights are held fixed during fine-tuning. "none" freezes nothing.
	FreezeUntil backbone.Tap
	// Voxelization selects how features sharing a voxel are reduced.
	Voxelization voxel.Policy
	// UseOccupancy appends the non-target and observed-empty occupancy
	// grids as two extra voxel channels.
	UseOccupancy bool
	// Seed drives weight initialization.
	Seed int64
}

func (c Config) validate() error {
	if c.NumClasses <= 0 {
		return fmt.Errorf("number of classes must be positive, got %d", c.NumClasses)
	}
	if !c.Voxelization.Valid() {
		return fmt.Errorf("unknown voxelization policy %q", c.Voxelization)
	}
	if !backbone.ValidFreezePoint(c.FreezeUntil) {
		return fmt.Errorf("invalid freeze point %q", c.FreezeUntil)
	}
	return nil
}

// Model is the pose regression network.
type Model struct {
	cfg       Config
	store     ModelStore
	extractor backbone.Extractor

	// conv5 projects backbone features to FeatureChannels at full input
	// resolution; it runs inside a small compute graph, see project.
	conv5W *tensor.Dense
	conv5B *tensor.Dense

	conv6   *nn.Conv3D
	conv7   *nn.Conv3D
	fc8     *nn.Linear
	fcRot   *nn.Linear
	fcTrans *nn.Linear
}

// New builds a model with freshly initialized head weights.
func New(store ModelStore, extractor backbone.Extractor, cfg Config) (*Model, error) {
	if cfg.FreezeUntil == "" {
		cfg.FreezeUntil = backbone.TapNone
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("model store is nil")
	}
	if extractor == nil {
		return nil, fmt.Errorf("feature extractor is nil")
	}

	voxCh := FeatureChannels
	if cfg.UseOccupancy {
		voxCh += 2
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	flat := FeatureChannels * headDim * headDim * headDim
	return &Model{
		cfg:       cfg,
		store:     store,
		extractor: extractor,
		conv5W:    nn.Gaussian(rng, 0.01, FeatureChannels, backboneChannels, 1, 1),
		conv5B:    nn.Zeros(1, FeatureChannels, 1, 1),
		conv6:     nn.NewConv3D(rng, voxCh, FeatureChannels, 4, 2, 1),
		conv7:     nn.NewConv3D(rng, FeatureChannels, FeatureChannels, 4, 2, 1),
		fc8:       nn.NewLinear(rng, flat, fcWidth),
		fcRot:     nn.NewLinear(rng, fcWidth, 4*cfg.NumClasses),
		fcTrans:   nn.NewLinear(rng, fcWidth, 3*cfg.NumClasses),
	}, nil
}

// Config returns the model's topology configuration.
func (m *Model) Config() Config { return m.cfg }

// Params exposes the head weights by name for checkpointing.
func (m *Model) Params() map[string]*tensor.Dense {
	return map[string]*tensor.Dense{
		"conv5.w":    m.conv5W,
		"conv5.b":    m.conv5B,
		"conv6.w":    m.conv6.W,
		"conv6.b":    m.conv6.B,
		"conv7.w":    m.conv7.W,
		"conv7.b":    m.conv7.B,
		"fc8.w":      m.fc8.W,
		"fc8.b":      m.fc8.B,
		"fc_rot.w":   m.fcRot.W,
		"fc_rot.b":   m.fcRot.B,
		"fc_trans.w": m.fcTrans.W,
		"fc_trans.b": m.fcTrans.B,
	}
}

// SaveCheckpoint writes the head weights to path.
func (m *Model) SaveCheckpoint(path string) error {
	return nn.SaveCheckpoint(path, m.Params())
}

// LoadCheckpoint restores head weights saved by SaveCheckpoint. Every live
// parameter must be present with a matching shape.
func (m *Model) LoadCheckpoint(path string) error {
	saved, err := nn.LoadCheckpoint(path)
	if err != nil {
		return err
	}
	return nn.RestoreInto(m.Params(), saved)
}
