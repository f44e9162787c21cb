// Package ycbvideo - read-only access to the YCB-Video CAD model collection.
//
// The collection is a directory with one subdirectory per object class,
// holding the textured mesh (textured_simple.obj) and a sampled surface
// point cloud (points.xyz):
//
//	<root>/002_master_chef_can/textured_simple.obj
//	<root>/002_master_chef_can/points.xyz
//	...
package ycbvideo

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

// ClassNames lists the 21 YCB-Video object classes. Index 0 is the
// background; foreground class ids are 1-based.
var ClassNames = []string{
	"__background__",
	"002_master_chef_can",
	"003_cracker_box",
	"004_sugar_box",
	"005_tomato_soup_can",
	"006_mustard_bottle",
	"007_tuna_fish_can",
	"008_pudding_box",
	"009_gelatin_box",
	"010_potted_meat_can",
	"011_banana",
	"019_pitcher_base",
	"021_bleach_cleanser",
	"024_bowl",
	"025_mug",
	"035_power_drill",
	"036_wood_block",
	"037_scissors",
	"040_large_marker",
	"051_large_clamp",
	"052_extra_large_clamp",
	"061_foam_brick",
}

// NumClasses is the number of foreground classes.
var NumClasses = len(ClassNames) - 1

// Models serves CAD meshes and reference point clouds keyed by class id.
// Point clouds are cached after first load. The value is safe for concurrent
// readers.
type Models struct {
	root string

	mu   sync.Mutex
	pcds map[int][]r3.Vec
}

// NewModels opens a model collection rooted at dir.
func NewModels(dir string) (*Models, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open model collection")
	}
	if !info.IsDir() {
		return nil, errors.Errorf("model collection root %s is not a directory", dir)
	}
	return &Models{
		root: dir,
		pcds: make(map[int][]r3.Vec),
	}, nil
}

// ClassName returns the directory name for a foreground class id.
func (m *Models) ClassName(classID int) (string, error) {
	if classID < 1 || classID >= len(ClassNames) {
		return "", errors.Errorf("class id %d out of range [1, %d]", classID, NumClasses)
	}
	return ClassNames[classID], nil
}

// CADModel returns the path of the textured mesh for a class.
func (m *Models) CADModel(classID int) (string, error) {
	name, err := m.ClassName(classID)
	if err != nil {
		return "", err
	}
	return filepath.Join(m.root, name, "textured_simple.obj"), nil
}

// PointCloud returns the sampled surface point cloud for a class, loading
// and caching it on first use.
func (m *Models) PointCloud(classID int) ([]r3.Vec, error) {
	name, err := m.ClassName(classID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if pcd, ok := m.pcds[classID]; ok {
		return pcd, nil
	}

	pcd, err := LoadXYZ(filepath.Join(m.root, name, "points.xyz"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load point cloud for class %d (%s)", classID, name)
	}
	m.pcds[classID] = pcd
	return pcd, nil
}
