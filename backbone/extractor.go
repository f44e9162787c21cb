// Package backbone - pretrained image feature extraction for the pose
// network.
package backbone

import (
	"fmt"

	"gorgonia.org/tensor"
)

// Extractor produces a stride-8 convolutional feature map from a batch of
// RGB frames. Implementations take (B, 3, H, W) float32 input with channel
// values in [0, 255] and return (B, C, H/stride, W/stride).
type Extractor interface {
	Extract(rgb *tensor.Dense) (*tensor.Dense, error)
	Close() error
}

// Tap identifies an intermediate VGG16 activation.
type Tap string

// The four taps the network exposes, ordered shallow to deep.
const (
	TapConv1_2 Tap = "conv1_2"
	TapConv2_2 Tap = "conv2_2"
	TapConv3_3 Tap = "conv3_3"
	TapConv4_3 Tap = "conv4_3"
)

// TapNone disables backbone freezing when used as a freeze point.
const TapNone Tap = "none"

// tapInfo gives the output channel count and stride of each tap.
var tapInfo = map[Tap]struct {
	channels int
	stride   int
}{
	TapConv1_2: {channels: 64, stride: 1},
	TapConv2_2: {channels: 128, stride: 2},
	TapConv3_3: {channels: 256, stride: 4},
	TapConv4_3: {channels: 512, stride: 8},
}

// ValidTap reports whether name is a known tap.
func ValidTap(name Tap) bool {
	_, ok := tapInfo[name]
	return ok
}

// ValidFreezePoint reports whether name is usable as a freeze point: any tap
// or "none".
func ValidFreezePoint(name Tap) bool {
	return name == TapNone || ValidTap(name)
}

// TapChannels returns the channel count of a tap.
func TapChannels(name Tap) (int, error) {
	info, ok := tapInfo[name]
	if !ok {
		return 0, fmt.Errorf("unknown backbone tap %q", name)
	}
	return info.channels, nil
}

// TapStride returns the cumulative stride of a tap.
func TapStride(name Tap) (int, error) {
	info, ok := tapInfo[name]
	if !ok {
		return 0, fmt.Errorf("unknown backbone tap %q", name)
	}
	return info.stride, nil
}
