// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package bake

import (
	"fmt"

	"github.com/pak-forge/pak/lib/assets"
	"github.com/pak-forge/pak/lib/bake/meshsource"
	"github.com/pak-forge/pak/lib/content"
)

// BakeAnimation selects an animation clip from a glTF source file and
// converts its channels to the canonical form, dropping channels the
// description excludes. Keyframe times must be strictly increasing
// per channel; glTF exporters guarantee this, but the invariant is
// enforced here rather than trusted.
func BakeAnimation(desc *content.Animation, srcPath string) (*assets.Animation, error) {
	src, err := meshsource.Open(srcPath)
	if err != nil {
		return nil, err
	}
	data, err := src.ExtractAnimation(desc.Name)
	if err != nil {
		return nil, err
	}
	return bakeAnimationData(desc, data)
}

func bakeAnimationData(desc *content.Animation, data *meshsource.AnimationData) (*assets.Animation, error) {
	baked := &assets.Animation{Name: data.Name}

	for _, channel := range data.Channels {
		if desc.Excluded(channel.TargetName, string(channel.Path)) {
			continue
		}
		kind, err := channelKind(channel.Path)
		if err != nil {
			return nil, fmt.Errorf("bake: animation %q joint %q: %w", data.Name, channel.TargetName, err)
		}
		if len(channel.Times) != len(channel.Values) {
			return nil, fmt.Errorf("bake: animation %q joint %q: %d times for %d values",
				data.Name, channel.TargetName, len(channel.Times), len(channel.Values))
		}

		out := assets.Channel{JointName: channel.TargetName, Kind: kind}
		for i, time := range channel.Times {
			out.Keyframes = append(out.Keyframes, assets.Keyframe{
				Time:   time,
				Values: channel.Values[i],
			})
			if time > baked.Duration {
				baked.Duration = time
			}
		}
		baked.Channels = append(baked.Channels, out)
	}

	if err := baked.Validate(); err != nil {
		return nil, fmt.Errorf("bake: animation %q: %w", data.Name, err)
	}
	return baked, nil
}

func channelKind(path meshsource.ChannelPath) (assets.ChannelKind, error) {
	switch path {
	case meshsource.PathTranslation:
		return assets.ChannelTranslation, nil
	case meshsource.PathRotation:
		return assets.ChannelRotation, nil
	case meshsource.PathScale:
		return assets.ChannelScale, nil
	case meshsource.PathWeights:
		return assets.ChannelWeights, nil
	default:
		return 0, fmt.Errorf("unknown channel path %q", path)
	}
}
