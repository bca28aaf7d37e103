// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package assets

import "fmt"

// ChannelKind identifies which transform component an animation
// Channel drives (§3.2).
type ChannelKind uint8

const (
	ChannelTranslation ChannelKind = 0
	ChannelRotation    ChannelKind = 1
	ChannelScale       ChannelKind = 2
	ChannelWeights     ChannelKind = 3
)

// Keyframe is one sample of a Channel at a point in time. Values
// holds 3 floats for translation/scale, 4 for rotation (quaternion),
// or a variable count for morph-target weights.
type Keyframe struct {
	Time   float32
	Values []float32
}

// Channel animates one joint's transform component over time. Times
// across Keyframes must be strictly increasing (§3.3).
type Channel struct {
	JointName string
	Kind      ChannelKind
	Keyframes []Keyframe
}

// Animation is the baked, canonical form of an animation clip (§3.2).
type Animation struct {
	Name     string
	Duration float32
	Channels []Channel
}

// Validate checks §3.3's animation invariants: per-channel keyframe
// times strictly increase, and duration is at least the largest
// keyframe time across all channels.
func (a *Animation) Validate() error {
	var maxTime float32
	for ci, ch := range a.Channels {
		var prev float32 = -1
		for ki, kf := range ch.Keyframes {
			if ki > 0 && kf.Time <= prev {
				return fmt.Errorf("animation: channel %d (%s) keyframe %d time %v is not strictly greater than previous %v",
					ci, ch.JointName, ki, kf.Time, prev)
			}
			prev = kf.Time
			if kf.Time > maxTime {
				maxTime = kf.Time
			}
		}
	}
	if a.Duration < maxTime {
		return fmt.Errorf("animation: duration %v is less than largest keyframe time %v", a.Duration, maxTime)
	}
	return nil
}

func (a *Animation) MarshalBinary() ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	e := newEncoder()
	e.str(a.Name)
	e.f32(a.Duration)
	e.u32(uint32(len(a.Channels)))
	for _, ch := range a.Channels {
		e.str(ch.JointName)
		e.u8(uint8(ch.Kind))
		e.u32(uint32(len(ch.Keyframes)))
		for _, kf := range ch.Keyframes {
			e.f32(kf.Time)
			e.u32(uint32(len(kf.Values)))
			for _, v := range kf.Values {
				e.f32(v)
			}
		}
	}
	return e.bytes(), nil
}

func (a *Animation) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	var err error
	if a.Name, err = d.str(); err != nil {
		return fmt.Errorf("assets: decoding animation name: %w", err)
	}
	if a.Duration, err = d.f32(); err != nil {
		return fmt.Errorf("assets: decoding animation duration: %w", err)
	}
	channelCount, err := d.u32()
	if err != nil {
		return fmt.Errorf("assets: decoding animation channel count: %w", err)
	}
	a.Channels = make([]Channel, channelCount)
	for ci := range a.Channels {
		ch := &a.Channels[ci]
		if ch.JointName, err = d.str(); err != nil {
			return fmt.Errorf("assets: decoding channel %d joint name: %w", ci, err)
		}
		kind, err := d.u8()
		if err != nil {
			return fmt.Errorf("assets: decoding channel %d kind: %w", ci, err)
		}
		ch.Kind = ChannelKind(kind)
		keyframeCount, err := d.u32()
		if err != nil {
			return fmt.Errorf("assets: decoding channel %d keyframe count: %w", ci, err)
		}
		ch.Keyframes = make([]Keyframe, keyframeCount)
		for ki := range ch.Keyframes {
			kf := &ch.Keyframes[ki]
			if kf.Time, err = d.f32(); err != nil {
				return fmt.Errorf("assets: decoding channel %d keyframe %d time: %w", ci, ki, err)
			}
			valueCount, err := d.u32()
			if err != nil {
				return fmt.Errorf("assets: decoding channel %d keyframe %d value count: %w", ci, ki, err)
			}
			kf.Values = make([]float32, valueCount)
			for vi := range kf.Values {
				if kf.Values[vi], err = d.f32(); err != nil {
					return fmt.Errorf("assets: decoding channel %d keyframe %d value %d: %w", ci, ki, vi, err)
				}
			}
		}
	}
	if !d.done() {
		return fmt.Errorf("assets: trailing bytes after animation encoding")
	}
	return a.Validate()
}
