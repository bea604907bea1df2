package compiler

import "strings"

// Options tunes lowering and the emitted encode settings.
type Options struct {
	SplitRatio   float64
	FrameRate    int
	VideoCodec   string
	VideoPreset  string
	CRF          int
	AudioCodec   string
	AudioBitrate string
	PiPMargin    int
}

const (
	defaultSplitRatio   = 0.65
	defaultFrameRate    = 30
	defaultVideoCodec   = "libx264"
	defaultVideoPreset  = "medium"
	defaultCRF          = 20
	defaultAudioCodec   = "aac"
	defaultAudioBitrate = "192k"
	defaultPiPMargin    = 32
)

// DefaultOptions returns broadly compatible H.264/AAC settings.
func DefaultOptions() Options {
	return Options{
		SplitRatio:   defaultSplitRatio,
		FrameRate:    defaultFrameRate,
		VideoCodec:   defaultVideoCodec,
		VideoPreset:  defaultVideoPreset,
		CRF:          defaultCRF,
		AudioCodec:   defaultAudioCodec,
		AudioBitrate: defaultAudioBitrate,
		PiPMargin:    defaultPiPMargin,
	}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.SplitRatio <= 0 || o.SplitRatio >= 1 {
		o.SplitRatio = d.SplitRatio
	}
	if o.FrameRate <= 0 {
		o.FrameRate = d.FrameRate
	}
	if strings.TrimSpace(o.VideoCodec) == "" {
		o.VideoCodec = d.VideoCodec
	}
	if strings.TrimSpace(o.VideoPreset) == "" {
		o.VideoPreset = d.VideoPreset
	}
	if o.CRF <= 0 || o.CRF > 51 {
		o.CRF = d.CRF
	}
	if strings.TrimSpace(o.AudioCodec) == "" {
		o.AudioCodec = d.AudioCodec
	}
	if strings.TrimSpace(o.AudioBitrate) == "" {
		o.AudioBitrate = d.AudioBitrate
	}
	if o.PiPMargin <= 0 {
		o.PiPMargin = d.PiPMargin
	}
	return o
}
