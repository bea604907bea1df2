package config

const (
	defaultStateDir          = "~/.local/share/montage"
	defaultLogDir            = "~/.local/share/montage/logs"
	defaultOutputDir         = "~/Videos/montage"
	defaultAPIBind           = "127.0.0.1:7490"
	defaultOutputWidth       = 1920
	defaultOutputHeight      = 1080
	defaultFrameRate         = 30
	defaultSplitRatio        = 0.65
	defaultFFmpegBinary      = "ffmpeg"
	defaultFFprobeBinary     = "ffprobe"
	defaultVideoPreset       = "medium"
	defaultCRF               = 20
	defaultAudioBitrate      = "192k"
	defaultRenderTimeout     = 7200
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
	maxCRF                   = 51
	maxFrameRate             = 240
	maxOutputDimensionPixels = 8192
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
			OutputDir: defaultOutputDir,
			APIBind:   defaultAPIBind,
		},
		Output: Output{
			Width:      defaultOutputWidth,
			Height:     defaultOutputHeight,
			FrameRate:  defaultFrameRate,
			SplitRatio: defaultSplitRatio,
		},
		Encoding: Encoding{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			VideoPreset:   defaultVideoPreset,
			CRF:           defaultCRF,
			AudioBitrate:  defaultAudioBitrate,
			RenderTimeout: defaultRenderTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
