package config

type SplitConfig struct {
	DumpPath      string
	Width         int
	Height        int
	Prefix        string
	Offset        int64
	SkipEmptyTail bool
	FrameLogDir   string
	PublishAddr   string
	ProgressPort  int
	LogLevel      string
}

func (c SplitConfig) FrameSize() int64 {
	return int64(c.Width) * int64(c.Height)
}
