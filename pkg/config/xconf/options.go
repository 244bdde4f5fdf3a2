package xconf

// Options 解析选项
type Options struct {
	// Delim 键路径分隔符，默认 "."
	Delim string

	// Tag Unmarshal 使用的结构体标签，默认 "koanf"
	Tag string
}

// Option 解析选项函数
type Option func(*Options)

func applyOptions(opts []Option) *Options {
	o := &Options{Delim: ".", Tag: "koanf"}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithDelim 设置键路径分隔符，空串被忽略。
func WithDelim(delim string) Option {
	return func(o *Options) {
		if delim != "" {
			o.Delim = delim
		}
	}
}

// WithTag 设置结构体标签名，空串被忽略。
func WithTag(tag string) Option {
	return func(o *Options) {
		if tag != "" {
			o.Tag = tag
		}
	}
}
